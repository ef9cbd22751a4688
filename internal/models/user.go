package models

import "time"

// Role of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account as returned by the backend.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
}

// UserInput is the admin create/update payload.
type UserInput struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Role   Role   `json:"role,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Registration is the sign-up payload.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// PopularCar is a car with its booking count.
type PopularCar struct {
	Car
	BookingsCount int `json:"bookingsCount"`
}

// DashboardStats feeds the admin dashboard.
type DashboardStats struct {
	CarsCount      int          `json:"carsCount"`
	BookingsCount  int          `json:"bookingsCount"`
	UsersCount     int          `json:"usersCount"`
	Revenue        int64        `json:"revenue"`
	RecentBookings []Booking    `json:"recentBookings"`
	PopularCars    []PopularCar `json:"popularCars"`
}
