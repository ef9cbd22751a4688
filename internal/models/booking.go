package models

import (
	"time"

	"github.com/cockroachdb/errors"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// PaymentStatus is the payment state of a booking.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// GuestUserID marks bookings made without an account.
const GuestUserID = "guest"

var (
	ErrInvalidBookingStatus = errors.New("models: invalid booking status")
	ErrInvalidPaymentStatus = errors.New("models: invalid payment status")
	ErrInvalidDateRange     = errors.New("models: end date before start date")
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// ParseBookingStatus validates a user supplied status.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.Valid() {
		return "", errors.Wrapf(ErrInvalidBookingStatus, "%q", s)
	}
	return status, nil
}

// ParsePaymentStatus validates a user supplied payment status.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if !status.Valid() {
		return "", errors.Wrapf(ErrInvalidPaymentStatus, "%q", s)
	}
	return status, nil
}

// UserDetails is the renter contact block attached to a booking.
type UserDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CarDetails is the denormalized car block returned with bookings.
type CarDetails struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Image    string `json:"image"`
}

// Booking is a reservation of one car for a date range.
type Booking struct {
	ID            string        `json:"id"`
	CarID         string        `json:"carId"`
	UserID        string        `json:"userId"`
	StartDate     Date          `json:"startDate"`
	EndDate       Date          `json:"endDate"`
	TotalPrice    int64         `json:"totalPrice"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	CreatedAt     time.Time     `json:"createdAt,omitempty"`
	UpdatedAt     time.Time     `json:"updatedAt,omitempty"`
	UserDetails   *UserDetails  `json:"userDetails,omitempty"`
	CarDetails    *CarDetails   `json:"carDetails,omitempty"`
}

// BookingDraft is the create payload.
type BookingDraft struct {
	CarID         string        `json:"carId"`
	UserID        string        `json:"userId"`
	StartDate     Date          `json:"startDate"`
	EndDate       Date          `json:"endDate"`
	TotalPrice    int64         `json:"totalPrice"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	UserDetails   *UserDetails  `json:"userDetails,omitempty"`
}

// Validate enforces the range and status invariants of a new booking.
func (d BookingDraft) Validate() error {
	if d.CarID == "" {
		return errors.New("models: booking car id is required")
	}
	if d.StartDate.IsZero() || d.EndDate.IsZero() {
		return errors.New("models: booking dates are required")
	}
	if d.EndDate.Before(d.StartDate) {
		return ErrInvalidDateRange
	}
	if !d.Status.Valid() {
		return ErrInvalidBookingStatus
	}
	if !d.PaymentStatus.Valid() {
		return ErrInvalidPaymentStatus
	}
	return nil
}
