package models

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
)

// Car is a catalog entry.
type Car struct {
	ID           string    `json:"id"`
	Title        string    `json:"title" validate:"required"`
	Description  string    `json:"description"`
	Price        int64     `json:"price" validate:"gt=0"`
	Image        string    `json:"image"`
	Images       []string  `json:"images"`
	Year         int       `json:"year" validate:"gte=1900"`
	Seats        int       `json:"seats" validate:"min=1,max=9"`
	Transmission string    `json:"transmission"`
	Fuel         string    `json:"fuel"`
	Category     string    `json:"category"`
	Available    bool      `json:"available"`
	Features     []string  `json:"features"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// CarInput is the writable part of Car used by admin create/update calls.
type CarInput struct {
	Title        string   `json:"title" validate:"required"`
	Description  string   `json:"description"`
	Price        int64    `json:"price" validate:"gt=0"`
	Image        string   `json:"image"`
	Images       []string `json:"images"`
	Year         int      `json:"year" validate:"gte=1900"`
	Seats        int      `json:"seats" validate:"min=1,max=9"`
	Transmission string   `json:"transmission"`
	Fuel         string   `json:"fuel"`
	Category     string   `json:"category"`
	Available    bool     `json:"available"`
	Features     []string `json:"features"`
}

// Availability is the answer of the availability endpoint.
type Availability struct {
	Available     bool   `json:"available"`
	ConflictDates []Date `json:"conflictDates,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the car invariants before it is sent to the backend.
func (c CarInput) Validate() error {
	return Validator().Struct(c)
}

// Input drops server-owned fields. Slices are copied so edits to the input
// never leak back into the fetched car.
func (c Car) Input() CarInput {
	var in CarInput
	// Both sides are plain structs with matching field types.
	_ = copier.CopyWithOption(&in, &c, copier.Option{DeepCopy: true})
	return in
}
