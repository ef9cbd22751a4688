package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"

	"carrental/internal/models"
)

// Logical keys of high-churn queries.
const (
	KeyGetCars          = "get-cars"
	KeySearchCars       = "search-cars"
	KeyGetBookings      = "get-bookings"
	keyAvailabilityBase = "check-availability:"
)

// AvailabilityKey is the logical key of availability checks for one car.
func AvailabilityKey(carID string) string {
	return keyAvailabilityBase + carID
}

// GetCars lists the catalog. Re-filtering supersedes the previous listing.
func (c *Client) GetCars(ctx context.Context, filter models.CarFilter) ([]models.Car, error) {
	var cars []models.Car
	err := c.Request(ctx, http.MethodGet, withQuery("/cars", filter.Values()), nil, &cars, WithKey(KeyGetCars))
	return cars, err
}

// SearchCars runs a free text search.
func (c *Client) SearchCars(ctx context.Context, query string) ([]models.Car, error) {
	var cars []models.Car
	q := url.Values{"q": []string{query}}
	err := c.Request(ctx, http.MethodGet, withQuery("/cars/search", q), nil, &cars, WithKey(KeySearchCars))
	return cars, err
}

// GetCar fetches one car.
func (c *Client) GetCar(ctx context.Context, id string) (*models.Car, error) {
	var car models.Car
	if err := c.Request(ctx, http.MethodGet, "/cars/"+url.PathEscape(id), nil, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// CreateCar adds a car after local validation.
func (c *Client) CreateCar(ctx context.Context, input models.CarInput) (*models.Car, error) {
	if err := input.Validate(); err != nil {
		return nil, errors.Wrap(err, "apiclient: invalid car")
	}
	var car models.Car
	if err := c.Request(ctx, http.MethodPost, "/cars", input, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// UpdateCar replaces the writable fields of a car.
func (c *Client) UpdateCar(ctx context.Context, id string, input models.CarInput) (*models.Car, error) {
	if err := input.Validate(); err != nil {
		return nil, errors.Wrap(err, "apiclient: invalid car")
	}
	var car models.Car
	if err := c.Request(ctx, http.MethodPut, "/cars/"+url.PathEscape(id), input, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// DeleteCar removes a car. The backend answers 204.
func (c *Client) DeleteCar(ctx context.Context, id string) error {
	return c.Request(ctx, http.MethodDelete, "/cars/"+url.PathEscape(id), nil, nil)
}

type availabilityRequest struct {
	StartDate models.Date `json:"startDate"`
	EndDate   models.Date `json:"endDate"`
}

// CheckCarAvailability asks whether [start, end] is free for the car. A newer
// check for the same car supersedes an older one.
func (c *Client) CheckCarAvailability(ctx context.Context, carID string, start, end models.Date) (*models.Availability, error) {
	var out models.Availability
	path := "/cars/" + url.PathEscape(carID) + "/availability"
	err := c.Request(ctx, http.MethodPost, path, availabilityRequest{StartDate: start, EndDate: end}, &out, WithKey(AvailabilityKey(carID)))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}
