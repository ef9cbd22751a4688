package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"

	"carrental/internal/models"
)

// GetBookings lists bookings for the admin panel.
func (c *Client) GetBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	var bookings []models.Booking
	err := c.Request(ctx, http.MethodGet, withQuery("/bookings", filter.Values()), nil, &bookings, WithKey(KeyGetBookings))
	return bookings, err
}

// GetUserBookings lists the bookings of one user.
func (c *Client) GetUserBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := c.Request(ctx, http.MethodGet, "/bookings/user/"+url.PathEscape(userID), nil, &bookings)
	return bookings, err
}

func (c *Client) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := c.Request(ctx, http.MethodGet, "/bookings/"+url.PathEscape(id), nil, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// CreateBooking submits a new booking. It is never keyed: a submission must
// not be cancelled by a second one.
func (c *Client) CreateBooking(ctx context.Context, draft models.BookingDraft) (*models.Booking, error) {
	if err := draft.Validate(); err != nil {
		return nil, errors.Wrap(err, "apiclient: invalid booking")
	}
	var booking models.Booking
	if err := c.Request(ctx, http.MethodPost, "/bookings", draft, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdateBookingStatus moves a booking to status (admin action).
func (c *Client) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error) {
	if !status.Valid() {
		return nil, errors.Wrapf(models.ErrInvalidBookingStatus, "%q", status)
	}
	var booking models.Booking
	body := map[string]models.BookingStatus{"status": status}
	if err := c.Request(ctx, http.MethodPatch, "/bookings/"+url.PathEscape(id)+"/status", body, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdateBookingPaymentStatus moves a booking's payment to status (admin action).
func (c *Client) UpdateBookingPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Booking, error) {
	if !status.Valid() {
		return nil, errors.Wrapf(models.ErrInvalidPaymentStatus, "%q", status)
	}
	var booking models.Booking
	body := map[string]models.PaymentStatus{"paymentStatus": status}
	if err := c.Request(ctx, http.MethodPatch, "/bookings/"+url.PathEscape(id)+"/payment", body, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	return c.Request(ctx, http.MethodDelete, "/bookings/"+url.PathEscape(id), nil, nil)
}
