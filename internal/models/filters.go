package models

import (
	"net/url"
	"strconv"
)

// CarSort orders the catalog.
type CarSort string

const (
	SortPriceAsc  CarSort = "price_asc"
	SortPriceDesc CarSort = "price_desc"
	SortYearDesc  CarSort = "year_desc"
	SortYearAsc   CarSort = "year_asc"
)

// CarFilter narrows the catalog. Zero fields are not sent.
type CarFilter struct {
	Category     string
	MinPrice     *int64
	MaxPrice     *int64
	Seats        int
	Transmission string
	Fuel         string
	Available    *bool
	Search       string
	Sort         CarSort
}

// Values encodes the filter as query parameters.
func (f CarFilter) Values() url.Values {
	v := url.Values{}
	setString(v, "category", f.Category)
	if f.MinPrice != nil {
		v.Set("minPrice", strconv.FormatInt(*f.MinPrice, 10))
	}
	if f.MaxPrice != nil {
		v.Set("maxPrice", strconv.FormatInt(*f.MaxPrice, 10))
	}
	if f.Seats > 0 {
		v.Set("seats", strconv.Itoa(f.Seats))
	}
	setString(v, "transmission", f.Transmission)
	setString(v, "fuel", f.Fuel)
	if f.Available != nil {
		v.Set("available", strconv.FormatBool(*f.Available))
	}
	setString(v, "search", f.Search)
	setString(v, "sort", string(f.Sort))
	return v
}

// BookingFilter narrows the admin booking list.
type BookingFilter struct {
	Status        BookingStatus
	PaymentStatus PaymentStatus
	StartDate     Date
	EndDate       Date
	UserID        string
	CarID         string
}

// Values encodes the filter as query parameters.
func (f BookingFilter) Values() url.Values {
	v := url.Values{}
	setString(v, "status", string(f.Status))
	setString(v, "paymentStatus", string(f.PaymentStatus))
	setString(v, "startDate", f.StartDate.String())
	setString(v, "endDate", f.EndDate.String())
	setString(v, "userId", f.UserID)
	setString(v, "carId", f.CarID)
	return v
}

func setString(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
