package booking

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRenter() RenterDetails {
	return RenterDetails{
		Name:   "Ivan Petrov",
		Email:  "ivan@example.com",
		Phone:  "+7 (912) 345-67-89",
		Agreed: true,
	}
}

func TestValidateRenter(t *testing.T) {
	require.NoError(t, ValidateRenter(validRenter()))

	tests := []struct {
		name   string
		mutate func(*RenterDetails)
		field  string
	}{
		{"short name", func(r *RenterDetails) { r.Name = " I " }, "name"},
		{"bad email", func(r *RenterDetails) { r.Email = "ivan@" }, "email"},
		{"short phone", func(r *RenterDetails) { r.Phone = "+7 912 345" }, "phone"},
		{"not agreed", func(r *RenterDetails) { r.Agreed = false }, "agreed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRenter()
			tt.mutate(&r)

			err := ValidateRenter(r)
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Len(t, verrs, 1)
			assert.Contains(t, verrs, tt.field)
		})
	}
}

func TestValidateRenterReportsAllFields(t *testing.T) {
	err := ValidateRenter(RenterDetails{})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 4)
	assert.Contains(t, err.Error(), "agreed: you must accept the rental terms")
}
