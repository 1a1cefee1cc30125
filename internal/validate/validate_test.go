package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oyilmaz/priceradar/internal/models"
)

func TestIsValid(t *testing.T) {
	v := NewPriceValidator(DefaultTolerance)

	tests := []struct {
		name      string
		found     *float64
		reference *float64
		valid     bool
	}{
		{"Exact match", models.Float64Ptr(1000), models.Float64Ptr(1000), true},
		{"Lower boundary inclusive", models.Float64Ptr(650), models.Float64Ptr(1000), true},
		{"Just below lower boundary", models.Float64Ptr(649), models.Float64Ptr(1000), false},
		{"Upper boundary inclusive", models.Float64Ptr(1350), models.Float64Ptr(1000), true},
		{"Just above upper boundary", models.Float64Ptr(1351), models.Float64Ptr(1000), false},
		{"No reference accepts anything", models.Float64Ptr(42), nil, true},
		{"Non-positive reference accepts anything", models.Float64Ptr(42), models.Float64Ptr(0), true},
		{"Missing found price rejected", nil, models.Float64Ptr(1000), false},
		{"Non-positive found price rejected", models.Float64Ptr(0), models.Float64Ptr(1000), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, v.IsValid(tt.found, tt.reference))
		})
	}
}

func TestNewPriceValidatorDefaultsTolerance(t *testing.T) {
	v := NewPriceValidator(0)
	assert.True(t, v.IsValid(models.Float64Ptr(650), models.Float64Ptr(1000)))
	assert.False(t, v.IsValid(models.Float64Ptr(649), models.Float64Ptr(1000)))
}
