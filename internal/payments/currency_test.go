package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConverter_ToSettlementCurrency(t *testing.T) {
	converter := NewConverter(130.0, "USD", "KES")

	tests := []struct {
		name   string
		amount float64
		want   int64
	}{
		{"whole dollars", 100.0, 13000},
		{"fractional cents round up", 0.5, 65},
		{"rounds to nearest unit", 1.001, 130},
		{"zero", 0, 0},
		{"small fraction rounds down", 0.001, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, converter.ToSettlementCurrency(tt.amount))
		})
	}
}

// The same input must always yield the same output: the converter is applied
// at intent creation, push initiation and settle verification, and any drift
// between those call sites would reject legitimate payments.
func TestConverter_Deterministic(t *testing.T) {
	converter := NewConverter(130.0, "USD", "KES")

	for i := 0; i < 100; i++ {
		assert.Equal(t, int64(6467), converter.ToSettlementCurrency(49.745))
	}
}

func TestConverter_DifferentRates(t *testing.T) {
	assert.Equal(t, int64(100), NewConverter(1.0, "KES", "KES").ToSettlementCurrency(100))
	assert.Equal(t, int64(15050), NewConverter(150.5, "USD", "KES").ToSettlementCurrency(100))
}
