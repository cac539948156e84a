package billing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/utilitybill/backend/internal/domain/shared"
)

func TestCalculateConsumption(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		current  string
		expected string
		wantErr  bool
	}{
		{"normal consumption", "100", "150", "50", false},
		{"zero consumption", "100", "100", "0", false},
		{"fractional readings", "10.25", "12.75", "2.5", false},
		{"current below previous", "150", "100", "", true},
		{"meter rollover is rejected", "99990", "15", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, err := CalculateConsumption(dec(tt.previous), dec(tt.current))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNegativeConsumption))

				var de *shared.DomainError
				require.True(t, errors.As(err, &de))
				assert.Equal(t, tt.previous, de.Details["previous_reading"])
				assert.Equal(t, tt.current, de.Details["current_reading"])
				return
			}
			require.NoError(t, err)
			assertDecimal(t, tt.expected, units)
		})
	}
}
