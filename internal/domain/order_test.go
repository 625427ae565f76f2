package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	tests := []struct {
		in   string
		want Side
		ok   bool
	}{
		{in: "BUY", want: SideBuy, ok: true},
		{in: "sell", want: SideSell, ok: true},
		{in: " Buy ", want: SideBuy, ok: true},
		{in: "hold", ok: false},
		{in: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			side, err := ParseSide(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, side)
		})
	}
}

func TestParseOrderType(t *testing.T) {
	tests := []struct {
		in   string
		want OrderType
		ok   bool
	}{
		{in: "LIMIT", want: OrderTypeLimit, ok: true},
		{in: "market", want: OrderTypeMarket, ok: true},
		{in: "stop", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			orderType, err := ParseOrderType(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, orderType)
		})
	}
}

func TestNewLogEntryStartsInitiated(t *testing.T) {
	entry := NewLogEntry(OrderTypeMarket, SideSell, "", "12.3")

	assert.Equal(t, LogStatusInitiated, entry.Status)
	assert.NotEmpty(t, entry.UUID)
	assert.False(t, entry.Timestamp.IsZero())
	assert.Equal(t, "12.3", entry.Quantity)
}
