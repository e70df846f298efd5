package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "whole number unchanged", in: "10", want: "10"},
		{name: "exact cutoff rounds down", in: "10.4", want: "10"},
		{name: "just above cutoff rounds up", in: "10.40001", want: "11"},
		{name: "half rounds up", in: "10.5", want: "11"},
		{name: "below cutoff rounds down", in: "10.39", want: "10"},
		{name: "near ceiling rounds up", in: "10.99", want: "11"},
		{name: "zero unchanged", in: "0", want: "0"},
		{name: "small fraction rounds down", in: "0.4", want: "0"},
		{name: "small fraction rounds up", in: "0.41", want: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := decimal.RequireFromString(tt.in)
			want := decimal.RequireFromString(tt.want)

			got := Round(in)
			assert.True(t, want.Equal(got), "Round(%s) = %s, want %s", tt.in, got, want)
		})
	}
}

func TestRoundIdempotent(t *testing.T) {
	values := []string{"0", "0.2", "0.4", "0.7", "10.4", "10.41", "99.99", "1234.567"}
	for _, v := range values {
		d := decimal.RequireFromString(v)
		once := Round(d)
		twice := Round(once)
		assert.True(t, once.Equal(twice), "Round not idempotent for %s: %s vs %s", v, once, twice)
	}
}

func TestFloorAtZero(t *testing.T) {
	assert.True(t, FloorAtZero(decimal.NewFromInt(-5)).IsZero())
	assert.True(t, FloorAtZero(decimal.NewFromInt(5)).Equal(decimal.NewFromInt(5)))
	assert.True(t, FloorAtZero(decimal.Zero).IsZero())
}
