package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityUnmarshal_PlainDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want int64 // scaled
	}{
		{`"12.5"`, 125000},
		{`12.5`, 125000},
		{`"0.0001"`, 1},
		{`"-3.25"`, -32500},
		{`"+7"`, 70000},
		{`"100"`, 1000000},
		{`".5"`, 5000},
		{`"2.12345"`, 21234}, // extra digits truncated at scale 4
	}
	for _, tc := range cases {
		var q Quantity
		require.NoError(t, q.UnmarshalJSON([]byte(tc.in)), "input %s", tc.in)
		assert.Equal(t, tc.want, q.Int64Scaled(), "input %s", tc.in)
	}
}

func TestQuantityUnmarshal_RejectsExponentForm(t *testing.T) {
	for _, in := range []string{`"1e3"`, `"1E3"`, `"2.5e-2"`, `1e3`} {
		var q Quantity
		err := q.UnmarshalJSON([]byte(in))
		require.Error(t, err, "input %s", in)
		assert.Contains(t, err.Error(), "plain decimal")
	}
}

func TestQuantityUnmarshal_RejectsGarbage(t *testing.T) {
	for _, in := range []string{`""`, `"abc"`, `"1.2.3"`, `"1,5"`} {
		var q Quantity
		assert.Error(t, q.UnmarshalJSON([]byte(in)), "input %s", in)
	}
}

func TestQuantityString(t *testing.T) {
	assert.Equal(t, "12.5000", NewQuantityFromFloat64(12.5).String())
	assert.Equal(t, "-0.2500", NewQuantityFromFloat64(-0.25).String())
	assert.Equal(t, "0.0000", Quantity(0).String())
}

func TestQuantityDecimalRoundTrip(t *testing.T) {
	q := NewQuantityFromDecimal(decimal.RequireFromString("3.1415"))
	assert.Equal(t, int64(31415), q.Int64Scaled())
	assert.True(t, q.Decimal().Equal(decimal.RequireFromString("3.1415")))
}
