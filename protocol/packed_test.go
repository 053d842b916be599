package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePacked(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"0551", 55.1},
		{"-091", -9.1},
		{"1000", 100.0},
		{"0532", 53.2},
		{"12", 1.2},
		{"+123", 12.3},
		{"01234", 123.4},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := DecodePacked(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDecodePackedRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "5", "-", "5.51", "12a", "--12", " 12", "ok"} {
		t.Run(in, func(t *testing.T) {
			_, err := DecodePacked(in)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, in, perr.Raw)
		})
	}
}

func TestEncodeFraction(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.532, "0532"},
		{1.0, "1000"},
		{0, "0000"},
		{0.05, "0050"},
		{0.999, "0999"},
	}
	for _, tt := range tests {
		got, err := EncodeFraction("emissivity", tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "fraction %v", tt.in)
	}
}

func TestEncodeFractionRange(t *testing.T) {
	for _, v := range []float64{-0.01, 1.01, 53.2} {
		_, err := EncodeFraction("transmissivity", v)
		var rerr *RangeError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "transmissivity", rerr.Property)
	}
}

func TestEncodeDecodeAgree(t *testing.T) {
	enc, err := EncodeFraction("emissivity", 0.875)
	require.NoError(t, err)
	got, err := DecodePacked(enc)
	require.NoError(t, err)
	assert.InDelta(t, 87.5, got, 1e-9)
}
