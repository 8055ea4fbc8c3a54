package num

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Number
		wantErr bool
	}{
		{in: "12", want: 12},
		{in: "-3.5", want: -3.5},
		{in: "+4", want: 4},
		{in: "3.", want: 3},
		{in: " 7 ", want: 7},
		{in: ".5", wantErr: true},
		{in: "1e3", wantErr: true},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotANumber)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumber_String(t *testing.T) {
	assert.Equal(t, "3", Number(3.0).String())
	assert.Equal(t, "-12", Number(-12).String())
	assert.Equal(t, "0", Number(math.Copysign(0, -1)).String())
	assert.Equal(t, "3.5", Number(3.5).String())
	assert.Equal(t, "0.00001", Number(0.00001).String())
	assert.Equal(t, "0.3333333333333333", Number(1.0/3).String())
}

func TestDiv(t *testing.T) {
	v, err := Div(6, 4)
	require.NoError(t, err)
	assert.Equal(t, Number(1.5), v)

	_, err = Div(1, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestNumber_IsInt(t *testing.T) {
	assert.True(t, Number(2).IsInt())
	assert.False(t, Number(2.5).IsInt())
	assert.False(t, Number(math.Inf(1)).IsInt())
}
