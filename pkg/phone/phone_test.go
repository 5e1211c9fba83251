package phone

import (
	"testing"

	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer("62")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "local", in: "081234567890", want: "081234567890"},
		{name: "country code with plus", in: "+62 812-3456-7890", want: "081234567890"},
		{name: "country code bare", in: "6281234567890", want: "081234567890"},
		{name: "separators", in: "(0812) 3456.7890", want: "081234567890"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeOtherCountryCodes(t *testing.T) {
	tests := []struct {
		country string
		in      string
		want    string
	}{
		{country: "65", in: "+65 8123 4567", want: "081234567"},
		{country: "65", in: "6581234567", want: "081234567"},
		{country: "44", in: "+44 7911 123456", want: "07911123456"},
		{country: "44", in: "07911 123456", want: "07911123456"},
		// other prefixes are left alone
		{country: "44", in: "+62 812-3456-7890", want: "6281234567890"},
		{country: "", in: "+62 812-3456-7890", want: "6281234567890"},
	}
	for _, tt := range tests {
		t.Run(tt.country+" "+tt.in, func(t *testing.T) {
			got, err := NewNormalizer(tt.country).Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSameCustomerAcrossFormats(t *testing.T) {
	n := NewNormalizer("+62")
	a, err := n.Normalize("+62 812 3456 7890")
	require.NoError(t, err)
	b, err := n.Normalize("0812-3456-7890")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	n := NewNormalizer("62")
	for _, in := range []string{"", "   ", "0812abc456", "123", "08+123456789"} {
		_, err := n.Normalize(in)
		require.Errorf(t, err, "input %q", in)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	}
}

func TestNormalizeOptional(t *testing.T) {
	n := NewNormalizer("62")

	got, err := n.NormalizeOptional(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	blank := "  "
	got, err = n.NormalizeOptional(&blank)
	require.NoError(t, err)
	assert.Nil(t, got)

	raw := "62812345678"
	got, err = n.NormalizeOptional(&raw)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "0812345678", *got)
}
