package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsSizeAndFetch(t *testing.T) {
	cases := []struct {
		limit int
		size  int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{10, 10},
		{MaxLimit + 50, MaxLimit},
	}
	for _, tc := range cases {
		p := Params{Limit: tc.limit}
		assert.Equal(t, tc.size, p.Size(), "limit %d", tc.limit)
		assert.Equal(t, tc.size+1, p.Fetch(), "limit %d", tc.limit)
	}
}

func TestTrim(t *testing.T) {
	p := Params{Limit: 2}

	rows, more := Trim([]int{1, 2, 3}, p)
	assert.Equal(t, []int{1, 2}, rows)
	assert.True(t, more)

	rows, more = Trim([]int{1, 2}, p)
	assert.Equal(t, []int{1, 2}, rows)
	assert.False(t, more)

	rows, more = Trim[int](nil, p)
	assert.Empty(t, rows)
	assert.False(t, more)
}

func TestTimeCursorRoundTrip(t *testing.T) {
	original := TimeCursor{CreatedAt: time.Date(2026, 3, 1, 10, 30, 0, 123, time.UTC), ID: uuid.New()}
	token := original.Encode()
	assert.NotContains(t, token, "=")

	decoded, err := ParseTimeCursor(token)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, original.ID, decoded.ID)

	empty, err := ParseTimeCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestTimeCursorRejectsGarbage(t *testing.T) {
	for _, value := range []string{
		"not-base64!",
		base64.RawURLEncoding.EncodeToString([]byte("no-separator")),
		base64.RawURLEncoding.EncodeToString([]byte("yesterday|" + uuid.NewString())),
		base64.RawURLEncoding.EncodeToString([]byte("2026-03-01T10:30:00Z|nope")),
	} {
		_, err := ParseTimeCursor(value)
		assert.ErrorIs(t, err, ErrInvalidCursor, value)
	}
}

func TestSeqCursor(t *testing.T) {
	seq, err := ParseSeqCursor(EncodeSeqCursor(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), seq)

	seq, err = ParseSeqCursor("")
	require.NoError(t, err)
	assert.Zero(t, seq)

	_, err = ParseSeqCursor(base64.RawURLEncoding.EncodeToString([]byte("seq:-1")))
	assert.ErrorIs(t, err, ErrInvalidCursor)
	_, err = ParseSeqCursor(base64.RawURLEncoding.EncodeToString([]byte("42")))
	assert.ErrorIs(t, err, ErrInvalidCursor)
	_, err = ParseSeqCursor(TimeCursor{CreatedAt: time.Now(), ID: uuid.New()}.Encode())
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
