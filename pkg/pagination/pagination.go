package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	seqCursorPrefix = "seq:"
)

// ErrInvalidCursor wraps every cursor decoding failure.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params carries a requested page size and the opaque cursor from the client.
type Params struct {
	Limit  int
	Cursor string
}

// Size returns the normalized page size.
func (p Params) Size() int {
	return NormalizeLimit(p.Limit)
}

// Fetch is the row count to query: one past the page so a next page is detectable.
func (p Params) Fetch() int {
	return p.Size() + 1
}

// NormalizeLimit clamps limit into (0, MaxLimit], defaulting non-positive values.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Trim cuts rows fetched with Params.Fetch down to the page and reports
// whether more rows exist past it.
func Trim[T any](rows []T, p Params) ([]T, bool) {
	size := p.Size()
	if len(rows) <= size {
		return rows, false
	}
	return rows[:size], true
}

// TimeCursor orders rows newest first by (created_at, id).
type TimeCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Encode renders the cursor as a URL-safe token.
func (c TimeCursor) Encode() string {
	return encode(c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String())
}

// ParseTimeCursor decodes a token produced by TimeCursor.Encode. A blank
// value means the first page and yields nil.
func ParseTimeCursor(value string) (*TimeCursor, error) {
	raw, ok, err := decode(value)
	if err != nil || !ok {
		return nil, err
	}
	stamp, id, found := strings.Cut(raw, "|")
	if !found {
		return nil, fmt.Errorf("%w: missing separator", ErrInvalidCursor)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidCursor, err)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrInvalidCursor, err)
	}
	return &TimeCursor{CreatedAt: createdAt, ID: parsedID}, nil
}

// EncodeSeqCursor builds a cursor for ledgers ordered by a per-customer sequence.
func EncodeSeqCursor(seq int64) string {
	return encode(seqCursorPrefix + strconv.FormatInt(seq, 10))
}

// ParseSeqCursor decodes a sequence cursor. Blank yields 0, meaning start
// from the newest entry.
func ParseSeqCursor(value string) (int64, error) {
	raw, ok, err := decode(value)
	if err != nil || !ok {
		return 0, err
	}
	digits, found := strings.CutPrefix(raw, seqCursorPrefix)
	if !found {
		return 0, fmt.Errorf("%w: not a sequence cursor", ErrInvalidCursor)
	}
	seq, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || seq <= 0 {
		return 0, fmt.Errorf("%w: sequence must be a positive integer", ErrInvalidCursor)
	}
	return seq, nil
}

func encode(payload string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decode(value string) (string, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return string(decoded), true, nil
}
