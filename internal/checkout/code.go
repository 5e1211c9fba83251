package checkout

import (
	"time"

	"github.com/oklog/ulid/v2"
)

const orderCodePrefix = "ORD"

// NewOrderCode builds a human-readable order code such as
// ORD-20260301-7ZQK2M4X9B. The suffix is the random part of a ULID.
func NewOrderCode(now time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	return orderCodePrefix + "-" + now.UTC().Format("20060102") + "-" + id[len(id)-10:]
}
