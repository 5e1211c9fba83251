package inventory

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned by a gateway that has no backing service.
var ErrUnavailable = errors.New("inventory service not configured")

// Batch is one lot of stock held by the warehouse service.
type Batch struct {
	ID         string
	Quantity   int
	ExpiryDate *time.Time
}

// Gateway is the contract with the external production/warehouse service.
// Implementations make remote calls and may fail at any point.
type Gateway interface {
	ListBatches(ctx context.Context, inventoryTypeKey string) ([]Batch, error)
	// Withdraw removes quantity from one batch and reports what is left in it.
	Withdraw(ctx context.Context, batchID string, quantity int, reference string) (int, error)
}

type unavailableGateway struct{}

// NewUnavailableGateway returns a gateway that fails every call. It keeps
// settlement working when no inventory service is configured.
func NewUnavailableGateway() Gateway {
	return unavailableGateway{}
}

func (unavailableGateway) ListBatches(context.Context, string) ([]Batch, error) {
	return nil, ErrUnavailable
}

func (unavailableGateway) Withdraw(context.Context, string, int, string) (int, error) {
	return 0, ErrUnavailable
}
