package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/posledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"github.com/angelmondragon/posledger-backend/pkg/logger"
	"github.com/angelmondragon/posledger-backend/pkg/metrics"
)

// Allocation is the quantity taken from one batch.
type Allocation struct {
	BatchID    string     `json:"batch_id"`
	Quantity   int        `json:"quantity"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Remaining  int        `json:"remaining"`
}

// Result describes what a withdrawal actually took from the warehouse.
type Result struct {
	InventoryTypeKey string
	Requested        int
	Allocated        int
	Allocations      []Allocation
}

// Shortfall is the quantity that could not be withdrawn.
func (r *Result) Shortfall() int {
	if r == nil {
		return 0
	}
	return r.Requested - r.Allocated
}

// ShortageError reports a withdrawal that did not take the full quantity.
// Allocated stock already withdrawn is not returned to the warehouse.
type ShortageError struct {
	InventoryTypeKey string
	Requested        int
	Allocated        int
	Available        int
	Reason           enums.StockShortageReason
	Err              error
}

func (e *ShortageError) Error() string {
	msg := fmt.Sprintf("stock shortage for %s (%s): requested %d, allocated %d", e.InventoryTypeKey, e.Reason, e.Requested, e.Allocated)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ShortageError) Unwrap() error {
	return e.Err
}

// Shortfall is the quantity still owed to the order.
func (e *ShortageError) Shortfall() int {
	return e.Requested - e.Allocated
}

// AsShortage extracts a ShortageError from err.
func AsShortage(err error) (*ShortageError, bool) {
	var shortage *ShortageError
	if errors.As(err, &shortage) {
		return shortage, true
	}
	return nil, false
}

// Allocator withdraws stock across batches, soonest expiry first.
type Allocator struct {
	gateway Gateway
	timeout time.Duration
	metrics *metrics.SettlementMetrics
	logg    *logger.Logger
}

// NewAllocator builds the FIFO allocator. timeout bounds one whole withdrawal.
func NewAllocator(gateway Gateway, timeout time.Duration, m *metrics.SettlementMetrics, logg *logger.Logger) (*Allocator, error) {
	if gateway == nil {
		return nil, fmt.Errorf("inventory gateway required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Allocator{gateway: gateway, timeout: timeout, metrics: m, logg: logg}, nil
}

// Withdraw takes quantity of inventoryTypeKey for reference. On a
// *ShortageError the returned Result still lists what was withdrawn.
func (a *Allocator) Withdraw(ctx context.Context, inventoryTypeKey string, quantity int, reference string) (*Result, error) {
	key := strings.TrimSpace(inventoryTypeKey)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory type key is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result := &Result{InventoryTypeKey: key, Requested: quantity}

	batches, err := a.gateway.ListBatches(ctx, key)
	if err != nil {
		return result, a.shortage(ctx, result, 0, enums.StockShortageReasonUnavailable, err)
	}
	batches = SortFIFO(batches)

	available := 0
	for _, b := range batches {
		available += b.Quantity
	}
	if available < quantity {
		return result, a.shortage(ctx, result, available, enums.StockShortageReasonInsufficient, nil)
	}

	remaining := quantity
	for _, batch := range batches {
		if remaining == 0 {
			break
		}
		take := min(batch.Quantity, remaining)
		left, err := a.gateway.Withdraw(ctx, batch.ID, take, reference)
		if err != nil {
			reason := enums.StockShortageReasonPartialFailure
			if result.Allocated == 0 {
				reason = enums.StockShortageReasonUnavailable
			}
			return result, a.shortage(ctx, result, available, reason, err)
		}
		result.Allocations = append(result.Allocations, Allocation{
			BatchID:    batch.ID,
			Quantity:   take,
			ExpiryDate: batch.ExpiryDate,
			Remaining:  left,
		})
		result.Allocated += take
		remaining -= take
	}
	return result, nil
}

func (a *Allocator) shortage(ctx context.Context, result *Result, available int, reason enums.StockShortageReason, cause error) error {
	a.metrics.IncShortage(string(reason))
	ctx = a.logg.WithFields(ctx, map[string]any{
		"inventory_type_key": result.InventoryTypeKey,
		"requested":          result.Requested,
		"allocated":          result.Allocated,
		"available":          available,
		"reason":             reason,
	})
	if cause != nil {
		ctx = a.logg.WithField(ctx, "error", cause.Error())
	}
	a.logg.Warn(ctx, "stock withdrawal incomplete")
	return &ShortageError{
		InventoryTypeKey: result.InventoryTypeKey,
		Requested:        result.Requested,
		Allocated:        result.Allocated,
		Available:        available,
		Reason:           reason,
		Err:              cause,
	}
}

// SortFIFO drops empty batches and orders the rest by expiry date, soonest
// first. Batches without an expiry go last; ties keep batch id order.
func SortFIFO(batches []Batch) []Batch {
	out := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.Quantity > 0 {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ei, ej := out[i].ExpiryDate, out[j].ExpiryDate
		switch {
		case ei == nil && ej == nil:
			return out[i].ID < out[j].ID
		case ei == nil:
			return false
		case ej == nil:
			return true
		case !ei.Equal(*ej):
			return ei.Before(*ej)
		default:
			return out[i].ID < out[j].ID
		}
	})
	return out
}
