package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/posledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type withdrawCall struct {
	batchID   string
	quantity  int
	reference string
}

type fakeGateway struct {
	mu        sync.Mutex
	batches   []Batch
	listErr   error
	failOn    map[string]error
	calls     []withdrawCall
	listDelay time.Duration
}

func (f *fakeGateway) ListBatches(ctx context.Context, _ string) ([]Batch, error) {
	if f.listDelay > 0 {
		select {
		case <-time.After(f.listDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Batch(nil), f.batches...), nil
}

func (f *fakeGateway) Withdraw(_ context.Context, batchID string, quantity int, reference string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[batchID]; err != nil {
		return 0, err
	}
	f.calls = append(f.calls, withdrawCall{batchID, quantity, reference})
	for i := range f.batches {
		if f.batches[i].ID == batchID {
			f.batches[i].Quantity -= quantity
			return f.batches[i].Quantity, nil
		}
	}
	return 0, errors.New("unknown batch")
}

func (f *fakeGateway) quantity(batchID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.batches {
		if b.ID == batchID {
			return b.Quantity
		}
	}
	return -1
}

func day(n int) *time.Time {
	t := time.Date(2026, 4, n, 0, 0, 0, 0, time.UTC)
	return &t
}

func newAllocator(t *testing.T, gw Gateway) *Allocator {
	t.Helper()
	a, err := NewAllocator(gw, time.Second, nil, nil)
	require.NoError(t, err)
	return a
}

func TestWithdrawConsumesSoonestExpiryFirst(t *testing.T) {
	gw := &fakeGateway{batches: []Batch{
		{ID: "b3", Quantity: 5, ExpiryDate: day(30)},
		{ID: "b1", Quantity: 5, ExpiryDate: day(10)},
		{ID: "b2", Quantity: 5, ExpiryDate: day(20)},
	}}

	result, err := newAllocator(t, gw).Withdraw(context.Background(), "soap-olive", 7, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, 7, result.Allocated)
	assert.Zero(t, result.Shortfall())
	require.Len(t, result.Allocations, 2)
	assert.Equal(t, "b1", result.Allocations[0].BatchID)
	assert.Equal(t, 5, result.Allocations[0].Quantity)
	assert.Equal(t, "b2", result.Allocations[1].BatchID)
	assert.Equal(t, 2, result.Allocations[1].Quantity)
	assert.Equal(t, 3, result.Allocations[1].Remaining)

	assert.Equal(t, 0, gw.quantity("b1"))
	assert.Equal(t, 3, gw.quantity("b2"))
	assert.Equal(t, 5, gw.quantity("b3"))
	for _, call := range gw.calls {
		assert.Equal(t, "ORD-1", call.reference)
	}
}

func TestWithdrawInsufficientTouchesNothing(t *testing.T) {
	gw := &fakeGateway{batches: []Batch{
		{ID: "b1", Quantity: 2, ExpiryDate: day(1)},
		{ID: "b2", Quantity: 3, ExpiryDate: day(2)},
	}}

	result, err := newAllocator(t, gw).Withdraw(context.Background(), "soap", 6, "ORD-2")
	shortage, ok := AsShortage(err)
	require.True(t, ok)
	assert.Equal(t, enums.StockShortageReasonInsufficient, shortage.Reason)
	assert.Equal(t, 5, shortage.Available)
	assert.Equal(t, 6, shortage.Shortfall())
	assert.Zero(t, result.Allocated)
	assert.Empty(t, gw.calls)
}

func TestWithdrawPartialFailureKeepsEarlierBatches(t *testing.T) {
	boom := errors.New("connection reset")
	gw := &fakeGateway{
		batches: []Batch{
			{ID: "b1", Quantity: 4, ExpiryDate: day(1)},
			{ID: "b2", Quantity: 4, ExpiryDate: day(2)},
		},
		failOn: map[string]error{"b2": boom},
	}

	result, err := newAllocator(t, gw).Withdraw(context.Background(), "soap", 6, "ORD-3")
	shortage, ok := AsShortage(err)
	require.True(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, enums.StockShortageReasonPartialFailure, shortage.Reason)
	assert.Equal(t, 4, shortage.Allocated)
	assert.Equal(t, 2, shortage.Shortfall())
	assert.Equal(t, 4, result.Allocated)
	assert.Equal(t, 0, gw.quantity("b1"), "already withdrawn stock is not returned")
}

func TestWithdrawUnavailableGateway(t *testing.T) {
	result, err := newAllocator(t, NewUnavailableGateway()).Withdraw(context.Background(), "soap", 1, "ORD-4")
	shortage, ok := AsShortage(err)
	require.True(t, ok)
	assert.Equal(t, enums.StockShortageReasonUnavailable, shortage.Reason)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, result.Shortfall())
}

func TestWithdrawFirstBatchFailureIsUnavailable(t *testing.T) {
	gw := &fakeGateway{
		batches: []Batch{{ID: "b1", Quantity: 4, ExpiryDate: day(1)}},
		failOn:  map[string]error{"b1": errors.New("503")},
	}
	_, err := newAllocator(t, gw).Withdraw(context.Background(), "soap", 2, "ORD-5")
	shortage, ok := AsShortage(err)
	require.True(t, ok)
	assert.Equal(t, enums.StockShortageReasonUnavailable, shortage.Reason)
	assert.Zero(t, shortage.Allocated)
}

func TestWithdrawTimesOut(t *testing.T) {
	gw := &fakeGateway{listDelay: time.Second}
	a, err := NewAllocator(gw, 20*time.Millisecond, nil, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = a.Withdraw(context.Background(), "soap", 1, "ORD-6")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	shortage, ok := AsShortage(err)
	require.True(t, ok)
	assert.ErrorIs(t, shortage, context.DeadlineExceeded)
}

func TestWithdrawValidation(t *testing.T) {
	a := newAllocator(t, &fakeGateway{})
	_, err := a.Withdraw(context.Background(), " ", 1, "ORD")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = a.Withdraw(context.Background(), "soap", 0, "ORD")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSortFIFO(t *testing.T) {
	sorted := SortFIFO([]Batch{
		{ID: "none-b", Quantity: 1},
		{ID: "late", Quantity: 1, ExpiryDate: day(9)},
		{ID: "empty", Quantity: 0, ExpiryDate: day(1)},
		{ID: "none-a", Quantity: 1},
		{ID: "early", Quantity: 1, ExpiryDate: day(2)},
		{ID: "negative", Quantity: -3, ExpiryDate: day(1)},
	})
	ids := make([]string, 0, len(sorted))
	for _, b := range sorted {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"early", "late", "none-a", "none-b"}, ids)
}
