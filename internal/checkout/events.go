package checkout

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/posledger-backend/pkg/auth"
	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"github.com/angelmondragon/posledger-backend/pkg/outbox"
	"github.com/angelmondragon/posledger-backend/pkg/outbox/payloads"
)

// emitSettled queues order_settled and, when any line fell short,
// stock_shortage_recorded. Both commit with the order.
func (s *service) emitSettled(ctx context.Context, tx *gorm.DB, actor auth.Actor, order *models.Order, shortages []models.StockShortage, settledAt time.Time) error {
	if s.events == nil {
		return nil
	}
	ref := &outbox.ActorRef{ActorID: actor.ID, Role: string(actor.Role)}

	items := make([]payloads.SettledItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, payloads.SettledItem{
			ProductCode:  item.ProductCode,
			Quantity:     item.Quantity,
			LineTotal:    item.LineTotal,
			StockStatus:  item.StockStatus,
			AllocatedQty: item.AllocatedQty,
		})
	}
	settled := outbox.DomainEvent{
		EventType:     enums.EventOrderSettled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         ref,
		OccurredAt:    settledAt,
		Data: payloads.OrderSettledEvent{
			OrderID:        order.ID,
			OrderCode:      order.Code,
			CustomerPhone:  order.CustomerPhone,
			PaymentMethod:  order.PaymentMethod,
			Subtotal:       order.Subtotal,
			DiscountAmount: order.DiscountAmount,
			DiscountCode:   order.DiscountCode,
			ShippingFee:    order.ShippingFee,
			Total:          order.Total,
			CashAmount:     order.CashAmount,
			TransferAmount: order.TransferAmount,
			WalletAmount:   order.WalletAmount,
			Items:          items,
			SettledAt:      settledAt,
		},
	}
	if err := s.events.Emit(ctx, tx, settled); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order settled event")
	}

	if len(shortages) == 0 {
		return nil
	}
	entries := make([]payloads.ShortageEntry, 0, len(shortages))
	for _, sh := range shortages {
		entries = append(entries, payloads.ShortageEntry{
			ProductCode:      sh.ProductCode,
			InventoryTypeKey: sh.InventoryTypeKey,
			Requested:        sh.Requested,
			Allocated:        sh.Allocated,
			Shortfall:        sh.Shortfall,
			Reason:           sh.Reason,
		})
	}
	shortage := outbox.DomainEvent{
		EventType:     enums.EventStockShortageRecorded,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         ref,
		OccurredAt:    settledAt,
		Data: payloads.StockShortageRecordedEvent{
			OrderID:   order.ID,
			OrderCode: order.Code,
			Shortages: entries,
		},
	}
	if err := s.events.Emit(ctx, tx, shortage); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue stock shortage event")
	}
	return nil
}
