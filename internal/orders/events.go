package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/posledger-backend/pkg/auth"
	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"github.com/angelmondragon/posledger-backend/pkg/outbox"
	"github.com/angelmondragon/posledger-backend/pkg/outbox/payloads"
)

func (s *service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.events == nil {
		return nil
	}
	if err := s.events.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue "+string(event.EventType)+" event")
	}
	return nil
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{ActorID: actor.ID, Role: string(actor.Role)}
}

// emitCancelled stamps the event with order.CancelledAt when set.
func (s *service) emitCancelled(ctx context.Context, tx *gorm.DB, actor auth.Actor, order *models.Order) error {
	at := s.now()
	if order.CancelledAt != nil {
		at = *order.CancelledAt
	}
	return s.emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		OccurredAt:    at,
		Data: payloads.OrderCancelledEvent{
			OrderID:     order.ID,
			OrderCode:   order.Code,
			Reason:      derefString(order.CancelReason),
			CancelledAt: at,
		},
	})
}

func (s *service) emitRefundRequested(ctx context.Context, tx *gorm.DB, actor auth.Actor, refund *models.RefundRequest) error {
	return s.emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRefundRequested,
		AggregateType: enums.AggregateRefundRequest,
		AggregateID:   refund.ID,
		Actor:         actorRef(actor),
		Data: payloads.RefundRequestedEvent{
			RefundID:      refund.ID,
			OrderID:       refund.OrderID,
			OrderCode:     refund.OrderCode,
			CustomerPhone: refund.CustomerPhone,
			Amount:        refund.Amount,
			Reason:        refund.Reason,
		},
	})
}

// emitRefundDecided picks refund_approved or refund_rejected from
// refund.Status. balance is the wallet balance after an approval credit.
func (s *service) emitRefundDecided(ctx context.Context, tx *gorm.DB, actor auth.Actor, refund *models.RefundRequest, balance *int64) error {
	eventType := enums.EventRefundRejected
	if refund.Status == enums.RefundStatusApproved {
		eventType = enums.EventRefundApproved
	}
	decidedAt := s.now()
	if refund.DecidedAt != nil {
		decidedAt = *refund.DecidedAt
	}
	return s.emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateRefundRequest,
		AggregateID:   refund.ID,
		Actor:         actorRef(actor),
		OccurredAt:    decidedAt,
		Data: payloads.RefundDecidedEvent{
			RefundID:      refund.ID,
			OrderID:       refund.OrderID,
			OrderCode:     refund.OrderCode,
			CustomerPhone: refund.CustomerPhone,
			Amount:        refund.Amount,
			Status:        refund.Status,
			Note:          refund.DecisionNote,
			Balance:       balance,
			DecidedAt:     decidedAt,
		},
	})
}
