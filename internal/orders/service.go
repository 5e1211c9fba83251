package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/posledger-backend/internal/wallet"
	"github.com/angelmondragon/posledger-backend/pkg/auth"
	"github.com/angelmondragon/posledger-backend/pkg/db"
	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"github.com/angelmondragon/posledger-backend/pkg/locks"
	"github.com/angelmondragon/posledger-backend/pkg/logger"
	"github.com/angelmondragon/posledger-backend/pkg/outbox"
	"github.com/angelmondragon/posledger-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const pendingRefundIndex = "uq_refund_requests_pending_order"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// walletLedger is the slice of the wallet service the refund flow needs.
type walletLedger interface {
	Lock(ctx context.Context, customerPhone string) (locks.Unlock, error)
	ApplyTx(ctx context.Context, tx *gorm.DB, m wallet.Mutation) (*wallet.Result, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service governs the post-settlement lifecycle of an order.
type Service interface {
	Get(ctx context.Context, code string) (*OrderDTO, error)
	Cancel(ctx context.Context, actor auth.Actor, input CancelInput) (*CancelResult, error)
	ApproveRefund(ctx context.Context, actor auth.Actor, refundID uuid.UUID) (*ApproveResult, error)
	RejectRefund(ctx context.Context, actor auth.Actor, refundID uuid.UUID, reason string) error
	ListRefunds(ctx context.Context, status *enums.RefundStatus, params pagination.Params) (*RefundPage, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	wallet walletLedger
	events eventEmitter
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the order lifecycle service. A nil events emitter skips
// outbox events.
func NewService(repo Repository, tx txRunner, ledger walletLedger, events eventEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:   repo,
		tx:     tx,
		wallet: ledger,
		events: events,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, code string) (*OrderDTO, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code is required")
	}
	order, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, notFoundOr(err, "order", code)
	}
	shortages, err := s.repo.ListShortages(ctx, order.Code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock shortages")
	}
	refunds, err := s.repo.FindRefundsByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refund requests")
	}

	dto := ToOrderDTO(order)
	for _, shortage := range shortages {
		dto.Shortages = append(dto.Shortages, toShortageDTO(shortage))
	}
	for i := range refunds {
		dto.Refunds = append(dto.Refunds, toRefundDTO(&refunds[i]))
	}
	return dto, nil
}

// Cancel moves a completed order out of service. Orders without wallet money
// are cancelled outright; wallet-funded orders wait on a refund decision.
func (s *service) Cancel(ctx context.Context, actor auth.Actor, input CancelInput) (*CancelResult, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	code := strings.TrimSpace(input.OrderCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code is required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancel reason is required")
	}

	var result *CancelResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByCodeForUpdate(ctx, code)
		if err != nil {
			return notFoundOr(err, "order", code)
		}

		next := enums.OrderStatusCancelled
		if order.WalletAmount > 0 {
			next = enums.OrderStatusRefundPending
		}
		if !order.Status.CanTransitionTo(next) {
			return stateConflict("order", order.Code, order.Status, next)
		}

		from := order.Status
		now := s.now()
		order.Status = next
		order.CancelledBy = &actor.ID
		order.CancelReason = &reason
		if next == enums.OrderStatusCancelled {
			order.CancelledAt = &now
		}
		if err := s.transitionOrder(ctx, repo, order, from); err != nil {
			return err
		}

		result = &CancelResult{OrderCode: order.Code, Status: order.Status}
		if next != enums.OrderStatusRefundPending {
			return s.emitCancelled(ctx, tx, actor, order)
		}

		refund := &models.RefundRequest{
			OrderID:       order.ID,
			OrderCode:     order.Code,
			CustomerPhone: derefString(order.CustomerPhone),
			Amount:        order.WalletAmount,
			Status:        enums.RefundStatusPending,
			Reason:        reason,
			RequestedBy:   actor.ID,
		}
		if err := repo.CreateRefundRequest(ctx, refund); err != nil {
			if db.IsUniqueViolation(err, pendingRefundIndex) {
				return pkgerrors.New(pkgerrors.CodeConflict, "a refund request is already pending for this order").
					WithDetails(map[string]any{"order_code": order.Code})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund request")
		}
		dto := toRefundDTO(refund)
		result.Refund = &dto
		return s.emitRefundRequested(ctx, tx, actor, refund)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderCode(ctx, result.OrderCode)
	ctx = s.logg.WithFields(ctx, map[string]any{"status": result.Status, "actor_id": actor.ID})
	s.logg.Info(ctx, "order cancelled")
	return result, nil
}

// ApproveRefund credits the wallet-funded amount back exactly once. The
// customer's wallet lock is taken before the transaction; both rows are then
// re-read under lock and must still be pending.
func (s *service) ApproveRefund(ctx context.Context, actor auth.Actor, refundID uuid.UUID) (*ApproveResult, error) {
	if !actor.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "refund approval requires an admin or owner")
	}
	if refundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id is required")
	}

	peek, err := s.repo.FindRefund(ctx, refundID)
	if err != nil {
		return nil, notFoundOr(err, "refund request", refundID.String())
	}

	unlock, err := s.wallet.Lock(ctx, peek.CustomerPhone)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *ApproveResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		refund, order, err := s.loadPending(ctx, repo, refundID, enums.RefundStatusApproved, enums.OrderStatusRefunded)
		if err != nil {
			return err
		}

		orderCode := order.Code
		credit, err := s.wallet.ApplyTx(ctx, tx, wallet.Mutation{
			CustomerPhone: refund.CustomerPhone,
			Type:          enums.BalanceTransactionTypeRefund,
			Amount:        refund.Amount,
			OrderCode:     &orderCode,
			Notes:         "refund approved: " + refund.Reason,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
		})
		if err != nil {
			return err
		}

		now := s.now()
		refund.Status = enums.RefundStatusApproved
		refund.DecidedBy = &actor.ID
		refund.DecidedAt = &now
		if err := s.transitionRefund(ctx, repo, refund, enums.RefundStatusPending); err != nil {
			return err
		}

		order.Status = enums.OrderStatusRefunded
		order.RefundedBy = &actor.ID
		order.RefundedAt = &now
		if err := s.transitionOrder(ctx, repo, order, enums.OrderStatusRefundPending); err != nil {
			return err
		}

		result = &ApproveResult{Refund: toRefundDTO(refund), Balance: credit.Balance}
		return s.emitRefundDecided(ctx, tx, actor, refund, &credit.Balance)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderCode(ctx, result.Refund.OrderCode)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"refund_id":      refundID,
		"amount":         result.Refund.Amount,
		"customer_phone": result.Refund.CustomerPhone,
		"actor_id":       actor.ID,
	})
	s.logg.Info(ctx, "refund approved")
	return result, nil
}

// RejectRefund closes a pending refund without moving money and cancels the
// order.
func (s *service) RejectRefund(ctx context.Context, actor auth.Actor, refundID uuid.UUID, reason string) error {
	if !actor.IsPrivileged() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "refund rejection requires an admin or owner")
	}
	if refundID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund id is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}

	var orderCode string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		refund, order, err := s.loadPending(ctx, repo, refundID, enums.RefundStatusRejected, enums.OrderStatusCancelled)
		if err != nil {
			return err
		}

		now := s.now()
		refund.Status = enums.RefundStatusRejected
		refund.DecidedBy = &actor.ID
		refund.DecisionNote = &reason
		refund.DecidedAt = &now
		if err := s.transitionRefund(ctx, repo, refund, enums.RefundStatusPending); err != nil {
			return err
		}

		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		if err := s.transitionOrder(ctx, repo, order, enums.OrderStatusRefundPending); err != nil {
			return err
		}
		orderCode = order.Code
		if err := s.emitRefundDecided(ctx, tx, actor, refund, nil); err != nil {
			return err
		}
		return s.emitCancelled(ctx, tx, actor, order)
	})
	if err != nil {
		return err
	}

	ctx = s.logg.WithOrderCode(ctx, orderCode)
	ctx = s.logg.WithFields(ctx, map[string]any{"refund_id": refundID, "actor_id": actor.ID})
	s.logg.Info(ctx, "refund rejected")
	return nil
}

// loadPending re-reads a refund request and its order under lock and checks
// that both may still move to the requested states.
func (s *service) loadPending(ctx context.Context, repo Repository, refundID uuid.UUID, refundNext enums.RefundStatus, orderNext enums.OrderStatus) (*models.RefundRequest, *models.Order, error) {
	refund, err := repo.FindRefundForUpdate(ctx, refundID)
	if err != nil {
		return nil, nil, notFoundOr(err, "refund request", refundID.String())
	}
	if !refund.Status.CanTransitionTo(refundNext) {
		return nil, nil, stateConflict("refund request", refund.ID.String(), refund.Status, refundNext)
	}

	order, err := repo.FindByIDForUpdate(ctx, refund.OrderID)
	if err != nil {
		return nil, nil, notFoundOr(err, "order", refund.OrderCode)
	}
	if order.Status != enums.OrderStatusRefundPending || !order.Status.CanTransitionTo(orderNext) {
		return nil, nil, stateConflict("order", order.Code, order.Status, orderNext)
	}
	return refund, order, nil
}

func (s *service) transitionOrder(ctx context.Context, repo Repository, order *models.Order, from enums.OrderStatus) error {
	ok, err := repo.TransitionOrder(ctx, order, from)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return stateConflict("order", order.Code, from, order.Status)
	}
	return nil
}

func (s *service) transitionRefund(ctx context.Context, repo Repository, refund *models.RefundRequest, from enums.RefundStatus) error {
	ok, err := repo.TransitionRefund(ctx, refund, from)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update refund request")
	}
	if !ok {
		return stateConflict("refund request", refund.ID.String(), from, refund.Status)
	}
	return nil
}

func (s *service) ListRefunds(ctx context.Context, status *enums.RefundStatus, params pagination.Params) (*RefundPage, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid refund status %q", *status))
	}
	cursor, err := pagination.ParseTimeCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := RefundListQuery{Status: status, Limit: params.Fetch()}
	if cursor != nil {
		query.CursorCreatedAt = &cursor.CreatedAt
		query.CursorID = &cursor.ID
	}

	refunds, err := s.repo.ListRefunds(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refund requests")
	}

	refunds, more := pagination.Trim(refunds, params)
	page := &RefundPage{Items: make([]RefundDTO, 0, len(refunds))}
	if more {
		last := refunds[len(refunds)-1]
		page.NextCursor = pagination.TimeCursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	for i := range refunds {
		page.Items = append(page.Items, toRefundDTO(&refunds[i]))
	}
	return page, nil
}

func stateConflict[S ~string](entity, id string, from, to S) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%s %s cannot move from %s to %s", entity, id, from, to)).
		WithDetails(map[string]any{
			"entity":       entity,
			"id":           id,
			"from_status":  string(from),
			"target_state": string(to),
		})
}

func notFoundOr(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s %s not found", entity, id))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
