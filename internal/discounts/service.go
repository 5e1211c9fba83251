package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/posledger-backend/pkg/auth"
	"github.com/angelmondragon/posledger-backend/pkg/db"
	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// Service validates and redeems discount codes.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*CodeDTO, error)
	// Validate never changes usage; RedeemTx does that once the order exists.
	Validate(ctx context.Context, code string, subtotal int64) (*Quote, error)
	RedeemTx(ctx context.Context, tx *gorm.DB, quote *Quote) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the discount service. now defaults to time.Now.
func NewService(repo Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

// NormalizeCode is the canonical stored form of a code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*CodeDTO, error) {
	if !actor.IsPrivileged() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "discount codes are managed by an admin or owner")
	}
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid discount type %q", input.Type))
	}
	if !input.Value.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value must be positive")
	}
	if input.Type == enums.DiscountTypePercent && input.Value.GreaterThan(hundred) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percent value cannot exceed 100")
	}
	if input.Type == enums.DiscountTypeFixed && !input.Value.Equal(input.Value.Truncate(0)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fixed value must be a whole amount")
	}
	if input.MinOrderAmount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_order_amount cannot be negative")
	}
	if input.MaxDiscount != nil && *input.MaxDiscount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_discount must be positive")
	}
	if input.UsageLimit != nil && *input.UsageLimit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage_limit must be positive")
	}
	if input.ValidFrom != nil && input.ValidTo != nil && dateOf(*input.ValidTo, nil).Before(dateOf(*input.ValidFrom, input.ValidTo.Location())) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid_to must not precede valid_from")
	}

	record := &models.DiscountCode{
		Code:           code,
		DiscountType:   input.Type,
		Value:          input.Value,
		MinOrderAmount: input.MinOrderAmount,
		MaxDiscount:    input.MaxDiscount,
		UsageLimit:     input.UsageLimit,
		ValidFrom:      input.ValidFrom,
		ValidTo:        input.ValidTo,
		Active:         true,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "discount code already exists").
				WithDetails(map[string]any{"code": code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discount code")
	}
	return toCodeDTO(record), nil
}

func (s *service) Validate(ctx context.Context, code string, subtotal int64) (*Quote, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}
	if subtotal < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal cannot be negative")
	}

	record, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rejection(pkgerrors.CodeDiscountNotFound, normalized, "discount code not found", nil)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount code")
	}
	if err := s.checkEligibility(record, subtotal); err != nil {
		return nil, err
	}

	return &Quote{
		DiscountID:     record.ID,
		Code:           record.Code,
		Type:           record.DiscountType,
		Value:          record.Value,
		DiscountAmount: Amount(record, subtotal),
	}, nil
}

// dateOf truncates t to midnight of its calendar day in loc, or in t's own
// location when loc is nil. Validity windows are whole days: a code is usable
// from the start of valid_from's day through the end of valid_to's day.
func dateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// checkEligibility applies the rejection rules in their fixed order: existence,
// validity window, usage limit, then minimum order amount.
func (s *service) checkEligibility(record *models.DiscountCode, subtotal int64) error {
	if !record.Active {
		return rejection(pkgerrors.CodeDiscountNotFound, record.Code, "discount code is inactive", nil)
	}

	today := dateOf(s.now(), nil)
	if record.ValidFrom != nil && today.Before(dateOf(*record.ValidFrom, today.Location())) {
		return rejection(pkgerrors.CodeDiscountNotStarted, record.Code, "discount code is not active yet", map[string]any{
			"valid_from": record.ValidFrom.UTC(),
		})
	}
	if record.ValidTo != nil && today.After(dateOf(*record.ValidTo, today.Location())) {
		return rejection(pkgerrors.CodeDiscountExpired, record.Code, "discount code has expired", map[string]any{
			"valid_to": record.ValidTo.UTC(),
		})
	}
	if record.UsageLimit != nil && record.UsedCount >= *record.UsageLimit {
		return rejection(pkgerrors.CodeDiscountExhausted, record.Code, "discount code usage limit reached", map[string]any{
			"usage_limit": *record.UsageLimit,
			"used_count":  record.UsedCount,
		})
	}
	if subtotal < record.MinOrderAmount {
		return rejection(pkgerrors.CodeDiscountMinimumNotMet, record.Code, "order subtotal is below the discount minimum", map[string]any{
			"min_order_amount": record.MinOrderAmount,
			"subtotal":         subtotal,
		})
	}
	return nil
}

// Amount computes the discount a code grants on subtotal. Percent discounts
// round half away from zero, then the max_discount cap applies. The result
// never exceeds subtotal.
func Amount(record *models.DiscountCode, subtotal int64) int64 {
	var amount int64
	switch record.DiscountType {
	case enums.DiscountTypePercent:
		amount = decimal.NewFromInt(subtotal).
			Mul(record.Value).
			Div(hundred).
			Round(0).
			IntPart()
		if record.MaxDiscount != nil && amount > *record.MaxDiscount {
			amount = *record.MaxDiscount
		}
	case enums.DiscountTypeFixed:
		amount = record.Value.Round(0).IntPart()
	}
	if amount < 0 {
		return 0
	}
	if amount > subtotal {
		return subtotal
	}
	return amount
}

// RedeemTx counts one use of the quoted code inside the settlement
// transaction. A code that ran out between validation and redemption fails
// with CodeDiscountExhausted, rolling back the order.
func (s *service) RedeemTx(ctx context.Context, tx *gorm.DB, quote *Quote) error {
	if quote == nil {
		return nil
	}
	ok, err := s.repo.WithTx(tx).IncrementUsage(ctx, quote.DiscountID.String())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment discount usage")
	}
	if !ok {
		return rejection(pkgerrors.CodeDiscountExhausted, quote.Code, "discount code usage limit reached", nil)
	}
	return nil
}

func rejection(code pkgerrors.Code, discountCode, msg string, extra map[string]any) error {
	details := map[string]any{"code": discountCode}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(code, fmt.Sprintf("%s: %s", msg, discountCode)).WithDetails(details)
}
