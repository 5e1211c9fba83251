package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger-backend/api/middleware"
	"github.com/angelmondragon/posledger-backend/api/responses"
	"github.com/angelmondragon/posledger-backend/api/validators"
	"github.com/angelmondragon/posledger-backend/internal/discounts"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	"github.com/angelmondragon/posledger-backend/pkg/logger"
)

type validateDiscountRequest struct {
	Code     string `json:"code" validate:"required,discount_code"`
	Subtotal int64  `json:"subtotal" validate:"gte=0"`
}

// ValidateDiscount quotes a code against a subtotal without redeeming it.
func ValidateDiscount(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validateDiscountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Validate(r.Context(), req.Code, req.Subtotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

type createDiscountRequest struct {
	Code           string          `json:"code" validate:"required,discount_code"`
	Type           string          `json:"type" validate:"required,oneof=percent fixed"`
	Value          decimal.Decimal `json:"value"`
	MinOrderAmount int64           `json:"min_order_amount" validate:"gte=0"`
	MaxDiscount    *int64          `json:"max_discount" validate:"omitempty,gt=0"`
	UsageLimit     *int64          `json:"usage_limit" validate:"omitempty,gt=0"`
	ValidFrom      *time.Time      `json:"valid_from"`
	ValidTo        *time.Time      `json:"valid_to"`
}

func CreateDiscount(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDiscountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), discounts.CreateInput{
			Code:           req.Code,
			Type:           enums.DiscountType(req.Type),
			Value:          req.Value,
			MinOrderAmount: req.MinOrderAmount,
			MaxDiscount:    req.MaxDiscount,
			UsageLimit:     req.UsageLimit,
			ValidFrom:      req.ValidFrom,
			ValidTo:        req.ValidTo,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, code)
	}
}
