package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/posledger-backend/api/middleware"
	"github.com/angelmondragon/posledger-backend/api/responses"
	"github.com/angelmondragon/posledger-backend/api/validators"
	"github.com/angelmondragon/posledger-backend/internal/checkout"
	"github.com/angelmondragon/posledger-backend/internal/orders"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"github.com/angelmondragon/posledger-backend/pkg/logger"
)

type settleLineRequest struct {
	ProductCode string `json:"product_code" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gt=0,max=1000000"`
}

type settleRequest struct {
	CustomerPhone  *string             `json:"customer_phone"`
	Items          []settleLineRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod  string              `json:"payment_method" validate:"required,oneof=cash transfer wallet mixed"`
	CashAmount     int64               `json:"cash_amount" validate:"gte=0"`
	TransferAmount int64               `json:"transfer_amount" validate:"gte=0"`
	WalletAmount   int64               `json:"wallet_amount" validate:"gte=0"`
	DiscountCode   *string             `json:"discount_code" validate:"omitempty,discount_code"`
	ShippingFee    int64               `json:"shipping_fee" validate:"gte=0"`
	Notes          *string             `json:"notes"`
}

func (req settleRequest) toInput() checkout.SettleInput {
	input := checkout.SettleInput{
		CustomerPhone:  req.CustomerPhone,
		Items:          make([]checkout.LineInput, 0, len(req.Items)),
		PaymentMethod:  enums.PaymentMethod(req.PaymentMethod),
		CashAmount:     req.CashAmount,
		TransferAmount: req.TransferAmount,
		WalletAmount:   req.WalletAmount,
		DiscountCode:   req.DiscountCode,
		ShippingFee:    req.ShippingFee,
		Notes:          req.Notes,
	}
	for _, line := range req.Items {
		input.Items = append(input.Items, checkout.LineInput{ProductCode: line.ProductCode, Quantity: line.Quantity})
	}
	return input
}

// SettleOrder turns a terminal cart into a completed order.
func SettleOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Settle(r.Context(), middleware.ActorFromContext(r.Context()), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.ToOrderDTO(order))
	}
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.Get(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CancelOrder cancels a completed order. Wallet-funded orders come back as
// refund_pending with the refund request attached.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order code is required"))
			return
		}

		result, err := svc.Cancel(r.Context(), middleware.ActorFromContext(r.Context()), orders.CancelInput{
			OrderCode: code,
			Reason:    validators.SanitizeString(req.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
