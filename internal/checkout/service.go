package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/posledger-backend/internal/catalog"
	"github.com/angelmondragon/posledger-backend/internal/discounts"
	"github.com/angelmondragon/posledger-backend/internal/inventory"
	"github.com/angelmondragon/posledger-backend/internal/orders"
	"github.com/angelmondragon/posledger-backend/internal/wallet"
	"github.com/angelmondragon/posledger-backend/pkg/auth"
	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"github.com/angelmondragon/posledger-backend/pkg/locks"
	"github.com/angelmondragon/posledger-backend/pkg/logger"
	"github.com/angelmondragon/posledger-backend/pkg/metrics"
	"github.com/angelmondragon/posledger-backend/pkg/outbox"
	"github.com/angelmondragon/posledger-backend/pkg/phone"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productCatalog interface {
	GetActiveProduct(ctx context.Context, code string) (*catalog.Product, error)
}

type discountValidator interface {
	Validate(ctx context.Context, code string, subtotal int64) (*discounts.Quote, error)
	RedeemTx(ctx context.Context, tx *gorm.DB, quote *discounts.Quote) error
}

type walletLedger interface {
	Lock(ctx context.Context, customerPhone string) (locks.Unlock, error)
	Get(ctx context.Context, customerPhone string) (*wallet.WalletView, error)
	ApplyTx(ctx context.Context, tx *gorm.DB, m wallet.Mutation) (*wallet.Result, error)
}

type stockAllocator interface {
	Withdraw(ctx context.Context, inventoryTypeKey string, quantity int, reference string) (*inventory.Result, error)
}

// eventEmitter queues domain events in the settlement transaction.
type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service settles carts into completed orders.
type Service interface {
	Settle(ctx context.Context, actor auth.Actor, input SettleInput) (*models.Order, error)
}

type service struct {
	tx        txRunner
	orders    orders.Repository
	catalog   productCatalog
	discounts discountValidator
	wallet    walletLedger
	stock     stockAllocator
	events    eventEmitter
	phones    phone.Normalizer
	metrics   *metrics.SettlementMetrics
	logg      *logger.Logger
	now       func() time.Time
	newCode   func(time.Time) string
}

// Deps groups the collaborators of the settlement engine.
type Deps struct {
	Tx        txRunner
	Orders    orders.Repository
	Catalog   productCatalog
	Discounts discountValidator
	Wallet    walletLedger
	Stock     stockAllocator
	Events    eventEmitter // nil skips outbox events
	Phones    phone.Normalizer
	Metrics   *metrics.SettlementMetrics
	Logger    *logger.Logger
	Now       func() time.Time
	NewCode   func(time.Time) string
}

// NewService builds the settlement engine.
func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if deps.Discounts == nil {
		return nil, fmt.Errorf("discount validator required")
	}
	if deps.Wallet == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if deps.Stock == nil {
		return nil, fmt.Errorf("stock allocator required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.NewCode == nil {
		deps.NewCode = NewOrderCode
	}
	return &service{
		tx:        deps.Tx,
		orders:    deps.Orders,
		catalog:   deps.Catalog,
		discounts: deps.Discounts,
		wallet:    deps.Wallet,
		stock:     deps.Stock,
		events:    deps.Events,
		phones:    deps.Phones,
		metrics:   deps.Metrics,
		logg:      deps.Logger,
		now:       deps.Now,
		newCode:   deps.NewCode,
	}, nil
}

// Settle prices the cart, checks every rejectable condition, withdraws stock
// on a best-effort basis and then commits the order, the wallet debit, the
// discount redemption and any shortage records in one transaction.
func (s *service) Settle(ctx context.Context, actor auth.Actor, input SettleInput) (*models.Order, error) {
	order, err := s.settle(ctx, actor, input)
	switch {
	case err == nil:
		s.metrics.IncSettlement(string(input.PaymentMethod), metrics.ResultSuccess)
	case isBusinessRejection(err):
		s.metrics.IncSettlement(string(input.PaymentMethod), metrics.ResultRejected)
	default:
		s.metrics.IncSettlement(string(input.PaymentMethod), metrics.ResultError)
		s.logg.Error(ctx, "settlement failed", err)
	}
	return order, err
}

func (s *service) settle(ctx context.Context, actor auth.Actor, input SettleInput) (*models.Order, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	customer, err := s.phones.NormalizeOptional(input.CustomerPhone)
	if err != nil {
		return nil, err
	}

	products, items, subtotal, err := s.priceLines(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	if _, ok := AddAmounts(subtotal, input.ShippingFee); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount is too large").
			WithDetails(map[string]any{"subtotal": subtotal, "shipping_fee": input.ShippingFee})
	}

	var quote *discounts.Quote
	if code := trimmed(input.DiscountCode); code != "" {
		quote, err = s.discounts.Validate(ctx, code, subtotal)
		if err != nil {
			return nil, err
		}
	}
	var discountAmount int64
	if quote != nil {
		discountAmount = min(quote.DiscountAmount, subtotal)
	}
	total := Total(subtotal, discountAmount, input.ShippingFee)

	split, err := ResolveSplit(input.PaymentMethod, total, input)
	if err != nil {
		return nil, err
	}
	if split.Wallet > 0 {
		if customer == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer phone is required for wallet payments")
		}
		unlock, err := s.wallet.Lock(ctx, *customer)
		if err != nil {
			return nil, err
		}
		defer unlock()

		view, err := s.wallet.Get(ctx, *customer)
		if err != nil {
			return nil, err
		}
		if view.Balance < split.Wallet {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, fmt.Sprintf("insufficient balance: %d available, %d required", view.Balance, split.Wallet)).
				WithDetails(map[string]any{
					"customer_phone": *customer,
					"balance":        view.Balance,
					"required":       split.Wallet,
				})
		}
	}

	now := s.now()
	order := &models.Order{
		Code:           s.newCode(now),
		CustomerPhone:  customer,
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		ShippingFee:    input.ShippingFee,
		Total:          total,
		PaymentMethod:  input.PaymentMethod,
		CashAmount:     split.Cash,
		TransferAmount: split.Transfer,
		WalletAmount:   split.Wallet,
		Status:         enums.OrderStatusCompleted,
		Notes:          nonEmpty(input.Notes),
		CreatedBy:      actor.ID,
		Items:          items,
	}
	if quote != nil {
		discountType := quote.Type
		discountCode := quote.Code
		order.DiscountType = &discountType
		order.DiscountValue = decimal.NewNullDecimal(quote.Value)
		order.DiscountCode = &discountCode
	}
	ctx = s.logg.WithOrderCode(ctx, order.Code)

	shortages := s.allocateStock(ctx, order, products)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}
		if split.Wallet > 0 {
			code := order.Code
			if _, err := s.wallet.ApplyTx(ctx, tx, wallet.Mutation{
				CustomerPhone: *customer,
				Type:          enums.BalanceTransactionTypePayment,
				Amount:        -split.Wallet,
				OrderCode:     &code,
				Notes:         "payment for " + code,
				ActorID:       actor.ID,
				ActorRole:     actor.Role,
			}); err != nil {
				return err
			}
		}
		if err := s.discounts.RedeemTx(ctx, tx, quote); err != nil {
			return err
		}
		if err := repo.CreateShortages(ctx, shortages); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock shortages")
		}
		return s.emitSettled(ctx, tx, actor, order, shortages, now)
	})
	if err != nil {
		if hasWithdrawals(order.Items) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "settlement rolled back after stock was withdrawn")
		}
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"total":          order.Total,
		"payment_method": order.PaymentMethod,
		"wallet_amount":  order.WalletAmount,
		"shortages":      len(shortages),
		"actor_id":       actor.ID,
	})
	s.logg.Info(ctx, "order settled")
	return order, nil
}

func validateInput(input SettleInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	for i, line := range input.Items {
		if strings.TrimSpace(line.ProductCode) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: product code is required", i))
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be positive", i)).
				WithDetails(map[string]any{"product_code": line.ProductCode, "quantity": line.Quantity})
		}
		if line.Quantity > MaxLineQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity exceeds %d", i, MaxLineQuantity)).
				WithDetails(map[string]any{"product_code": line.ProductCode, "quantity": line.Quantity})
		}
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.ShippingFee < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping fee cannot be negative")
	}
	return nil
}

// priceLines snapshots catalog prices onto new line items.
func (s *service) priceLines(ctx context.Context, lines []LineInput) ([]*catalog.Product, []models.OrderItem, int64, error) {
	cache := map[string]*catalog.Product{}
	products := make([]*catalog.Product, 0, len(lines))
	items := make([]models.OrderItem, 0, len(lines))
	var subtotal int64

	for _, line := range lines {
		code := strings.TrimSpace(line.ProductCode)
		product, ok := cache[code]
		if !ok {
			var err error
			product, err = s.catalog.GetActiveProduct(ctx, code)
			if err != nil {
				return nil, nil, 0, err
			}
			cache[code] = product
		}

		lineTotal, ok := LineTotal(product.UnitPrice, line.Quantity)
		if !ok {
			return nil, nil, 0, amountTooLarge(product.Code, line.Quantity)
		}
		if subtotal, ok = AddAmounts(subtotal, lineTotal); !ok {
			return nil, nil, 0, amountTooLarge(product.Code, line.Quantity)
		}
		products = append(products, product)
		items = append(items, models.OrderItem{
			ProductCode: product.Code,
			ProductName: product.Name,
			UnitPrice:   product.UnitPrice,
			Quantity:    line.Quantity,
			LineTotal:   lineTotal,
			StockStatus: enums.StockStatusUntracked,
		})
	}
	return products, items, subtotal, nil
}

func amountTooLarge(productCode string, quantity int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "order amount is too large").
		WithDetails(map[string]any{"product_code": productCode, "quantity": quantity})
}

// allocateStock withdraws stock for every tracked line. Failures never stop
// the settlement; they mark the line and produce a shortage record.
func (s *service) allocateStock(ctx context.Context, order *models.Order, products []*catalog.Product) []models.StockShortage {
	var shortages []models.StockShortage
	for i := range order.Items {
		item := &order.Items[i]
		product := products[i]
		if !product.Tracked() {
			continue
		}

		result, err := s.stock.Withdraw(ctx, product.InventoryTypeKey, item.Quantity, order.Code)
		if result != nil {
			item.AllocatedQty = result.Allocated
			if len(result.Allocations) > 0 {
				if raw, mErr := json.Marshal(result.Allocations); mErr == nil {
					item.Allocations = raw
				}
			}
		}
		item.ShortfallQty = item.Quantity - item.AllocatedQty

		switch {
		case err == nil && item.ShortfallQty == 0:
			item.StockStatus = enums.StockStatusAllocated
			continue
		case item.AllocatedQty > 0:
			item.StockStatus = enums.StockStatusPartial
		default:
			item.StockStatus = enums.StockStatusShortage
		}

		reason := enums.StockShortageReasonUnavailable
		detail := "allocation incomplete"
		if shortage, ok := inventory.AsShortage(err); ok {
			reason = shortage.Reason
			detail = shortage.Error()
		} else if err != nil {
			detail = err.Error()
		}
		shortages = append(shortages, models.StockShortage{
			OrderCode:        order.Code,
			ProductCode:      item.ProductCode,
			InventoryTypeKey: product.InventoryTypeKey,
			Requested:        item.Quantity,
			Allocated:        item.AllocatedQty,
			Shortfall:        item.ShortfallQty,
			Reason:           reason,
			Detail:           detail,
		})
	}
	return shortages
}

func hasWithdrawals(items []models.OrderItem) bool {
	for _, item := range items {
		if item.AllocatedQty > 0 {
			return true
		}
	}
	return false
}

func isBusinessRejection(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return false
	}
	switch typed.Code() {
	case pkgerrors.CodeInternal, pkgerrors.CodeDependency:
		return false
	}
	return true
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func nonEmpty(v *string) *string {
	t := trimmed(v)
	if t == "" {
		return nil
	}
	return &t
}
