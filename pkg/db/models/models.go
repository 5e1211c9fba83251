package models

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Product{},
		&Wallet{},
		&BalanceTransaction{},
		&DiscountCode{},
		&Order{},
		&OrderItem{},
		&RefundRequest{},
		&StockShortage{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
