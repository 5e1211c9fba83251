package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for structured logs. DB* fields are filled
// from Postgres driver errors, or parsed from SQLite constraint messages.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	DBCode       string `json:"db_code,omitempty"`
	DBConstraint string `json:"db_constraint,omitempty"`
	DBTable      string `json:"db_table,omitempty"`
	DBColumn     string `json:"db_column,omitempty"`
	DBDetail     string `json:"db_detail,omitempty"`
	DBMessage    string `json:"db_message,omitempty"`

	// Invariant names the ledger rule a violated constraint protects.
	Invariant string `json:"invariant,omitempty"`
}

// constraintInvariants maps schema constraints to the rule they enforce so a
// failed write reads as a domain problem in the logs.
var constraintInvariants = map[string]string{
	"chk_wallets_balance_non_negative":            "wallet balance cannot go negative",
	"chk_balance_transactions_after_non_negative": "wallet balance cannot go negative",
	"chk_balance_transactions_chain":              "balance_after must equal balance_before + amount",
	"uq_balance_transactions_customer_seq":        "one ledger entry per wallet sequence number",
	"chk_orders_split":                            "payment split must add up to the total",
	"chk_orders_wallet_customer":                  "wallet payments need a customer phone",
	"chk_order_items_line_total":                  "line total must equal unit price times quantity",
	"chk_discount_codes_usage":                    "discount redemptions cannot exceed the usage limit",
	"uq_refund_requests_pending_order":            "one pending refund per order",
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.DBCode = pgxErr.Code
		d.DBConstraint = pgxErr.ConstraintName
		d.DBTable = pgxErr.TableName
		d.DBColumn = pgxErr.ColumnName
		d.DBDetail = pgxErr.Detail
		d.DBMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		d.DBCode = string(pqErr.Code)
		d.DBConstraint = pqErr.Constraint
		d.DBTable = pqErr.Table
		d.DBColumn = pqErr.Column
		d.DBDetail = pqErr.Detail
		d.DBMessage = pqErr.Message
	default:
		d.DBConstraint = sqliteConstraint(err.Error())
	}

	if d.DBConstraint != "" {
		d.Invariant = constraintInvariants[d.DBConstraint]
	}
	return d
}

// sqliteConstraint extracts the name from "CHECK constraint failed: <name>".
// UNIQUE failures only name columns, so they are matched by index name when
// the message carries one.
func sqliteConstraint(msg string) string {
	const check = "CHECK constraint failed: "
	if i := strings.Index(msg, check); i >= 0 {
		name := msg[i+len(check):]
		if j := strings.IndexAny(name, " \n"); j >= 0 {
			name = name[:j]
		}
		return name
	}
	if strings.Contains(msg, "UNIQUE constraint failed") {
		for name := range constraintInvariants {
			if strings.HasPrefix(name, "uq_") && strings.Contains(msg, name) {
				return name
			}
		}
	}
	return ""
}
