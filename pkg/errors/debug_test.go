package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestDumpNil(t *testing.T) {
	assert.Equal(t, ErrorDump{}, Dump(nil))
}

func TestDumpPostgresConstraint(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23514",
		ConstraintName: "chk_wallets_balance_non_negative",
		TableName:      "wallets",
		Message:        "new row violates check constraint",
	}
	err := Wrap(CodeDependency, fmt.Errorf("update wallet: %w", pgErr), "debit wallet")

	d := Dump(err)
	assert.Equal(t, CodeDependency, d.Code)
	assert.Equal(t, "23514", d.DBCode)
	assert.Equal(t, "wallets", d.DBTable)
	assert.Equal(t, "wallet balance cannot go negative", d.Invariant)
	assert.GreaterOrEqual(t, len(d.Chain), 2)
}

func TestDumpSQLiteCheck(t *testing.T) {
	d := Dump(fmt.Errorf("CHECK constraint failed: chk_orders_split"))
	assert.Equal(t, "chk_orders_split", d.DBConstraint)
	assert.Equal(t, "payment split must add up to the total", d.Invariant)
}

func TestDumpUnknownConstraint(t *testing.T) {
	d := Dump(fmt.Errorf("CHECK constraint failed: something_else"))
	assert.Equal(t, "something_else", d.DBConstraint)
	assert.Empty(t, d.Invariant)
}
