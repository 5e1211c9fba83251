package catalog

import (
	"context"
	"testing"

	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:catalog_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Product{}))
	return conn
}

func ptr[T any](v T) *T { return &v }

func TestGetActiveProduct(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	retired := &models.Product{Code: "OLD-01", Name: "Retired", UnitPrice: ptr[int64](1_000), Active: true}
	require.NoError(t, conn.Create([]*models.Product{
		{Code: "SOAP-01", Name: "Olive soap", UnitPrice: ptr[int64](30_000), Active: true, InventoryTypeKey: ptr(" soap-olive ")},
		{Code: "GIFT-01", Name: "Gift card", UnitPrice: ptr[int64](50_000), Active: true},
		retired,
		{Code: "NEW-01", Name: "Unpriced", Active: true},
	}).Error)
	require.NoError(t, conn.Model(retired).Update("active", false).Error)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	product, err := svc.GetActiveProduct(ctx, "SOAP-01")
	require.NoError(t, err)
	assert.Equal(t, int64(30_000), product.UnitPrice)
	assert.Equal(t, "soap-olive", product.InventoryTypeKey)
	assert.True(t, product.Tracked())

	gift, err := svc.GetActiveProduct(ctx, "GIFT-01")
	require.NoError(t, err)
	assert.False(t, gift.Tracked())

	cases := map[string]pkgerrors.Code{
		"OLD-01":  pkgerrors.CodeProductUnavailable,
		"NEW-01":  pkgerrors.CodeProductUnavailable,
		"MISSING": pkgerrors.CodeProductUnavailable,
		"  ":      pkgerrors.CodeValidation,
	}
	for code, want := range cases {
		_, err := svc.GetActiveProduct(ctx, code)
		require.Errorf(t, err, "code %q", code)
		assert.Truef(t, pkgerrors.IsCode(err, want), "code %q: got %v", code, err)
	}
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}
