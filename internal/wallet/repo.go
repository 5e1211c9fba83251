package wallet

import (
	"context"
	"time"

	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for wallets and their transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindWallet(ctx context.Context, phone string) (*models.Wallet, error)
	FindWalletForUpdate(ctx context.Context, phone string) (*models.Wallet, error)
	EnsureWallet(ctx context.Context, phone string) error
	AdvanceWallet(ctx context.Context, wallet *models.Wallet, expectedSeq int64) (bool, error)
	CreateTransaction(ctx context.Context, entry *models.BalanceTransaction) error
	ListTransactions(ctx context.Context, phone string, beforeSeq int64, limit int) ([]models.BalanceTransaction, error)
	ListAllTransactions(ctx context.Context, phone string) ([]models.BalanceTransaction, error)
	ListWalletPhones(ctx context.Context, afterPhone string, limit int) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindWallet(ctx context.Context, phone string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Where("customer_phone = ?", phone).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// FindWalletForUpdate row-locks the wallet on Postgres. SQLite ignores the
// locking clause; AdvanceWallet's sequence guard still rejects lost updates.
func (r *repository) FindWalletForUpdate(ctx context.Context, phone string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_phone = ?", phone).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) EnsureWallet(ctx context.Context, phone string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Wallet{CustomerPhone: phone}).Error
}

// AdvanceWallet writes the new snapshot only if no other writer moved the
// sequence since it was read.
func (r *repository) AdvanceWallet(ctx context.Context, wallet *models.Wallet, expectedSeq int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("customer_phone = ? AND last_seq = ?", wallet.CustomerPhone, expectedSeq).
		Updates(map[string]any{
			"balance":     wallet.Balance,
			"total_topup": wallet.TotalTopup,
			"total_spent": wallet.TotalSpent,
			"last_seq":    wallet.LastSeq,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateTransaction(ctx context.Context, entry *models.BalanceTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListTransactions(ctx context.Context, phone string, beforeSeq int64, limit int) ([]models.BalanceTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("customer_phone = ?", phone)
	if beforeSeq > 0 {
		query = query.Where("seq < ?", beforeSeq)
	}

	var entries []models.BalanceTransaction
	if err := query.
		Order("seq DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListAllTransactions(ctx context.Context, phone string) ([]models.BalanceTransaction, error) {
	var entries []models.BalanceTransaction
	if err := r.db.WithContext(ctx).
		Where("customer_phone = ?", phone).
		Order("seq ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListWalletPhones pages wallet keys in ascending order, starting after afterPhone.
func (r *repository) ListWalletPhones(ctx context.Context, afterPhone string, limit int) ([]string, error) {
	query := r.db.WithContext(ctx).Model(&models.Wallet{})
	if afterPhone != "" {
		query = query.Where("customer_phone > ?", afterPhone)
	}

	var phones []string
	if err := query.
		Order("customer_phone ASC").
		Limit(limit).
		Pluck("customer_phone", &phones).Error; err != nil {
		return nil, err
	}
	return phones, nil
}
