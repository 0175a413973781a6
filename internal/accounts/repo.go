package accounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/storefront-backend/pkg/db/models"
)

// Repository persists accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an accounts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Account{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

// ProfileRepository persists customer profiles.
type ProfileRepository interface {
	WithTx(tx *gorm.DB) ProfileRepository
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.CustomerProfile, error)
	Update(ctx context.Context, profile *models.CustomerProfile) error
	DeleteByAccountID(ctx context.Context, accountID uuid.UUID) error
	DetachOrders(ctx context.Context, profileID uuid.UUID) (int64, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a profile repository bound to the provided
// database.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) WithTx(tx *gorm.DB) ProfileRepository {
	if tx == nil {
		return r
	}
	return &profileRepository{db: tx}
}

func (r *profileRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.CustomerProfile, error) {
	var profile models.CustomerProfile
	if err := r.db.WithContext(ctx).First(&profile, "account_id = ?", accountID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.CustomerProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *profileRepository) DeleteByAccountID(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.CustomerProfile{}, "account_id = ?", accountID).Error
}

// DetachOrders nulls the customer reference on every order owned by the
// profile. Orders survive account deletion as anonymized history.
func (r *profileRepository) DetachOrders(ctx context.Context, profileID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("customer_id = ?", profileID).
		Update("customer_id", nil)
	return result.RowsAffected, result.Error
}
