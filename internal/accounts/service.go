package accounts

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/storefront-backend/internal/cart"
	"github.com/brightbasket/storefront-backend/internal/favorites"
	"github.com/brightbasket/storefront-backend/pkg/db"
	"github.com/brightbasket/storefront-backend/pkg/db/models"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
	"github.com/brightbasket/storefront-backend/pkg/logger"
)

// UpdateProfileInput carries partial profile updates. Nil fields are left
// untouched.
type UpdateProfileInput struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
}

// Service exposes account and profile operations. Deletion detaches order
// history instead of destroying it.
type Service interface {
	Profile(ctx context.Context, accountID uuid.UUID) (*models.CustomerProfile, error)
	UpdateProfile(ctx context.Context, accountID uuid.UUID, input UpdateProfileInput) (*models.CustomerProfile, error)
	DeleteAccount(ctx context.Context, accountID uuid.UUID) error
}

type service struct {
	client   *db.Client
	repo     Repository
	profiles ProfileRepository
	cartRepo cart.Repository
	favRepo  favorites.Repository
	logg     *logger.Logger
}

// NewService wires the accounts service. Logger may be nil.
func NewService(
	client *db.Client,
	repo Repository,
	profiles ProfileRepository,
	cartRepo cart.Repository,
	favRepo favorites.Repository,
	logg *logger.Logger,
) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if favRepo == nil {
		return nil, fmt.Errorf("favorites repository required")
	}
	return &service{
		client:   client,
		repo:     repo,
		profiles: profiles,
		cartRepo: cartRepo,
		favRepo:  favRepo,
		logg:     logg,
	}, nil
}

// Profile returns the customer profile attached to the account.
func (s *service) Profile(ctx context.Context, accountID uuid.UUID) (*models.CustomerProfile, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	profile, err := s.profiles.GetByAccountID(ctx, accountID)
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("no customer profile for account %s", accountID))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading profile")
	}
	return profile, nil
}

// UpdateProfile applies the non-nil fields and returns the updated profile.
func (s *service) UpdateProfile(ctx context.Context, accountID uuid.UUID, input UpdateProfileInput) (*models.CustomerProfile, error) {
	profile, err := s.Profile(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		profile.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		profile.LastName = *input.LastName
	}
	if input.Email != nil {
		profile.Email = input.Email
	}
	if input.Phone != nil {
		profile.Phone = input.Phone
	}
	if input.Address != nil {
		profile.Address = input.Address
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating profile")
	}
	return profile, nil
}

// DeleteAccount removes the account and its cart, favorites, and profile in
// one transaction. Orders are detached first so history survives with a
// null customer reference.
func (s *service) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		accountRepo := s.repo.WithTx(tx)
		if _, err := accountRepo.GetByID(ctx, accountID); err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("account %s not found", accountID))
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
		}

		profileRepo := s.profiles.WithTx(tx)
		profile, err := profileRepo.GetByAccountID(ctx, accountID)
		if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading profile")
		}

		if profile != nil {
			detached, err := profileRepo.DetachOrders(ctx, profile.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "detaching orders")
			}
			if s.logg != nil && detached > 0 {
				s.logg.Info(s.logg.WithFields(ctx, map[string]any{
					"account_id":      accountID.String(),
					"detached_orders": detached,
				}), "orders detached before account deletion")
			}
			if err := profileRepo.DeleteByAccountID(ctx, accountID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting profile")
			}
		}

		if err := s.cartRepo.WithTx(tx).DeleteByAccount(ctx, accountID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
		}
		if err := s.favRepo.WithTx(tx).DeleteByAccount(ctx, accountID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing favorites")
		}

		affected, err := accountRepo.Delete(ctx, accountID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting account")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrentModification,
				"account was deleted concurrently")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithAccountID(ctx, accountID.String()), "account deleted")
	}
	return nil
}
