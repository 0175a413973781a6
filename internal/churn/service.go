package churn

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brightbasket/storefront-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/storefront-backend/pkg/errors"
	"github.com/brightbasket/storefront-backend/pkg/logger"
	"github.com/brightbasket/storefront-backend/pkg/redis"
)

// Cache is the advisory risk cache surface. A stale entry may be served up
// to its TTL; checkout invalidation and the worker refresh keep it warm.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	RiskKey(customerID string) string
}

// Service is the churn risk surface consumed by the dashboard and the
// background worker. Strictly read-only against order history.
type Service interface {
	Features(ctx context.Context, customerID uuid.UUID, asOf time.Time) (*RFMFeatures, error)
	AssessCustomer(ctx context.Context, customerID uuid.UUID) (*RiskAssessment, error)
	RecomputeCustomer(ctx context.Context, customerID uuid.UUID) (*RiskAssessment, error)
	Distribution(ctx context.Context) (*Distribution, error)
}

type service struct {
	extractor *Extractor
	params    ScoreParams
	cache     Cache
	cacheTTL  time.Duration
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the churn service. Cache may be nil; every assessment is
// then computed fresh.
func NewService(extractor *Extractor, params ScoreParams, cache Cache, cacheTTL time.Duration, logg *logger.Logger) (Service, error) {
	if extractor == nil {
		return nil, fmt.Errorf("churn extractor required")
	}
	if params.RecencyHorizonDays <= 0 {
		return nil, fmt.Errorf("recency horizon must be positive")
	}
	return &service{
		extractor: extractor,
		params:    params,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Features exposes raw RFM features for the assistant collaborator.
func (s *service) Features(ctx context.Context, customerID uuid.UUID, asOf time.Time) (*RFMFeatures, error) {
	return s.extractor.Extract(ctx, customerID, asOf)
}

// AssessCustomer returns the cached assessment when fresh, otherwise
// computes and caches a new one. INSUFFICIENT_DATA maps to UNSCORABLE.
func (s *service) AssessCustomer(ctx context.Context, customerID uuid.UUID) (*RiskAssessment, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	if cached := s.fromCache(ctx, customerID); cached != nil {
		return cached, nil
	}
	return s.RecomputeCustomer(ctx, customerID)
}

// RecomputeCustomer always computes a fresh assessment and refreshes the
// cache. The worker calls this on order-completed events.
func (s *service) RecomputeCustomer(ctx context.Context, customerID uuid.UUID) (*RiskAssessment, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	assessment, err := s.assess(ctx, customerID, s.now())
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, assessment)
	return assessment, nil
}

func (s *service) assess(ctx context.Context, customerID uuid.UUID, asOf time.Time) (*RiskAssessment, error) {
	features, err := s.extractor.Extract(ctx, customerID, asOf)
	if pkgerrors.HasCode(err, pkgerrors.CodeInsufficientData) {
		unscorable := Unscorable(customerID, asOf)
		return &unscorable, nil
	}
	if err != nil {
		return nil, err
	}
	assessment := Score(*features, s.params)
	return &assessment, nil
}

// Distribution walks the customer base and buckets every assessment. Used
// by the dashboard aggregate endpoint.
func (s *service) Distribution(ctx context.Context) (*Distribution, error) {
	ids, err := s.extractor.repo.CustomerIDs(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing customers")
	}

	asOf := s.now()
	dist := &Distribution{Total: len(ids)}
	for _, id := range ids {
		assessment, err := s.assess(ctx, id, asOf)
		if err != nil {
			return nil, err
		}
		switch assessment.Category {
		case enums.RiskCategoryHigh:
			dist.High++
		case enums.RiskCategoryMedium:
			dist.Medium++
		case enums.RiskCategoryLow:
			dist.Low++
		default:
			dist.Unscorable++
		}
	}
	return dist, nil
}

func (s *service) fromCache(ctx context.Context, customerID uuid.UUID) *RiskAssessment {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cache.RiskKey(customerID.String()))
	if err != nil {
		if !stdErrors.Is(err, redis.ErrCacheMiss) && s.logg != nil {
			s.logg.Warn(ctx, "risk cache read failed: "+err.Error())
		}
		return nil
	}
	var assessment RiskAssessment
	if err := json.Unmarshal([]byte(raw), &assessment); err != nil {
		return nil
	}
	return &assessment
}

func (s *service) toCache(ctx context.Context, assessment *RiskAssessment) {
	if s.cache == nil || assessment == nil {
		return
	}
	raw, err := json.Marshal(assessment)
	if err != nil {
		return
	}
	key := s.cache.RiskKey(assessment.CustomerID.String())
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "risk cache write failed: "+err.Error())
	}
}
