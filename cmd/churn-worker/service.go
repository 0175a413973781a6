package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/brightbasket/storefront-backend/internal/churn"
	"github.com/brightbasket/storefront-backend/pkg/enums"
	"github.com/brightbasket/storefront-backend/pkg/logger"
	"github.com/brightbasket/storefront-backend/pkg/metrics"
	"github.com/brightbasket/storefront-backend/pkg/outbox"
)

const workerName = "churn-worker"

type recomputeService interface {
	RecomputeCustomer(ctx context.Context, customerID uuid.UUID) (*churn.RiskAssessment, error)
}

// Service consumes order lifecycle events and refreshes the affected
// customer's churn risk so the cached assessment never lags an order
// by more than pipeline latency.
type Service struct {
	subscription *gcppubsub.Subscriber
	churn        recomputeService
	workerStats  *metrics.WorkerMetrics
	logg         *logger.Logger
}

func NewService(subscription *gcppubsub.Subscriber, churnSvc recomputeService, workerStats *metrics.WorkerMetrics, logg *logger.Logger) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("orders subscription is required")
	}
	if churnSvc == nil {
		return nil, errors.New("churn service is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: subscription,
		churn:        churnSvc,
		workerStats:  workerStats,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes order events until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	start := time.Now()
	defer func() {
		s.workerStats.ObserveRun(workerName, time.Since(start))
	}()

	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	}
	logCtx := s.logg.WithFields(ctx, fields)

	customerID, err := s.customerFromMessage(msg)
	if err != nil {
		// Malformed payloads never become valid; drop instead of redelivering.
		fields["error"] = err.Error()
		s.logg.Warn(s.logg.WithFields(ctx, fields), "dropping undecodable order event")
		s.workerStats.IncFailed(workerName)
		return processResult{}
	}
	if customerID == uuid.Nil {
		s.logg.Debug(logCtx, "order event carries no customer, skipping")
		return processResult{}
	}

	logCtx = s.logg.WithCustomerID(logCtx, customerID.String())
	assessment, err := s.churn.RecomputeCustomer(logCtx, customerID)
	if err != nil {
		s.logg.Error(logCtx, "churn recompute failed", err)
		s.workerStats.IncFailed(workerName)
		return processResult{nack: true}
	}

	fields["risk_category"] = assessment.Category
	if assessment.Score != nil {
		fields["risk_score"] = *assessment.Score
	}
	s.logg.Info(s.logg.WithFields(logCtx, fields), "churn risk recomputed")
	s.workerStats.IncProcessed(workerName)
	return processResult{}
}

// customerFromMessage resolves which customer an order event belongs to.
// Events that do not change order history (stock releases, cancellations of
// detached orders) resolve to uuid.Nil and are acked without recompute.
func (s *Service) customerFromMessage(msg *gcppubsub.Message) (uuid.UUID, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return uuid.Nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	switch enums.OutboxEventType(msg.Attributes["event_type"]) {
	case enums.EventOrderCompleted:
		var data outbox.OrderCompletedData
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return uuid.Nil, fmt.Errorf("decode order completed data: %w", err)
		}
		return data.CustomerID, nil
	case enums.EventOrderCancelled:
		var data outbox.OrderCancelledData
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return uuid.Nil, fmt.Errorf("decode order cancelled data: %w", err)
		}
		if data.CustomerID == nil {
			return uuid.Nil, nil
		}
		return *data.CustomerID, nil
	default:
		return uuid.Nil, nil
	}
}
