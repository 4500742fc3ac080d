package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/observability"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/resilience"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/port"
)

var mpesaTracer = otel.Tracer("service/mpesa")

const stkCacheName = "stk_status"

// MpesaService drives STK push payments: it starts a push and follows it to a terminal state.
type MpesaService struct {
	gateway  port.MpesaGateway
	results  port.Cache[domain.STKStatusResult]
	bulkhead *resilience.Bulkhead
	poll     resilience.PollConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewMpesaService creates a new M-Pesa service. results caches terminal statuses;
// bulkhead bounds how many payments are awaited at once.
func NewMpesaService(
	gateway port.MpesaGateway,
	results port.Cache[domain.STKStatusResult],
	bulkhead *resilience.Bulkhead,
	poll resilience.PollConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *MpesaService {
	return &MpesaService{
		gateway:  gateway,
		results:  results,
		bulkhead: bulkhead,
		poll:     poll,
		metrics:  metrics,
		logger:   logger,
	}
}

// InitiateSTKPush validates and normalizes the request and sends the prompt.
func (s *MpesaService) InitiateSTKPush(ctx context.Context, req domain.STKPushRequest) (*domain.STKPushResponse, error) {
	ctx, span := mpesaTracer.Start(ctx, "MpesaService.InitiateSTKPush")
	defer span.End()

	phone, ok := domain.NormalizeMSISDN(req.PhoneNumber)
	if !ok {
		return nil, &domain.ErrValidation{Field: "phoneNumber", Message: "must be a Kenyan mobile number (07XXXXXXXX, 01XXXXXXXX or 254XXXXXXXXX)"}
	}
	if req.Amount.LessThan(oneShilling) || !req.Amount.IsInteger() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be a whole number of shillings, at least 1"}
	}
	ref := strings.TrimSpace(req.AccountReference)
	if ref == "" || len(ref) > 12 {
		return nil, &domain.ErrValidation{Field: "accountReference", Message: "required, at most 12 characters"}
	}
	desc := strings.TrimSpace(req.TransactionDesc)
	if desc == "" {
		desc = "Payment"
	}
	if len(desc) > 13 {
		return nil, &domain.ErrValidation{Field: "transactionDesc", Message: "at most 13 characters"}
	}

	req.PhoneNumber = phone
	req.AccountReference = ref
	req.TransactionDesc = desc

	start := time.Now()
	resp, err := s.gateway.InitiateSTKPush(ctx, &req)
	s.metrics.RecordRequestDuration("mpesa_stk_push", time.Since(start))
	if err != nil {
		s.metrics.IncrExternalError("mpesa")
		s.logger.Error("stk push failed",
			zap.String("account_reference", ref),
			zap.Error(err),
		)
		return nil, fmt.Errorf("stk push: %w", err)
	}
	if !resp.Success {
		return nil, &domain.ErrExternalService{Service: "mpesa", Err: errors.New(resp.ResponseDescription)}
	}

	span.SetAttributes(attribute.String("mpesa.checkout_request_id", resp.CheckoutRequestID))
	s.logger.Info("stk push sent",
		zap.String("checkout_request_id", resp.CheckoutRequestID),
		zap.String("account_reference", ref),
		zap.String("amount", req.Amount.String()),
	)
	return resp, nil
}

// QueryStatus asks the gateway once. Terminal results are cached and served from cache afterwards.
func (s *MpesaService) QueryStatus(ctx context.Context, checkoutRequestID string) (*domain.STKStatusResult, error) {
	ctx, span := mpesaTracer.Start(ctx, "MpesaService.QueryStatus")
	defer span.End()
	span.SetAttributes(attribute.String("mpesa.checkout_request_id", checkoutRequestID))

	if checkoutRequestID == "" {
		return nil, &domain.ErrValidation{Field: "checkoutRequestId", Message: "checkout request id is required"}
	}
	return s.query(ctx, checkoutRequestID, 1)
}

func (s *MpesaService) query(ctx context.Context, checkoutRequestID string, attempt int) (*domain.STKStatusResult, error) {
	if cached, ok := s.results.Get(checkoutRequestID); ok {
		s.metrics.IncrCacheHit(stkCacheName)
		cached.Attempts = attempt
		return &cached, nil
	}
	s.metrics.IncrCacheMiss(stkCacheName)

	q, err := s.gateway.QuerySTKStatus(ctx, checkoutRequestID)
	if err != nil {
		s.metrics.IncrExternalError("mpesa")
		return nil, fmt.Errorf("stk query: %w", err)
	}

	result := domain.STKStatusResult{
		CheckoutRequestID: checkoutRequestID,
		Status:            domain.StatusFromQuery(*q),
		ResultCode:        q.ResultCode,
		ResultDesc:        q.ResultDesc,
		Attempts:          attempt,
	}
	if result.Status.Terminal() {
		if s.results.SetIfAbsent(checkoutRequestID, result) {
			s.metrics.IncrSTKOutcome(result.Status)
			s.logger.Info("stk push settled",
				zap.String("checkout_request_id", checkoutRequestID),
				zap.String("status", string(result.Status)),
				zap.String("result_code", result.ResultCode),
			)
		}
	}
	return &result, nil
}

// AwaitPayment polls until the push reaches a terminal state. When every attempt comes back
// pending the result is timed-out. Cancelling ctx stops polling and returns ctx's error.
// Transient query failures count as pending attempts.
func (s *MpesaService) AwaitPayment(ctx context.Context, checkoutRequestID string) (*domain.STKStatusResult, error) {
	ctx, span := mpesaTracer.Start(ctx, "MpesaService.AwaitPayment")
	defer span.End()
	span.SetAttributes(attribute.String("mpesa.checkout_request_id", checkoutRequestID))

	if checkoutRequestID == "" {
		return nil, &domain.ErrValidation{Field: "checkoutRequestId", Message: "checkout request id is required"}
	}
	if cached, ok := s.results.Get(checkoutRequestID); ok {
		s.metrics.IncrCacheHit(stkCacheName)
		return &cached, nil
	}

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.bulkhead.Release()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("mpesa_await", time.Since(start))
	}()

	var last *domain.STKStatusResult
	err := resilience.Poll(ctx, s.poll, func(ctx context.Context, attempt int) (bool, error) {
		res, err := s.query(ctx, checkoutRequestID, attempt)
		if err != nil {
			var nf *domain.ErrNotFound
			if errors.As(err, &nf) {
				return false, err
			}
			s.logger.Warn("stk poll attempt failed",
				zap.String("checkout_request_id", checkoutRequestID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			last = &domain.STKStatusResult{CheckoutRequestID: checkoutRequestID, Status: domain.STKPending, Attempts: attempt}
			return false, nil
		}
		last = res
		return res.Status.Terminal(), nil
	})

	switch {
	case errors.Is(err, resilience.ErrPollExhausted):
		result := domain.STKStatusResult{
			CheckoutRequestID: checkoutRequestID,
			Status:            domain.STKTimedOut,
			ResultDesc:        "no final result after polling",
			Attempts:          s.poll.MaxAttempts,
		}
		if last != nil {
			result.ResultCode = last.ResultCode
		}
		s.metrics.IncrSTKOutcome(domain.STKTimedOut)
		s.logger.Warn("stk push polling exhausted",
			zap.String("checkout_request_id", checkoutRequestID),
			zap.Int("attempts", s.poll.MaxAttempts),
		)
		return &result, nil
	case err != nil:
		return nil, err
	}

	span.SetAttributes(attribute.String("mpesa.status", string(last.Status)))
	return last, nil
}
