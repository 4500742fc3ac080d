package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/cache"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/client"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/observability"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/resilience"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/port"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/service"
)

// --- Mocks ---

type mockGateway struct {
	lastPush  *domain.STKPushRequest
	queries   atomic.Int32
	responses []domain.STKQueryResponse
	queryErr  error
}

func (m *mockGateway) InitiateSTKPush(_ context.Context, req *domain.STKPushRequest) (*domain.STKPushResponse, error) {
	m.lastPush = req
	return &domain.STKPushResponse{Success: true, CheckoutRequestID: "ws_CO_1"}, nil
}

func (m *mockGateway) QuerySTKStatus(_ context.Context, _ string) (*domain.STKQueryResponse, error) {
	n := int(m.queries.Add(1))
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if n > len(m.responses) {
		n = len(m.responses)
	}
	r := m.responses[n-1]
	return &r, nil
}

func newMpesa(t *testing.T, gw port.MpesaGateway, attempts int) (*service.MpesaService, *observability.Metrics) {
	t.Helper()
	results := cache.New[domain.STKStatusResult](time.Hour)
	t.Cleanup(results.Close)
	metrics := observability.NewMetrics()
	svc := service.NewMpesaService(
		gw,
		results,
		resilience.NewBulkhead(2),
		resilience.PollConfig{Interval: time.Millisecond, MaxAttempts: attempts},
		metrics,
		zap.NewNop(),
	)
	return svc, metrics
}

var pending = domain.STKQueryResponse{Success: true, ResultCode: domain.STKResultStillProcessing}

// --- Tests ---

func TestMpesa_InitiateNormalizesPhone(t *testing.T) {
	gw := &mockGateway{}
	svc, _ := newMpesa(t, gw, 3)

	_, err := svc.InitiateSTKPush(context.Background(), domain.STKPushRequest{
		PhoneNumber: "0712 345 678", Amount: dec("150"), AccountReference: "SALE-9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.lastPush.PhoneNumber != "254712345678" {
		t.Errorf("phone = %s, want 254712345678", gw.lastPush.PhoneNumber)
	}
	if gw.lastPush.TransactionDesc == "" {
		t.Error("transaction description should default")
	}
}

func TestMpesa_InitiateValidation(t *testing.T) {
	svc, _ := newMpesa(t, &mockGateway{}, 3)
	cases := map[string]domain.STKPushRequest{
		"bad phone":      {PhoneNumber: "0812345678", Amount: dec("10"), AccountReference: "A"},
		"fractional":     {PhoneNumber: "0712345678", Amount: dec("10.50"), AccountReference: "A"},
		"zero amount":    {PhoneNumber: "0712345678", Amount: dec("0"), AccountReference: "A"},
		"long reference": {PhoneNumber: "0712345678", Amount: dec("10"), AccountReference: "ABCDEFGHIJKLM"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			var ve *domain.ErrValidation
			if _, err := svc.InitiateSTKPush(context.Background(), req); !errors.As(err, &ve) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestMpesa_AwaitPayment(t *testing.T) {
	cases := []struct {
		name      string
		responses []domain.STKQueryResponse
		want      domain.STKStatus
	}{
		{"success after pending", []domain.STKQueryResponse{pending, pending, {Success: true, ResultCode: "0"}}, domain.STKSuccess},
		{"cancelled by user", []domain.STKQueryResponse{pending, {Success: true, ResultCode: "1032"}}, domain.STKFailed},
		{"handset unreachable", []domain.STKQueryResponse{{Success: true, ResultCode: "1037"}}, domain.STKTimedOut},
		{"never settles", []domain.STKQueryResponse{pending}, domain.STKTimedOut},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &mockGateway{responses: tc.responses}
			svc, _ := newMpesa(t, gw, 5)

			res, err := svc.AwaitPayment(context.Background(), "ws_CO_1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Status != tc.want {
				t.Errorf("status = %s, want %s", res.Status, tc.want)
			}
			if int(gw.queries.Load()) > 5 {
				t.Errorf("polled %d times, bound is 5", gw.queries.Load())
			}
		})
	}
}

func TestMpesa_AwaitPaymentCancelled(t *testing.T) {
	gw := &mockGateway{responses: []domain.STKQueryResponse{pending}}
	results := cache.New[domain.STKStatusResult](time.Hour)
	t.Cleanup(results.Close)
	svc := service.NewMpesaService(gw, results, resilience.NewBulkhead(1),
		resilience.PollConfig{Interval: 50 * time.Millisecond, MaxAttempts: 100},
		observability.NewMetrics(), zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := svc.AwaitPayment(ctx, "ws_CO_1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("polling did not stop on cancellation")
	}
}

func TestMpesa_TransientQueryErrorsCountAsPending(t *testing.T) {
	gw := &mockGateway{queryErr: &domain.ErrExternalService{Service: "mpesa", Err: errors.New("502")}}
	svc, _ := newMpesa(t, gw, 3)

	res, err := svc.AwaitPayment(context.Background(), "ws_CO_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.STKTimedOut || gw.queries.Load() != 3 {
		t.Errorf("status = %s after %d queries", res.Status, gw.queries.Load())
	}
}

func TestMpesa_TerminalResultIsCached(t *testing.T) {
	gw := &mockGateway{responses: []domain.STKQueryResponse{{Success: true, ResultCode: "0"}}}
	svc, metrics := newMpesa(t, gw, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := svc.QueryStatus(ctx, "ws_CO_1")
		if err != nil {
			t.Fatalf("query %d: %v", i, err)
		}
		if res.Status != domain.STKSuccess {
			t.Errorf("query %d: status = %s", i, res.Status)
		}
	}
	if gw.queries.Load() != 1 {
		t.Errorf("gateway queried %d times, want 1", gw.queries.Load())
	}
	if snap := metrics.GetPOSSnapshot(); snap.STKSucceeded != 1 {
		t.Errorf("success counted %d times, want 1", snap.STKSucceeded)
	}
}

func TestMpesa_WithSimulator(t *testing.T) {
	sim := client.NewSimulator(client.SimulatorOptions{PendingPolls: 1, ResultCode: domain.STKResultSuccess})
	svc, _ := newMpesa(t, sim, 5)
	ctx := context.Background()

	push, err := svc.InitiateSTKPush(ctx, domain.STKPushRequest{
		PhoneNumber: "+254 112 345 678", Amount: dec("20"), AccountReference: "SALE-10",
	})
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	res, err := svc.AwaitPayment(ctx, push.CheckoutRequestID)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if res.Status != domain.STKSuccess || res.Attempts != 2 {
		t.Errorf("got %+v, want success on attempt 2", res)
	}
}
