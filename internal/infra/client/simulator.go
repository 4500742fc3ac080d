package client

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
)

// SimulatorOptions shapes the simulated handset behaviour.
type SimulatorOptions struct {
	// PendingPolls is how many queries report "still processing" before the outcome.
	PendingPolls int
	// ResultCode fixes the outcome of every push. Empty picks one per push from Seed.
	ResultCode string
	Seed       int64
}

// simulatedOutcomes is weighted towards success, like a real till.
var simulatedOutcomes = []struct {
	code string
	desc string
}{
	{domain.STKResultSuccess, "The service request is processed successfully."},
	{domain.STKResultSuccess, "The service request is processed successfully."},
	{domain.STKResultSuccess, "The service request is processed successfully."},
	{domain.STKResultCancelledByUser, "Request cancelled by user"},
	{domain.STKResultUnreachable, "DS timeout user cannot be reached"},
	{"1", "The balance is insufficient for the transaction"},
}

type simulatedPush struct {
	queries int
	code    string
	desc    string
}

// Simulator is an in-process M-Pesa gateway for development and tests.
type Simulator struct {
	opts SimulatorOptions

	mu     sync.Mutex
	rng    *rand.Rand
	pushes map[string]*simulatedPush
}

func NewSimulator(opts SimulatorOptions) *Simulator {
	return &Simulator{
		opts:   opts,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		pushes: make(map[string]*simulatedPush),
	}
}

func (s *Simulator) InitiateSTKPush(ctx context.Context, req *domain.STKPushRequest) (*domain.STKPushResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	push := &simulatedPush{code: s.opts.ResultCode}
	if push.code == "" {
		o := simulatedOutcomes[s.rng.Intn(len(simulatedOutcomes))]
		push.code, push.desc = o.code, o.desc
	} else {
		push.desc = "simulated result " + push.code
	}

	id := "ws_CO_" + uuid.NewString()
	s.pushes[id] = push
	return &domain.STKPushResponse{
		Success:             true,
		CheckoutRequestID:   id,
		MerchantRequestID:   fmt.Sprintf("sim-%d", len(s.pushes)),
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}, nil
}

func (s *Simulator) QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*domain.STKQueryResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	push, ok := s.pushes[checkoutRequestID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "stk push", ID: checkoutRequestID}
	}
	push.queries++
	if push.queries <= s.opts.PendingPolls {
		return &domain.STKQueryResponse{
			Success:    true,
			ResultCode: domain.STKResultStillProcessing,
			ResultDesc: "The transaction is being processed",
		}, nil
	}
	return &domain.STKQueryResponse{Success: true, ResultCode: push.code, ResultDesc: push.desc}, nil
}
