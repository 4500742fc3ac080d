package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/observability"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/port"
)

var accountsTracer = otel.Tracer("service/accounts")

// AccountsService runs the account ledger: balances, the transaction log,
// transfers and reconciliation.
type AccountsService struct {
	store   port.AccountStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAccountsService creates a new accounts service.
func NewAccountsService(store port.AccountStore, metrics *observability.Metrics, logger *zap.Logger) *AccountsService {
	return &AccountsService{store: store, metrics: metrics, logger: logger}
}

// ============================================================
// Accounts
// ============================================================

// InitializeAccounts seeds the default accounts when none exist. Idempotent.
func (s *AccountsService) InitializeAccounts(ctx context.Context) ([]domain.Account, error) {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.InitializeAccounts")
	defer span.End()

	seeded, err := s.store.SeedAccounts(ctx, domain.DefaultAccounts(uuid.NewString, time.Now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("seed accounts: %w", err)
	}
	if seeded {
		s.logger.Info("default accounts seeded")
	}
	return s.store.ListAccounts(ctx)
}

func (s *AccountsService) GetAccounts(ctx context.Context) ([]domain.Account, error) {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.GetAccounts")
	defer span.End()

	return s.store.ListAccounts(ctx)
}

func (s *AccountsService) GetTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.AccountTransaction, error) {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.GetTransactions")
	defer span.End()

	if filter.Type != "" && !filter.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "unknown transaction type"}
	}
	return s.store.ListAccountTransactions(ctx, filter)
}

func (s *AccountsService) ListTransfers(ctx context.Context) ([]domain.AccountTransfer, error) {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.ListTransfers")
	defer span.End()

	return s.store.ListTransfers(ctx)
}

// ============================================================
// Balance updates
// ============================================================

// UpdateAccountBalance appends exactly one transaction and moves the balance by it:
// withdrawals and refunds subtract, everything else adds. Balance and log change together.
func (s *AccountsService) UpdateAccountBalance(ctx context.Context, userID string, upd domain.BalanceUpdate) (*domain.BalanceUpdateResult, error) {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.UpdateAccountBalance")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", upd.AccountID),
		attribute.String("tx.type", string(upd.Type)),
	)

	if !upd.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "unknown transaction type"}
	}
	if err := validateAmount("amount", upd.Amount); err != nil {
		return nil, err
	}
	direction := upd.Type.DefaultDirection()
	if upd.Direction != "" && upd.Direction != direction {
		return nil, &domain.ErrValidation{Field: "direction", Message: "must be " + string(direction) + " for " + string(upd.Type)}
	}

	tx := domain.AccountTransaction{
		ID:          uuid.NewString(),
		AccountID:   upd.AccountID,
		Amount:      upd.Amount,
		Type:        upd.Type,
		Direction:   direction,
		Reference:   upd.Reference,
		Description: upd.Description,
		Timestamp:   time.Now().UTC(),
		UserID:      userID,
		ShiftID:     upd.ShiftID,
	}
	accounts, err := s.store.ApplyAccountTransactions(ctx, []domain.AccountTransaction{tx})
	if err != nil {
		s.logger.Warn("account update rejected",
			zap.String("account_id", upd.AccountID),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrAccountTx(tx.Type, 1)
	s.logger.Info("account balance updated",
		zap.String("account_id", upd.AccountID),
		zap.String("type", string(tx.Type)),
		zap.String("direction", string(tx.Direction)),
		zap.String("amount", tx.Amount.StringFixed(2)),
		zap.String("balance", accounts[0].Balance.StringFixed(2)),
	)
	return &domain.BalanceUpdateResult{Account: &accounts[0], Transaction: &tx}, nil
}

// BuildSaleTransactions resolves the settlement account of every payment and returns one
// sale transaction per leg. Nothing is written. ErrNotFound if any leg has no account.
func (s *AccountsService) BuildSaleTransactions(ctx context.Context, payments []domain.Payment, reference, shiftID, userID string) ([]domain.AccountTransaction, error) {
	if len(payments) == 0 {
		return nil, &domain.ErrValidation{Field: "payments", Message: "at least one payment is required"}
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	now := time.Now().UTC()
	txs := make([]domain.AccountTransaction, 0, len(payments))
	for i, p := range payments {
		if err := validateAmount(fmt.Sprintf("payments[%d].amount", i), p.Amount); err != nil {
			return nil, err
		}
		accountType, ok := domain.SettlementAccountType(p.Method)
		if !ok {
			return nil, &domain.ErrNotFound{Resource: "settlement account for method", ID: string(p.Method)}
		}
		account, ok := domain.FindAccountByType(accounts, accountType)
		if !ok {
			return nil, &domain.ErrNotFound{Resource: "account of type", ID: string(accountType)}
		}
		txs = append(txs, domain.AccountTransaction{
			ID:          uuid.NewString(),
			AccountID:   account.ID,
			Amount:      p.Amount,
			Type:        domain.TxSale,
			Direction:   domain.DirectionIn,
			Reference:   reference,
			Description: fmt.Sprintf("Sale %s (%s)", reference, p.Method),
			Timestamp:   now,
			UserID:      userID,
			ShiftID:     shiftID,
		})
	}
	return txs, nil
}

// RecordSaleInAccounts credits each payment leg to its settlement account.
// All legs are resolved first; if any is unmapped nothing is applied.
func (s *AccountsService) RecordSaleInAccounts(ctx context.Context, payments []domain.Payment, reference, shiftID, userID string) ([]domain.AccountTransaction, error) {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.RecordSaleInAccounts")
	defer span.End()
	span.SetAttributes(
		attribute.String("sale.reference", reference),
		attribute.Int("payments.count", len(payments)),
	)

	txs, err := s.BuildSaleTransactions(ctx, payments, reference, shiftID, userID)
	if err != nil {
		s.logger.Warn("sale not recorded in accounts",
			zap.String("reference", reference),
			zap.Error(err),
		)
		return nil, err
	}
	if _, err := s.store.ApplyAccountTransactions(ctx, txs); err != nil {
		return nil, err
	}

	s.metrics.IncrAccountTx(domain.TxSale, len(txs))
	s.logger.Info("sale recorded in accounts",
		zap.String("reference", reference),
		zap.Int("legs", len(txs)),
	)
	return txs, nil
}

// ============================================================
// Transfers
// ============================================================

// Transfer moves money between two accounts as one atomic pair of transfer legs.
func (s *AccountsService) Transfer(ctx context.Context, userID string, req domain.TransferRequest) (*domain.AccountTransfer, error) {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.Transfer")
	defer span.End()

	if req.FromAccountID == "" || req.ToAccountID == "" {
		return nil, &domain.ErrValidation{Field: "accounts", Message: "source and destination are required"}
	}
	if req.FromAccountID == req.ToAccountID {
		return nil, &domain.ErrValidation{Field: "toAccountId", Message: "must differ from the source account"}
	}
	if err := validateAmount("amount", req.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	transfer := domain.AccountTransfer{
		ID:            uuid.NewString(),
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Timestamp:     now,
		Description:   req.Description,
		UserID:        userID,
	}
	leg := func(accountID string, dir domain.Direction) domain.AccountTransaction {
		return domain.AccountTransaction{
			ID:          uuid.NewString(),
			AccountID:   accountID,
			Amount:      req.Amount,
			Type:        domain.TxTransfer,
			Direction:   dir,
			Reference:   transfer.ID,
			Description: req.Description,
			Timestamp:   now,
			UserID:      userID,
		}
	}
	legs := []domain.AccountTransaction{
		leg(req.FromAccountID, domain.DirectionOut),
		leg(req.ToAccountID, domain.DirectionIn),
	}
	if err := s.store.ApplyTransfer(ctx, transfer, legs); err != nil {
		return nil, err
	}

	s.metrics.IncrAccountTx(domain.TxTransfer, 2)
	s.logger.Info("account transfer",
		zap.String("transfer_id", transfer.ID),
		zap.String("from", req.FromAccountID),
		zap.String("to", req.ToAccountID),
		zap.String("amount", req.Amount.StringFixed(2)),
	)
	return &transfer, nil
}

// ============================================================
// Reconciliation
// ============================================================

// Reconcile brings an account's balance to a counted amount. A zero difference is a no-op;
// otherwise one adjustment of |difference| is appended in the direction of the difference.
func (s *AccountsService) Reconcile(ctx context.Context, userID, accountID string, actual decimal.Decimal, note string) (*domain.Reconciliation, error) {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.Reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	if err := requireCents("actualBalance", actual); err != nil {
		return nil, err
	}

	description := "Reconciliation adjustment"
	if note != "" {
		description += ": " + note
	}
	rec := &domain.Reconciliation{
		AccountID:   accountID,
		Actual:      actual,
		PerformedAt: time.Now().UTC(),
	}

	// Difference is computed against the balance as locked by the store.
	account, err := s.store.ReconcileAccount(ctx, accountID, func(recorded domain.Account) (*domain.AccountTransaction, error) {
		rec.Recorded = recorded.Balance
		rec.Difference = actual.Sub(recorded.Balance)
		rec.Adjustment = nil
		if rec.Difference.IsZero() {
			return nil, nil
		}
		direction := domain.DirectionIn
		if rec.Difference.IsNegative() {
			direction = domain.DirectionOut
		}
		rec.Adjustment = &domain.AccountTransaction{
			ID:          uuid.NewString(),
			AccountID:   accountID,
			Amount:      rec.Difference.Abs(),
			Type:        domain.TxAdjustment,
			Direction:   direction,
			Reference:   "RECON-" + rec.PerformedAt.Format("20060102150405"),
			Description: description,
			Timestamp:   rec.PerformedAt,
			UserID:      userID,
		}
		return rec.Adjustment, nil
	})
	if err != nil {
		s.logger.Warn("reconciliation rejected",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		return nil, err
	}

	rec.Account = account
	rec.Reconciled = account.Balance.Equal(actual)
	if rec.Adjustment == nil {
		return rec, nil
	}
	s.metrics.IncrAccountTx(domain.TxAdjustment, 1)
	s.logger.Info("account reconciled",
		zap.String("account_id", accountID),
		zap.String("recorded", rec.Recorded.StringFixed(2)),
		zap.String("actual", actual.StringFixed(2)),
		zap.String("difference", rec.Difference.StringFixed(2)),
	)
	return rec, nil
}

// VerifyIntegrity compares each cached balance with the signed sum of its transaction log.
func (s *AccountsService) VerifyIntegrity(ctx context.Context) ([]domain.BalanceDrift, error) {
	ctx, span := accountsTracer.Start(ctx, "AccountsService.VerifyIntegrity")
	defer span.End()

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	txs, err := s.store.ListAccountTransactions(ctx, domain.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	sums := make(map[string]decimal.Decimal, len(accounts))
	for _, tx := range txs {
		sums[tx.AccountID] = sums[tx.AccountID].Add(tx.Delta())
	}

	drifts := make([]domain.BalanceDrift, 0)
	for _, a := range accounts {
		ledger := sums[a.ID]
		if a.Balance.Equal(ledger) {
			continue
		}
		drifts = append(drifts, domain.BalanceDrift{
			AccountID:     a.ID,
			AccountName:   a.Name,
			CachedBalance: a.Balance,
			LedgerBalance: ledger,
			Difference:    a.Balance.Sub(ledger),
		})
	}
	span.SetAttributes(attribute.Int("drift.count", len(drifts)))
	s.metrics.SetLedgerDrift(len(drifts))
	return drifts, nil
}
