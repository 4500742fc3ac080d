// Package storetest holds a behavioural suite run against every port.Store implementation.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/port"
)

// Run executes the suite. newStore must return an empty store for each call.
func Run(t *testing.T, newStore func(t *testing.T) port.Store) {
	t.Run("ShiftLifecycle", func(t *testing.T) { testShiftLifecycle(t, newStore(t)) })
	t.Run("OneActiveShiftPerTill", func(t *testing.T) { testOneActiveShiftPerTill(t, newStore(t)) })
	t.Run("SeedAccountsOnce", func(t *testing.T) { testSeedAccountsOnce(t, newStore(t)) })
	t.Run("SeedAccountsConcurrently", func(t *testing.T) { testSeedAccountsConcurrently(t, newStore(t)) })
	t.Run("ReconcileAccount", func(t *testing.T) { testReconcileAccount(t, newStore(t)) })
	t.Run("ApplyTransactionsAtomic", func(t *testing.T) { testApplyTransactionsAtomic(t, newStore(t)) })
	t.Run("Transfer", func(t *testing.T) { testTransfer(t, newStore(t)) })
	t.Run("Inventory", func(t *testing.T) { testInventory(t, newStore(t)) })
	t.Run("CommitSale", func(t *testing.T) { testCommitSale(t, newStore(t)) })
	t.Run("CommitSaleRollsBack", func(t *testing.T) { testCommitSaleRollsBack(t, newStore(t)) })
	t.Run("Quotations", func(t *testing.T) { testQuotations(t, newStore(t)) })
	t.Run("CommitSaleFulfilsOrder", func(t *testing.T) { testCommitSaleFulfilsOrder(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newShift(till string, opening string) *domain.Shift {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.NewShift(uuid.NewString(), domain.Session{UserID: "u1", TillID: till}, dec(opening), now)
}

func seed(t *testing.T, s port.Store) []domain.Account {
	t.Helper()
	accounts := domain.DefaultAccounts(uuid.NewString, time.Now().UTC())
	if _, err := s.SeedAccounts(context.Background(), accounts); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return accounts
}

func tx(accountID, amount string, typ domain.TransactionType) domain.AccountTransaction {
	return domain.AccountTransaction{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Amount:    dec(amount),
		Type:      typ,
		Direction: typ.DefaultDirection(),
		UserID:    "u1",
		Timestamp: time.Now().UTC(),
	}
}

func testShiftLifecycle(t *testing.T, s port.Store) {
	ctx := context.Background()
	shift := newShift("main", "5000")
	if err := s.CreateShift(ctx, shift); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.UpdateActiveShift(ctx, "main", func(sh *domain.Shift) error {
		sh.ApplySale(domain.PaymentCash, dec("1200"))
		sh.AddExpense(domain.Expense{ID: uuid.NewString(), Description: "airtime", Amount: dec("300"), Timestamp: time.Now().UTC()})
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.PaymentTotals.Cash.Equal(dec("1200")) || len(got.Expenses) != 1 {
		t.Fatalf("unexpected shift after update: %+v", got)
	}

	active, err := s.GetActiveShift(ctx, "main")
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if !active.TotalSales.Equal(dec("1200")) || len(active.Expenses) != 1 {
		t.Errorf("active shift not persisted: %+v", active)
	}

	boom := errors.New("boom")
	if _, err := s.UpdateActiveShift(ctx, "main", func(sh *domain.Shift) error {
		sh.ApplySale(domain.PaymentCash, dec("999"))
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	active, _ = s.GetActiveShift(ctx, "main")
	if !active.TotalSales.Equal(dec("1200")) {
		t.Errorf("failed update leaked: totalSales=%s", active.TotalSales)
	}

	if _, err := s.UpdateActiveShift(ctx, "main", func(sh *domain.Shift) error {
		sh.Close(time.Now().UTC())
		return nil
	}); err != nil {
		t.Fatalf("close: %v", err)
	}

	var nf *domain.ErrNotFound
	if _, err := s.GetActiveShift(ctx, "main"); !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound after close, got %v", err)
	}

	second := newShift("main", "100")
	if err := s.CreateShift(ctx, second); err != nil {
		t.Fatalf("second create: %v", err)
	}
	if _, err := s.UpdateActiveShift(ctx, "main", func(sh *domain.Shift) error {
		sh.Close(time.Now().UTC())
		return nil
	}); err != nil {
		t.Fatalf("second close: %v", err)
	}

	history, err := s.ListShiftHistory(ctx, "main", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].ID != second.ID || history[1].ID != shift.ID {
		t.Fatalf("history not most-recent-first: %+v", history)
	}
	if history[1].ClosingBalance == nil || !history[1].ClosingBalance.Equal(dec("5900")) {
		t.Errorf("closing balance = %v, want 5900", history[1].ClosingBalance)
	}

	limited, _ := s.ListShiftHistory(ctx, "main", 1)
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d", len(limited))
	}
}

func testOneActiveShiftPerTill(t *testing.T, s port.Store) {
	ctx := context.Background()
	if err := s.CreateShift(ctx, newShift("main", "0")); err != nil {
		t.Fatalf("create: %v", err)
	}
	var conflict *domain.ErrConflict
	if err := s.CreateShift(ctx, newShift("main", "0")); !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := s.CreateShift(ctx, newShift("till-2", "0")); err != nil {
		t.Fatalf("other till should open: %v", err)
	}
}

func testSeedAccountsOnce(t *testing.T, s port.Store) {
	ctx := context.Background()
	first := seed(t, s)

	seeded, err := s.SeedAccounts(ctx, domain.DefaultAccounts(uuid.NewString, time.Now().UTC()))
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if seeded {
		t.Error("second seed should be a no-op")
	}

	accounts, _ := s.ListAccounts(ctx)
	if len(accounts) != len(first) {
		t.Fatalf("expected %d accounts, got %d", len(first), len(accounts))
	}
	for i := range first {
		if accounts[i].ID != first[i].ID {
			t.Errorf("account %d id changed: %s != %s", i, accounts[i].ID, first[i].ID)
		}
	}
}

func testSeedAccountsConcurrently(t *testing.T, s port.Store) {
	ctx := context.Background()
	const seeders = 8

	var wg sync.WaitGroup
	results := make([]bool, seeders)
	errs := make([]error, seeders)
	for i := 0; i < seeders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.SeedAccounts(ctx, domain.DefaultAccounts(uuid.NewString, time.Now().UTC()))
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := range results {
		if errs[i] != nil {
			t.Errorf("seeder %d: %v", i, errs[i])
		}
		if results[i] {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("%d seeders reported seeding, want 1", winners)
	}
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(accounts) != 7 {
		t.Fatalf("expected 7 accounts, got %d", len(accounts))
	}
	types := make(map[domain.AccountType]bool)
	for _, a := range accounts {
		if types[a.Type] {
			t.Errorf("account type %s seeded twice", a.Type)
		}
		types[a.Type] = true
	}
}

func testReconcileAccount(t *testing.T, s port.Store) {
	ctx := context.Background()
	cash := seed(t, s)[0]
	if _, err := s.ApplyAccountTransactions(ctx, []domain.AccountTransaction{tx(cash.ID, "1000", domain.TxDeposit)}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	var seen decimal.Decimal
	adj := tx(cash.ID, "50", domain.TxAdjustment)
	adj.Direction = domain.DirectionOut
	got, err := s.ReconcileAccount(ctx, cash.ID, func(recorded domain.Account) (*domain.AccountTransaction, error) {
		seen = recorded.Balance
		return &adj, nil
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !seen.Equal(dec("1000")) {
		t.Errorf("build saw %s, want 1000", seen)
	}
	if !got.Balance.Equal(dec("950")) {
		t.Errorf("balance = %s, want 950", got.Balance)
	}

	got, err = s.ReconcileAccount(ctx, cash.ID, func(domain.Account) (*domain.AccountTransaction, error) { return nil, nil })
	if err != nil || !got.Balance.Equal(dec("950")) {
		t.Fatalf("no-op reconcile: %v %+v", err, got)
	}

	boom := errors.New("boom")
	if _, err := s.ReconcileAccount(ctx, cash.ID, func(domain.Account) (*domain.AccountTransaction, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected build error, got %v", err)
	}

	other := tx("elsewhere", "1", domain.TxAdjustment)
	var conflict *domain.ErrConflict
	if _, err := s.ReconcileAccount(ctx, cash.ID, func(domain.Account) (*domain.AccountTransaction, error) {
		return &other, nil
	}); !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict for foreign account, got %v", err)
	}

	var nf *domain.ErrNotFound
	if _, err := s.ReconcileAccount(ctx, "missing", func(domain.Account) (*domain.AccountTransaction, error) {
		t.Error("build called for a missing account")
		return nil, nil
	}); !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	log, _ := s.ListAccountTransactions(ctx, domain.TransactionFilter{AccountID: cash.ID})
	if len(log) != 2 || log[1].Type != domain.TxAdjustment {
		t.Errorf("expected deposit then adjustment, got %+v", log)
	}
}

func testApplyTransactionsAtomic(t *testing.T, s port.Store) {
	ctx := context.Background()
	accounts := seed(t, s)
	cash := accounts[0]

	updated, err := s.ApplyAccountTransactions(ctx, []domain.AccountTransaction{
		tx(cash.ID, "500", domain.TxSale),
		tx(cash.ID, "200", domain.TxWithdrawal),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(updated) != 1 || !updated[0].Balance.Equal(dec("300")) {
		t.Fatalf("expected cash 300, got %+v", updated)
	}

	var nf *domain.ErrNotFound
	_, err = s.ApplyAccountTransactions(ctx, []domain.AccountTransaction{
		tx(cash.ID, "50", domain.TxDeposit),
		tx("missing", "50", domain.TxDeposit),
	})
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, _ := s.GetAccount(ctx, cash.ID)
	if !got.Balance.Equal(dec("300")) {
		t.Errorf("partial apply leaked: balance=%s", got.Balance)
	}
	log, _ := s.ListAccountTransactions(ctx, domain.TransactionFilter{AccountID: cash.ID})
	if len(log) != 2 {
		t.Errorf("expected 2 logged transactions, got %d", len(log))
	}
	if log[0].Type != domain.TxSale || log[1].Type != domain.TxWithdrawal {
		t.Errorf("log not in append order: %s, %s", log[0].Type, log[1].Type)
	}
}

func testTransfer(t *testing.T, s port.Store) {
	ctx := context.Background()
	accounts := seed(t, s)
	from, to := accounts[0], accounts[4]

	transfer := domain.AccountTransfer{
		ID: uuid.NewString(), FromAccountID: from.ID, ToAccountID: to.ID,
		Amount: dec("75"), Timestamp: time.Now().UTC(), UserID: "u1",
	}
	out := tx(from.ID, "75", domain.TxTransfer)
	out.Direction = domain.DirectionOut
	out.Reference = transfer.ID
	in := tx(to.ID, "75", domain.TxTransfer)
	in.Reference = transfer.ID

	if err := s.ApplyTransfer(ctx, transfer, []domain.AccountTransaction{out, in}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	a, _ := s.GetAccount(ctx, from.ID)
	b, _ := s.GetAccount(ctx, to.ID)
	if !a.Balance.Equal(dec("-75")) || !b.Balance.Equal(dec("75")) {
		t.Errorf("balances after transfer: %s / %s", a.Balance, b.Balance)
	}
	transfers, _ := s.ListTransfers(ctx)
	if len(transfers) != 1 || transfers[0].ID != transfer.ID {
		t.Errorf("transfer not listed: %+v", transfers)
	}

	bad := tx("missing", "75", domain.TxTransfer)
	err := s.ApplyTransfer(ctx, domain.AccountTransfer{ID: uuid.NewString()}, []domain.AccountTransaction{out, bad})
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	transfers, _ = s.ListTransfers(ctx)
	if len(transfers) != 1 {
		t.Errorf("failed transfer recorded")
	}
}

func testInventory(t *testing.T, s port.Store) {
	ctx := context.Background()
	p := &domain.Product{ID: uuid.NewString(), SKU: "UGALI-2KG", Name: "Maize flour 2kg", Price: dec("180"), Stock: 5, UpdatedAt: time.Now().UTC()}
	if err := s.CreateProduct(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	var conflict *domain.ErrConflict
	dup := *p
	dup.ID = uuid.NewString()
	if err := s.CreateProduct(ctx, &dup); !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict on SKU, got %v", err)
	}

	got, err := s.AdjustStock(ctx, p.ID, -3)
	if err != nil || got.Stock != 2 {
		t.Fatalf("adjust: %v stock=%v", err, got)
	}
	var short *domain.ErrInsufficientStock
	if _, err := s.AdjustStock(ctx, p.ID, -3); !errors.As(err, &short) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	p.Name = "Maize flour 2 kg"
	p.Stock = 2
	if err := s.UpdateProduct(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded, _ := s.GetProduct(ctx, p.ID)
	if reloaded.Name != "Maize flour 2 kg" || reloaded.Stock != 2 {
		t.Errorf("update not persisted: %+v", reloaded)
	}
	list, _ := s.ListProducts(ctx)
	if len(list) != 1 {
		t.Errorf("expected 1 product, got %d", len(list))
	}
}

func saleFixture(t *testing.T, s port.Store) (domain.SaleCommit, []domain.Account, *domain.Product) {
	t.Helper()
	ctx := context.Background()
	accounts := seed(t, s)
	shift := newShift("main", "1000")
	if err := s.CreateShift(ctx, shift); err != nil {
		t.Fatalf("shift: %v", err)
	}
	p := &domain.Product{ID: uuid.NewString(), SKU: "SODA-500", Name: "Soda 500ml", Price: dec("60"), Stock: 10, UpdatedAt: time.Now().UTC()}
	if err := s.CreateProduct(ctx, p); err != nil {
		t.Fatalf("product: %v", err)
	}

	sale := domain.Sale{
		ID:        uuid.NewString(),
		Reference: "RCPT-0001",
		Items:     []domain.SaleItem{{ProductID: p.ID, Name: p.Name, Quantity: 2, UnitPrice: p.Price}},
		Payments:  []domain.Payment{{Method: domain.PaymentCash, Amount: dec("100")}, {Method: domain.PaymentMpesaSTK, Amount: dec("20")}},
		Total:     dec("120"),
		ShiftID:   shift.ID,
		TillID:    "main",
		UserID:    "u1",
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
	cashTx := tx(accounts[0].ID, "100", domain.TxSale)
	mpesaTx := tx(accounts[1].ID, "20", domain.TxSale)
	return domain.SaleCommit{
		Sale:         sale,
		Transactions: []domain.AccountTransaction{cashTx, mpesaTx},
		StockChanges: []domain.StockChange{{ProductID: p.ID, Delta: -2}},
	}, accounts, p
}

func testCommitSale(t *testing.T, s port.Store) {
	ctx := context.Background()
	commit, accounts, p := saleFixture(t, s)

	shift, err := s.CommitSale(ctx, commit)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !shift.TotalSales.Equal(dec("120")) || !shift.PaymentTotals.Mpesa.Equal(dec("20")) {
		t.Errorf("shift totals: %+v", shift.PaymentTotals)
	}
	cash, _ := s.GetAccount(ctx, accounts[0].ID)
	if !cash.Balance.Equal(dec("100")) {
		t.Errorf("cash balance = %s", cash.Balance)
	}
	prod, _ := s.GetProduct(ctx, p.ID)
	if prod.Stock != 8 {
		t.Errorf("stock = %d, want 8", prod.Stock)
	}

	var dup *domain.ErrDuplicate
	if _, err := s.CommitSale(ctx, commit); !errors.As(err, &dup) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	sales, _ := s.ListSales(ctx, domain.SaleFilter{TillID: "main"})
	if len(sales) != 1 || sales[0].Reference != "RCPT-0001" || len(sales[0].Payments) != 2 {
		t.Fatalf("sales listing: %+v", sales)
	}
	if !sales[0].Total.Equal(dec("120")) || len(sales[0].Items) != 1 {
		t.Errorf("sale round trip: %+v", sales[0])
	}
}

func testCommitSaleRollsBack(t *testing.T, s port.Store) {
	ctx := context.Background()
	commit, accounts, p := saleFixture(t, s)
	commit.StockChanges[0].Delta = -50

	var short *domain.ErrInsufficientStock
	if _, err := s.CommitSale(ctx, commit); !errors.As(err, &short) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	shift, _ := s.GetActiveShift(ctx, "main")
	if !shift.TotalSales.IsZero() {
		t.Errorf("shift touched by failed commit: %s", shift.TotalSales)
	}
	cash, _ := s.GetAccount(ctx, accounts[0].ID)
	if !cash.Balance.IsZero() {
		t.Errorf("account touched by failed commit: %s", cash.Balance)
	}
	prod, _ := s.GetProduct(ctx, p.ID)
	if prod.Stock != 10 {
		t.Errorf("stock touched by failed commit: %d", prod.Stock)
	}
	txs, _ := s.ListAccountTransactions(ctx, domain.TransactionFilter{})
	if len(txs) != 0 {
		t.Errorf("transactions logged by failed commit: %d", len(txs))
	}

	commit.StockChanges[0].Delta = -2
	commit.Sale.ShiftID = "stale"
	var conflict *domain.ErrConflict
	if _, err := s.CommitSale(ctx, commit); !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict for stale shift, got %v", err)
	}
}

func newOrder(number string) *domain.SalesOrder {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.SalesOrder{
		ID:           uuid.NewString(),
		Number:       number,
		CustomerName: "Kamau Supplies",
		Items:        []domain.SaleItem{{Name: "Soda 500ml", Quantity: 2, UnitPrice: dec("60")}},
		Total:        dec("120"),
		Status:       domain.OrderPending,
		UserID:       "u1",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func testQuotations(t *testing.T, s port.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	valid := now.Add(72 * time.Hour)
	q := &domain.Quotation{
		ID:           uuid.NewString(),
		Number:       "QT-1",
		CustomerName: "Kamau Supplies",
		Items:        []domain.SaleItem{{Name: "Soda 500ml", Quantity: 2, UnitPrice: dec("60")}},
		Total:        dec("120"),
		Status:       domain.QuotationOpen,
		ValidUntil:   &valid,
		UserID:       "u1",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.CreateQuotation(ctx, q); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.GetQuotation(ctx, q.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Items) != 1 || !got.Total.Equal(dec("120")) || got.ValidUntil == nil || !got.ValidUntil.Equal(valid) {
		t.Errorf("quotation round trip: %+v", got)
	}

	boom := errors.New("boom")
	if _, err := s.UpdateQuotation(ctx, q.ID, func(q *domain.Quotation) error {
		q.Status = domain.QuotationDeclined
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if got, _ := s.GetQuotation(ctx, q.ID); got.Status != domain.QuotationOpen {
		t.Errorf("failed update leaked status %s", got.Status)
	}

	if _, err := s.ConvertQuotation(ctx, q.ID, func(*domain.Quotation) (*domain.SalesOrder, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	order := newOrder("SO-1")
	order.QuotationID = q.ID
	converted, err := s.ConvertQuotation(ctx, q.ID, func(q *domain.Quotation) (*domain.SalesOrder, error) {
		q.Status = domain.QuotationConverted
		q.SalesOrderID = order.ID
		return order, nil
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if converted.ID != order.ID {
		t.Errorf("converted order id = %s", converted.ID)
	}
	if got, _ := s.GetQuotation(ctx, q.ID); got.Status != domain.QuotationConverted || got.SalesOrderID != order.ID {
		t.Errorf("quotation not converted: %+v", got)
	}
	stored, err := s.GetSalesOrder(ctx, order.ID)
	if err != nil || stored.QuotationID != q.ID || len(stored.Items) != 1 {
		t.Fatalf("converted order: %v %+v", err, stored)
	}

	if err := s.CreateSalesOrder(ctx, newOrder("SO-2")); err != nil {
		t.Fatalf("create order: %v", err)
	}
	cancelled, err := s.UpdateSalesOrder(ctx, order.ID, func(o *domain.SalesOrder) error {
		return o.Cancel(time.Now().UTC())
	})
	if err != nil || cancelled.Status != domain.OrderCancelled {
		t.Fatalf("cancel: %v %+v", err, cancelled)
	}

	pending, _ := s.ListSalesOrders(ctx, domain.OrderFilter{Status: string(domain.OrderPending)})
	if len(pending) != 1 || pending[0].Number != "SO-2" {
		t.Errorf("pending orders: %+v", pending)
	}
	all, _ := s.ListSalesOrders(ctx, domain.OrderFilter{Limit: 1})
	if len(all) != 1 {
		t.Errorf("limit ignored: %d", len(all))
	}
	quotes, _ := s.ListQuotations(ctx, domain.OrderFilter{})
	if len(quotes) != 1 {
		t.Errorf("expected 1 quotation, got %d", len(quotes))
	}

	var nf *domain.ErrNotFound
	if _, err := s.GetSalesOrder(ctx, "nope"); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateQuotation(ctx, "nope", func(*domain.Quotation) error { return nil }); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testCommitSaleFulfilsOrder(t *testing.T, s port.Store) {
	ctx := context.Background()
	commit, accounts, _ := saleFixture(t, s)
	order := newOrder("SO-9")
	if err := s.CreateSalesOrder(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := s.UpdateSalesOrder(ctx, order.ID, func(o *domain.SalesOrder) error {
		return o.Cancel(time.Now().UTC())
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	commit.Sale.OrderID = order.ID
	var conflict *domain.ErrConflict
	if _, err := s.CommitSale(ctx, commit); !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict for cancelled order, got %v", err)
	}
	if cash, _ := s.GetAccount(ctx, accounts[0].ID); !cash.Balance.IsZero() {
		t.Errorf("rejected commit touched cash: %s", cash.Balance)
	}
	if sales, _ := s.ListSales(ctx, domain.SaleFilter{}); len(sales) != 0 {
		t.Errorf("rejected commit recorded %d sales", len(sales))
	}

	pending := newOrder("SO-10")
	if err := s.CreateSalesOrder(ctx, pending); err != nil {
		t.Fatalf("create order: %v", err)
	}
	commit.Sale.OrderID = pending.ID
	if _, err := s.CommitSale(ctx, commit); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, _ := s.GetSalesOrder(ctx, pending.ID)
	if got.Status != domain.OrderFulfilled || got.SaleID != commit.Sale.ID || got.SaleReference != commit.Sale.Reference {
		t.Errorf("order not fulfilled by commit: %+v", got)
	}
	sales, _ := s.ListSales(ctx, domain.SaleFilter{})
	if len(sales) != 1 || sales[0].OrderID != pending.ID {
		t.Errorf("sale lost its order link: %+v", sales)
	}

	commit.Sale.ID = uuid.NewString()
	commit.Sale.Reference = "RCPT-0002"
	if _, err := s.CommitSale(ctx, commit); !errors.As(err, &conflict) {
		t.Fatalf("second fulfilment: expected ErrConflict, got %v", err)
	}
}

func testUsers(t *testing.T, s port.Store) {
	ctx := context.Background()
	u := &domain.User{ID: uuid.NewString(), Email: "Wanjiku@duka.co.ke", Name: "Wanjiku", Role: domain.RoleCashier, PasswordHash: "x", Active: true, CreatedAt: time.Now().UTC()}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	var conflict *domain.ErrConflict
	dup := *u
	dup.ID = uuid.NewString()
	dup.Email = "wanjiku@duka.co.ke"
	if err := s.CreateUser(ctx, &dup); !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	byEmail, err := s.GetUserByEmail(ctx, "WANJIKU@duka.co.ke")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("by email: %v %+v", err, byEmail)
	}
	byID, err := s.GetUserByID(ctx, u.ID)
	if err != nil || byID.Role != domain.RoleCashier {
		t.Fatalf("by id: %v %+v", err, byID)
	}
	var nf *domain.ErrNotFound
	if _, err := s.GetUserByID(ctx, "nope"); !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
