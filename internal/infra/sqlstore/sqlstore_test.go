package sqlstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/sqlstore"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/storetest"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/port"
)

func openSQLite(t *testing.T) port.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := sqlstore.Open(sqlstore.Options{Driver: "sqlite", DSN: dsn, MaxOpenConns: 1}, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLStore_SQLite(t *testing.T) {
	storetest.Run(t, openSQLite)
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := sqlstore.Open(sqlstore.Options{Driver: "oracle"}, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSeedAccounts_OneAccountPerType(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	accounts := domain.DefaultAccounts(uuid.NewString, time.Now().UTC())
	dup := accounts[0]
	dup.ID = uuid.NewString()
	accounts = append(accounts, dup)

	if _, err := s.SeedAccounts(ctx, accounts); err == nil {
		t.Fatal("expected seeding a duplicate type to fail")
	}
	got, err := s.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("failed seed left %d accounts", len(got))
	}
}
