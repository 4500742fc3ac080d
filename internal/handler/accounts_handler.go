package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/service"
)

// ============================================================
// Account ledger
// ============================================================

func listAccountsHandler(svc *service.AccountsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts")
		defer span.End()
		accounts, err := svc.GetAccounts(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(accounts))
	}
}

func initializeAccountsHandler(svc *service.AccountsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts/initialize")
		defer span.End()
		accounts, err := svc.InitializeAccounts(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(accounts))
	}
}

func listTransactionsHandler(svc *service.AccountsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/transactions")
		defer span.End()
		q := r.URL.Query()
		txs, err := svc.GetTransactions(ctx, domain.TransactionFilter{
			AccountID: q.Get("accountId"),
			ShiftID:   q.Get("shiftId"),
			Type:      domain.TransactionType(q.Get("type")),
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(txs))
	}
}

func updateBalanceHandler(svc *service.AccountsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts/{accountId}/transactions")
		defer span.End()

		var req domain.BalanceUpdate
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		req.AccountID = chi.URLParam(r, "accountId")

		res, err := svc.UpdateAccountBalance(ctx, SessionFromContext(ctx).UserID, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func recordSaleInAccountsHandler(svc *service.AccountsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts/sales")
		defer span.End()

		var req domain.RecordSaleInAccountsRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		txs, err := svc.RecordSaleInAccounts(ctx, req.Payments, req.Reference, req.ShiftID, SessionFromContext(ctx).UserID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, domain.NewListResponse(txs))
	}
}

func listTransfersHandler(svc *service.AccountsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/transfers")
		defer span.End()
		transfers, err := svc.ListTransfers(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(transfers))
	}
}

func transferHandler(svc *service.AccountsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts/transfers")
		defer span.End()

		var req domain.TransferRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		transfer, err := svc.Transfer(ctx, SessionFromContext(ctx).UserID, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, transfer)
	}
}

func reconcileHandler(svc *service.AccountsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts/{accountId}/reconcile")
		defer span.End()

		var req domain.ReconcileRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		session := SessionFromContext(ctx)
		accountID := chi.URLParam(r, "accountId")
		rec, err := svc.Reconcile(ctx, session.UserID, accountID, req.ActualBalance, req.Note)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if rec.Adjustment != nil {
			logger.Info("account reconciled with adjustment",
				zap.String("account_id", accountID),
				zap.String("difference", rec.Difference.StringFixed(2)),
				zap.String("user_id", session.UserID),
			)
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// integrityHandler runs the check now and, when a scheduler is wired, reports its last run too.
func integrityHandler(svc *service.AccountsService, scheduled IntegrityReport, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/integrity")
		defer span.End()
		drifts, err := svc.VerifyIntegrity(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		body := map[string]any{
			"consistent": len(drifts) == 0,
			"drifts":     domain.NewListResponse(drifts).Data,
		}
		if scheduled != nil {
			if last, at := scheduled.LastResult(); !at.IsZero() {
				body["lastScheduledRun"] = at.UTC()
				body["scheduledDrifts"] = domain.NewListResponse(last).Data
			}
		}
		writeJSON(w, http.StatusOK, body)
	}
}
