package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Error       string `json:"error,omitempty"`
}

// POSMetrics is returned by GET /v1/metrics/pos.
type POSMetrics struct {
	SalesCommitted   int64              `json:"salesCommitted"`
	SalesFailed      int64              `json:"salesFailed"`
	SaleErrorRate    float64            `json:"saleErrorRate"`
	AmountByMethod   map[string]float64 `json:"amountByMethod"`
	ShiftsOpened     int64              `json:"shiftsOpened"`
	ShiftsClosed     int64              `json:"shiftsClosed"`
	ActiveShifts     int64              `json:"activeShifts"`
	STKSucceeded     int64              `json:"stkSucceeded"`
	STKFailed        int64              `json:"stkFailed"`
	STKTimedOut      int64              `json:"stkTimedOut"`
	STKCacheHitRate  float64            `json:"stkCacheHitRate"`
	LedgerDriftCount int64              `json:"ledgerDriftCount"`
	Period           string             `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// NewListResponse wraps items, never serializing a null slice.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Data: items, Total: len(items)}
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
