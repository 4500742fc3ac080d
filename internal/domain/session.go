package domain

// Session identifies who is operating which till. It is passed explicitly to
// every ledger operation instead of living in shared global state.
type Session struct {
	UserID string
	TillID string
	Role   Role
}

// DefaultTillID is used when a request does not name a till.
const DefaultTillID = "main"
