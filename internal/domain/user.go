package domain

import "time"

// ============================================================
// Users & roles
// ============================================================

// Role is a staff role; privileges are derived from it.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
)

// Privilege is a single permission checked by the HTTP layer.
type Privilege string

const (
	PrivManageUsers       Privilege = "manage_users"
	PrivManageInventory   Privilege = "manage_inventory"
	PrivManageAccounts    Privilege = "manage_accounts"
	PrivReconcileAccounts Privilege = "reconcile_accounts"
	PrivViewReports       Privilege = "view_reports"
	PrivOperateTill       Privilege = "operate_till"
	PrivManageOrders      Privilege = "manage_orders"
)

var rolePrivileges = map[Role][]Privilege{
	RoleAdmin: {
		PrivManageUsers, PrivManageInventory, PrivManageAccounts,
		PrivReconcileAccounts, PrivViewReports, PrivOperateTill, PrivManageOrders,
	},
	RoleManager: {
		PrivManageInventory, PrivManageAccounts,
		PrivReconcileAccounts, PrivViewReports, PrivOperateTill, PrivManageOrders,
	},
	RoleCashier: {PrivOperateTill},
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePrivileges[r]
	return ok
}

// Can reports whether the role holds the privilege.
func (r Role) Can(p Privilege) bool {
	for _, have := range rolePrivileges[r] {
		if have == p {
			return true
		}
	}
	return false
}

// Privileges lists the privileges of the role.
func (r Role) Privileges() []Privilege {
	return append([]Privilege(nil), rolePrivileges[r]...)
}

// User is a staff member who can sign in to the till.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateUserRequest is the body of POST /v1/users.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Role     Role   `json:"role" validate:"required,oneof=admin manager cashier"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
	User        *User  `json:"user"`
}
