// Package service provides the business logic layer (use cases) of the POS ledger.
package service

import (
	"github.com/shopspring/decimal"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
)

func requirePositive(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return &domain.ErrValidation{Field: field, Message: "must be greater than zero"}
	}
	return nil
}

func requireNonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return &domain.ErrValidation{Field: field, Message: "must not be negative"}
	}
	return nil
}

// requireCents rejects amounts with more than two decimal places.
func requireCents(field string, v decimal.Decimal) error {
	if !v.Equal(v.Round(2)) {
		return &domain.ErrValidation{Field: field, Message: "must have at most two decimal places"}
	}
	return nil
}

func validateAmount(field string, v decimal.Decimal) error {
	if err := requirePositive(field, v); err != nil {
		return err
	}
	return requireCents(field, v)
}

func normalizeSession(s domain.Session) (domain.Session, error) {
	if s.UserID == "" {
		return s, &domain.ErrUnauthorized{Message: "missing user"}
	}
	if s.TillID == "" {
		s.TillID = domain.DefaultTillID
	}
	return s, nil
}

var oneShilling = decimal.NewFromInt(1)
