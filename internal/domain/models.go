// Package domain provides core domain models and types.
package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionType is the side of an asset transaction.
type TransactionType string

const (
	TransactionTypeBuy  TransactionType = "BUY"
	TransactionTypeSell TransactionType = "SELL"
)

// ParseTransactionType accepts BUY or SELL in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", NewValidationError("transaction_type", "must be BUY or SELL, got "+quote(s))
	}
	return t, nil
}

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeBuy || t == TransactionTypeSell
}

// FlowType classifies a cash movement.
type FlowType string

const (
	FlowTypeDeposit      FlowType = "DEPOSIT"
	FlowTypeWithdrawal   FlowType = "WITHDRAWAL"
	FlowTypeBuyCost      FlowType = "BUY_COST"
	FlowTypeSellProceeds FlowType = "SELL_PROCEEDS"
	FlowTypeDividend     FlowType = "DIVIDEND"
)

// ParseFlowType accepts any known flow type in any case.
func ParseFlowType(s string) (FlowType, error) {
	f := FlowType(strings.ToUpper(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", NewValidationError("flow_type", "unknown flow type "+quote(s))
	}
	return f, nil
}

// Valid reports whether f is one of the known flow types.
func (f FlowType) Valid() bool {
	switch f {
	case FlowTypeDeposit, FlowTypeWithdrawal, FlowTypeBuyCost, FlowTypeSellProceeds, FlowTypeDividend:
		return true
	}
	return false
}

// Outflow reports whether movements of this type are stored as negative amounts.
func (f FlowType) Outflow() bool {
	return f == FlowTypeWithdrawal || f == FlowTypeBuyCost
}

// SignedAmount applies the storage sign convention to a magnitude.
func (f FlowType) SignedAmount(amount decimal.Decimal) decimal.Decimal {
	if f.Outflow() {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

func quote(s string) string {
	return `"` + s + `"`
}
