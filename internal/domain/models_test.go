package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		input    string
		expected TransactionType
		wantErr  bool
	}{
		{"BUY", TransactionTypeBuy, false},
		{"sell", TransactionTypeSell, false},
		{" Buy ", TransactionTypeBuy, false},
		{"HOLD", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTransactionType(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseFlowType(t *testing.T) {
	for _, s := range []string{"DEPOSIT", "withdrawal", "BUY_COST", "SELL_PROCEEDS", "dividend"} {
		_, err := ParseFlowType(s)
		assert.NoError(t, err, s)
	}

	_, err := ParseFlowType("TRANSFER")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFlowType_SignedAmount(t *testing.T) {
	hundred := decimal.NewFromInt(100)

	assert.True(t, FlowTypeDeposit.SignedAmount(hundred).Equal(hundred))
	assert.True(t, FlowTypeDividend.SignedAmount(hundred.Neg()).Equal(hundred))
	assert.True(t, FlowTypeSellProceeds.SignedAmount(hundred).Equal(hundred))
	assert.True(t, FlowTypeWithdrawal.SignedAmount(hundred).Equal(hundred.Neg()))
	assert.True(t, FlowTypeBuyCost.SignedAmount(hundred.Neg()).Equal(hundred.Neg()))
}
