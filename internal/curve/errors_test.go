package curve

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rovshanmuradov/pumpcurve/internal/fixedmath"
)

func TestKindCodes(t *testing.T) {
	assert.Equal(t, uint16(6000), InvalidAdminAccount.Code())
	assert.Equal(t, uint16(6002), SlippageExceeded.Code())
	assert.Equal(t, uint16(6011), InvalidInitialTokenTransferPercent.Code())
	assert.Equal(t, uint16(6017), TokenConstraintError.Code())
	assert.Equal(t, uint16(6018), InvalidOpenTime.Code())
	assert.Equal(t, uint16(6019), BondingCurveAlreadyMigrated.Code())
}

func TestKindCategory(t *testing.T) {
	tests := []struct {
		kind Kind
		want Category
	}{
		{InvalidAdminAccount, CategoryAuthorization},
		{InvalidMigrationAuth, CategoryAuthorization},
		{InvalidBaseToken, CategoryPrecondition},
		{BondingCurveIsCompleted, CategoryPrecondition},
		{NotEnoughSolBalance, CategoryPrecondition},
		{MathOverflow, CategoryArithmetic},
		{OverflowEstimateOutBase, CategoryArithmetic},
		{SlippageExceeded, CategoryEconomic},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.Category(), tt.kind.Error())
	}
}

func TestErrorWrapping(t *testing.T) {
	err := fmt.Errorf("service: %w", mathError("buy", fixedmath.ErrMathOverflow))

	assert.ErrorIs(t, err, MathOverflow)
	assert.ErrorIs(t, err, fixedmath.ErrMathOverflow)
	assert.False(t, errors.Is(err, MathUnderflow))

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, MathOverflow, kind)
	assert.Equal(t, "service: buy: math overflow: math overflow", err.Error())

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestParseKind(t *testing.T) {
	for name, kind := range kindNames {
		got, ok := ParseKind(name)
		assert.True(t, ok)
		assert.Equal(t, kind, got)
		_, hasMsg := kindMessages[kind]
		assert.True(t, hasMsg, name)
	}
	_, ok := ParseKind("Nope")
	assert.False(t, ok)
}
