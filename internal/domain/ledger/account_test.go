package ledger

import (
	"errors"
	"strings"
	"testing"

	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGlAccount(t *testing.T) {
	t.Run("creates account", func(t *testing.T) {
		acc, err := NewGlAccount(" AR ", "Accounts Receivable", AccountTypeAsset)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, acc.ID)
		assert.Equal(t, "AR", acc.Code)
		assert.Equal(t, AccountTypeAsset, acc.TypeID)
		assert.Nil(t, acc.ParentID)
		assert.Equal(t, SideDebit, acc.NormalSide())
	})

	t.Run("rejects bad input", func(t *testing.T) {
		tests := []struct {
			name   string
			code   string
			label  string
			typeID AccountTypeID
			target error
		}{
			{"empty code", "", "Cash", AccountTypeAsset, shared.ErrInvalidInput},
			{"long code", strings.Repeat("X", 33), "Cash", AccountTypeAsset, shared.ErrInvalidInput},
			{"empty name", "CASH", "  ", AccountTypeAsset, shared.ErrInvalidInput},
			{"unknown type", "CASH", "Cash", "MYSTERY", ErrUnknownAccountType},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := NewGlAccount(tt.code, tt.label, tt.typeID)
				assert.True(t, errors.Is(err, tt.target), "got %v", err)
			})
		}
	})
}

func TestGlAccount_WithParent(t *testing.T) {
	assets, _ := NewGlAccount("1000", "Assets", AccountTypeAsset)
	cash, _ := NewGlAccount("1100", "Cash", AccountTypeCashEquivalent)
	revenue, _ := NewGlAccount("REV", "Revenue", AccountTypeRevenue)

	require.NoError(t, cash.WithParent(assets))
	require.NotNil(t, cash.ParentID)
	assert.Equal(t, assets.ID, *cash.ParentID)

	assert.Error(t, revenue.WithParent(assets))
	assert.Error(t, assets.WithParent(assets))
	assert.Error(t, assets.WithParent(nil))
}
