package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountTypeID_Root(t *testing.T) {
	tests := []struct {
		id   AccountTypeID
		root AccountTypeID
	}{
		{AccountTypeAsset, AccountTypeAsset},
		{AccountTypeCurrentAsset, AccountTypeAsset},
		{AccountTypeCashEquivalent, AccountTypeAsset},
		{AccountTypeReceivable, AccountTypeAsset},
		{AccountTypeCurrentLiability, AccountTypeLiability},
		{AccountTypeRevenue, AccountTypeRevenue},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			assert.Equal(t, tt.root, tt.id.Root())
		})
	}
}

func TestAccountTypeID_IsA(t *testing.T) {
	assert.True(t, AccountTypeReceivable.IsA(AccountTypeAsset))
	assert.True(t, AccountTypeReceivable.IsA(AccountTypeCurrentAsset))
	assert.True(t, AccountTypeReceivable.IsA(AccountTypeReceivable))
	assert.False(t, AccountTypeAsset.IsA(AccountTypeReceivable))
	assert.False(t, AccountTypeRevenue.IsA(AccountTypeAsset))
}

func TestAccountTypeID_NormalSide(t *testing.T) {
	assert.Equal(t, SideDebit, AccountTypeReceivable.NormalSide())
	assert.Equal(t, SideDebit, AccountTypeExpense.NormalSide())
	assert.Equal(t, SideCredit, AccountTypeRevenue.NormalSide())
	assert.Equal(t, SideCredit, AccountTypeCurrentLiability.NormalSide())
	assert.Equal(t, SideCredit, AccountTypeEquity.NormalSide())
}

func TestLookupAccountType(t *testing.T) {
	at, err := LookupAccountType(AccountTypeCashEquivalent)
	require.NoError(t, err)
	assert.Equal(t, AccountTypeCurrentAsset, at.ParentID)

	_, err = LookupAccountType("GOODWILL")
	assert.True(t, errors.Is(err, ErrUnknownAccountType))
}

func TestAccountTypes_ParentsFirst(t *testing.T) {
	types := AccountTypes()
	require.Len(t, types, 9)

	seen := make(map[AccountTypeID]bool)
	for _, at := range types {
		if at.ParentID != "" {
			assert.True(t, seen[at.ParentID], "%s listed before its parent %s", at.ID, at.ParentID)
		}
		seen[at.ID] = true
	}
}
