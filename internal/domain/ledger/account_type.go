package ledger

import "sort"

// AccountTypeID identifies a node in the account type hierarchy
type AccountTypeID string

const (
	AccountTypeAsset            AccountTypeID = "ASSET"
	AccountTypeCurrentAsset     AccountTypeID = "CURRENT_ASSET"
	AccountTypeCashEquivalent   AccountTypeID = "CASH_EQUIVALENT"
	AccountTypeReceivable       AccountTypeID = "RECEIVABLE"
	AccountTypeLiability        AccountTypeID = "LIABILITY"
	AccountTypeCurrentLiability AccountTypeID = "CURRENT_LIABILITY"
	AccountTypeEquity           AccountTypeID = "EQUITY"
	AccountTypeRevenue          AccountTypeID = "REVENUE"
	AccountTypeExpense          AccountTypeID = "EXPENSE"
)

// AccountType is a classification of general ledger accounts.
// Types form a tree; top level types are the five accounting classes.
type AccountType struct {
	ID          AccountTypeID `json:"id"`
	ParentID    AccountTypeID `json:"parent_id,omitempty"`
	Description string        `json:"description"`
}

// builtinAccountTypes mirrors the rows seeded into gl_account_types
var builtinAccountTypes = map[AccountTypeID]AccountType{
	AccountTypeAsset:            {ID: AccountTypeAsset, Description: "Asset"},
	AccountTypeCurrentAsset:     {ID: AccountTypeCurrentAsset, ParentID: AccountTypeAsset, Description: "Current asset"},
	AccountTypeCashEquivalent:   {ID: AccountTypeCashEquivalent, ParentID: AccountTypeCurrentAsset, Description: "Cash and cash equivalents"},
	AccountTypeReceivable:       {ID: AccountTypeReceivable, ParentID: AccountTypeCurrentAsset, Description: "Receivable"},
	AccountTypeLiability:        {ID: AccountTypeLiability, Description: "Liability"},
	AccountTypeCurrentLiability: {ID: AccountTypeCurrentLiability, ParentID: AccountTypeLiability, Description: "Current liability"},
	AccountTypeEquity:           {ID: AccountTypeEquity, Description: "Equity"},
	AccountTypeRevenue:          {ID: AccountTypeRevenue, Description: "Revenue"},
	AccountTypeExpense:          {ID: AccountTypeExpense, Description: "Expense"},
}

// LookupAccountType returns the built-in account type for the id
func LookupAccountType(id AccountTypeID) (AccountType, error) {
	t, ok := builtinAccountTypes[id]
	if !ok {
		return AccountType{}, ErrUnknownAccountType.WithMessage("unknown account type: " + string(id))
	}
	return t, nil
}

// AccountTypes returns every built-in type with parents ahead of children
func AccountTypes() []AccountType {
	types := make([]AccountType, 0, len(builtinAccountTypes))
	for _, t := range builtinAccountTypes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		di, dj := types[i].ID.depth(), types[j].ID.depth()
		if di != dj {
			return di < dj
		}
		return types[i].ID < types[j].ID
	})
	return types
}

// IsValid checks if the id names a built-in account type
func (id AccountTypeID) IsValid() bool {
	_, ok := builtinAccountTypes[id]
	return ok
}

func (id AccountTypeID) String() string {
	return string(id)
}

// Parent returns the parent type, false for top level types
func (id AccountTypeID) Parent() (AccountTypeID, bool) {
	t, ok := builtinAccountTypes[id]
	if !ok || t.ParentID == "" {
		return "", false
	}
	return t.ParentID, true
}

// Root walks up to the top level accounting class
func (id AccountTypeID) Root() AccountTypeID {
	current := id
	for {
		parent, ok := current.Parent()
		if !ok {
			return current
		}
		current = parent
	}
}

// IsA reports whether id equals other or descends from it
func (id AccountTypeID) IsA(other AccountTypeID) bool {
	current := id
	for {
		if current == other {
			return true
		}
		parent, ok := current.Parent()
		if !ok {
			return false
		}
		current = parent
	}
}

// NormalSide is the side that increases an account of this type:
// debit for assets and expenses, credit for everything else.
func (id AccountTypeID) NormalSide() Side {
	switch id.Root() {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

func (id AccountTypeID) depth() int {
	d := 0
	current := id
	for {
		parent, ok := current.Parent()
		if !ok {
			return d
		}
		d++
		current = parent
	}
}
