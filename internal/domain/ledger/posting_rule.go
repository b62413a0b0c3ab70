package ledger

import (
	"fmt"
	"sync"

	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/astracore/gl-service/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Chart codes used by the built-in rules
const (
	AccountCodeReceivable = "AR"
	AccountCodeRevenue    = "REV"

	accountNameReceivable = "Accounts Receivable"
	accountNameRevenue    = "Revenue"
)

// Entry amounts are stored as DECIMAL(18,4)
const (
	MaxAmountScale  = 4
	maxAmountDigits = 14
)

var maxAmount = decimal.New(1, maxAmountDigits)

// checkStorableAmount rejects amounts the ledger cannot store exactly.
// Rounding would make the posted totals disagree with the stored entries.
func checkStorableAmount(amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("amount %s has more than %d decimal places", amount, MaxAmountScale))
	}
	if amount.Abs().GreaterThanOrEqual(maxAmount) {
		return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("amount %s exceeds %d integer digits", amount, maxAmountDigits))
	}
	return nil
}

// EntrySpec describes one entry before its account is resolved
type EntrySpec struct {
	AccountCode string
	AccountName string
	AccountType AccountTypeID
	Side        Side
	Amount      valueobject.Money
	Description string
}

// PostingRule turns a fact into entry specs. Implementations are pure.
type PostingRule interface {
	Derive(fact Fact) ([]EntrySpec, error)
}

// PostingRuleFunc adapts a function to PostingRule
type PostingRuleFunc func(fact Fact) ([]EntrySpec, error)

func (f PostingRuleFunc) Derive(fact Fact) ([]EntrySpec, error) {
	return f(fact)
}

// InvoiceIssuedRule debits receivables and credits revenue for the invoice total.
// The receivable account is created as ASSET.
type InvoiceIssuedRule struct{}

// Derive implements PostingRule
func (InvoiceIssuedRule) Derive(fact Fact) ([]EntrySpec, error) {
	invoice, ok := fact.(InvoiceIssued)
	if !ok {
		return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("invoice rule cannot post %T", fact))
	}
	if !invoice.TotalAmount.Valid {
		return nil, ErrNotPostable.WithMessage("invoice " + invoice.InvoiceID + " has no total amount")
	}
	if !invoice.TotalAmount.Decimal.IsPositive() {
		return nil, ErrNotPostable.WithMessage("invoice " + invoice.InvoiceID + " total is not positive")
	}
	if err := invoice.Validate(); err != nil {
		return nil, err
	}
	if err := checkStorableAmount(invoice.TotalAmount.Decimal); err != nil {
		return nil, err
	}
	currency, err := valueobject.ParseCurrency(invoice.Currency)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage(err.Error())
	}
	amount, err := valueobject.NewMoney(invoice.TotalAmount.Decimal, currency)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage(err.Error())
	}

	return []EntrySpec{
		{
			AccountCode: AccountCodeReceivable,
			AccountName: accountNameReceivable,
			AccountType: AccountTypeAsset,
			Side:        SideDebit,
			Amount:      amount,
			Description: "AR for invoice " + invoice.InvoiceID,
		},
		{
			AccountCode: AccountCodeRevenue,
			AccountName: accountNameRevenue,
			AccountType: AccountTypeRevenue,
			Side:        SideCredit,
			Amount:      amount,
			Description: "Revenue for invoice " + invoice.InvoiceID,
		},
	}, nil
}

// RuleSet maps fact kinds to posting rules
type RuleSet struct {
	mu    sync.RWMutex
	rules map[string]PostingRule
}

// NewRuleSet creates an empty rule set
func NewRuleSet() *RuleSet {
	return &RuleSet{rules: make(map[string]PostingRule)}
}

// DefaultRuleSet returns the rules the service posts today
func DefaultRuleSet() *RuleSet {
	rs := NewRuleSet()
	rs.Register(FactKindInvoiceIssued, InvoiceIssuedRule{})
	return rs
}

// Register binds a rule to a fact kind, replacing any previous rule
func (rs *RuleSet) Register(kind string, rule PostingRule) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.rules[kind] = rule
}

// Derive applies the rule registered for the fact's kind
func (rs *RuleSet) Derive(fact Fact) ([]EntrySpec, error) {
	rs.mu.RLock()
	rule, ok := rs.rules[fact.Kind()]
	rs.mu.RUnlock()
	if !ok {
		return nil, ErrNotPostable.WithMessage("no posting rule for " + fact.Kind())
	}
	return rule.Derive(fact)
}

var _ PostingRule = (*RuleSet)(nil)
