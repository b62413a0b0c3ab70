package ledger

import "github.com/astracore/gl-service/internal/domain/shared"

// Ledger specific domain errors
var (
	// ErrNotPostable means a fact carries nothing the ledger can record.
	// The fact is acknowledged and discarded.
	ErrNotPostable = shared.NewDomainError("NOT_POSTABLE", "Fact cannot be posted")

	// ErrUnbalancedTransaction means debits and credits differ for at least one currency
	ErrUnbalancedTransaction = shared.NewDomainError("UNBALANCED_TRANSACTION", "Transaction debits and credits do not balance")

	ErrUnknownAccountType = shared.NewDomainError("UNKNOWN_ACCOUNT_TYPE", "Unknown account type")
)
