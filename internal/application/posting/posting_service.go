package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/astracore/gl-service/internal/infrastructure/logger"
	"github.com/astracore/gl-service/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome is the result of handing one fact to the posting service
type Outcome string

const (
	// OutcomePosted means a new transaction was committed
	OutcomePosted Outcome = "posted"
	// OutcomeDuplicate means the source was already posted; nothing was written
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeNotPostable means the fact carries nothing to post and was discarded
	OutcomeNotPostable Outcome = "not_postable"
)

// PostingResult describes what happened to a fact.
// TransactionID is set only for OutcomePosted.
type PostingResult struct {
	Outcome       Outcome
	TransactionID uuid.UUID
	Description   string
}

// PostingService turns inbound facts into balanced ledger transactions.
// Each fact is posted in its own unit of work; the transaction description
// doubles as the dedup key so redelivered facts post at most once.
type PostingService struct {
	scope   TransactionScope
	rules   *ledger.RuleSet
	logger  *zap.Logger
	metrics *telemetry.PostingMetrics
	now     func() time.Time
}

// NewPostingService creates a new PostingService
func NewPostingService(scope TransactionScope, rules *ledger.RuleSet, logger *zap.Logger) *PostingService {
	if rules == nil {
		rules = ledger.DefaultRuleSet()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostingService{
		scope:  scope,
		rules:  rules,
		logger: logger,
		now:    time.Now,
	}
}

// SetMetrics sets the posting metrics collector
func (s *PostingService) SetMetrics(m *telemetry.PostingMetrics) {
	s.metrics = m
}

// WithClock overrides the clock used for entry dates and fallback transaction dates
func (s *PostingService) WithClock(now func() time.Time) *PostingService {
	s.now = now
	return s
}

// PostInvoice posts an issued invoice: debit receivables, credit revenue.
// A fact without a total is reported as not postable with a nil error; a
// redelivered invoice is reported as a duplicate.
func (s *PostingService) PostInvoice(ctx context.Context, fact ledger.InvoiceIssued) (*PostingResult, error) {
	if err := fact.Validate(); err != nil {
		return nil, err
	}
	ctx = logger.WithTenantID(logger.WithInvoiceID(ctx, fact.InvoiceID), fact.TenantID)
	return s.Post(ctx, fact)
}

// Post derives entries for any fact with a registered rule and posts them
func (s *PostingService) Post(ctx context.Context, fact ledger.Fact) (*PostingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "gl_posting", "post_invoice",
		telemetry.WithAttribute("fact.kind", fact.Kind()),
		telemetry.WithAttribute("fact.source_id", fact.SourceID()),
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, fact.Organization()),
		telemetry.WithAttribute(telemetry.SpanAttrTransactionType, string(fact.TransactionType())),
	)
	defer span.End()

	start := time.Now()
	log := logger.For(ctx, s.logger).With(
		zap.String("source_id", fact.SourceID()),
		zap.String("description", fact.PostingDescription()),
	)
	if s.metrics != nil {
		s.metrics.RecordFactReceived(ctx, fact.Kind())
	}

	specs, err := s.rules.Derive(fact)
	if err != nil {
		if errors.Is(err, ledger.ErrNotPostable) {
			log.Warn("fact is not postable, skipping", zap.String("reason", err.Error()))
			s.recordOutcome(ctx, OutcomeNotPostable, start)
			telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, string(OutcomeNotPostable))
			return &PostingResult{Outcome: OutcomeNotPostable, Description: fact.PostingDescription()}, nil
		}
		log.Error("failed to derive entries", zap.Error(err))
		s.recordFailure(ctx, err, start)
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &PostingResult{Outcome: OutcomePosted, Description: fact.PostingDescription()}
	var created []string

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		txRepo := repos.TransactionRepo()

		if err := txRepo.AcquireSourceLock(ctx, fact.PostingDescription()); err != nil {
			return err
		}
		exists, err := txRepo.ExistsByDescription(ctx, fact.TransactionType(), fact.PostingDescription())
		if err != nil {
			return err
		}
		if exists {
			result.Outcome = OutcomeDuplicate
			return nil
		}

		accounts := NewChartOfAccounts(repos.AccountRepo(), log)
		tx, events, err := ledger.NewTransactionBuilder(accounts).WithClock(s.now).Build(ctx, fact, specs)
		if err != nil {
			return err
		}
		if err := txRepo.Create(ctx, tx); err != nil {
			return err
		}
		if err := repos.SaveEvents(ctx, events...); err != nil {
			return err
		}

		result.TransactionID = tx.ID
		created = accounts.Created()
		return nil
	})
	if err != nil {
		// A concurrent delivery committed the same description between our check and insert
		if errors.Is(err, shared.ErrAlreadyExists) {
			result = &PostingResult{Outcome: OutcomeDuplicate, Description: fact.PostingDescription()}
		} else {
			log.Error("failed to post fact", zap.Error(err))
			s.recordFailure(ctx, err, start)
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to post %s: %w", fact.PostingDescription(), err)
		}
	}

	switch result.Outcome {
	case OutcomeDuplicate:
		log.Info("fact already posted, skipping")
	case OutcomePosted:
		log.Info("ledger transaction posted",
			zap.String("transaction_id", result.TransactionID.String()),
			zap.Strings("accounts_created", created),
		)
		if s.metrics != nil {
			for _, code := range created {
				s.metrics.RecordAccountCreated(ctx, code)
			}
		}
	}

	s.recordOutcome(ctx, result.Outcome, start)
	telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, string(result.Outcome))
	if result.Outcome == OutcomePosted {
		telemetry.SetAttribute(span, telemetry.SpanAttrTransactionID, result.TransactionID.String())
	}
	telemetry.SetOK(span)
	return result, nil
}

func (s *PostingService) recordOutcome(ctx context.Context, outcome Outcome, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordPosting(ctx, string(outcome), time.Since(start))
	}
}

func (s *PostingService) recordFailure(ctx context.Context, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordFailure(ctx, FailureReason(err), time.Since(start))
	}
}

// FailureReason classifies a posting error for metrics and dead-letter headers
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrUnbalancedTransaction):
		return "unbalanced"
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, ledger.ErrUnknownAccountType):
		return "invalid_input"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "store_unavailable"
	}
}

// IsPermanent reports whether retrying the same fact can never succeed.
// Permanent failures are parked rather than redelivered.
func IsPermanent(err error) bool {
	switch FailureReason(err) {
	case "unbalanced", "invalid_input":
		return true
	}
	return false
}
