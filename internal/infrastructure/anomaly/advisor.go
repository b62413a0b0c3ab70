// Package anomaly provides the advisors consulted after an invoice is posted.
package anomaly

import (
	"context"
	"time"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NoopAdvisor never flags anything
type NoopAdvisor struct {
	logger *zap.Logger
}

// NewNoopAdvisor creates a NoopAdvisor
func NewNoopAdvisor(logger *zap.Logger) *NoopAdvisor {
	return &NoopAdvisor{logger: logger}
}

// Assess always returns false
func (a *NoopAdvisor) Assess(ctx context.Context, assessment ledger.InvoiceAssessment) (bool, error) {
	a.logger.Debug("anomaly check disabled", zap.String("invoice_id", assessment.InvoiceID))
	return false, nil
}

// NewAdvisor selects the advisor once at start-up: the HTTP sidecar when
// enabled with a URL, the no-op advisor otherwise
func NewAdvisor(cfg config.AnomalyConfig, logger *zap.Logger) ledger.AnomalyAdvisor {
	if !cfg.Enabled || cfg.URL == "" {
		return NewNoopAdvisor(logger)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return NewHTTPAdvisor(cfg.URL, timeout, logger)
}

var (
	_ ledger.AnomalyAdvisor = (*NoopAdvisor)(nil)
	_ ledger.AnomalyAdvisor = (*HTTPAdvisor)(nil)
)
