package anomaly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"go.uber.org/zap"
)

const predictPath = "/predict/anomaly"

type predictRequest struct {
	InvoiceID string      `json:"invoice_id"`
	Amount    json.Number `json:"amount"`
	Currency  string      `json:"currency,omitempty"`
}

// predictResponse accepts both field spellings the sidecar has used
type predictResponse struct {
	IsAnomaly   *bool  `json:"is_anomaly"`
	IsAnomalous *bool  `json:"is_anomalous"`
	Reason      string `json:"reason"`
}

// HTTPAdvisor asks the anomaly sidecar about each posted invoice.
// Any failure is returned to the caller, which treats it as not anomalous.
type HTTPAdvisor struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPAdvisor creates an advisor posting to <baseURL>/predict/anomaly
func NewHTTPAdvisor(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPAdvisor {
	return &HTTPAdvisor{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Assess posts {invoice_id, amount} and reads the anomaly flag
func (a *HTTPAdvisor) Assess(ctx context.Context, assessment ledger.InvoiceAssessment) (bool, error) {
	body, err := json.Marshal(predictRequest{
		InvoiceID: assessment.InvoiceID,
		Amount:    json.Number(assessment.Amount.String()),
		Currency:  assessment.Currency,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal anomaly request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+predictPath, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create anomaly request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call anomaly service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("failed to read anomaly response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("anomaly service returned HTTP %d", resp.StatusCode)
	}

	var result predictResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return false, fmt.Errorf("failed to decode anomaly response: %w", err)
	}

	flagged := false
	switch {
	case result.IsAnomaly != nil:
		flagged = *result.IsAnomaly
	case result.IsAnomalous != nil:
		flagged = *result.IsAnomalous
	default:
		return false, fmt.Errorf("anomaly response has no verdict")
	}

	a.logger.Debug("anomaly check completed",
		zap.String("invoice_id", assessment.InvoiceID),
		zap.Bool("anomalous", flagged),
		zap.String("reason", result.Reason),
	)
	return flagged, nil
}
