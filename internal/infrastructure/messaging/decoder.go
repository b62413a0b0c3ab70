package messaging

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ErrUndecodable marks messages that can never be turned into a fact
var ErrUndecodable = errors.New("undecodable message")

// invoiceIssuedMessage is the wire shape of invoice.issued.v1
type invoiceIssuedMessage struct {
	TenantID    string          `json:"tenantId"`
	InvoiceID   string          `json:"invoiceId"`
	CustomerID  string          `json:"customerId"`
	TotalAmount json.RawMessage `json:"totalAmount"`
	Currency    string          `json:"currency"`
	IssueDate   *string         `json:"issueDate"`
	DueDate     *string         `json:"dueDate"`
	OccurredOn  string          `json:"occurredOn"`
}

// DecodeInvoiceIssued parses an invoice.issued.v1 payload.
// totalAmount may be a JSON number, a numeric string or null.
func DecodeInvoiceIssued(data []byte) (ledger.InvoiceIssued, error) {
	var msg invoiceIssuedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ledger.InvoiceIssued{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	amount, err := parseAmount(msg.TotalAmount)
	if err != nil {
		return ledger.InvoiceIssued{}, fmt.Errorf("%w: totalAmount: %v", ErrUndecodable, err)
	}
	issueDate, err := parseDate(msg.IssueDate)
	if err != nil {
		return ledger.InvoiceIssued{}, fmt.Errorf("%w: issueDate: %v", ErrUndecodable, err)
	}
	dueDate, err := parseDate(msg.DueDate)
	if err != nil {
		return ledger.InvoiceIssued{}, fmt.Errorf("%w: dueDate: %v", ErrUndecodable, err)
	}

	var occurredOn time.Time
	if msg.OccurredOn != "" {
		occurredOn, err = time.Parse(time.RFC3339Nano, msg.OccurredOn)
		if err != nil {
			return ledger.InvoiceIssued{}, fmt.Errorf("%w: occurredOn: %v", ErrUndecodable, err)
		}
	}

	fact := ledger.InvoiceIssued{
		TenantID:    msg.TenantID,
		InvoiceID:   msg.InvoiceID,
		CustomerID:  msg.CustomerID,
		TotalAmount: amount,
		Currency:    strings.TrimSpace(msg.Currency),
		IssueDate:   issueDate,
		DueDate:     dueDate,
		OccurredOn:  occurredOn,
	}
	if err := fact.Validate(); err != nil {
		return ledger.InvoiceIssued{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return fact, nil
}

// DecodeInvoiceIssuedEvent decodes the payload and wraps it for the event handlers
func DecodeInvoiceIssuedEvent(data []byte) (shared.DomainEvent, error) {
	fact, err := DecodeInvoiceIssued(data)
	if err != nil {
		return nil, err
	}
	return ledger.NewInvoiceIssuedEvent(fact), nil
}

func parseAmount(raw json.RawMessage) (decimal.NullDecimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.NullDecimal{}, nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.NullDecimal{}, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return decimal.NullDecimal{}, nil
		}
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}
