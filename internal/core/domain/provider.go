package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMissingToken is returned when no invoice token can be extracted from
// an inbound gateway payload.
var ErrMissingToken = errors.New("missing invoice_token")

// MapProviderStatus maps the gateway status vocabulary to the internal enum.
// Total and case-insensitive; unrecognized values default to processing.
func MapProviderStatus(provider string) TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "completed", "success", "paid":
		return TransactionStatusCompleted
	case "failed":
		return TransactionStatusFailed
	case "pending":
		return TransactionStatusProcessing
	case "cancelled", "expired":
		return TransactionStatusCancelled
	default:
		return TransactionStatusProcessing
	}
}

// PaymentNotice is the normalized form of an inbound gateway webhook payload.
type PaymentNotice struct {
	Token         string
	Status        string
	Amount        *int64
	Currency      string
	PaymentMethod string
	Customer      map[string]string
}

// extractor pulls one optional string out of a decoded payload.
type extractor func(m map[string]any) (string, bool)

// Gateways nest the same logical fields under different key paths.
// Extractors are tried in order; the first present value wins.
var (
	tokenExtractors = []extractor{
		pathString("response", "invoice_token"),
		pathString("invoice_token"),
		pathString("token"),
		pathString("data", "transaction_id"),
	}
	statusExtractors = []extractor{
		pathString("response", "status"),
		pathString("status"),
		pathString("data", "status"),
	}
	currencyExtractors = []extractor{
		pathString("response", "currency"),
		pathString("currency"),
		pathString("data", "currency"),
	}
	methodExtractors = []extractor{
		pathString("response", "payment_method"),
		pathString("payment_method"),
		pathString("data", "payment_method"),
	}
	amountPaths = [][]string{
		{"response", "invoice", "total_amount"},
		{"invoice", "total_amount"},
		{"amount"},
		{"data", "amount"},
	}
	customerPaths = [][]string{
		{"response", "customer"},
		{"customer"},
		{"data", "customer"},
	}
)

// ExtractPaymentNotice normalizes a raw gateway payload. Returns
// ErrMissingToken when no token is present under any known key path.
func ExtractPaymentNotice(raw []byte) (PaymentNotice, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return PaymentNotice{}, ErrMissingToken
	}

	notice := PaymentNotice{
		Token:         firstString(m, tokenExtractors),
		Status:        firstString(m, statusExtractors),
		Currency:      firstString(m, currencyExtractors),
		PaymentMethod: firstString(m, methodExtractors),
	}
	if notice.Token == "" {
		return PaymentNotice{}, ErrMissingToken
	}

	for _, path := range amountPaths {
		if v, ok := lookupPath(m, path); ok {
			if amt, ok := toInt64(v); ok {
				notice.Amount = &amt
				break
			}
		}
	}

	for _, path := range customerPaths {
		if v, ok := lookupPath(m, path); ok {
			if cm, ok := v.(map[string]any); ok {
				notice.Customer = make(map[string]string, len(cm))
				for k, cv := range cm {
					if s, ok := cv.(string); ok {
						notice.Customer[k] = s
					}
				}
				break
			}
		}
	}

	return notice, nil
}

func firstString(m map[string]any, extractors []extractor) string {
	for _, ex := range extractors {
		if v, ok := ex(m); ok && v != "" {
			return v
		}
	}
	return ""
}

func pathString(path ...string) extractor {
	return func(m map[string]any) (string, bool) {
		v, ok := lookupPath(m, path)
		if !ok {
			return "", false
		}
		s, ok := v.(string)
		return s, ok
	}
}

func lookupPath(m map[string]any, path []string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case string:
		var parsed int64
		var frac float64
		if err := json.Unmarshal([]byte(n), &parsed); err == nil {
			return parsed, true
		}
		if err := json.Unmarshal([]byte(n), &frac); err == nil {
			return int64(frac), true
		}
		return 0, false
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
