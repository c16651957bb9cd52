package payments

import (
	"fmt"
	"time"
)

// MpesaCallbackEnvelope is the provider-shaped notification body delivered to
// the callback receiver.
type MpesaCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string            `json:"MerchantRequestID"`
			CheckoutRequestID string            `json:"CheckoutRequestID"`
			ResultCode        int               `json:"ResultCode"`
			ResultDesc        string            `json:"ResultDesc"`
			CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackMetadata is the flexible key-value list the provider attaches to
// successful payments.
type CallbackMetadata struct {
	Item []CallbackMetadataItem `json:"Item"`
}

// CallbackMetadataItem is one Name/Value pair in the metadata list.
type CallbackMetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// lookup finds an item by name; the second return reports presence.
func (m *CallbackMetadata) lookup(name string) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	for _, item := range m.Item {
		if item.Name == name {
			return item.Value, true
		}
	}
	return nil, false
}

func (m *CallbackMetadata) stringValue(name string) (string, bool) {
	v, ok := m.lookup(name)
	if !ok {
		return "", false
	}
	switch value := v.(type) {
	case string:
		return value, value != ""
	case float64:
		return fmt.Sprintf("%.0f", value), true
	}
	return "", false
}

func (m *CallbackMetadata) amountValue(name string) (int64, bool) {
	v, ok := m.lookup(name)
	if !ok {
		return 0, false
	}
	// The provider serializes numbers as JSON numbers
	if f, ok := v.(float64); ok {
		return int64(f), true
	}
	return 0, false
}

// ParseOutcome validates the callback against a strict schema and produces
// the correlation outcome to record. A ResultCode of 0 means success, any
// other value failure. Success payloads must carry Amount and
// MpesaReceiptNumber; a success payload missing them is recorded as failed so
// the gap is visible instead of silently dropped. The returned error marks
// payloads that failed schema validation — the caller logs it distinctly but
// still acknowledges the provider.
func (e *MpesaCallbackEnvelope) ParseOutcome(now time.Time) (*PushOutcome, error) {
	cb := e.Body.StkCallback

	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("callback missing CheckoutRequestID")
	}

	outcome := &PushOutcome{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResolvedAt:        now,
	}

	if cb.ResultCode != 0 {
		outcome.Status = CorrelationStatusFailed
		outcome.Reason = cb.ResultDesc
		if outcome.Reason == "" {
			outcome.Reason = fmt.Sprintf("provider result code %d", cb.ResultCode)
		}
		return outcome, nil
	}

	amount, okAmount := cb.CallbackMetadata.amountValue("Amount")
	receipt, okReceipt := cb.CallbackMetadata.stringValue("MpesaReceiptNumber")
	if !okAmount || !okReceipt {
		outcome.Status = CorrelationStatusFailed
		outcome.Reason = "success callback missing required metadata"
		return outcome, fmt.Errorf("success callback for %s missing Amount or MpesaReceiptNumber", cb.CheckoutRequestID)
	}

	phone, _ := cb.CallbackMetadata.stringValue("PhoneNumber")

	outcome.Status = CorrelationStatusCompleted
	outcome.Amount = amount
	outcome.Receipt = receipt
	outcome.PhoneNumber = phone
	return outcome, nil
}

// CallbackAck is the acknowledgment the provider expects on every delivery,
// regardless of what happened internally. Returning anything else makes the
// provider retry.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// NewCallbackAck returns the unconditional success acknowledgment.
func NewCallbackAck() CallbackAck {
	return CallbackAck{ResultCode: 0, ResultDesc: "Success"}
}
