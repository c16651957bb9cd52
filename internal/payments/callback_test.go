package payments

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, raw string) MpesaCallbackEnvelope {
	t.Helper()
	var env MpesaCallbackEnvelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	return env
}

func TestParseOutcome_Success(t *testing.T) {
	env := decodeEnvelope(t, `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "merchant-1",
				"CheckoutRequestID": "ws_CO_123",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 6500},
						{"Name": "MpesaReceiptNumber", "Value": "RKT12XYZ89"},
						{"Name": "TransactionDate", "Value": 20260830143000},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`)

	now := time.Now()
	outcome, err := env.ParseOutcome(now)
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, CorrelationStatusCompleted, outcome.Status)
	assert.Equal(t, "ws_CO_123", outcome.CheckoutRequestID)
	assert.Equal(t, int64(6500), outcome.Amount)
	assert.Equal(t, "RKT12XYZ89", outcome.Receipt)
	assert.Equal(t, "254712345678", outcome.PhoneNumber)
	assert.Equal(t, now, outcome.ResolvedAt)
}

func TestParseOutcome_UserCancelled(t *testing.T) {
	env := decodeEnvelope(t, `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "merchant-1",
				"CheckoutRequestID": "ws_CO_123",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user"
			}
		}
	}`)

	outcome, err := env.ParseOutcome(time.Now())
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, CorrelationStatusFailed, outcome.Status)
	assert.Equal(t, "Request cancelled by user", outcome.Reason)
	assert.Empty(t, outcome.Receipt)
}

func TestParseOutcome_FailureWithoutDescription(t *testing.T) {
	env := decodeEnvelope(t, `{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_123",
				"ResultCode": 2001
			}
		}
	}`)

	outcome, err := env.ParseOutcome(time.Now())
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, CorrelationStatusFailed, outcome.Status)
	assert.Contains(t, outcome.Reason, "2001")
}

func TestParseOutcome_MissingCorrelationID(t *testing.T) {
	env := decodeEnvelope(t, `{"Body": {"stkCallback": {"ResultCode": 0}}}`)

	outcome, err := env.ParseOutcome(time.Now())
	assert.Error(t, err)
	assert.Nil(t, outcome)
}

// A success payload without the required metadata is recorded as failed so
// the gap stays visible, and the parse error lets the caller log it.
func TestParseOutcome_SuccessMissingMetadata(t *testing.T) {
	env := decodeEnvelope(t, `{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_123",
				"ResultCode": 0,
				"ResultDesc": "Processed",
				"CallbackMetadata": {
					"Item": [{"Name": "Amount", "Value": 6500}]
				}
			}
		}
	}`)

	outcome, err := env.ParseOutcome(time.Now())
	assert.Error(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, CorrelationStatusFailed, outcome.Status)
	assert.Equal(t, "ws_CO_123", outcome.CheckoutRequestID)
}
