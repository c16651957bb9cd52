package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundi/pkg/logger"
)

func callbackRouter(f *serviceFixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	controller := NewController(f.service, logger.New())
	engine.POST("/callback", controller.HandleCallback)
	engine.GET("/status", controller.GetPushStatus)
	return engine
}

func postCallback(t *testing.T, engine *gin.Engine, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func assertAck(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code)

	var ack CallbackAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, 0, ack.ResultCode)
	assert.Equal(t, "Success", ack.ResultDesc)
}

func TestHandleCallback_ValidPayload(t *testing.T) {
	f := newFixture(testSettlementConfig())
	engine := callbackRouter(f)

	body, _ := json.Marshal(successEnvelope("ws_CO_1", 6500, "RKT12XYZ89"))
	assertAck(t, postCallback(t, engine, body))

	outcome, err := f.store.Lookup(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, CorrelationStatusCompleted, outcome.Status)
}

// The provider retries on anything but a success acknowledgment, and a retry
// cannot repair a malformed payload. Every delivery gets the ack.
func TestHandleCallback_MalformedPayloadStillAcked(t *testing.T) {
	f := newFixture(testSettlementConfig())
	engine := callbackRouter(f)

	assertAck(t, postCallback(t, engine, []byte(`not json at all`)))
	assertAck(t, postCallback(t, engine, []byte(`{}`)))
	assertAck(t, postCallback(t, engine, []byte(`{"Body":{"stkCallback":{"ResultCode":0}}}`)))

	// Nothing was recorded for any of them
	assert.Empty(t, f.store.outcomes)
}

func TestHandleCallback_FailureOutcomeRecorded(t *testing.T) {
	f := newFixture(testSettlementConfig())
	engine := callbackRouter(f)

	body := []byte(`{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_9",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user"
			}
		}
	}`)
	assertAck(t, postCallback(t, engine, body))

	outcome, err := f.store.Lookup(context.Background(), "ws_CO_9")
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, CorrelationStatusFailed, outcome.Status)
}

func TestGetPushStatus_Endpoint(t *testing.T) {
	f := newFixture(testSettlementConfig())
	engine := callbackRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/status?checkout_request_id=ws_CO_unknown", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data PushStatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp.Data.Status)
}

func TestGetPushStatus_MissingQuery(t *testing.T) {
	f := newFixture(testSettlementConfig())
	engine := callbackRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
