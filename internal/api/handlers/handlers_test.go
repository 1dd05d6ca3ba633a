package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"bank-api/internal/actor"
	"bank-api/internal/api/handlers"
	"bank-api/internal/api/routes"
	"bank-api/internal/config"
	"bank-api/internal/domain/money"
	"bank-api/internal/infrastructure/messaging"
	"bank-api/internal/registry"
	"bank-api/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend is the same in-memory storage.Backend test double used by
// internal/actor's own tests.
type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (m *memBackend) Put(_ context.Context, folder, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[folder+"/"+key] = append([]byte(nil), value...)
	return nil
}

func (m *memBackend) Get(_ context.Context, folder, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[folder+"/"+key]
	return v, ok, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pool := storage.NewPool(2, newMemBackend())
	defaultOptions := registry.DefaultOptionsFor("BRL", -500)

	reg := registry.New(func(accountID int) actor.Deps {
		return actor.Deps{
			Storage:        pool,
			AccountFolder:  "accounts",
			IdleTimeout:    time.Hour,
			DefaultOptions: defaultOptions,
		}
	})

	cfg := config.Load()
	router := gin.New()
	routes.RegisterRoutes(router, cfg, handlers.Dependencies{
		Registry:  reg,
		Publisher: messaging.NewNoOpEventPublisher(),
	})
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestDepositCreditsBalance(t *testing.T) {
	router := newTestRouter(t)

	resp := doJSON(router, http.MethodPost, "/accounts/1/deposit", map[string]interface{}{"amount": 2500, "currency": "BRL"})
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	op := body["operation"].(map[string]interface{})
	assert.Equal(t, string(money.StatusDone), op["status"])

	balResp := doJSON(router, http.MethodGet, "/accounts/1/balance?currency=BRL", nil)
	require.Equal(t, http.StatusOK, balResp.Code)
	var balBody map[string]interface{}
	require.NoError(t, json.Unmarshal(balResp.Body.Bytes(), &balBody))
	assert.Equal(t, float64(2500), balBody["balance"])
}

func TestDepositRejectsInvalidAmount(t *testing.T) {
	router := newTestRouter(t)

	resp := doJSON(router, http.MethodPost, "/accounts/1/deposit", map[string]int{"amount": -100})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestWithdrawDeniedBelowLimit(t *testing.T) {
	router := newTestRouter(t)

	resp := doJSON(router, http.MethodPost, "/accounts/1/withdraw", map[string]interface{}{"amount": 10000, "currency": "BRL"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCardTransactionAndRefund(t *testing.T) {
	router := newTestRouter(t)

	doJSON(router, http.MethodPost, "/accounts/1/deposit", map[string]interface{}{"amount": 5000, "currency": "BRL"})

	cardResp := doJSON(router, http.MethodPost, "/accounts/1/card-transactions", map[string]interface{}{
		"amount": 1000, "currency": "BRL", "card_id": "card-1",
	})
	require.Equal(t, http.StatusOK, cardResp.Code)

	var cardBody map[string]interface{}
	require.NoError(t, json.Unmarshal(cardResp.Body.Bytes(), &cardBody))
	op := cardBody["operation"].(map[string]interface{})
	opID := int(op["id"].(float64))

	refundResp := doJSON(router, http.MethodPost, "/accounts/1/refunds", map[string]interface{}{
		"operation_id": opID,
	})
	require.Equal(t, http.StatusOK, refundResp.Code)
}

func TestTransferOutSingle(t *testing.T) {
	router := newTestRouter(t)

	doJSON(router, http.MethodPost, "/accounts/1/deposit", map[string]interface{}{"amount": 5000, "currency": "BRL"})

	resp := doJSON(router, http.MethodPost, "/accounts/1/transfer", map[string]interface{}{
		"amount": 1000, "currency": "BRL", "recipient_account_id": 2,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	balResp := doJSON(router, http.MethodGet, "/accounts/2/balance?currency=BRL", nil)
	var balBody map[string]interface{}
	require.NoError(t, json.Unmarshal(balResp.Body.Bytes(), &balBody))
	assert.Equal(t, float64(1000), balBody["balance"])
}

func TestTransferOutSplit(t *testing.T) {
	router := newTestRouter(t)

	doJSON(router, http.MethodPost, "/accounts/1/deposit", map[string]interface{}{"amount": 10000, "currency": "BRL"})

	resp := doJSON(router, http.MethodPost, "/accounts/1/transfer", map[string]interface{}{
		"amount":   2000,
		"currency": "BRL",
		"recipients": []map[string]interface{}{
			{"percentage": 0.5, "recipient_account_id": 2},
			{"percentage": 0.5, "recipient_account_id": 3},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	for _, id := range []int{2, 3} {
		balResp := doJSON(router, http.MethodGet, "/accounts/"+strconv.Itoa(id)+"/balance?currency=BRL", nil)
		var balBody map[string]interface{}
		require.NoError(t, json.Unmarshal(balResp.Body.Bytes(), &balBody))
		assert.Equal(t, float64(1000), balBody["balance"])
	}
}

func TestOperationNotFound(t *testing.T) {
	router := newTestRouter(t)

	resp := doJSON(router, http.MethodGet, "/accounts/1/operations/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHealthReportsActiveAccounts(t *testing.T) {
	router := newTestRouter(t)

	doJSON(router, http.MethodPost, "/accounts/1/deposit", map[string]interface{}{"amount": 100, "currency": "BRL"})

	resp := doJSON(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["active_accounts"])
}
