package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acmebank/mts-backend/internal/auth"
	"github.com/acmebank/mts-backend/internal/config"
	"github.com/acmebank/mts-backend/internal/repository/memory"
	"github.com/acmebank/mts-backend/internal/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := memory.NewStore()
	tokens := auth.NewTokenManager("test-access", "test-refresh", "mts-test", time.Minute, time.Hour)

	h := NewRouter(RouterDeps{
		Cfg:         config.Config{Env: "test", RateRPS: 1000},
		Tokens:      tokens,
		AccountSvc:  services.NewAccountService(st),
		TransferSvc: services.NewTransactionService(st),
		BankSvc:     services.NewBankDetailsService(st),
		UserSvc:     services.NewUserService(st, tokens),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", "", map[string]any{
		"username": "tester", "email": "tester@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]any{
		"email": "tester@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccountRoutesRequireAuth(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/accounts/", "", map[string]any{
		"holder_name": "alice", "initial_balance": "100",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTransferFlow(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	createAccount := func(holder, balance string) float64 {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/accounts/", token, map[string]any{
			"holder_name": holder, "initial_balance": balance,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, "create %s: %v", holder, body)
		id, ok := body["id"].(float64)
		require.True(t, ok)
		return id
	}

	aliceID := createAccount("alice", "500.00")
	bobID := createAccount("bob", "100.00")

	// transfer
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/transfers/", token, map[string]any{
		"from_account_id": aliceID, "to_account_id": bobID,
		"amount": "120.50", "idempotency_key": "flow-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", body)
	assert.Equal(t, "SUCCESS", body["status"])
	txnID := body["transaction_id"].(float64)

	// replay with the same key conflicts and names the winner
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/transfers/", token, map[string]any{
		"from_account_id": aliceID, "to_account_id": bobID,
		"amount": "120.50", "idempotency_key": "flow-1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "duplicate_transaction", body["code"])
	assert.Equal(t, txnID, body["transaction_id"])

	// balances reflect exactly one transfer
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/accounts/"+itoa(aliceID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "379.5", body["balance"])

	// overdraft attempt conflicts
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/transfers/", token, map[string]any{
		"from_account_id": aliceID, "to_account_id": bobID,
		"amount": "99999", "idempotency_key": "flow-2",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "insufficient_balance", body["code"])

	// status filter: exactly the overdraft attempt is FAILED
	req0, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/transfers/?status=failed", nil)
	require.NoError(t, err)
	req0.Header.Set("Authorization", "Bearer "+token)
	fr, err := http.DefaultClient.Do(req0)
	require.NoError(t, err)
	defer fr.Body.Close()
	require.Equal(t, http.StatusOK, fr.StatusCode)
	var failedRows []map[string]any
	require.NoError(t, json.NewDecoder(fr.Body).Decode(&failedRows))
	require.Len(t, failedRows, 1)
	assert.Equal(t, "FAILED", failedRows[0]["status"])

	// key header fallback works
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/transfers/",
		bytes.NewBufferString(`{"from_account_id":`+itoa(bobID)+`,"to_account_id":`+itoa(aliceID)+`,"amount":"5"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Idempotency-Key", "flow-3")
	hr, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer hr.Body.Close()
	assert.Equal(t, http.StatusCreated, hr.StatusCode)
}

func TestTransferByNumberWithProvisioning(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/accounts/", token, map[string]any{
		"holder_name": "bob", "initial_balance": "100",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	bobNumber := body["account_number"].(string)

	// register carol with the bank but without a ledger account
	resp, details := doJSON(t, http.MethodPost, srv.URL+"/api/v1/bank-details/", token, map[string]any{
		"account_number": "434343434343", "user_name": "carol",
		"bank_name": "Acme Bank", "ifsc_code": "ACME0001234", "contact": "5550001234",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", details)

	// carol's first transfer provisions her account on the fly
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/transfers/by-number", token, map[string]any{
		"from_account_number": "434343434343", "to_account_number": bobNumber, "amount": "40",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", body)
	assert.Equal(t, "SUCCESS", body["status"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/accounts/by-number/434343434343", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "carol", body["holder_name"])
	assert.Equal(t, "9960", body["balance"])
}

func TestTransferValidation(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/transfers/", token, map[string]any{
		"from_account_id": 0, "to_account_id": 0, "amount": "0",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_failed", body["code"])
}

func itoa(f float64) string { return strconv.FormatInt(int64(f), 10) }
