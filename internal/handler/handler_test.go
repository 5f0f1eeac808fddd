package handler

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bankledger/internal/config"
	"bankledger/internal/infrastructure/database/dbtest"
	"bankledger/internal/repository"
	"bankledger/internal/service"
	"bankledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db := dbtest.New(t)
	accounts := repository.NewAccountRepository(db)
	allocator := service.NewAccountNumberAllocator(accounts, nil, 32, 0, zap.NewNop()).
		WithRand(rand.New(rand.NewSource(3)))

	ledger := service.NewLedgerServiceWith(db, service.Dependencies{
		Accounts:     accounts,
		Transactions: repository.NewTransactionRepository(db),
		Allocator:    allocator,
		Logger:       zap.NewNop(),
	}, config.LedgerConfig{IFSC: "BANK0000001", CreateRetries: 3, StatementPageSize: 50})

	return SetupRouter(ledger, zap.NewNop(), gin.TestMode)
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func call(t *testing.T, r *gin.Engine, method, path string, body any) apiResponse {
	t.Helper()
	w := do(t, r, method, path, body)
	require.Equal(t, http.StatusOK, w.Code)
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func createAccount(t *testing.T, r *gin.Engine, name, pin, initial string) string {
	t.Helper()
	resp := call(t, r, http.MethodPost, "/api/v1/accounts", gin.H{
		"holder_name":     name,
		"email":           "holder@example.com",
		"pin":             pin,
		"initial_deposit": initial,
	})
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)

	var data struct {
		AccountNumber string `json:"account_number"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.AccountNumber
}

func balanceOf(t *testing.T, resp apiResponse) decimal.Decimal {
	t.Helper()
	var data struct {
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.Balance
}

func TestAccountLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	a := createAccount(t, r, "Asha Rao", "1234", "0")
	b := createAccount(t, r, "Ravi Kumar", "4321", "50")

	resp := call(t, r, http.MethodPost, "/api/v1/accounts/"+a+"/deposit", gin.H{"amount": "500"})
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	assert.True(t, balanceOf(t, resp).Equal(decimal.NewFromInt(500)))

	resp = call(t, r, http.MethodPost, "/api/v1/accounts/"+a+"/withdraw", gin.H{"pin": "0000", "amount": "10"})
	assert.Equal(t, response.CodePinMismatch, resp.Code)

	resp = call(t, r, http.MethodPost, "/api/v1/accounts/"+a+"/withdraw", gin.H{"pin": "1234", "amount": "1000"})
	assert.Equal(t, response.CodeBalanceNotEnough, resp.Code)

	resp = call(t, r, http.MethodPost, "/api/v1/transfers", gin.H{"from": a, "to": b, "pin": "1234", "amount": "200"})
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	var result service.TransferResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.True(t, result.SenderBalance.Equal(decimal.NewFromInt(300)))
	assert.True(t, result.ReceiverBalance.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "Ravi Kumar", result.ReceiverName)

	resp = call(t, r, http.MethodGet, "/api/v1/accounts/"+b, nil)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.True(t, balanceOf(t, resp).Equal(decimal.NewFromInt(250)))
	assert.NotContains(t, string(resp.Data), `"pin"`)

	resp = call(t, r, http.MethodPost, "/api/v1/accounts/"+a+"/statement", gin.H{"pin": "1234"})
	require.Equal(t, response.CodeSuccess, resp.Code)
	var statement struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &statement))
	assert.Equal(t, 2, statement.Total)

	resp = call(t, r, http.MethodDelete, "/api/v1/accounts/"+a, gin.H{"pin": "1234"})
	assert.Equal(t, response.CodeConfirmationRequired, resp.Code)

	resp = call(t, r, http.MethodDelete, "/api/v1/accounts/"+a, gin.H{"pin": "1234", "confirm": true})
	require.Equal(t, response.CodeSuccess, resp.Code)

	resp = call(t, r, http.MethodGet, "/api/v1/accounts/"+a, nil)
	assert.Equal(t, response.CodeAccountNotFound, resp.Code)
}

func TestStatementCSVDownload(t *testing.T) {
	r := newTestRouter(t)
	a := createAccount(t, r, "Asha Rao", "1234", "100")

	w := do(t, r, http.MethodPost, "/api/v1/accounts/"+a+"/statement.csv", gin.H{"pin": "1234"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "mini_statement_"+a+".csv")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,type,amount,balance,remark", lines[0])
	assert.Contains(t, lines[1], "DEPOSIT,100.00,100.00,Initial deposit")

	resp := call(t, r, http.MethodPost, "/api/v1/accounts/"+a+"/statement.csv", gin.H{"pin": "9999"})
	assert.Equal(t, response.CodePinMismatch, resp.Code)
}

func TestValidationErrorsOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	resp := call(t, r, http.MethodPost, "/api/v1/accounts", gin.H{
		"holder_name": "Asha Rao", "email": "not-an-email", "pin": "1234",
	})
	assert.Equal(t, response.CodeInvalidFormat, resp.Code)

	resp = call(t, r, http.MethodPost, "/api/v1/accounts", gin.H{"email": "a@b.com"})
	assert.Equal(t, response.CodeParamError, resp.Code)

	resp = call(t, r, http.MethodGet, "/api/v1/accounts/abc", nil)
	assert.Equal(t, response.CodeInvalidFormat, resp.Code)

	resp = call(t, r, http.MethodPost, "/api/v1/transfers", gin.H{"from": "111111111111", "to": "111111111111", "pin": "1234", "amount": "1"})
	assert.Equal(t, response.CodeInvalidTarget, resp.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")

	w = do(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ledger_http_requests_total")
}
