package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ugxchange/ugxchange/internal/config"
	"github.com/ugxchange/ugxchange/internal/models"
	"github.com/ugxchange/ugxchange/internal/random"
	"github.com/ugxchange/ugxchange/internal/repository"
	"github.com/ugxchange/ugxchange/internal/service"
	"golang.org/x/crypto/bcrypt"
)

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []string
}

func (f *fakeSender) Send(ctx context.Context, to, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to+": "+message)
	return nil
}

type testServer struct {
	handler  http.Handler
	sender   *fakeSender
	otpStore *repository.MemoryOTPStore
	users    *repository.MemoryUserStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	otpStore := repository.NewMemoryOTPStore()
	userStore := repository.NewMemoryUserStore()
	sender := &fakeSender{}
	source := random.Fixed{DigitsValue: "417203", AlphanumericValue: "K7Q2ZP9XAB"}

	otpCfg := &config.OTPConfig{Length: 6, Expiry: 300 * time.Second, HashCost: bcrypt.MinCost}
	ratesCfg := &config.RatesConfig{Buy: decimal.NewFromInt(3700), Sell: decimal.NewFromInt(3650)}

	otpService := service.NewOTPService(otpStore, sender, source, otpCfg, logger)
	ledger := service.NewLedgerService(repository.NewMemoryTransactionStore(), source, logger)
	users := service.NewUserService(userStore, logger)
	rates := service.NewRateService(ratesCfg)

	router := NewRouter(
		NewOTPHandlers(otpService, logger),
		NewLedgerHandlers(ledger, logger),
		NewExchangeHandlers(rates, users, logger),
		logger,
	)

	return &testServer{handler: router, sender: sender, otpStore: otpStore, users: userStore}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(dst))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestRates(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/api/v1/rates", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var rates models.Rates
	decode(t, rr, &rates)
	assert.True(t, rates.Buy.Equal(decimal.NewFromInt(3700)))
	assert.True(t, rates.Sell.Equal(decimal.NewFromInt(3650)))
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/api/v1/users/register",
		`{"fullName":"Amina Nakato","email":"amina@example.com","phone":"+256700000000","password":"ignored"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp APIResponse
	decode(t, rr, &resp)
	assert.True(t, resp.Success)

	u, err := s.users.GetByPhone(context.Background(), "+256700000000")
	require.NoError(t, err)
	assert.Equal(t, "Amina Nakato", u.FullName)
}

func TestSendOTP(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/api/v1/send-otp", `{"phone":"+256700000000"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp APIResponse
	decode(t, rr, &resp)
	assert.True(t, resp.Success)
	require.Len(t, s.sender.sent, 1)
	assert.Contains(t, s.sender.sent[0], "417203")
	assert.NotContains(t, rr.Body.String(), "417203", "the code must only travel through the sender")
}

func TestSendOTP_MissingPhone(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{`{}`, `{"phone":""}`, `{"phone":"   "}`} {
		rr := s.do(t, http.MethodPost, "/api/v1/send-otp", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)

		var resp APIResponse
		decode(t, rr, &resp)
		assert.False(t, resp.Success)
		assert.Equal(t, "phone number required", resp.Message)
	}
	assert.Empty(t, s.sender.sent)
}

func TestSendOTP_MalformedBody(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/api/v1/send-otp", `{"phone":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendOTP_DeliveryFailure(t *testing.T) {
	s := newTestServer(t)
	s.sender.err = errors.New("twilio: request failed status=400")

	rr := s.do(t, http.MethodPost, "/api/v1/send-otp", `{"phone":"+256700000000"}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp APIResponse
	decode(t, rr, &resp)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "status=400")
}

func TestVerifyOTP_Flow(t *testing.T) {
	s := newTestServer(t)
	verify := func(code string) APIResponse {
		rr := s.do(t, http.MethodPost, "/api/v1/verify-otp", `{"phone":"+256700000000","code":"`+code+`"}`)
		require.Equal(t, http.StatusOK, rr.Code, "negative outcomes still answer 200")
		var resp APIResponse
		decode(t, rr, &resp)
		return resp
	}

	resp := verify("417203")
	assert.False(t, resp.Success)
	assert.Equal(t, "No OTP found for this phone number", resp.Message)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/send-otp", `{"phone":"+256700000000"}`).Code)

	resp = verify("000000")
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid OTP", resp.Message)

	resp = verify("417203")
	assert.True(t, resp.Success)
	assert.Equal(t, "OTP verified successfully", resp.Message)

	resp = verify("417203")
	assert.False(t, resp.Success)
	assert.Equal(t, "No OTP found for this phone number", resp.Message)
}

func TestVerifyOTP_Expired(t *testing.T) {
	s := newTestServer(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("417203"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.otpStore.Put(context.Background(), models.OTPRecord{
		Phone:     "+256700000000",
		CodeHash:  string(hash),
		CreatedAt: time.Now().Add(-301 * time.Second),
	}))

	rr := s.do(t, http.MethodPost, "/api/v1/verify-otp", `{"phone":"+256700000000","code":"417203"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp APIResponse
	decode(t, rr, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "OTP has expired", resp.Message)
}

func TestDepositWithdrawTransferAndList(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/v1/deposit/mobile-money",
		`{"provider":"MTN","amount":50000,"phoneNumber":"+256700000000"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var mm MobileMoneyResponse
	decode(t, rr, &mm)
	assert.True(t, mm.Success)
	assert.Equal(t, "K7Q2ZP9XAB", mm.Reference)
	assert.Equal(t, "Deposit request initiated", mm.Message)

	rr = s.do(t, http.MethodPost, "/api/v1/withdraw/mobile-money",
		`{"provider":"AIRTEL","amount":"20000","phoneNumber":"0750000000"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &mm)
	assert.Equal(t, "Withdrawal request initiated", mm.Message)

	rr = s.do(t, http.MethodPost, "/api/v1/crypto/transfer",
		`{"asset":"USDT","amount":12.5,"walletAddress":"TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var ct CryptoTransferResponse
	decode(t, rr, &ct)
	assert.True(t, ct.Success)
	assert.Regexp(t, `^TX[0-9]+$`, ct.TxID)

	rr = s.do(t, http.MethodGet, "/api/v1/transactions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list TransactionsResponse
	decode(t, rr, &list)
	assert.True(t, list.Success)
	require.Len(t, list.Transactions, 3)

	dep := list.Transactions[0]
	assert.Equal(t, int64(1), dep.ID)
	assert.Equal(t, models.TransactionDeposit, dep.Type)
	assert.Equal(t, "MTN Mobile Money", dep.Method)
	assert.Equal(t, models.StatusPending, dep.Status)
	assert.True(t, dep.Amount.Equal(decimal.NewFromInt(50000)))

	wd := list.Transactions[1]
	assert.Equal(t, int64(2), wd.ID)
	assert.Equal(t, models.TransactionWithdrawal, wd.Type)
	assert.Equal(t, "AIRTEL Mobile Money", wd.Method)

	tr := list.Transactions[2]
	assert.Equal(t, int64(3), tr.ID)
	assert.Equal(t, models.TransactionTransfer, tr.Type)
	assert.Equal(t, "USDT", tr.Asset)
	assert.Equal(t, ct.TxID, tr.TxID)
}

func TestListTransactions_Empty(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/api/v1/transactions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"transactions":[]}`, rr.Body.String())
}

func TestLedger_MalformedBody(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/v1/deposit/mobile-money", "/api/v1/withdraw/mobile-money", "/api/v1/crypto/transfer"} {
		rr := s.do(t, http.MethodPost, path, `{"amount":"lots"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestTransactionStatus(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/deposit/mobile-money",
		`{"provider":"MTN","amount":1000,"phoneNumber":"+256700000000"}`).Code)

	rr := s.do(t, http.MethodGet, "/api/v1/mobile-money/status/K7Q2ZP9XAB", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp TransactionStatusResponse
	decode(t, rr, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, models.StatusPending, resp.Status)

	rr = s.do(t, http.MethodGet, "/api/v1/mobile-money/status/NOPE000000", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/api/v1/send-otp", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
