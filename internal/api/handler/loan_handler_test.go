package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, caller loan.Address, collateral loan.CollateralRef, principal *big.Int, rateBps, durationSeconds int64) (*loan.Loan, error) {
	args := m.Called(ctx, caller, collateral, principal, rateBps, durationSeconds)
	if created, ok := args.Get(0).(*loan.Loan); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) FundLoan(ctx context.Context, caller loan.Address, loanID int64, token loan.Address) (*loan.Loan, error) {
	args := m.Called(ctx, caller, loanID, token)
	if funded, ok := args.Get(0).(*loan.Loan); ok {
		return funded, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) CalculateRepaymentAmount(ctx context.Context, loanID int64) (*big.Int, error) {
	args := m.Called(ctx, loanID)
	if amount, ok := args.Get(0).(*big.Int); ok {
		return amount, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) RepayLoan(ctx context.Context, caller loan.Address, loanID int64, token loan.Address) (*loan.Loan, error) {
	args := m.Called(ctx, caller, loanID, token)
	if repaid, ok := args.Get(0).(*loan.Loan); ok {
		return repaid, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) LiquidateLoan(ctx context.Context, caller loan.Address, loanID int64) (*loan.Loan, error) {
	args := m.Called(ctx, caller, loanID)
	if liquidated, ok := args.Get(0).(*loan.Loan); ok {
		return liquidated, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID int64) (*loan.Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) GetPlatformFee(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLoanService) GetDurationLimits(ctx context.Context) (int64, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockLoanService) SetPlatformFee(ctx context.Context, caller loan.Address, newFeeBps int64) error {
	return m.Called(ctx, caller, newFeeBps).Error(0)
}

func (m *MockLoanService) SetDurationLimits(ctx context.Context, caller loan.Address, minSeconds, maxSeconds int64) error {
	return m.Called(ctx, caller, minSeconds, maxSeconds).Error(0)
}

var testLogger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

func withLoanID(req *http.Request, id string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{Keys: []string{"loanID"}, Values: []string{id}},
	}))
}

func sampleLoan() *loan.Loan {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &loan.Loan{
		ID:              1,
		Borrower:        "0xborrower",
		Lender:          "0xlender",
		NFTContract:     "0xnft",
		TokenID:         big.NewInt(7),
		Principal:       big.NewInt(1000),
		InterestRateBps: 1000,
		StartTime:       &start,
		DurationSeconds: 2_592_000,
		Status:          loan.StatusActive,
	}
}

func TestLoanHandlerCreateLoan(t *testing.T) {
	t.Run("successfully creates loan", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		created := sampleLoan()
		created.Lender = ""
		created.StartTime = nil
		created.Status = loan.StatusCreated

		mockService.On("CreateLoan", mock.Anything, loan.Address("0xborrower"),
			loan.CollateralRef{Contract: "0xnft", TokenID: big.NewInt(7)},
			big.NewInt(1000), int64(1000), int64(2_592_000)).Return(created, nil)

		body := `{"borrower":"0xborrower","nftContract":"0xnft","tokenId":"7","amount":"1000","interestRateBps":1000,"durationSeconds":2592000}`
		req := httptest.NewRequest(http.MethodPost, "/loans", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		handler.CreateLoan(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.LoanResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "1", resp.ID)
		assert.Equal(t, "CREATED", resp.Status)
		assert.Empty(t, resp.Lender)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects fractional amount", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		body := `{"borrower":"0xborrower","nftContract":"0xnft","tokenId":"7","amount":"10.5","interestRateBps":1000,"durationSeconds":2592000}`
		req := httptest.NewRequest(http.MethodPost, "/loans", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		handler.CreateLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		body := `{"borrower":"0xborrower","bogus":true}`
		req := httptest.NewRequest(http.MethodPost, "/loans", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		handler.CreateLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps collateral ownership failure to 403", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		mockService.On("CreateLoan", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperrors.ErrNotCollateralOwner)

		body := `{"borrower":"0xborrower","nftContract":"0xnft","tokenId":"7","amount":"1000","interestRateBps":1000,"durationSeconds":2592000}`
		req := httptest.NewRequest(http.MethodPost, "/loans", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		handler.CreateLoan(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestLoanHandlerGetLoan(t *testing.T) {
	t.Run("successfully retrieves loan", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		mockService.On("GetLoan", mock.Anything, int64(1)).Return(sampleLoan(), nil)

		req := withLoanID(httptest.NewRequest(http.MethodGet, "/loans/1", nil), "1")
		rec := httptest.NewRecorder()

		handler.GetLoan(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "1", resp.ID)
		assert.Equal(t, "0xlender", resp.Lender)
		assert.Equal(t, "1000", resp.Amount)
	})

	t.Run("unknown loan yields 404", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		mockService.On("GetLoan", mock.Anything, int64(42)).Return(nil, apperrors.ErrLoanNotFound)

		req := withLoanID(httptest.NewRequest(http.MethodGet, "/loans/42", nil), "42")
		rec := httptest.NewRecorder()

		handler.GetLoan(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric id yields 400", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		req := withLoanID(httptest.NewRequest(http.MethodGet, "/loans/abc", nil), "abc")
		rec := httptest.NewRecorder()

		handler.GetLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoanHandlerFundLoan(t *testing.T) {
	t.Run("successfully funds loan", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		mockService.On("FundLoan", mock.Anything, loan.Address("0xlender"), int64(1), loan.Address("0xusd")).
			Return(sampleLoan(), nil)

		body := `{"lender":"0xlender","token":"0xusd"}`
		req := withLoanID(httptest.NewRequest(http.MethodPost, "/loans/1/fund", bytes.NewBufferString(body)), "1")
		rec := httptest.NewRecorder()

		handler.FundLoan(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "ACTIVE", resp.Status)
	})

	t.Run("double funding yields 409", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		mockService.On("FundLoan", mock.Anything, loan.Address("0xlender"), int64(1), loan.Address("0xusd")).
			Return(nil, apperrors.ErrLoanAlreadyFunded)

		body := `{"lender":"0xlender","token":"0xusd"}`
		req := withLoanID(httptest.NewRequest(http.MethodPost, "/loans/1/fund", bytes.NewBufferString(body)), "1")
		rec := httptest.NewRecorder()

		handler.FundLoan(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing lender yields 400", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		body := `{"token":"0xusd"}`
		req := withLoanID(httptest.NewRequest(http.MethodPost, "/loans/1/fund", bytes.NewBufferString(body)), "1")
		rec := httptest.NewRecorder()

		handler.FundLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "FundLoan", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLoanHandlerGetRepaymentAmount(t *testing.T) {
	mockService := new(MockLoanService)
	handler := NewLoanHandler(mockService, testLogger)

	mockService.On("CalculateRepaymentAmount", mock.Anything, int64(1)).Return(big.NewInt(1004), nil)

	req := withLoanID(httptest.NewRequest(http.MethodGet, "/loans/1/repayment-amount", nil), "1")
	rec := httptest.NewRecorder()

	handler.GetRepaymentAmount(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.RepaymentAmountResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "1004", resp.RepaymentAmount)
	assert.Equal(t, "1", resp.LoanID)
}

func TestLoanHandlerRepayLoan(t *testing.T) {
	t.Run("successfully repays loan", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		repaid := sampleLoan()
		repaid.Status = loan.StatusRepaid

		mockService.On("RepayLoan", mock.Anything, loan.Address("0xborrower"), int64(1), loan.Address("0xusd")).
			Return(repaid, nil)

		body := `{"borrower":"0xborrower","token":"0xusd"}`
		req := withLoanID(httptest.NewRequest(http.MethodPost, "/loans/1/repay", bytes.NewBufferString(body)), "1")
		rec := httptest.NewRecorder()

		handler.RepayLoan(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "REPAID", resp.Status)
	})

	t.Run("non-borrower yields 403", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		mockService.On("RepayLoan", mock.Anything, loan.Address("0xintruder"), int64(1), loan.Address("0xusd")).
			Return(nil, apperrors.ErrNotBorrower)

		body := `{"borrower":"0xintruder","token":"0xusd"}`
		req := withLoanID(httptest.NewRequest(http.MethodPost, "/loans/1/repay", bytes.NewBufferString(body)), "1")
		rec := httptest.NewRecorder()

		handler.RepayLoan(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestLoanHandlerLiquidateLoan(t *testing.T) {
	t.Run("successfully liquidates loan", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		liquidated := sampleLoan()
		liquidated.Status = loan.StatusLiquidated

		mockService.On("LiquidateLoan", mock.Anything, loan.Address("0xlender"), int64(1)).
			Return(liquidated, nil)

		body := `{"lender":"0xlender"}`
		req := withLoanID(httptest.NewRequest(http.MethodPost, "/loans/1/liquidate", bytes.NewBufferString(body)), "1")
		rec := httptest.NewRecorder()

		handler.LiquidateLoan(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "LIQUIDATED", resp.Status)
	})

	t.Run("unexpired loan yields 409", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger)

		mockService.On("LiquidateLoan", mock.Anything, loan.Address("0xlender"), int64(1)).
			Return(nil, apperrors.ErrLoanNotExpired)

		body := `{"lender":"0xlender"}`
		req := withLoanID(httptest.NewRequest(http.MethodPost, "/loans/1/liquidate", bytes.NewBufferString(body)), "1")
		rec := httptest.NewRecorder()

		handler.LiquidateLoan(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
