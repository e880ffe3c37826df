package dto

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"lending-engine/internal/domain/loan"

	"github.com/shopspring/decimal"
)

type CreateLoanRequest struct {
	Borrower        string `json:"borrower"`
	NFTContract     string `json:"nftContract"`
	TokenID         string `json:"tokenId"`
	Amount          string `json:"amount"`
	InterestRateBps int64  `json:"interestRateBps"`
	DurationSeconds int64  `json:"durationSeconds"`
}

func (r *CreateLoanRequest) Validate() error {
	if strings.TrimSpace(r.Borrower) == "" {
		return fmt.Errorf("borrower is required")
	}
	if strings.TrimSpace(r.NFTContract) == "" {
		return fmt.Errorf("nftContract is required")
	}
	if err := validateUint(r.TokenID, "tokenId"); err != nil {
		return err
	}
	if err := validateAmount(r.Amount); err != nil {
		return err
	}
	if r.InterestRateBps <= 0 {
		return fmt.Errorf("interestRateBps must be greater than zero")
	}
	if r.DurationSeconds <= 0 {
		return fmt.Errorf("durationSeconds must be greater than zero")
	}
	return nil
}

type FundLoanRequest struct {
	Lender string `json:"lender"`
	Token  string `json:"token"`
}

func (r *FundLoanRequest) Validate() error {
	if strings.TrimSpace(r.Lender) == "" {
		return fmt.Errorf("lender is required")
	}
	if strings.TrimSpace(r.Token) == "" {
		return fmt.Errorf("token is required")
	}
	return nil
}

type RepayLoanRequest struct {
	Borrower string `json:"borrower"`
	Token    string `json:"token"`
}

func (r *RepayLoanRequest) Validate() error {
	if strings.TrimSpace(r.Borrower) == "" {
		return fmt.Errorf("borrower is required")
	}
	if strings.TrimSpace(r.Token) == "" {
		return fmt.Errorf("token is required")
	}
	return nil
}

type LiquidateLoanRequest struct {
	Lender string `json:"lender"`
}

func (r *LiquidateLoanRequest) Validate() error {
	if strings.TrimSpace(r.Lender) == "" {
		return fmt.Errorf("lender is required")
	}
	return nil
}

type SetPlatformFeeRequest struct {
	Caller string `json:"caller"`
	FeeBps int64  `json:"feeBps"`
}

func (r *SetPlatformFeeRequest) Validate() error {
	if strings.TrimSpace(r.Caller) == "" {
		return fmt.Errorf("caller is required")
	}
	return nil
}

type SetDurationLimitsRequest struct {
	Caller             string `json:"caller"`
	MinDurationSeconds int64  `json:"minDurationSeconds"`
	MaxDurationSeconds int64  `json:"maxDurationSeconds"`
}

func (r *SetDurationLimitsRequest) Validate() error {
	if strings.TrimSpace(r.Caller) == "" {
		return fmt.Errorf("caller is required")
	}
	return nil
}

type LoanResponse struct {
	ID              string     `json:"id"`
	Borrower        string     `json:"borrower"`
	Lender          string     `json:"lender,omitempty"`
	NFTContract     string     `json:"nftContract"`
	TokenID         string     `json:"tokenId"`
	Amount          string     `json:"amount"`
	InterestRateBps int64      `json:"interestRateBps"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	DurationSeconds int64      `json:"durationSeconds"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type RepaymentAmountResponse struct {
	LoanID          string `json:"loanId"`
	RepaymentAmount string `json:"repaymentAmount"`
}

type ProtocolConfigResponse struct {
	PlatformFeeBps     int64 `json:"platformFeeBps"`
	MinDurationSeconds int64 `json:"minDurationSeconds"`
	MaxDurationSeconds int64 `json:"maxDurationSeconds"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}

func NewLoanResponse(domainLoan *loan.Loan) LoanResponse {
	resp := LoanResponse{
		ID:              strconv.FormatInt(domainLoan.ID, 10),
		Borrower:        domainLoan.Borrower.String(),
		NFTContract:     domainLoan.NFTContract.String(),
		TokenID:         domainLoan.TokenID.String(),
		Amount:          domainLoan.Principal.String(),
		InterestRateBps: domainLoan.InterestRateBps,
		StartTime:       domainLoan.StartTime,
		DurationSeconds: domainLoan.DurationSeconds,
		Status:          string(domainLoan.Status),
		CreatedAt:       domainLoan.CreatedAt,
		UpdatedAt:       domainLoan.UpdatedAt,
	}
	if !domainLoan.Lender.IsZero() {
		resp.Lender = domainLoan.Lender.String()
	}
	return resp
}

// ParseAmount converts a validated decimal string into the integer the
// domain layer works with.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount %q", s)
	}
	return v, nil
}

func validateAmount(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil || s == "" {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if !d.IsInteger() {
		return fmt.Errorf("amount must be an integer number of base units")
	}
	if !d.IsPositive() {
		return fmt.Errorf("amount must be greater than zero")
	}
	return nil
}

func validateUint(s, field string) error {
	d, err := decimal.NewFromString(s)
	if err != nil || s == "" {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if !d.IsInteger() || d.IsNegative() {
		return fmt.Errorf("%s must be a non-negative integer", field)
	}
	return nil
}
