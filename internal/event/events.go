package event

import (
	"context"
	"time"
)

type LoanCreatedEvent struct {
	LoanID       int64     `json:"loanId"`
	Borrower     string    `json:"borrower"`
	NFTContract  string    `json:"nftContract"`
	TokenID      string    `json:"tokenId"`
	LoanAmount   string    `json:"loanAmount"`
	InterestRate int64     `json:"interestRate"`
	Duration     int64     `json:"duration"`
	Timestamp    time.Time `json:"timestamp"`
}

type LoanFundedEvent struct {
	LoanID    int64     `json:"loanId"`
	Lender    string    `json:"lender"`
	Timestamp time.Time `json:"timestamp"`
}

type LoanRepaidEvent struct {
	LoanID    int64     `json:"loanId"`
	Timestamp time.Time `json:"timestamp"`
}

type LoanLiquidatedEvent struct {
	LoanID    int64     `json:"loanId"`
	Timestamp time.Time `json:"timestamp"`
}

type PlatformFeeUpdatedEvent struct {
	NewFee    int64     `json:"newFee"`
	Timestamp time.Time `json:"timestamp"`
}

type DurationLimitsUpdatedEvent struct {
	MinDuration int64     `json:"minDuration"`
	MaxDuration int64     `json:"maxDuration"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher emits the protocol notifications. Implementations are
// best-effort: state transitions never roll back on a failed publish.
type Publisher interface {
	PublishLoanCreated(ctx context.Context, e LoanCreatedEvent) error
	PublishLoanFunded(ctx context.Context, e LoanFundedEvent) error
	PublishLoanRepaid(ctx context.Context, e LoanRepaidEvent) error
	PublishLoanLiquidated(ctx context.Context, e LoanLiquidatedEvent) error
	PublishPlatformFeeUpdated(ctx context.Context, e PlatformFeeUpdatedEvent) error
	PublishDurationLimitsUpdated(ctx context.Context, e DurationLimitsUpdatedEvent) error
}

// NoopPublisher drops every event. Used when the message broker is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishLoanCreated(context.Context, LoanCreatedEvent) error   { return nil }
func (NoopPublisher) PublishLoanFunded(context.Context, LoanFundedEvent) error     { return nil }
func (NoopPublisher) PublishLoanRepaid(context.Context, LoanRepaidEvent) error     { return nil }
func (NoopPublisher) PublishLoanLiquidated(context.Context, LoanLiquidatedEvent) error {
	return nil
}
func (NoopPublisher) PublishPlatformFeeUpdated(context.Context, PlatformFeeUpdatedEvent) error {
	return nil
}
func (NoopPublisher) PublishDurationLimitsUpdated(context.Context, DurationLimitsUpdatedEvent) error {
	return nil
}
