package loan

import (
	"math/big"
	"strings"
	"time"
)

const (
	DefaultPlatformFeeBps     = int64(50)
	DefaultMinDurationSeconds = int64(24 * 60 * 60)
	DefaultMaxDurationSeconds = int64(365 * 24 * 60 * 60)

	// MaxPlatformFeeBps caps the fee at 10%.
	MaxPlatformFeeBps = int64(1000)
)

// Address identifies a party or an asset contract. Comparison is
// case-insensitive so hex-encoded addresses match regardless of casing.
type Address string

const ZeroAddress Address = ""

func (a Address) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}

func (a Address) Equal(b Address) bool {
	return strings.EqualFold(strings.TrimSpace(string(a)), strings.TrimSpace(string(b)))
}

func (a Address) String() string {
	return string(a)
}

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusActive     Status = "ACTIVE"
	StatusRepaid     Status = "REPAID"
	StatusLiquidated Status = "LIQUIDATED"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusRepaid || s == StatusLiquidated
}

// CollateralRef identifies a single non-fungible token.
type CollateralRef struct {
	Contract Address
	TokenID  *big.Int
}

type Loan struct {
	ID              int64
	Borrower        Address
	Lender          Address
	NFTContract     Address
	TokenID         *big.Int
	Principal       *big.Int
	InterestRateBps int64
	StartTime       *time.Time
	DurationSeconds int64
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (l *Loan) Collateral() CollateralRef {
	return CollateralRef{Contract: l.NFTContract, TokenID: l.TokenID}
}

// ExpiresAt returns the liquidation threshold instant. The second return is
// false while the loan has not been funded.
func (l *Loan) ExpiresAt() (time.Time, bool) {
	if l.StartTime == nil {
		return time.Time{}, false
	}
	return l.StartTime.Add(time.Duration(l.DurationSeconds) * time.Second), true
}

// ElapsedSeconds reports whole seconds since funding, truncated toward zero.
func (l *Loan) ElapsedSeconds(now time.Time) int64 {
	if l.StartTime == nil {
		return 0
	}
	elapsed := now.Unix() - l.StartTime.Unix()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Expired reports whether now is strictly past startTime + duration. The
// exact expiry instant does not yet permit liquidation.
func (l *Loan) Expired(now time.Time) bool {
	if l.StartTime == nil {
		return false
	}
	return now.Unix() > l.StartTime.Unix()+l.DurationSeconds
}

// ProtocolConfig is the process-wide singleton mutated only by the owner.
// TotalLoans is the next loan id to allocate.
type ProtocolConfig struct {
	PlatformFeeBps     int64
	MinDurationSeconds int64
	MaxDurationSeconds int64
	TotalLoans         int64
	UpdatedAt          time.Time
}

func DefaultProtocolConfig() *ProtocolConfig {
	return &ProtocolConfig{
		PlatformFeeBps:     DefaultPlatformFeeBps,
		MinDurationSeconds: DefaultMinDurationSeconds,
		MaxDurationSeconds: DefaultMaxDurationSeconds,
	}
}
