package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"lending-engine/internal/event"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

// LoanService orchestrates the four lifecycle transitions and the two admin
// operations. Caller identity is an explicit parameter on every mutating
// operation; the clock is injected so the state machine is testable without
// a live host.
type LoanService interface {
	CreateLoan(ctx context.Context, caller Address, collateral CollateralRef, principal *big.Int, rateBps, durationSeconds int64) (*Loan, error)

	FundLoan(ctx context.Context, caller Address, loanID int64, token Address) (*Loan, error)

	CalculateRepaymentAmount(ctx context.Context, loanID int64) (*big.Int, error)

	RepayLoan(ctx context.Context, caller Address, loanID int64, token Address) (*Loan, error)

	LiquidateLoan(ctx context.Context, caller Address, loanID int64) (*Loan, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	GetPlatformFee(ctx context.Context) (int64, error)

	GetDurationLimits(ctx context.Context) (int64, int64, error)

	SetPlatformFee(ctx context.Context, caller Address, newFeeBps int64) error

	SetDurationLimits(ctx context.Context, caller Address, minSeconds, maxSeconds int64) error
}

type loanServiceImpl struct {
	repo         Repository
	escrow       *Escrow
	authority    OwnerAuthority
	feeRecipient Address
	publisher    event.Publisher
	logger       *slog.Logger
	now          func() time.Time
}

func NewLoanService(repo Repository, escrow *Escrow, authority OwnerAuthority, feeRecipient Address, publisher event.Publisher, logger *slog.Logger) LoanService {
	return &loanServiceImpl{
		repo:         repo,
		escrow:       escrow,
		authority:    authority,
		feeRecipient: feeRecipient,
		publisher:    publisher,
		logger:       logger.With("component", "LoanService"),
		now:          time.Now,
	}
}

func (s *loanServiceImpl) recordTransition(operation string, errp *error) {
	status := "success"
	if *errp != nil {
		status = "failure"
	}
	monitoring.RecordLoanTransition(operation, status)
}

// rollbackOnError is deferred inside every transactional operation so that a
// failure at any sub-step leaves no observable state change.
func (s *loanServiceImpl) rollbackOnError(ctx context.Context, txRollback func() error, errp *error) {
	if p := recover(); p != nil {
		_ = txRollback()
		panic(p)
	}
	if *errp != nil {
		s.logger.ErrorContext(ctx, "Rolling back transaction due to error", "error", *errp)
		_ = txRollback()
	}
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, caller Address, collateral CollateralRef, principal *big.Int, rateBps, durationSeconds int64) (created *Loan, err error) {
	s.logger.InfoContext(ctx, "Creating loan", "borrower", caller.String())
	defer s.recordTransition("create", &err)

	if caller.IsZero() {
		return nil, fmt.Errorf("%w: borrower address is empty", apperrors.ErrInvalidArgument)
	}
	if collateral.Contract.IsZero() || collateral.TokenID == nil {
		return nil, fmt.Errorf("%w: collateral reference is incomplete", apperrors.ErrInvalidArgument)
	}
	if principal == nil || principal.Sign() <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if rateBps <= 0 {
		return nil, apperrors.ErrInvalidRate
	}

	// Bounds are checked before anything touches the id counter, so a
	// rejected creation never consumes a loan id.
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load protocol config: %v", apperrors.ErrInternalServer, err)
	}
	if durationSeconds < cfg.MinDurationSeconds || durationSeconds > cfg.MaxDurationSeconds {
		return nil, fmt.Errorf("%w: duration %ds outside [%ds, %ds]",
			apperrors.ErrInvalidDuration, durationSeconds, cfg.MinDurationSeconds, cfg.MaxDurationSeconds)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer s.rollbackOnError(ctx, func() error { return s.repo.RollbackTx(ctx, tx) }, &err)

	owner, err := s.escrow.CollateralOwner(ctx, tx, collateral)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: collateral token is unknown", apperrors.ErrNotCollateralOwner)
		}
		return nil, fmt.Errorf("%w: failed to resolve collateral owner: %v", apperrors.ErrInternalServer, err)
	}
	if !owner.Equal(caller) {
		return nil, apperrors.ErrNotCollateralOwner
	}

	approved, err := s.escrow.HasTransferApproval(ctx, tx, collateral, caller)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to check collateral approval: %v", apperrors.ErrInternalServer, err)
	}
	if !approved {
		return nil, apperrors.ErrCollateralNotApproved
	}

	created, err = s.repo.CreateLoanInTx(ctx, tx, &Loan{
		Borrower:        caller,
		NFTContract:     collateral.Contract,
		TokenID:         collateral.TokenID,
		Principal:       principal,
		InterestRateBps: rateBps,
		DurationSeconds: durationSeconds,
		Status:          StatusCreated,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to store loan: %v", apperrors.ErrInternalServer, err)
	}

	if err = s.escrow.TakeCollateral(ctx, tx, collateral, caller); err != nil {
		return nil, err
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	s.publishLoanCreated(ctx, created)
	s.logger.InfoContext(ctx, "Loan created", "loanID", created.ID, "borrower", caller.String())
	return created, nil
}

func (s *loanServiceImpl) FundLoan(ctx context.Context, caller Address, loanID int64, token Address) (funded *Loan, err error) {
	s.logger.InfoContext(ctx, "Funding loan", "loanID", loanID, "lender", caller.String())
	defer s.recordTransition("fund", &err)

	if caller.IsZero() {
		return nil, fmt.Errorf("%w: lender address is empty", apperrors.ErrInvalidArgument)
	}
	if token.IsZero() {
		return nil, fmt.Errorf("%w: token address is empty", apperrors.ErrInvalidArgument)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer s.rollbackOnError(ctx, func() error { return s.repo.RollbackTx(ctx, tx) }, &err)

	l, err := s.loadLoanForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if l.Status != StatusCreated {
		return nil, fmt.Errorf("%w: loan %d is %s", apperrors.ErrLoanAlreadyFunded, loanID, l.Status)
	}

	cfg, err := s.repo.GetConfigInTx(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load protocol config: %v", apperrors.ErrInternalServer, err)
	}

	fee := PlatformFee(l.Principal, cfg.PlatformFeeBps)
	if err = s.escrow.CollectFunding(ctx, tx, token, caller, fee, l.Principal, s.feeRecipient, l.Borrower); err != nil {
		return nil, err
	}

	startTime := s.now().UTC()
	l.Lender = caller
	l.StartTime = &startTime
	l.Status = StatusActive
	if err = s.repo.UpdateLoanInTx(ctx, tx, l); err != nil {
		return nil, fmt.Errorf("%w: failed to update loan: %v", apperrors.ErrInternalServer, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	s.publishLoanFunded(ctx, l)
	s.logger.InfoContext(ctx, "Loan funded", "loanID", loanID, "lender", caller.String(), "fee", fee.String())
	return l, nil
}

func (s *loanServiceImpl) CalculateRepaymentAmount(ctx context.Context, loanID int64) (*big.Int, error) {
	l, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if l.Status != StatusActive {
		return nil, fmt.Errorf("%w: loan %d is %s", apperrors.ErrLoanNotActive, loanID, l.Status)
	}
	return RepaymentDue(l.Principal, l.InterestRateBps, l.ElapsedSeconds(s.now())), nil
}

func (s *loanServiceImpl) RepayLoan(ctx context.Context, caller Address, loanID int64, token Address) (repaid *Loan, err error) {
	s.logger.InfoContext(ctx, "Repaying loan", "loanID", loanID, "caller", caller.String())
	defer s.recordTransition("repay", &err)

	if token.IsZero() {
		return nil, fmt.Errorf("%w: token address is empty", apperrors.ErrInvalidArgument)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer s.rollbackOnError(ctx, func() error { return s.repo.RollbackTx(ctx, tx) }, &err)

	l, err := s.loadLoanForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if l.Status != StatusActive {
		return nil, fmt.Errorf("%w: loan %d is %s", apperrors.ErrLoanNotActive, loanID, l.Status)
	}
	if !caller.Equal(l.Borrower) {
		return nil, apperrors.ErrNotBorrower
	}

	due := RepaymentDue(l.Principal, l.InterestRateBps, l.ElapsedSeconds(s.now()))
	if err = s.escrow.SettleRepayment(ctx, tx, token, l.Borrower, l.Lender, due); err != nil {
		return nil, err
	}
	if err = s.escrow.ReleaseCollateral(ctx, tx, l.Collateral(), l.Borrower); err != nil {
		return nil, err
	}

	l.Status = StatusRepaid
	if err = s.repo.UpdateLoanInTx(ctx, tx, l); err != nil {
		return nil, fmt.Errorf("%w: failed to update loan: %v", apperrors.ErrInternalServer, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	s.publishLoanRepaid(ctx, l)
	s.logger.InfoContext(ctx, "Loan repaid", "loanID", loanID, "amount", due.String())
	return l, nil
}

func (s *loanServiceImpl) LiquidateLoan(ctx context.Context, caller Address, loanID int64) (liquidated *Loan, err error) {
	s.logger.InfoContext(ctx, "Liquidating loan", "loanID", loanID, "caller", caller.String())
	defer s.recordTransition("liquidate", &err)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer s.rollbackOnError(ctx, func() error { return s.repo.RollbackTx(ctx, tx) }, &err)

	l, err := s.loadLoanForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if l.Status != StatusActive {
		return nil, fmt.Errorf("%w: loan %d is %s", apperrors.ErrLoanNotActive, loanID, l.Status)
	}
	if !caller.Equal(l.Lender) {
		return nil, apperrors.ErrNotLender
	}
	if !l.Expired(s.now()) {
		return nil, apperrors.ErrLoanNotExpired
	}

	// No fungible transfer: the lender keeps the collateral in lieu of
	// principal and interest.
	if err = s.escrow.ReleaseCollateral(ctx, tx, l.Collateral(), l.Lender); err != nil {
		return nil, err
	}

	l.Status = StatusLiquidated
	if err = s.repo.UpdateLoanInTx(ctx, tx, l); err != nil {
		return nil, fmt.Errorf("%w: failed to update loan: %v", apperrors.ErrInternalServer, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	s.publishLoanLiquidated(ctx, l)
	s.logger.InfoContext(ctx, "Loan liquidated", "loanID", loanID, "lender", caller.String())
	return l, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan %d", apperrors.ErrLoanNotFound, loanID)
		}
		return nil, fmt.Errorf("%w: failed to load loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	return l, nil
}

func (s *loanServiceImpl) GetPlatformFee(ctx context.Context) (int64, error) {
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to load protocol config: %v", apperrors.ErrInternalServer, err)
	}
	return cfg.PlatformFeeBps, nil
}

func (s *loanServiceImpl) GetDurationLimits(ctx context.Context) (int64, int64, error) {
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: failed to load protocol config: %v", apperrors.ErrInternalServer, err)
	}
	return cfg.MinDurationSeconds, cfg.MaxDurationSeconds, nil
}

func (s *loanServiceImpl) SetPlatformFee(ctx context.Context, caller Address, newFeeBps int64) (err error) {
	s.logger.InfoContext(ctx, "Updating platform fee", "caller", caller.String(), "newFeeBps", newFeeBps)
	defer s.recordTransition("set_fee", &err)

	if err = s.authority.EnforceIsOwner(caller); err != nil {
		return err
	}
	if newFeeBps < 0 {
		return fmt.Errorf("%w: fee must not be negative", apperrors.ErrInvalidArgument)
	}
	if newFeeBps > MaxPlatformFeeBps {
		return fmt.Errorf("%w: %d bps exceeds %d bps", apperrors.ErrFeeTooHigh, newFeeBps, MaxPlatformFeeBps)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer s.rollbackOnError(ctx, func() error { return s.repo.RollbackTx(ctx, tx) }, &err)

	cfg, err := s.repo.GetConfigForUpdateInTx(ctx, tx)
	if err != nil {
		return fmt.Errorf("%w: failed to load protocol config: %v", apperrors.ErrInternalServer, err)
	}
	cfg.PlatformFeeBps = newFeeBps
	if err = s.repo.UpdateConfigInTx(ctx, tx, cfg); err != nil {
		return fmt.Errorf("%w: failed to update protocol config: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	s.publishPlatformFeeUpdated(ctx, newFeeBps)
	s.logger.InfoContext(ctx, "Platform fee updated", "newFeeBps", newFeeBps)
	return nil
}

// SetDurationLimits stores the limits verbatim: min <= max is deliberately
// not enforced, matching the permissive admin surface. Only future
// createLoan calls are affected.
func (s *loanServiceImpl) SetDurationLimits(ctx context.Context, caller Address, minSeconds, maxSeconds int64) (err error) {
	s.logger.InfoContext(ctx, "Updating duration limits", "caller", caller.String(), "min", minSeconds, "max", maxSeconds)
	defer s.recordTransition("set_duration_limits", &err)

	if err = s.authority.EnforceIsOwner(caller); err != nil {
		return err
	}
	if minSeconds < 0 || maxSeconds < 0 {
		return fmt.Errorf("%w: durations must not be negative", apperrors.ErrInvalidArgument)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer s.rollbackOnError(ctx, func() error { return s.repo.RollbackTx(ctx, tx) }, &err)

	cfg, err := s.repo.GetConfigForUpdateInTx(ctx, tx)
	if err != nil {
		return fmt.Errorf("%w: failed to load protocol config: %v", apperrors.ErrInternalServer, err)
	}
	cfg.MinDurationSeconds = minSeconds
	cfg.MaxDurationSeconds = maxSeconds
	if err = s.repo.UpdateConfigInTx(ctx, tx, cfg); err != nil {
		return fmt.Errorf("%w: failed to update protocol config: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	s.publishDurationLimitsUpdated(ctx, minSeconds, maxSeconds)
	s.logger.InfoContext(ctx, "Duration limits updated", "min", minSeconds, "max", maxSeconds)
	return nil
}

func (s *loanServiceImpl) loadLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error) {
	l, err := s.repo.GetLoanForUpdateInTx(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan %d", apperrors.ErrLoanNotFound, loanID)
		}
		return nil, fmt.Errorf("%w: failed to load loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	return l, nil
}

func (s *loanServiceImpl) publishLoanCreated(ctx context.Context, l *Loan) {
	evt := event.LoanCreatedEvent{
		LoanID:       l.ID,
		Borrower:     l.Borrower.String(),
		NFTContract:  l.NFTContract.String(),
		TokenID:      l.TokenID.String(),
		LoanAmount:   l.Principal.String(),
		InterestRate: l.InterestRateBps,
		Duration:     l.DurationSeconds,
		Timestamp:    s.now().UTC(),
	}
	if err := s.publisher.PublishLoanCreated(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish loan created event", "loanID", l.ID, "error", err)
	}
}

func (s *loanServiceImpl) publishLoanFunded(ctx context.Context, l *Loan) {
	evt := event.LoanFundedEvent{LoanID: l.ID, Lender: l.Lender.String(), Timestamp: s.now().UTC()}
	if err := s.publisher.PublishLoanFunded(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish loan funded event", "loanID", l.ID, "error", err)
	}
}

func (s *loanServiceImpl) publishLoanRepaid(ctx context.Context, l *Loan) {
	evt := event.LoanRepaidEvent{LoanID: l.ID, Timestamp: s.now().UTC()}
	if err := s.publisher.PublishLoanRepaid(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish loan repaid event", "loanID", l.ID, "error", err)
	}
}

func (s *loanServiceImpl) publishLoanLiquidated(ctx context.Context, l *Loan) {
	evt := event.LoanLiquidatedEvent{LoanID: l.ID, Timestamp: s.now().UTC()}
	if err := s.publisher.PublishLoanLiquidated(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish loan liquidated event", "loanID", l.ID, "error", err)
	}
}

func (s *loanServiceImpl) publishPlatformFeeUpdated(ctx context.Context, newFeeBps int64) {
	evt := event.PlatformFeeUpdatedEvent{NewFee: newFeeBps, Timestamp: s.now().UTC()}
	if err := s.publisher.PublishPlatformFeeUpdated(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish platform fee updated event", "error", err)
	}
}

func (s *loanServiceImpl) publishDurationLimitsUpdated(ctx context.Context, minSeconds, maxSeconds int64) {
	evt := event.DurationLimitsUpdatedEvent{MinDuration: minSeconds, MaxDuration: maxSeconds, Timestamp: s.now().UTC()}
	if err := s.publisher.PublishDurationLimitsUpdated(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish duration limits updated event", "error", err)
	}
}
