package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lending-engine/internal/domain/loan"
	"lending-engine/internal/infrastructure/monitoring"
)

// ExpirySweepJob periodically surfaces active loans whose term has elapsed
// without repayment. It never liquidates on its own: claiming the collateral
// is the lender's call. The sweep only reports, through logs and the
// expired-loans gauge, what is currently claimable.
type ExpirySweepJob struct {
	loanRepo loan.Repository
	logger   *slog.Logger
	now      func() time.Time
}

func NewExpirySweepJob(loanRepo loan.Repository, logger *slog.Logger) *ExpirySweepJob {
	if loanRepo == nil || logger == nil {
		panic("ExpirySweepJob dependencies cannot be nil")
	}
	return &ExpirySweepJob{
		loanRepo: loanRepo,
		logger:   logger.With("job", "ExpirySweep"),
		now:      time.Now,
	}
}

func (j *ExpirySweepJob) Run(ctx context.Context) error {
	startTime := time.Now()
	asOf := j.now().UTC()
	j.logger.InfoContext(ctx, "Starting loan expiry sweep.", slog.Time("as_of", asOf))

	expiredIDs, err := j.loanRepo.GetExpiredActiveLoanIDs(ctx, asOf)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get expired active loan IDs, aborting sweep.", slog.Any("error", err))
		return fmt.Errorf("cannot run sweep, failed to get expired loans: %w", err)
	}

	monitoring.SetExpiredActiveLoans(len(expiredIDs))

	for _, loanID := range expiredIDs {
		j.logger.InfoContext(ctx, "Loan past its term and eligible for liquidation.", slog.Int64("loanID", loanID))
	}

	j.logger.InfoContext(ctx, "Loan expiry sweep finished.",
		slog.Int("expired_active_loans", len(expiredIDs)),
		slog.Duration("duration", time.Since(startTime)),
	)
	return nil
}
