package loan

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository persists loan records and the protocol configuration singleton.
// Loan ids are allocated from the configuration counter inside the creating
// transaction, so a rolled-back creation never consumes an id.
type Repository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CommitTx(ctx context.Context, tx pgx.Tx) error
	RollbackTx(ctx context.Context, tx pgx.Tx) error

	CreateLoanInTx(ctx context.Context, tx pgx.Tx, l *Loan) (*Loan, error)
	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)
	GetLoanForUpdateInTx(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error)
	UpdateLoanInTx(ctx context.Context, tx pgx.Tx, l *Loan) error

	EnsureConfig(ctx context.Context, defaults *ProtocolConfig) error
	GetConfig(ctx context.Context) (*ProtocolConfig, error)
	GetConfigInTx(ctx context.Context, tx pgx.Tx) (*ProtocolConfig, error)
	GetConfigForUpdateInTx(ctx context.Context, tx pgx.Tx) (*ProtocolConfig, error)
	UpdateConfigInTx(ctx context.Context, tx pgx.Tx, cfg *ProtocolConfig) error

	GetExpiredActiveLoanIDs(ctx context.Context, asOf time.Time) ([]int64, error)
}
