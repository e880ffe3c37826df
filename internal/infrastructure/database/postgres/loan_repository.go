package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"lending-engine/internal/domain/loan"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

const loanColumns = `id, borrower, lender, nft_contract, token_id::text, principal::text, interest_rate_bps, start_time, duration_seconds, status, created_at, updated_at`

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

// CreateLoanInTx allocates the next loan id from the protocol_config counter
// and inserts the record in one transaction, so a rollback releases the id
// increment together with the row.
func (r *LoanRepository) CreateLoanInTx(ctx context.Context, tx pgx.Tx, newLoan *loan.Loan) (*loan.Loan, error) {
	allocateSQL := `
        UPDATE protocol_config
        SET total_loans = total_loans + 1, updated_at = NOW()
        WHERE id = 1
        RETURNING total_loans - 1`

	var loanID int64
	if err := tx.QueryRow(ctx, allocateSQL).Scan(&loanID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to allocate loan id", "error", err)
		return nil, fmt.Errorf("%w: failed to allocate loan id: %w", apperrors.ErrDatabase, err)
	}

	insertSQL := `
        INSERT INTO loans (id, borrower, nft_contract, token_id, principal, interest_rate_bps, duration_seconds, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, NOW(), NOW())
        RETURNING ` + loanColumns

	row := tx.QueryRow(ctx, insertSQL,
		loanID, newLoan.Borrower.String(), newLoan.NFTContract.String(),
		newLoan.TokenID.String(), newLoan.Principal.String(),
		newLoan.InterestRateBps, newLoan.DurationSeconds, newLoan.Status,
	)
	created, err := scanLoan(row)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, fmt.Errorf("%w: failed to insert loan: %w", apperrors.ErrDatabase, err)
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID)

	return created, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	status := "success"
	startTime := time.Now()

	l, err := scanLoan(r.db.QueryRow(ctx, query, loanID))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoanByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

// GetLoanForUpdateInTx locks the loan row for the duration of the enclosing
// transaction. This is the ordering guarantee for same-loan operations.
func (r *LoanRepository) GetLoanForUpdateInTx(ctx context.Context, tx pgx.Tx, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	l, err := scanLoan(tx.QueryRow(ctx, query, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found for update", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock loan row", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) UpdateLoanInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	sql := `
        UPDATE loans
        SET lender = $1, start_time = $2, status = $3, updated_at = NOW()
        WHERE id = $4`

	var lender *string
	if !l.Lender.IsZero() {
		v := l.Lender.String()
		lender = &v
	}

	cmdTag, err := tx.Exec(ctx, sql, lender, l.StartTime, l.Status, l.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Loan update affected zero rows", "loan_id", l.ID)
		return fmt.Errorf("%w: loan update affected zero rows", apperrors.ErrDatabase)
	}
	r.logger.InfoContext(ctx, "Loan updated in DB", "loan_id", l.ID, "status", l.Status)
	return nil
}

// EnsureConfig seeds the singleton config row once; later starts leave the
// stored values untouched.
func (r *LoanRepository) EnsureConfig(ctx context.Context, defaults *loan.ProtocolConfig) error {
	sql := `
        INSERT INTO protocol_config (id, platform_fee_bps, min_duration_seconds, max_duration_seconds, total_loans, updated_at)
        VALUES (1, $1, $2, $3, 0, NOW())
        ON CONFLICT (id) DO NOTHING`

	_, err := r.db.Exec(ctx, sql, defaults.PlatformFeeBps, defaults.MinDurationSeconds, defaults.MaxDurationSeconds)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to seed protocol config", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

const configQuery = `
        SELECT platform_fee_bps, min_duration_seconds, max_duration_seconds, total_loans, updated_at
        FROM protocol_config
        WHERE id = 1`

func (r *LoanRepository) GetConfig(ctx context.Context) (*loan.ProtocolConfig, error) {
	return r.scanConfig(ctx, r.db.QueryRow(ctx, configQuery))
}

func (r *LoanRepository) GetConfigInTx(ctx context.Context, tx pgx.Tx) (*loan.ProtocolConfig, error) {
	return r.scanConfig(ctx, tx.QueryRow(ctx, configQuery))
}

func (r *LoanRepository) GetConfigForUpdateInTx(ctx context.Context, tx pgx.Tx) (*loan.ProtocolConfig, error) {
	return r.scanConfig(ctx, tx.QueryRow(ctx, configQuery+` FOR UPDATE`))
}

func (r *LoanRepository) scanConfig(ctx context.Context, row pgx.Row) (*loan.ProtocolConfig, error) {
	var cfg loan.ProtocolConfig
	err := row.Scan(&cfg.PlatformFeeBps, &cfg.MinDurationSeconds, &cfg.MaxDurationSeconds, &cfg.TotalLoans, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Protocol config row missing")
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to load protocol config", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &cfg, nil
}

// UpdateConfigInTx writes the admin-mutable fields. The loan counter is only
// ever advanced by CreateLoanInTx.
func (r *LoanRepository) UpdateConfigInTx(ctx context.Context, tx pgx.Tx, cfg *loan.ProtocolConfig) error {
	sql := `
        UPDATE protocol_config
        SET platform_fee_bps = $1, min_duration_seconds = $2, max_duration_seconds = $3, updated_at = NOW()
        WHERE id = 1`

	cmdTag, err := tx.Exec(ctx, sql, cfg.PlatformFeeBps, cfg.MinDurationSeconds, cfg.MaxDurationSeconds)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update protocol config", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Protocol config update affected zero rows")
		return fmt.Errorf("%w: protocol config update affected zero rows", apperrors.ErrDatabase)
	}
	return nil
}

func (r *LoanRepository) GetExpiredActiveLoanIDs(ctx context.Context, asOf time.Time) ([]int64, error) {
	logCtx := r.logger.With(slog.String("operation", "GetExpiredActiveLoanIDs"))

	query := `
        SELECT id FROM loans
        WHERE status = $1
          AND start_time + make_interval(secs => duration_seconds::double precision) < $2
        ORDER BY id`

	rows, err := r.db.Query(ctx, query, loan.StatusActive, asOf)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to query expired active loans", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query expired active loans: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loanIDs := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			logCtx.ErrorContext(ctx, "Failed to scan expired loan ID row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed scanning expired loan ID: %w", apperrors.ErrDatabase, err)
		}
		loanIDs = append(loanIDs, id)
	}

	if err = rows.Err(); err != nil {
		logCtx.ErrorContext(ctx, "Error iterating expired loan ID rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating expired loan IDs: %w", apperrors.ErrDatabase, err)
	}

	return loanIDs, nil
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var (
		l          loan.Loan
		lender     *string
		tokenID    string
		principal  string
		statusText string
	)
	err := row.Scan(
		&l.ID, (*string)(&l.Borrower), &lender, (*string)(&l.NFTContract),
		&tokenID, &principal, &l.InterestRateBps, &l.StartTime,
		&l.DurationSeconds, &statusText, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lender != nil {
		l.Lender = loan.Address(*lender)
	}
	l.Status = loan.Status(statusText)

	var ok bool
	if l.TokenID, ok = new(big.Int).SetString(tokenID, 10); !ok {
		return nil, fmt.Errorf("invalid token_id value %q", tokenID)
	}
	if l.Principal, ok = new(big.Int).SetString(principal, 10); !ok {
		return nil, fmt.Errorf("invalid principal value %q", principal)
	}
	return &l, nil
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {

		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrDatabase, pgErr.ConstraintName)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
