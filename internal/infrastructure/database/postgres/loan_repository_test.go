package postgres

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"os"
	"regexp"
	"testing"
	"time"

	"lending-engine/internal/domain/loan"
	"lending-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

const pgxmockExpectationsNotMetMsg = "pgxmock expectations were not met"

func setupLoanRepo(t *testing.T) (context.Context, *LoanRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}

	ctx := context.Background()
	repo := NewLoanRepository(mockPool, logger)

	return ctx, repo, mockPool
}

func loanRowColumns() []string {
	return []string{"id", "borrower", "lender", "nft_contract", "token_id", "principal",
		"interest_rate_bps", "start_time", "duration_seconds", "status", "created_at", "updated_at"}
}

func TestCreateLoanInTxAllocatesIDFromCounter(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	now := time.Now()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta("RETURNING total_loans - 1")).
		WillReturnRows(pgxmock.NewRows([]string{"total_loans"}).AddRow(int64(4)))
	mockPool.ExpectQuery(regexp.QuoteMeta("INSERT INTO loans")).
		WithArgs(int64(4), "0xborrower", "0xnft", "7", "1000", int64(1000), int64(2_592_000), loan.StatusCreated).
		WillReturnRows(pgxmock.NewRows(loanRowColumns()).
			AddRow(int64(4), "0xborrower", nil, "0xnft", "7", "1000", int64(1000), nil, int64(2_592_000), "CREATED", now, now))
	mockPool.ExpectCommit()

	tx, err := repo.BeginTx(ctx)
	assert.NoError(t, err)

	created, err := repo.CreateLoanInTx(ctx, tx, &loan.Loan{
		Borrower:        "0xborrower",
		NFTContract:     "0xnft",
		TokenID:         big.NewInt(7),
		Principal:       big.NewInt(1000),
		InterestRateBps: 1000,
		DurationSeconds: 2_592_000,
		Status:          loan.StatusCreated,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)
	assert.Equal(t, loan.StatusCreated, created.Status)
	assert.True(t, created.Lender.IsZero())
	assert.Nil(t, created.StartTime)
	assert.Equal(t, "1000", created.Principal.String())

	assert.NoError(t, repo.CommitTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestCreateLoanInTxFailedAllocationRollsBack(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta("RETURNING total_loans - 1")).
		WillReturnError(errors.New("deadlock detected"))
	mockPool.ExpectRollback()

	tx, err := repo.BeginTx(ctx)
	assert.NoError(t, err)

	_, err = repo.CreateLoanInTx(ctx, tx, &loan.Loan{
		Borrower: "0xborrower", NFTContract: "0xnft",
		TokenID: big.NewInt(7), Principal: big.NewInt(1000),
		InterestRateBps: 1000, DurationSeconds: 2_592_000, Status: loan.StatusCreated,
	})
	assert.ErrorIs(t, err, apperrors.ErrDatabase)

	assert.NoError(t, repo.RollbackTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetLoanByID(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	start := time.Now().Add(-time.Hour)
	now := time.Now()
	lender := "0xlender"

	mockPool.ExpectQuery(regexp.QuoteMeta("FROM loans WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(loanRowColumns()).
			AddRow(int64(1), "0xborrower", &lender, "0xnft", "7", "1000", int64(1000), &start, int64(2_592_000), "ACTIVE", now, now))

	l, err := repo.GetLoanByID(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, loan.Address("0xlender"), l.Lender)
	assert.Equal(t, loan.StatusActive, l.Status)
	assert.Equal(t, int64(7), l.TokenID.Int64())
	assert.NotNil(t, l.StartTime)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetLoanByIDNotFound(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta("FROM loans WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetLoanByID(ctx, 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetLoanForUpdateInTxLocksRow(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	now := time.Now()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(loanRowColumns()).
			AddRow(int64(1), "0xborrower", nil, "0xnft", "7", "1000", int64(1000), nil, int64(2_592_000), "CREATED", now, now))
	mockPool.ExpectCommit()

	tx, err := repo.BeginTx(ctx)
	assert.NoError(t, err)

	l, err := repo.GetLoanForUpdateInTx(ctx, tx, 1)
	assert.NoError(t, err)
	assert.Equal(t, loan.StatusCreated, l.Status)

	assert.NoError(t, repo.CommitTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestUpdateLoanInTx(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	start := time.Now()
	l := &loan.Loan{
		ID:        1,
		Lender:    "0xlender",
		StartTime: &start,
		Status:    loan.StatusActive,
	}

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta("UPDATE loans")).
		WithArgs(pgxmock.AnyArg(), &start, loan.StatusActive, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectCommit()

	tx, err := repo.BeginTx(ctx)
	assert.NoError(t, err)

	assert.NoError(t, repo.UpdateLoanInTx(ctx, tx, l))
	assert.NoError(t, repo.CommitTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestUpdateLoanInTxZeroRowsIsError(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta("UPDATE loans")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), loan.StatusRepaid, int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mockPool.ExpectRollback()

	tx, err := repo.BeginTx(ctx)
	assert.NoError(t, err)

	err = repo.UpdateLoanInTx(ctx, tx, &loan.Loan{ID: 9, Status: loan.StatusRepaid})
	assert.ErrorIs(t, err, apperrors.ErrDatabase)

	assert.NoError(t, repo.RollbackTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestEnsureConfigSeedsOnce(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO NOTHING")).
		WithArgs(int64(50), int64(86_400), int64(31_536_000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := repo.EnsureConfig(ctx, &loan.ProtocolConfig{
		PlatformFeeBps:     50,
		MinDurationSeconds: 86_400,
		MaxDurationSeconds: 31_536_000,
	})
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetConfig(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	now := time.Now()

	mockPool.ExpectQuery(regexp.QuoteMeta("FROM protocol_config")).
		WillReturnRows(pgxmock.NewRows([]string{"platform_fee_bps", "min_duration_seconds", "max_duration_seconds", "total_loans", "updated_at"}).
			AddRow(int64(50), int64(86_400), int64(31_536_000), int64(12), now))

	cfg, err := repo.GetConfig(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(50), cfg.PlatformFeeBps)
	assert.Equal(t, int64(12), cfg.TotalLoans)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestUpdateConfigInTxZeroRowsIsError(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta("UPDATE protocol_config")).
		WithArgs(int64(75), int64(3600), int64(7200)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mockPool.ExpectRollback()

	tx, err := repo.BeginTx(ctx)
	assert.NoError(t, err)

	err = repo.UpdateConfigInTx(ctx, tx, &loan.ProtocolConfig{
		PlatformFeeBps:     75,
		MinDurationSeconds: 3600,
		MaxDurationSeconds: 7200,
	})
	assert.ErrorIs(t, err, apperrors.ErrDatabase)

	assert.NoError(t, repo.RollbackTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetExpiredActiveLoanIDs(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	asOf := time.Now()

	mockPool.ExpectQuery(regexp.QuoteMeta("SELECT id FROM loans")).
		WithArgs(loan.StatusActive, asOf).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)).AddRow(int64(8)))

	ids, err := repo.GetExpiredActiveLoanIDs(ctx, asOf)
	assert.NoError(t, err)
	assert.Equal(t, []int64{3, 8}, ids)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestRollbackTxToleratesClosedTx(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectCommit()
	mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

	tx, err := repo.BeginTx(ctx)
	assert.NoError(t, err)
	assert.NoError(t, repo.CommitTx(ctx, tx))

	assert.NoError(t, repo.RollbackTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
