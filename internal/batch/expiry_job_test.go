package batch_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"lending-engine/internal/batch"
	"lending-engine/internal/domain/loan"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockLoanRepository struct {
	mock.Mock
}

type TxMock struct {
	pgx.Tx
}

func (m *MockLoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockLoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockLoanRepository) CreateLoanInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) (*loan.Loan, error) {
	args := m.Called(ctx, tx, l)
	if created, ok := args.Get(0).(*loan.Loan); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) GetLoanForUpdateInTx(ctx context.Context, tx pgx.Tx, loanID int64) (*loan.Loan, error) {
	args := m.Called(ctx, tx, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) UpdateLoanInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	return m.Called(ctx, tx, l).Error(0)
}

func (m *MockLoanRepository) EnsureConfig(ctx context.Context, defaults *loan.ProtocolConfig) error {
	return m.Called(ctx, defaults).Error(0)
}

func (m *MockLoanRepository) GetConfig(ctx context.Context) (*loan.ProtocolConfig, error) {
	args := m.Called(ctx)
	if cfg, ok := args.Get(0).(*loan.ProtocolConfig); ok {
		return cfg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) GetConfigInTx(ctx context.Context, tx pgx.Tx) (*loan.ProtocolConfig, error) {
	args := m.Called(ctx, tx)
	if cfg, ok := args.Get(0).(*loan.ProtocolConfig); ok {
		return cfg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) GetConfigForUpdateInTx(ctx context.Context, tx pgx.Tx) (*loan.ProtocolConfig, error) {
	args := m.Called(ctx, tx)
	if cfg, ok := args.Get(0).(*loan.ProtocolConfig); ok {
		return cfg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) UpdateConfigInTx(ctx context.Context, tx pgx.Tx, cfg *loan.ProtocolConfig) error {
	return m.Called(ctx, tx, cfg).Error(0)
}

func (m *MockLoanRepository) GetExpiredActiveLoanIDs(ctx context.Context, asOf time.Time) ([]int64, error) {
	args := m.Called(ctx, asOf)
	if ids, ok := args.Get(0).([]int64); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestExpirySweepJobRun(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("reports expired active loans", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		job := batch.NewExpirySweepJob(mockRepo, logger)

		mockRepo.On("GetExpiredActiveLoanIDs", mock.Anything, mock.AnythingOfType("time.Time")).
			Return([]int64{3, 8}, nil)

		err := job.Run(context.Background())

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("sweep with nothing expired succeeds", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		job := batch.NewExpirySweepJob(mockRepo, logger)

		mockRepo.On("GetExpiredActiveLoanIDs", mock.Anything, mock.AnythingOfType("time.Time")).
			Return([]int64{}, nil)

		err := job.Run(context.Background())

		assert.NoError(t, err)
	})

	t.Run("propagates repository failure", func(t *testing.T) {
		mockRepo := new(MockLoanRepository)
		job := batch.NewExpirySweepJob(mockRepo, logger)

		dbErr := errors.New("connection refused")
		mockRepo.On("GetExpiredActiveLoanIDs", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(nil, dbErr)

		err := job.Run(context.Background())

		assert.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("panics on nil dependencies", func(t *testing.T) {
		assert.Panics(t, func() {
			batch.NewExpirySweepJob(nil, logger)
		})
	})
}
