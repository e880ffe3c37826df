package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"lending-engine/internal/domain/loan"
	"lending-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

// NFTRegistry is the collateral_tokens-backed loan.CollateralRegistry.
// Ownership and approvals live in the same database as the loan book, so
// every custody move shares the caller's transaction.
type NFTRegistry struct {
	logger *slog.Logger
}

func NewNFTRegistry(logger *slog.Logger) *NFTRegistry {
	return &NFTRegistry{logger: logger.With("component", "NFTRegistry")}
}

var _ loan.CollateralRegistry = (*NFTRegistry)(nil)

func (r *NFTRegistry) OwnerOf(ctx context.Context, tx pgx.Tx, contract loan.Address, tokenID *big.Int) (loan.Address, error) {
	query := `
        SELECT owner FROM collateral_tokens
        WHERE LOWER(contract) = LOWER($1) AND token_id = $2::numeric`

	var owner string
	err := tx.QueryRow(ctx, query, contract.String(), tokenID.String()).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return loan.ZeroAddress, apperrors.ErrNotFound
		}
		return loan.ZeroAddress, translateDBError(err, r.logger)
	}
	return loan.Address(owner), nil
}

func (r *NFTRegistry) IsApprovedForAll(ctx context.Context, tx pgx.Tx, contract, owner, operator loan.Address) (bool, error) {
	query := `
        SELECT approved FROM collateral_operators
        WHERE LOWER(contract) = LOWER($1) AND LOWER(owner) = LOWER($2) AND LOWER(operator) = LOWER($3)`

	var approved bool
	err := tx.QueryRow(ctx, query, contract.String(), owner.String(), operator.String()).Scan(&approved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, translateDBError(err, r.logger)
	}
	return approved, nil
}

func (r *NFTRegistry) GetApproved(ctx context.Context, tx pgx.Tx, contract loan.Address, tokenID *big.Int) (loan.Address, error) {
	query := `
        SELECT COALESCE(approved, '') FROM collateral_tokens
        WHERE LOWER(contract) = LOWER($1) AND token_id = $2::numeric`

	var approved string
	err := tx.QueryRow(ctx, query, contract.String(), tokenID.String()).Scan(&approved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return loan.ZeroAddress, apperrors.ErrNotFound
		}
		return loan.ZeroAddress, translateDBError(err, r.logger)
	}
	return loan.Address(approved), nil
}

// TransferFrom moves ownership and clears the per-token approval, the way a
// token contract resets getApproved on transfer. The owner predicate makes a
// stale from address a zero-row update instead of a silent steal.
func (r *NFTRegistry) TransferFrom(ctx context.Context, tx pgx.Tx, contract, from, to loan.Address, tokenID *big.Int) error {
	sql := `
        UPDATE collateral_tokens
        SET owner = $1, approved = NULL, updated_at = NOW()
        WHERE LOWER(contract) = LOWER($2) AND token_id = $3::numeric AND LOWER(owner) = LOWER($4)`

	cmdTag, err := tx.Exec(ctx, sql, to.String(), contract.String(), tokenID.String(), from.String())
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.WarnContext(ctx, "Collateral transfer matched no row",
			"contract", contract, "token_id", tokenID.String(), "from", from)
		return fmt.Errorf("token %s is not held by %s", tokenID.String(), from)
	}
	return nil
}
