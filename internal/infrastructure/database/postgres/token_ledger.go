package postgres

import (
	"context"
	"log/slog"
	"math/big"

	"lending-engine/internal/domain/loan"

	"github.com/jackc/pgx/v5"
)

// TokenLedger keeps fungible balances in the token_balances table and
// implements loan.TokenLedger on top of it. Debits are guarded by a balance
// predicate in the UPDATE itself, so an insufficient balance surfaces as a
// zero-row update rather than a negative balance.
type TokenLedger struct {
	custody loan.Address
	logger  *slog.Logger
}

// NewTokenLedger binds the ledger to the protocol custody account that
// Transfer debits from.
func NewTokenLedger(custody loan.Address, logger *slog.Logger) *TokenLedger {
	return &TokenLedger{custody: custody, logger: logger.With("component", "TokenLedger")}
}

var _ loan.TokenLedger = (*TokenLedger)(nil)

func (t *TokenLedger) TransferFrom(ctx context.Context, tx pgx.Tx, token, from, to loan.Address, amount *big.Int) (bool, error) {
	return t.move(ctx, tx, token, from, to, amount)
}

func (t *TokenLedger) Transfer(ctx context.Context, tx pgx.Tx, token, to loan.Address, amount *big.Int) (bool, error) {
	return t.move(ctx, tx, token, t.custody, to, amount)
}

func (t *TokenLedger) move(ctx context.Context, tx pgx.Tx, token, from, to loan.Address, amount *big.Int) (bool, error) {
	if amount.Sign() == 0 {
		return true, nil
	}

	debitSQL := `
        UPDATE token_balances
        SET balance = balance - $1::numeric, updated_at = NOW()
        WHERE LOWER(token) = LOWER($2) AND LOWER(holder) = LOWER($3) AND balance >= $1::numeric`

	cmdTag, err := tx.Exec(ctx, debitSQL, amount.String(), token.String(), from.String())
	if err != nil {
		return false, translateDBError(err, t.logger)
	}
	if cmdTag.RowsAffected() != 1 {
		t.logger.WarnContext(ctx, "Debit rejected, insufficient balance or unknown holder",
			"token", token, "holder", from, "amount", amount.String())
		return false, nil
	}

	creditSQL := `
        INSERT INTO token_balances (token, holder, balance, updated_at)
        VALUES (LOWER($1), LOWER($2), $3::numeric, NOW())
        ON CONFLICT (token, holder)
        DO UPDATE SET balance = token_balances.balance + EXCLUDED.balance, updated_at = NOW()`

	if _, err = tx.Exec(ctx, creditSQL, token.String(), to.String(), amount.String()); err != nil {
		return false, translateDBError(err, t.logger)
	}
	return true, nil
}
