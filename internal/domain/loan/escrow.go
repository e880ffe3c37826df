package loan

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"lending-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

// Escrow moves the collateral token in and out of protocol custody and
// directs the fungible flows among lender, borrower and fee recipient. It
// holds no state of its own; atomicity comes from the transaction every
// method runs against.
type Escrow struct {
	collateral CollateralRegistry
	ledger     TokenLedger
	account    Address
	logger     *slog.Logger
}

func NewEscrow(collateral CollateralRegistry, ledger TokenLedger, account Address, logger *slog.Logger) *Escrow {
	return &Escrow{
		collateral: collateral,
		ledger:     ledger,
		account:    account,
		logger:     logger.With("component", "Escrow"),
	}
}

// Account returns the protocol custody address.
func (e *Escrow) Account() Address {
	return e.account
}

// CollateralOwner reports the current owner of the token.
func (e *Escrow) CollateralOwner(ctx context.Context, tx pgx.Tx, ref CollateralRef) (Address, error) {
	return e.collateral.OwnerOf(ctx, tx, ref.Contract, ref.TokenID)
}

// HasTransferApproval reports whether the escrow account may move the token,
// either through a blanket operator approval or a per-token approval.
func (e *Escrow) HasTransferApproval(ctx context.Context, tx pgx.Tx, ref CollateralRef, owner Address) (bool, error) {
	all, err := e.collateral.IsApprovedForAll(ctx, tx, ref.Contract, owner, e.account)
	if err != nil {
		return false, err
	}
	if all {
		return true, nil
	}
	approved, err := e.collateral.GetApproved(ctx, tx, ref.Contract, ref.TokenID)
	if err != nil {
		return false, err
	}
	return approved.Equal(e.account), nil
}

// TakeCollateral transfers custody of the token from the borrower into the
// escrow account. Ownership and approval checks are the caller's job.
func (e *Escrow) TakeCollateral(ctx context.Context, tx pgx.Tx, ref CollateralRef, from Address) error {
	if err := e.collateral.TransferFrom(ctx, tx, ref.Contract, from, e.account, ref.TokenID); err != nil {
		e.logger.ErrorContext(ctx, "Collateral transfer into escrow rejected",
			"contract", ref.Contract, "token_id", ref.TokenID, "from", from, "error", err)
		return fmt.Errorf("%w: collateral deposit: %w", apperrors.ErrTransferFailed, err)
	}
	return nil
}

// ReleaseCollateral transfers custody of the held token to the recipient:
// the borrower on repayment, the lender on liquidation.
func (e *Escrow) ReleaseCollateral(ctx context.Context, tx pgx.Tx, ref CollateralRef, to Address) error {
	if err := e.collateral.TransferFrom(ctx, tx, ref.Contract, e.account, to, ref.TokenID); err != nil {
		e.logger.ErrorContext(ctx, "Collateral release rejected",
			"contract", ref.Contract, "token_id", ref.TokenID, "to", to, "error", err)
		return fmt.Errorf("%w: collateral release: %w", apperrors.ErrTransferFailed, err)
	}
	return nil
}

// CollectFunding performs the three funding legs in fixed order: pull
// fee+principal from the lender into custody, push the fee to the fee
// recipient, push the principal to the borrower. The first rejected leg
// aborts the whole operation; the enclosing transaction undoes prior legs.
func (e *Escrow) CollectFunding(ctx context.Context, tx pgx.Tx, token, lender Address, fee, principal *big.Int, feeRecipient, borrower Address) error {
	total := new(big.Int).Add(fee, principal)

	ok, err := e.ledger.TransferFrom(ctx, tx, token, lender, e.account, total)
	if err != nil {
		return err
	}
	if !ok {
		e.logger.WarnContext(ctx, "Funding pull from lender rejected", "lender", lender, "amount", total.String())
		return fmt.Errorf("%w: funding pull from lender", apperrors.ErrTransferFailed)
	}

	if fee.Sign() > 0 {
		ok, err = e.ledger.Transfer(ctx, tx, token, feeRecipient, fee)
		if err != nil {
			return err
		}
		if !ok {
			e.logger.WarnContext(ctx, "Fee payout rejected", "fee_recipient", feeRecipient, "amount", fee.String())
			return fmt.Errorf("%w: fee payout", apperrors.ErrTransferFailed)
		}
	}

	ok, err = e.ledger.Transfer(ctx, tx, token, borrower, principal)
	if err != nil {
		return err
	}
	if !ok {
		e.logger.WarnContext(ctx, "Principal disbursement rejected", "borrower", borrower, "amount", principal.String())
		return fmt.Errorf("%w: principal disbursement", apperrors.ErrTransferFailed)
	}

	return nil
}

// SettleRepayment pulls the due amount from the borrower and pushes it to
// the lender.
func (e *Escrow) SettleRepayment(ctx context.Context, tx pgx.Tx, token, borrower, lender Address, amount *big.Int) error {
	ok, err := e.ledger.TransferFrom(ctx, tx, token, borrower, lender, amount)
	if err != nil {
		return err
	}
	if !ok {
		e.logger.WarnContext(ctx, "Repayment transfer rejected", "borrower", borrower, "lender", lender, "amount", amount.String())
		return fmt.Errorf("%w: repayment settlement", apperrors.ErrTransferFailed)
	}
	return nil
}
