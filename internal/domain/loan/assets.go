package loan

import (
	"context"
	"math/big"

	"lending-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

// CollateralRegistry is the non-fungible asset collaborator. Every method
// runs against the caller-supplied transaction so custody moves commit or
// roll back together with the loan state transition.
type CollateralRegistry interface {
	OwnerOf(ctx context.Context, tx pgx.Tx, contract Address, tokenID *big.Int) (Address, error)
	IsApprovedForAll(ctx context.Context, tx pgx.Tx, contract, owner, operator Address) (bool, error)
	GetApproved(ctx context.Context, tx pgx.Tx, contract Address, tokenID *big.Int) (Address, error)
	TransferFrom(ctx context.Context, tx pgx.Tx, contract, from, to Address, tokenID *big.Int) error
}

// TokenLedger is the fungible asset collaborator. A false return signals a
// rejected transfer (for example insufficient balance) and must abort the
// enclosing operation; a non-nil error signals an infrastructure failure.
type TokenLedger interface {
	// TransferFrom pulls amount from the holder's balance into to's balance.
	TransferFrom(ctx context.Context, tx pgx.Tx, token, from, to Address, amount *big.Int) (bool, error)
	// Transfer pushes amount out of protocol custody into to's balance.
	Transfer(ctx context.Context, tx pgx.Tx, token, to Address, amount *big.Int) (bool, error)
}

// OwnerAuthority gates the admin operations.
type OwnerAuthority interface {
	EnforceIsOwner(caller Address) error
}

type staticOwnerAuthority struct {
	owner Address
}

// NewStaticOwnerAuthority returns an OwnerAuthority backed by a fixed
// administrator address established at startup.
func NewStaticOwnerAuthority(owner Address) OwnerAuthority {
	return staticOwnerAuthority{owner: owner}
}

func (a staticOwnerAuthority) EnforceIsOwner(caller Address) error {
	if caller.IsZero() || !caller.Equal(a.owner) {
		return apperrors.ErrNotOwner
	}
	return nil
}
