package loan

import "math/big"

var basisPoints = big.NewInt(10_000)

const secondsPerYear = int64(365 * 86_400)

// PlatformFee returns floor(principal * feeBps / 10000).
func PlatformFee(principal *big.Int, feeBps int64) *big.Int {
	if principal == nil || principal.Sign() <= 0 || feeBps <= 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(principal, big.NewInt(feeBps))
	return fee.Quo(fee, basisPoints)
}

// AccruedInterest returns floor(principal * rateBps * elapsedSeconds /
// (365*86400 * 10000)). The rate is annualized and linear; the numerator is
// fully multiplied out before the single division so rounding matches the
// reference behavior bit for bit.
func AccruedInterest(principal *big.Int, rateBps, elapsedSeconds int64) *big.Int {
	if principal == nil || principal.Sign() <= 0 || rateBps <= 0 || elapsedSeconds <= 0 {
		return big.NewInt(0)
	}
	interest := new(big.Int).Mul(principal, big.NewInt(rateBps))
	interest.Mul(interest, big.NewInt(elapsedSeconds))
	denominator := new(big.Int).Mul(big.NewInt(secondsPerYear), basisPoints)
	return interest.Quo(interest, denominator)
}

// RepaymentDue returns principal + AccruedInterest.
func RepaymentDue(principal *big.Int, rateBps, elapsedSeconds int64) *big.Int {
	if principal == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Add(principal, AccruedInterest(principal, rateBps, elapsedSeconds))
}
