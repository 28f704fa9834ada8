// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"math/big"
)

// InterestRateModel implements a Compound-style kink interest rate model
// Rate = BaseRate + Utilization * Slope1 (below kink)
// Rate = BaseRate + Kink * Slope1 + (Utilization - Kink) * Slope2 (above kink)
//
// A loan's annual rate is taken from the model once, at origination.
type InterestRateModel struct {
	// Base rate at 0% utilization (scaled by 1e18)
	BaseRate *big.Int

	// Slope of rate increase below optimal utilization (scaled by 1e18)
	Slope1 *big.Int

	// Slope of rate increase above optimal utilization (scaled by 1e18)
	Slope2 *big.Int

	// Optimal utilization rate / kink point (scaled by 1e18, e.g., 0.8e18 = 80%)
	OptimalUtilization *big.Int

	// Reserve factor - portion of interest that goes to protocol (scaled by 1e18)
	ReserveFactor *big.Int
}

// Scaling constants
var (
	// 1e18 for fixed-point arithmetic
	RAY = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	// Seconds per year for APR conversion
	SecondsPerYear = big.NewInt(31536000)

	accrualUnit = new(big.Int).Mul(RAY, SecondsPerYear)
)

func percent(n int64) *big.Int {
	return new(big.Int).Div(new(big.Int).Mul(big.NewInt(n), RAY), big.NewInt(100))
}

// DefaultInterestRateModel returns the platform's standard model:
// - 2% base rate
// - 10% slope below kink
// - 100% slope above kink
// - 80% optimal utilization
// - 10% reserve factor
func DefaultInterestRateModel() *InterestRateModel {
	return &InterestRateModel{
		BaseRate:           percent(2),
		Slope1:             percent(10),
		Slope2:             percent(100),
		OptimalUtilization: percent(80),
		ReserveFactor:      percent(10),
	}
}

// GetUtilizationRate returns the share of the pool that is lent out, scaled
// by RAY. cash is the diamond's native balance; reserves are protocol earnings
// that are not lendable. Fully lent or drained pools report RAY.
func (m *InterestRateModel) GetUtilizationRate(cash, borrows, reserves *big.Int) *big.Int {
	if borrows.Sign() == 0 {
		return new(big.Int)
	}
	pool := new(big.Int).Add(cash, borrows)
	pool.Sub(pool, reserves)
	if pool.Cmp(borrows) <= 0 {
		return new(big.Int).Set(RAY)
	}
	u := new(big.Int).Mul(borrows, RAY)
	return u.Quo(u, pool)
}

// GetBorrowRate calculates the annual borrow rate, scaled by 1e18
func (m *InterestRateModel) GetBorrowRate(
	totalCash *big.Int,
	totalBorrows *big.Int,
	reserves *big.Int,
) *big.Int {
	utilization := m.GetUtilizationRate(totalCash, totalBorrows, reserves)

	if utilization.Cmp(m.OptimalUtilization) <= 0 {
		// Below kink: baseRate + utilization * slope1 / RAY
		rate := new(big.Int).Mul(utilization, m.Slope1)
		rate.Div(rate, RAY)
		return rate.Add(rate, m.BaseRate)
	}

	// Above kink:
	// normalRate = baseRate + optimalUtilization * slope1 / RAY
	// excessRate = (utilization - optimalUtilization) * slope2 / RAY
	normalRate := new(big.Int).Mul(m.OptimalUtilization, m.Slope1)
	normalRate.Div(normalRate, RAY)
	normalRate.Add(normalRate, m.BaseRate)

	excessUtilization := new(big.Int).Sub(utilization, m.OptimalUtilization)
	excessRate := new(big.Int).Mul(excessUtilization, m.Slope2)
	excessRate.Div(excessRate, RAY)

	return normalRate.Add(normalRate, excessRate)
}

// AccrueInterest calculates simple interest over elapsed seconds:
// principal * annualRate * seconds / (RAY * SecondsPerYear)
func AccrueInterest(principal, annualRate *big.Int, seconds uint64) *big.Int {
	if seconds == 0 || principal.Sign() <= 0 || annualRate.Sign() <= 0 {
		return big.NewInt(0)
	}
	interest := new(big.Int).Mul(principal, annualRate)
	interest.Mul(interest, new(big.Int).SetUint64(seconds))
	interest.Div(interest, RAY)
	return interest.Div(interest, SecondsPerYear)
}

// AccrueInterestCarry is AccrueInterest with the sub-wei part carried between
// calls. carry and the returned rest are in units of 1/(RAY*SecondsPerYear)
// wei, so a loan touched every second is charged what an untouched loan is.
func AccrueInterestCarry(principal, annualRate *big.Int, seconds uint64, carry *big.Int) (interest, rest *big.Int) {
	num := new(big.Int)
	if seconds > 0 && principal.Sign() > 0 && annualRate.Sign() > 0 {
		num.Mul(principal, annualRate)
		num.Mul(num, new(big.Int).SetUint64(seconds))
	}
	if carry != nil {
		num.Add(num, carry)
	}
	return new(big.Int).QuoRem(num, accrualUnit, new(big.Int))
}

// ReserveShare returns the protocol's cut of accrued interest
func (m *InterestRateModel) ReserveShare(interest *big.Int) *big.Int {
	share := new(big.Int).Mul(interest, m.ReserveFactor)
	return share.Div(share, RAY)
}
