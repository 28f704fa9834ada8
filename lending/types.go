// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package lending implements the facet that issues loans against vaulted
// NFTs, accrues interest on them and liquidates unhealthy or matured loans.
package lending

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
)

// LoanStatus is the lifecycle state of a loan
type LoanStatus uint8

const (
	StatusNone LoanStatus = iota
	StatusActive
	StatusRepaid
	StatusLiquidated
)

func (s LoanStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusRepaid:
		return "repaid"
	case StatusLiquidated:
		return "liquidated"
	default:
		return "none"
	}
}

// CollateralRef identifies one vaulted item.
// Field order and names follow the ABI tuple.
type CollateralRef struct {
	Collection common.Address
	TokenID    *big.Int
}

// Loan is the accounting record of a loan
type Loan struct {
	ID          uint64
	Borrower    common.Address
	Collateral  []CollateralRef
	Principal   *big.Int
	Interest    *big.Int
	Rate        *big.Int // annual, scaled by 1e18, fixed at origination
	StartTime   uint64
	LastAccrual uint64
	Maturity    uint64
	Status      LoanStatus
	// interest earned but below one wei, carried to the next accrual
	Carry       *big.Int
}

// Active reports whether the loan is open
func (l *Loan) Active() bool {
	return l.Status == StatusActive
}

// Outstanding returns principal plus booked interest
func (l *Loan) Outstanding() *big.Int {
	return new(big.Int).Add(l.Principal, l.Interest)
}

// Params holds the lending configuration
type Params struct {
	Oracle             common.Address
	LoanDuration       uint64 // seconds from origination to maturity
	BaseRate           *big.Int
	Slope1             *big.Int
	Slope2             *big.Int
	OptimalUtilization *big.Int
	ReserveFactor      *big.Int
}

// Totals tracks pool-wide borrow accounting
type Totals struct {
	TotalBorrows  *big.Int
	TotalReserves *big.Int
}

// Errors
var (
	ErrNoCollateral                = errors.New("no collateral")
	ErrDuplicateCollateral         = errors.New("duplicate collateral item")
	ErrInvalidAmount               = errors.New("amount must be positive")
	ErrInsufficientCollateralValue = errors.New("insufficient collateral value")
	ErrInsufficientLiquidity       = errors.New("insufficient liquidity")
	ErrAppraisalUnavailable        = errors.New("collateral appraisal unavailable")
	ErrLoanNotFound                = errors.New("loan not found")
	ErrLoanNotActive               = errors.New("loan not active")
	ErrNotLiquidatable             = errors.New("loan not liquidatable")
	ErrInvalidParams               = errors.New("invalid lending parameters")
)

const abiJSON = `[
	{"type":"function","name":"borrow","stateMutability":"nonpayable","inputs":[
		{"name":"collateral","type":"tuple[]","components":[
			{"name":"collection","type":"address"},
			{"name":"tokenID","type":"uint256"}]},
		{"name":"amount","type":"uint256"}],"outputs":[{"name":"loanId","type":"uint256"}]},
	{"type":"function","name":"repay","stateMutability":"nonpayable","inputs":[
		{"name":"loanId","type":"uint256"},
		{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"liquidate","stateMutability":"nonpayable","inputs":[
		{"name":"loanId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getLoan","stateMutability":"view","inputs":[
		{"name":"loanId","type":"uint256"}],"outputs":[
		{"name":"borrower","type":"address"},
		{"name":"principal","type":"uint256"},
		{"name":"interest","type":"uint256"},
		{"name":"rate","type":"uint256"},
		{"name":"startTime","type":"uint64"},
		{"name":"maturity","type":"uint64"},
		{"name":"status","type":"uint8"}]},
	{"type":"function","name":"getCollateral","stateMutability":"view","inputs":[
		{"name":"loanId","type":"uint256"}],"outputs":[
		{"name":"collateral","type":"tuple[]","components":[
			{"name":"collection","type":"address"},
			{"name":"tokenID","type":"uint256"}]}]},
	{"type":"function","name":"outstandingBalance","stateMutability":"view","inputs":[
		{"name":"loanId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"maxBorrowable","stateMutability":"view","inputs":[
		{"name":"collateral","type":"tuple[]","components":[
			{"name":"collection","type":"address"},
			{"name":"tokenID","type":"uint256"}]}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"isLiquidatable","stateMutability":"view","inputs":[
		{"name":"loanId","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"loansOf","stateMutability":"view","inputs":[
		{"name":"borrower","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"availableLiquidity","stateMutability":"view","inputs":[],"outputs":[
		{"name":"","type":"uint256"}]},
	{"type":"function","name":"supplyLiquidity","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"withdrawLiquidity","stateMutability":"nonpayable","inputs":[
		{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"setOracle","stateMutability":"nonpayable","inputs":[
		{"name":"oracle","type":"address"}],"outputs":[]},
	{"type":"function","name":"setLoanDuration","stateMutability":"nonpayable","inputs":[
		{"name":"duration","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"lendingParams","stateMutability":"view","inputs":[],"outputs":[
		{"name":"oracle","type":"address"},
		{"name":"loanDuration","type":"uint64"},
		{"name":"baseRate","type":"uint256"},
		{"name":"slope1","type":"uint256"},
		{"name":"slope2","type":"uint256"},
		{"name":"optimalUtilization","type":"uint256"},
		{"name":"reserveFactor","type":"uint256"},
		{"name":"totalBorrows","type":"uint256"},
		{"name":"totalReserves","type":"uint256"}]},
	{"type":"event","name":"LoanCreated","anonymous":false,"inputs":[
		{"name":"loanId","type":"uint256","indexed":true},
		{"name":"borrower","type":"address","indexed":true},
		{"name":"principal","type":"uint256","indexed":false},
		{"name":"rate","type":"uint256","indexed":false},
		{"name":"maturity","type":"uint64","indexed":false}]},
	{"type":"event","name":"LoanRepayment","anonymous":false,"inputs":[
		{"name":"loanId","type":"uint256","indexed":true},
		{"name":"payer","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"remaining","type":"uint256","indexed":false}]},
	{"type":"event","name":"LoanRepaid","anonymous":false,"inputs":[
		{"name":"loanId","type":"uint256","indexed":true},
		{"name":"borrower","type":"address","indexed":true},
		{"name":"payer","type":"address","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"LoanLiquidated","anonymous":false,"inputs":[
		{"name":"loanId","type":"uint256","indexed":true},
		{"name":"liquidator","type":"address","indexed":true},
		{"name":"debt","type":"uint256","indexed":false}]},
	{"type":"event","name":"LiquiditySupplied","anonymous":false,"inputs":[
		{"name":"supplier","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"LiquidityWithdrawn","anonymous":false,"inputs":[
		{"name":"to","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"OracleUpdated","anonymous":false,"inputs":[
		{"name":"oracle","type":"address","indexed":true}]},
	{"type":"event","name":"LoanDurationUpdated","anonymous":false,"inputs":[
		{"name":"duration","type":"uint64","indexed":false}]}
]`

// ABI is the lending facet interface
var ABI = contract.ParseABI(abiJSON)
