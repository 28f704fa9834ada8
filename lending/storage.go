// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/state"
)

// StorageNamespace names the lending region of the diamond's storage
const StorageNamespace = "nftlend.lending.storage"

var (
	paramsKey   = []byte("params")
	nextLoanKey = []byte("nextLoan")
	totalsKey   = []byte("totals")
)

// Store returns the lending region of an account's storage
func Store(db database.Database) database.Database {
	return state.Namespace(db, StorageNamespace)
}

func loanKey(id uint64) []byte {
	return state.Key("loan/", binary.BigEndian.AppendUint64(nil, id))
}

func borrowerKey(borrower common.Address) []byte {
	return state.Key("borrower/", borrower.Bytes())
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// Model returns the interest rate model described by p
func (p Params) Model() *InterestRateModel {
	return &InterestRateModel{
		BaseRate:           orZero(p.BaseRate),
		Slope1:             orZero(p.Slope1),
		Slope2:             orZero(p.Slope2),
		OptimalUtilization: orZero(p.OptimalUtilization),
		ReserveFactor:      orZero(p.ReserveFactor),
	}
}

// Verify checks the parameters are usable
func (p Params) Verify() error {
	m := p.Model()
	switch {
	case p.LoanDuration == 0:
		return fmt.Errorf("%w: loan duration must be positive", ErrInvalidParams)
	case m.BaseRate.Sign() < 0 || m.Slope1.Sign() < 0 || m.Slope2.Sign() < 0:
		return fmt.Errorf("%w: negative rate", ErrInvalidParams)
	case m.OptimalUtilization.Sign() <= 0 || m.OptimalUtilization.Cmp(RAY) > 0:
		return fmt.Errorf("%w: optimal utilization %s outside (0, 1e18]", ErrInvalidParams, m.OptimalUtilization)
	case m.ReserveFactor.Sign() < 0 || m.ReserveFactor.Cmp(RAY) > 0:
		return fmt.Errorf("%w: reserve factor %s outside [0, 1e18]", ErrInvalidParams, m.ReserveFactor)
	}
	return nil
}

// LoadParams returns the stored lending parameters
func LoadParams(store database.Database) (Params, error) {
	var p Params
	if _, err := state.Load(store, paramsKey, &p); err != nil {
		return Params{}, err
	}
	return p, nil
}

// SetParams validates and stores the lending parameters
func SetParams(store database.Database, p Params) error {
	if err := p.Verify(); err != nil {
		return err
	}
	return state.Store(store, paramsKey, &p)
}

func storeParams(store database.Database, p Params) error {
	return state.Store(store, paramsKey, &p)
}

// LoadTotals returns the pool-wide borrow accounting
func LoadTotals(store database.Database) (Totals, error) {
	var t Totals
	if _, err := state.Load(store, totalsKey, &t); err != nil {
		return Totals{}, err
	}
	t.TotalBorrows = orZero(t.TotalBorrows)
	t.TotalReserves = orZero(t.TotalReserves)
	return t, nil
}

func storeTotals(store database.Database, t Totals) error {
	return state.Store(store, totalsKey, &t)
}

// LoadLoan returns the loan with id
func LoadLoan(store database.Database, id uint64) (Loan, error) {
	var l Loan
	found, err := state.Load(store, loanKey(id), &l)
	if err != nil {
		return Loan{}, err
	}
	if !found {
		return Loan{}, fmt.Errorf("%w: %d", ErrLoanNotFound, id)
	}
	return l, nil
}

func storeLoan(store database.Database, l Loan) error {
	return state.Store(store, loanKey(l.ID), &l)
}

// allocateLoanID returns the next loan id; ids start at 1 so 0 can mean
// "no loan" in custody records.
func allocateLoanID(store database.Database) (uint64, error) {
	var next uint64
	if _, err := state.Load(store, nextLoanKey, &next); err != nil {
		return 0, err
	}
	if next == 0 {
		next = 1
	}
	if err := state.Store(store, nextLoanKey, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

// LoansOf returns the ids of every loan borrower has opened
func LoansOf(store database.Database, borrower common.Address) ([]uint64, error) {
	var ids []uint64
	if _, err := state.Load(store, borrowerKey(borrower), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func appendLoanOf(store database.Database, borrower common.Address, id uint64) error {
	ids, err := LoansOf(store, borrower)
	if err != nil {
		return err
	}
	return state.Store(store, borrowerKey(borrower), append(ids, id))
}
