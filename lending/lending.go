// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/diamond"
	"github.com/luxfi/nftlend/state"
	"github.com/luxfi/nftlend/vault"
)

var _ contract.StatefulContract = (*Facet)(nil)

// Facet is the lending facet. Liquidity is the diamond's native balance and
// collateral is read from the vault's custody records in the same storage.
type Facet struct{}

func (f *Facet) Run(accessibleState contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
	method, args, err := ABI.DecodeCall(input)
	if err != nil {
		return nil, err
	}
	if err := contract.RequirePayable(method, frame); err != nil {
		return nil, err
	}
	store := Store(contract.Storage(accessibleState, frame))

	switch method.Name {
	case "getLoan":
		l, err := LoadLoan(store, loanIDArg(args[0]))
		if err != nil {
			return nil, err
		}
		return ABI.PackOutput(method.Name, l.Borrower, l.Principal, l.Interest, l.Rate, l.StartTime, l.Maturity, uint8(l.Status))
	case "getCollateral":
		l, err := LoadLoan(store, loanIDArg(args[0]))
		if err != nil {
			return nil, err
		}
		return ABI.PackOutput(method.Name, l.Collateral)
	case "outstandingBalance":
		l, err := LoadLoan(store, loanIDArg(args[0]))
		if err != nil {
			return nil, err
		}
		return ABI.PackOutput(method.Name, outstanding(accessibleState, l))
	case "maxBorrowable":
		value, err := f.maxBorrowable(accessibleState, frame, store, collateralArg(args[0]))
		if err != nil {
			return nil, err
		}
		return ABI.PackOutput(method.Name, value)
	case "isLiquidatable":
		ok, err := f.isLiquidatable(accessibleState, frame, store, loanIDArg(args[0]))
		if err != nil {
			return nil, err
		}
		return ABI.PackOutput(method.Name, ok)
	case "loansOf":
		ids, err := LoansOf(store, args[0].(common.Address))
		if err != nil {
			return nil, err
		}
		out := make([]*big.Int, len(ids))
		for i, id := range ids {
			out[i] = new(big.Int).SetUint64(id)
		}
		return ABI.PackOutput(method.Name, out)
	case "availableLiquidity":
		return ABI.PackOutput(method.Name, cash(accessibleState, frame))
	case "lendingParams":
		p, err := LoadParams(store)
		if err != nil {
			return nil, err
		}
		t, err := LoadTotals(store)
		if err != nil {
			return nil, err
		}
		m := p.Model()
		return ABI.PackOutput(method.Name, p.Oracle, p.LoanDuration, m.BaseRate, m.Slope1, m.Slope2, m.OptimalUtilization, m.ReserveFactor, t.TotalBorrows, t.TotalReserves)
	}

	if err := contract.RequireWritable(frame); err != nil {
		return nil, err
	}
	switch method.Name {
	case "supplyLiquidity":
		return nil, f.supplyLiquidity(accessibleState, frame)
	case "setOracle":
		return nil, f.setOracle(accessibleState, frame, store, args[0].(common.Address))
	case "setLoanDuration":
		return nil, f.setLoanDuration(accessibleState, frame, store, args[0].(uint64))
	}
	return contract.NonReentrant(accessibleState, frame, func() ([]byte, error) {
		switch method.Name {
		case "borrow":
			id, err := f.borrow(accessibleState, frame, store, collateralArg(args[0]), args[1].(*big.Int))
			if err != nil {
				return nil, err
			}
			return ABI.PackOutput(method.Name, new(big.Int).SetUint64(id))
		case "repay":
			return nil, f.repay(accessibleState, frame, store, loanIDArg(args[0]), args[1].(*big.Int))
		case "liquidate":
			return nil, f.liquidate(accessibleState, frame, store, loanIDArg(args[0]))
		case "withdrawLiquidity":
			return nil, f.withdrawLiquidity(accessibleState, frame, args[0].(*big.Int))
		default:
			return nil, fmt.Errorf("%w: %s", contract.ErrMethodNotFound, method.Name)
		}
	})
}

func loanIDArg(arg interface{}) uint64 {
	id := arg.(*big.Int)
	if !id.IsUint64() {
		// no loan can have this id
		return 0
	}
	return id.Uint64()
}

func collateralArg(arg interface{}) []CollateralRef {
	return *abi.ConvertType(arg, new([]CollateralRef)).(*[]CollateralRef)
}

func itemKey(ref CollateralRef) common.Hash {
	return state.MakeKey(ref.Collection.Bytes(), common.BigToHash(ref.TokenID).Bytes())
}

func cash(accessibleState contract.AccessibleState, frame contract.CallFrame) *big.Int {
	return accessibleState.GetStateDB().GetBalance(frame.Address).ToBig()
}

func now(accessibleState contract.AccessibleState) uint64 {
	return accessibleState.GetBlockContext().Timestamp()
}

// transfer moves native balance between accounts
func transfer(accessibleState contract.AccessibleState, from, to common.Address, amount *big.Int) error {
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return fmt.Errorf("%w: amount %s overflows", ErrInvalidAmount, amount)
	}
	stateDB := accessibleState.GetStateDB()
	if err := stateDB.SubBalance(from, v); err != nil {
		return fmt.Errorf("%w: %w", contract.ErrTransferFailed, err)
	}
	if err := stateDB.AddBalance(to, v); err != nil {
		return fmt.Errorf("%w: %w", contract.ErrTransferFailed, err)
	}
	return nil
}

// accrue books the whole-wei interest earned since the loan's last accrual
// and returns the newly booked amount. The fraction left over stays in Carry.
func accrue(l *Loan, at uint64) *big.Int {
	if at <= l.LastAccrual {
		return new(big.Int)
	}
	interest, carry := AccrueInterestCarry(l.Principal, l.Rate, at-l.LastAccrual, l.Carry)
	l.Interest = new(big.Int).Add(l.Interest, interest)
	l.Carry = carry
	l.LastAccrual = at
	return interest
}

func bookInterest(totals *Totals, model *InterestRateModel, interest *big.Int) {
	totals.TotalBorrows = new(big.Int).Add(totals.TotalBorrows, interest)
	totals.TotalReserves = new(big.Int).Add(totals.TotalReserves, model.ReserveShare(interest))
}

// outstanding returns what closes l right now; settled loans owe nothing
func outstanding(accessibleState contract.AccessibleState, l Loan) *big.Int {
	if !l.Active() {
		return new(big.Int)
	}
	accrue(&l, now(accessibleState))
	return l.Outstanding()
}

func subFloor(a, b *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	if r.Sign() < 0 {
		return r.SetInt64(0)
	}
	return r
}

func (f *Facet) borrow(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, refs []CollateralRef, amount *big.Int) (uint64, error) {
	if len(refs) == 0 {
		return 0, ErrNoCollateral
	}
	if amount.Sign() <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	params, err := LoadParams(store)
	if err != nil {
		return 0, err
	}

	vaultStore := vault.Store(contract.Storage(accessibleState, frame))
	seen := make(map[common.Hash]struct{}, len(refs))
	for _, ref := range refs {
		key := itemKey(ref)
		if _, ok := seen[key]; ok {
			return 0, fmt.Errorf("%w: %s #%s", ErrDuplicateCollateral, ref.Collection, ref.TokenID)
		}
		seen[key] = struct{}{}

		d, found, err := vault.LoadDeposit(vaultStore, ref.Collection, ref.TokenID)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, fmt.Errorf("%w: %s #%s", vault.ErrNotDeposited, ref.Collection, ref.TokenID)
		}
		if d.Depositor != frame.Caller {
			return 0, fmt.Errorf("%w: %s did not deposit %s #%s", contract.ErrUnauthorized, frame.Caller, ref.Collection, ref.TokenID)
		}
		if d.Locked() {
			return 0, fmt.Errorf("%w: %s #%s by loan %d", vault.ErrCollateralLocked, ref.Collection, ref.TokenID, d.LockedBy)
		}
	}

	maxValue, err := f.collateralValue(accessibleState, frame, params, vaultStore, refs, true)
	if err != nil {
		return 0, err
	}
	if amount.Cmp(maxValue) > 0 {
		return 0, fmt.Errorf("%w: requested %s, collateral allows %s", ErrInsufficientCollateralValue, amount, maxValue)
	}
	available := cash(accessibleState, frame)
	if amount.Cmp(available) > 0 {
		return 0, fmt.Errorf("%w: requested %s, available %s", ErrInsufficientLiquidity, amount, available)
	}

	totals, err := LoadTotals(store)
	if err != nil {
		return 0, err
	}
	rate := params.Model().GetBorrowRate(available, totals.TotalBorrows, totals.TotalReserves)

	id, err := allocateLoanID(store)
	if err != nil {
		return 0, err
	}
	start := now(accessibleState)
	l := Loan{
		ID:          id,
		Borrower:    frame.Caller,
		Collateral:  refs,
		Principal:   new(big.Int).Set(amount),
		Interest:    new(big.Int),
		Rate:        rate,
		StartTime:   start,
		LastAccrual: start,
		Maturity:    start + params.LoanDuration,
		Status:      StatusActive,
		Carry:       new(big.Int),
	}
	for _, ref := range refs {
		if err := vault.LockDeposit(vaultStore, ref.Collection, ref.TokenID, id); err != nil {
			return 0, err
		}
	}
	if err := storeLoan(store, l); err != nil {
		return 0, err
	}
	if err := appendLoanOf(store, l.Borrower, id); err != nil {
		return 0, err
	}
	totals.TotalBorrows = new(big.Int).Add(totals.TotalBorrows, amount)
	if err := storeTotals(store, totals); err != nil {
		return 0, err
	}
	if err := contract.EmitEvent(accessibleState, frame, ABI, "LoanCreated", new(big.Int).SetUint64(id), l.Borrower, l.Principal, l.Rate, l.Maturity); err != nil {
		return 0, err
	}
	return id, transfer(accessibleState, frame.Address, l.Borrower, amount)
}

func (f *Facet) repay(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, id uint64, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	l, err := LoadLoan(store, id)
	if err != nil {
		return err
	}
	if !l.Active() {
		return fmt.Errorf("%w: loan %d is %s", ErrLoanNotActive, id, l.Status)
	}
	params, err := LoadParams(store)
	if err != nil {
		return err
	}
	totals, err := LoadTotals(store)
	if err != nil {
		return err
	}
	bookInterest(&totals, params.Model(), accrue(&l, now(accessibleState)))

	pay := l.Outstanding()
	if amount.Cmp(pay) < 0 {
		pay.Set(amount)
	}
	// interest is settled before principal
	interestPaid := new(big.Int).Set(pay)
	if interestPaid.Cmp(l.Interest) > 0 {
		interestPaid.Set(l.Interest)
	}
	l.Interest = new(big.Int).Sub(l.Interest, interestPaid)
	l.Principal = new(big.Int).Sub(l.Principal, new(big.Int).Sub(pay, interestPaid))
	totals.TotalBorrows = subFloor(totals.TotalBorrows, pay)

	remaining := l.Outstanding()
	if remaining.Sign() == 0 {
		l.Status = StatusRepaid
		vaultStore := vault.Store(contract.Storage(accessibleState, frame))
		for _, ref := range l.Collateral {
			if err := vault.UnlockDeposit(vaultStore, ref.Collection, ref.TokenID, id); err != nil {
				return err
			}
		}
	}
	if err := storeLoan(store, l); err != nil {
		return err
	}
	if err := storeTotals(store, totals); err != nil {
		return err
	}

	loanID := new(big.Int).SetUint64(id)
	if l.Status == StatusRepaid {
		err = contract.EmitEvent(accessibleState, frame, ABI, "LoanRepaid", loanID, l.Borrower, frame.Caller, pay)
	} else {
		err = contract.EmitEvent(accessibleState, frame, ABI, "LoanRepayment", loanID, frame.Caller, pay, remaining)
	}
	if err != nil {
		return err
	}
	return transfer(accessibleState, frame.Caller, frame.Address, pay)
}

func (f *Facet) supplyLiquidity(accessibleState contract.AccessibleState, frame contract.CallFrame) error {
	value := contract.CallValue(frame)
	if value.IsZero() {
		return fmt.Errorf("%w: no value attached", ErrInvalidAmount)
	}
	return contract.EmitEvent(accessibleState, frame, ABI, "LiquiditySupplied", frame.Caller, value.ToBig())
}

func enforceIsOwner(accessibleState contract.AccessibleState, frame contract.CallFrame) error {
	return diamond.EnforceIsOwner(diamond.Store(contract.Storage(accessibleState, frame)), frame.Caller)
}

func (f *Facet) withdrawLiquidity(accessibleState contract.AccessibleState, frame contract.CallFrame, amount *big.Int) error {
	if err := enforceIsOwner(accessibleState, frame); err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if available := cash(accessibleState, frame); amount.Cmp(available) > 0 {
		return fmt.Errorf("%w: requested %s, available %s", ErrInsufficientLiquidity, amount, available)
	}
	if err := contract.EmitEvent(accessibleState, frame, ABI, "LiquidityWithdrawn", frame.Caller, amount); err != nil {
		return err
	}
	return transfer(accessibleState, frame.Address, frame.Caller, amount)
}

func (f *Facet) setOracle(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, oracleAddr common.Address) error {
	if err := enforceIsOwner(accessibleState, frame); err != nil {
		return err
	}
	if oracleAddr != (common.Address{}) && !accessibleState.HasCode(oracleAddr) {
		return fmt.Errorf("%w: oracle %s has no code", contract.ErrInvalidInput, oracleAddr)
	}
	p, err := LoadParams(store)
	if err != nil {
		return err
	}
	p.Oracle = oracleAddr
	if err := storeParams(store, p); err != nil {
		return err
	}
	return contract.EmitEvent(accessibleState, frame, ABI, "OracleUpdated", oracleAddr)
}

func (f *Facet) setLoanDuration(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, duration uint64) error {
	if err := enforceIsOwner(accessibleState, frame); err != nil {
		return err
	}
	if duration == 0 {
		return fmt.Errorf("%w: loan duration must be positive", ErrInvalidParams)
	}
	p, err := LoadParams(store)
	if err != nil {
		return err
	}
	p.LoanDuration = duration
	if err := storeParams(store, p); err != nil {
		return err
	}
	return contract.EmitEvent(accessibleState, frame, ABI, "LoanDurationUpdated", duration)
}
