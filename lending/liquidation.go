// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/database"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/erc721"
	"github.com/luxfi/nftlend/oracle"
	"github.com/luxfi/nftlend/vault"
)

var maxFactor = big.NewInt(vault.MaxCollateralFactor)

// collateralValue sums appraisal * factor / 10000 over refs. With
// requireSupported an item of a delisted collection is rejected; otherwise
// it is valued with the factor it was listed with.
func (f *Facet) collateralValue(accessibleState contract.AccessibleState, frame contract.CallFrame, params Params, vaultStore database.Database, refs []CollateralRef, requireSupported bool) (*big.Int, error) {
	total := new(big.Int)
	for _, ref := range refs {
		c, err := vault.LoadCollection(vaultStore, ref.Collection)
		if err != nil {
			return nil, err
		}
		if requireSupported && !c.Supported {
			return nil, fmt.Errorf("%w: %s", vault.ErrUnsupportedCollection, ref.Collection)
		}
		price, err := oracle.Appraise(accessibleState, frame.Address, params.Oracle, ref.Collection, ref.TokenID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s #%s: %w", ErrAppraisalUnavailable, ref.Collection, ref.TokenID, err)
		}
		value := new(big.Int).Mul(price, new(big.Int).SetUint64(c.FactorBps))
		total.Add(total, value.Div(value, maxFactor))
	}
	return total, nil
}

// maxBorrowable values refs as collateral; items of unsupported collections
// contribute nothing.
func (f *Facet) maxBorrowable(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, refs []CollateralRef) (*big.Int, error) {
	params, err := LoadParams(store)
	if err != nil {
		return nil, err
	}
	vaultStore := vault.Store(contract.Storage(accessibleState, frame))
	eligible := make([]CollateralRef, 0, len(refs))
	for _, ref := range refs {
		c, err := vault.LoadCollection(vaultStore, ref.Collection)
		if err != nil {
			return nil, err
		}
		if c.Supported {
			eligible = append(eligible, ref)
		}
	}
	return f.collateralValue(accessibleState, frame, params, vaultStore, eligible, true)
}

// liquidatable reports whether l is past maturity or its collateral is worth
// less than its debt. A loan whose collateral cannot be appraised is only
// liquidatable at maturity.
func (f *Facet) liquidatable(accessibleState contract.AccessibleState, frame contract.CallFrame, params Params, l Loan) (bool, error) {
	if !l.Active() {
		return false, nil
	}
	if now(accessibleState) > l.Maturity {
		return true, nil
	}
	vaultStore := vault.Store(contract.Storage(accessibleState, frame))
	value, err := f.collateralValue(accessibleState, frame, params, vaultStore, l.Collateral, false)
	if errors.Is(err, ErrAppraisalUnavailable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value.Cmp(l.Outstanding()) < 0, nil
}

func (f *Facet) isLiquidatable(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, id uint64) (bool, error) {
	l, err := LoadLoan(store, id)
	if err != nil {
		return false, err
	}
	params, err := LoadParams(store)
	if err != nil {
		return false, err
	}
	accrue(&l, now(accessibleState))
	return f.liquidatable(accessibleState, frame, params, l)
}

// liquidate closes an unhealthy loan: the caller pays the outstanding debt
// into the pool and receives the collateral.
func (f *Facet) liquidate(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, id uint64) error {
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

	ok, err := f.liquidatable(accessibleState, frame, params, l)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: loan %d", ErrNotLiquidatable, id)
	}

	debt := l.Outstanding()
	l.Status = StatusLiquidated
	totals.TotalBorrows = subFloor(totals.TotalBorrows, debt)
	vaultStore := vault.Store(contract.Storage(accessibleState, frame))
	for _, ref := range l.Collateral {
		if err := vault.ReleaseDeposit(vaultStore, ref.Collection, ref.TokenID, id); err != nil {
			return err
		}
	}
	if err := storeLoan(store, l); err != nil {
		return err
	}
	if err := storeTotals(store, totals); err != nil {
		return err
	}
	if err := contract.EmitEvent(accessibleState, frame, ABI, "LoanLiquidated", new(big.Int).SetUint64(id), frame.Caller, debt); err != nil {
		return err
	}
	if err := transfer(accessibleState, frame.Caller, frame.Address, debt); err != nil {
		return err
	}
	for _, ref := range l.Collateral {
		client := erc721.NewClient(accessibleState, frame.Address, ref.Collection)
		if err := client.TransferFrom(frame.Address, frame.Caller, ref.TokenID); err != nil {
			return err
		}
	}
	return nil
}
