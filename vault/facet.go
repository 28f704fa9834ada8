// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"
	"math/big"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/diamond"
	"github.com/luxfi/nftlend/erc721"
)

var _ contract.StatefulContract = (*Facet)(nil)

// Facet is the vault facet. It runs inside the diamond, so custody is held by
// the diamond's address.
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
	case "isNFTSupported":
		c, err := LoadCollection(store, args[0].(common.Address))
		if err != nil {
			return nil, err
		}
		return ABI.PackOutput(method.Name, c.Supported)
	case "getCollateralFactor":
		// the live listing only: 0 once delisted, though open loans on the
		// collection keep being valued at the stored factor
		c, err := LoadCollection(store, args[0].(common.Address))
		if err != nil {
			return nil, err
		}
		factor := new(big.Int)
		if c.Supported {
			factor.SetUint64(c.FactorBps)
		}
		return ABI.PackOutput(method.Name, factor)
	case "getDeposit":
		d, _, err := LoadDeposit(store, args[0].(common.Address), args[1].(*big.Int))
		if err != nil {
			return nil, err
		}
		return ABI.PackOutput(method.Name, d.Depositor, new(big.Int).SetUint64(d.LockedBy))
	case "onERC721Received":
		// only the vault's own pulls may land items in custody
		if args[0].(common.Address) != frame.Address {
			return nil, ErrUnsolicitedTransfer
		}
		return ABI.PackOutput(method.Name, erc721.ReceivedSelector)
	}

	if err := contract.RequireWritable(frame); err != nil {
		return nil, err
	}
	return contract.NonReentrant(accessibleState, frame, func() ([]byte, error) {
		switch method.Name {
		case "addSupportedNFT":
			return nil, f.addSupportedNFT(accessibleState, frame, store, args[0].(common.Address), args[1].(*big.Int))
		case "removeSupportedNFT":
			return nil, f.removeSupportedNFT(accessibleState, frame, store, args[0].(common.Address))
		case "depositNFT":
			return nil, f.depositNFT(accessibleState, frame, store, args[0].(common.Address), args[1].(*big.Int))
		case "withdrawNFT":
			return nil, f.withdrawNFT(accessibleState, frame, store, args[0].(common.Address), args[1].(*big.Int))
		default:
			return nil, fmt.Errorf("%w: %s", contract.ErrMethodNotFound, method.Name)
		}
	})
}

func enforceIsOwner(accessibleState contract.AccessibleState, frame contract.CallFrame) error {
	return diamond.EnforceIsOwner(diamond.Store(contract.Storage(accessibleState, frame)), frame.Caller)
}

func (f *Facet) addSupportedNFT(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, collection common.Address, factor *big.Int) error {
	if err := enforceIsOwner(accessibleState, frame); err != nil {
		return err
	}
	if factor.Sign() < 0 || factor.Cmp(big.NewInt(MaxCollateralFactor)) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCollateralFactor, factor)
	}
	if collection == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrUnsupportedCollection)
	}
	c := SupportedCollection{FactorBps: factor.Uint64(), Supported: true}
	if err := StoreCollection(store, collection, c); err != nil {
		return err
	}
	return contract.EmitEvent(accessibleState, frame, ABI, "CollectionSupported", collection, factor)
}

func (f *Facet) removeSupportedNFT(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, collection common.Address) error {
	if err := enforceIsOwner(accessibleState, frame); err != nil {
		return err
	}
	c, err := LoadCollection(store, collection)
	if err != nil {
		return err
	}
	if !c.Supported {
		return fmt.Errorf("%w: %s", ErrUnsupportedCollection, collection)
	}
	// the factor is kept for valuing loans already secured by the collection
	c.Supported = false
	if err := StoreCollection(store, collection, c); err != nil {
		return err
	}
	return contract.EmitEvent(accessibleState, frame, ABI, "CollectionRemoved", collection)
}

func (f *Facet) depositNFT(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, collection common.Address, tokenID *big.Int) error {
	c, err := LoadCollection(store, collection)
	if err != nil {
		return err
	}
	if !c.Supported {
		return fmt.Errorf("%w: %s", ErrUnsupportedCollection, collection)
	}
	_, found, err := LoadDeposit(store, collection, tokenID)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("%w: %s #%s", ErrAlreadyDeposited, collection, tokenID)
	}

	client := erc721.NewClient(accessibleState, frame.Address, collection)
	owner, err := client.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if owner != frame.Caller {
		return fmt.Errorf("%w: %s #%s is held by %s", ErrNotTokenOwner, collection, tokenID, owner)
	}
	approved, err := client.CanTransfer(frame.Caller, frame.Address, tokenID)
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("%w: %s #%s", ErrNotApproved, collection, tokenID)
	}

	d := Deposit{
		Collection: collection,
		TokenID:    tokenID,
		Depositor:  frame.Caller,
	}
	if err := storeDeposit(store, d); err != nil {
		return err
	}
	if err := contract.EmitEvent(accessibleState, frame, ABI, "NFTDeposited", frame.Caller, collection, tokenID); err != nil {
		return err
	}

	if err := client.TransferFrom(frame.Caller, frame.Address, tokenID); err != nil {
		return err
	}
	holder, err := client.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if holder != frame.Address {
		return fmt.Errorf("%w: %s #%s not received", contract.ErrTransferFailed, collection, tokenID)
	}
	return nil
}

func (f *Facet) withdrawNFT(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, collection common.Address, tokenID *big.Int) error {
	d, found, err := LoadDeposit(store, collection, tokenID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s #%s", ErrNotDeposited, collection, tokenID)
	}
	if d.Depositor != frame.Caller {
		return fmt.Errorf("%w: %s did not deposit %s #%s", contract.ErrUnauthorized, frame.Caller, collection, tokenID)
	}
	if d.Locked() {
		return fmt.Errorf("%w: %s #%s by loan %d", ErrCollateralLocked, collection, tokenID, d.LockedBy)
	}

	if err := deleteDeposit(store, collection, tokenID); err != nil {
		return err
	}
	if err := contract.EmitEvent(accessibleState, frame, ABI, "NFTWithdrawn", frame.Caller, collection, tokenID); err != nil {
		return err
	}
	return erc721.NewClient(accessibleState, frame.Address, collection).TransferFrom(frame.Address, d.Depositor, tokenID)
}
