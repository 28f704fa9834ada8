// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package erc721test provides a minimal ERC-721 collection for tests.
package erc721test

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/erc721"
	"github.com/luxfi/nftlend/state"
)

const storageNamespace = "erc721test.token.storage"

var (
	ErrNonexistentToken = errors.New("nonexistent token")
	ErrTokenExists      = errors.New("token already minted")
	ErrNotOwner         = errors.New("from is not the token owner")
	ErrNotAuthorized    = errors.New("caller is not owner nor approved")
	ErrUnsafeRecipient  = errors.New("recipient rejected the token")
)

const extrasABIJSON = `[
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[
		{"name":"to","type":"address"},
		{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[
		{"name":"tokenId","type":"uint256"}],"outputs":[]}
]`

// ExtrasABI covers the test-only mint and burn functions
var ExtrasABI = contract.ParseABI(extrasABIJSON)

// TransferHook runs inside the collection before a token moves
type TransferHook func(accessibleState contract.AccessibleState, frame contract.CallFrame, from, to common.Address, tokenID *big.Int) error

var _ contract.StatefulContract = (*Token)(nil)

// Token is an ERC-721 collection where anyone may mint
type Token struct {
	BeforeTransfer TransferHook
}

func ownerKey(tokenID *big.Int) []byte {
	return state.Key("owner/", common.BigToHash(tokenID).Bytes())
}

func approvalKey(tokenID *big.Int) []byte {
	return state.Key("approved/", common.BigToHash(tokenID).Bytes())
}

func operatorKey(owner, operator common.Address) []byte {
	return state.Key("operator/", append(owner.Bytes(), operator.Bytes()...))
}

func balanceKey(owner common.Address) []byte {
	return state.Key("balance/", owner.Bytes())
}

func (t *Token) Run(accessibleState contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
	method, args, err := erc721.ABI.DecodeCall(input)
	if errors.Is(err, contract.ErrMethodNotFound) {
		method, args, err = ExtrasABI.DecodeCall(input)
	}
	if err != nil {
		return nil, err
	}
	store := state.Namespace(contract.Storage(accessibleState, frame), storageNamespace)

	switch method.Name {
	case "balanceOf":
		var n uint64
		if _, err := state.Load(store, balanceKey(args[0].(common.Address)), &n); err != nil {
			return nil, err
		}
		return erc721.ABI.PackOutput(method.Name, new(big.Int).SetUint64(n))
	case "ownerOf":
		owner, err := ownerOf(store, args[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		return erc721.ABI.PackOutput(method.Name, owner)
	case "getApproved":
		tokenID := args[0].(*big.Int)
		if _, err := ownerOf(store, tokenID); err != nil {
			return nil, err
		}
		var approved common.Address
		if _, err := state.Load(store, approvalKey(tokenID), &approved); err != nil {
			return nil, err
		}
		return erc721.ABI.PackOutput(method.Name, approved)
	case "isApprovedForAll":
		ok, err := store.Has(operatorKey(args[0].(common.Address), args[1].(common.Address)))
		if err != nil {
			return nil, err
		}
		return erc721.ABI.PackOutput(method.Name, ok)
	}

	if err := contract.RequireWritable(frame); err != nil {
		return nil, err
	}
	switch method.Name {
	case "approve":
		return nil, t.approve(accessibleState, frame, store, args[0].(common.Address), args[1].(*big.Int))
	case "setApprovalForAll":
		return nil, t.setApprovalForAll(accessibleState, frame, store, args[0].(common.Address), args[1].(bool))
	case "transferFrom":
		return nil, t.transfer(accessibleState, frame, store, args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int))
	case "safeTransferFrom":
		from, to, tokenID := args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int)
		if err := t.transfer(accessibleState, frame, store, from, to, tokenID); err != nil {
			return nil, err
		}
		return nil, checkOnReceived(accessibleState, frame, from, to, tokenID)
	case "mint":
		return nil, t.mint(accessibleState, frame, store, args[0].(common.Address), args[1].(*big.Int))
	case "burn":
		return nil, t.burn(accessibleState, frame, store, args[0].(*big.Int))
	default:
		return nil, fmt.Errorf("%w: %s", contract.ErrMethodNotFound, method.Name)
	}
}

func ownerOf(store database.Database, tokenID *big.Int) (common.Address, error) {
	var owner common.Address
	found, err := state.Load(store, ownerKey(tokenID), &owner)
	if err != nil {
		return common.Address{}, err
	}
	if !found {
		return common.Address{}, fmt.Errorf("%w: %s", ErrNonexistentToken, tokenID)
	}
	return owner, nil
}

func addBalance(store database.Database, owner common.Address, delta int64) error {
	var n uint64
	if _, err := state.Load(store, balanceKey(owner), &n); err != nil {
		return err
	}
	return state.Store(store, balanceKey(owner), uint64(int64(n)+delta))
}

func (t *Token) approve(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, to common.Address, tokenID *big.Int) error {
	owner, err := ownerOf(store, tokenID)
	if err != nil {
		return err
	}
	if frame.Caller != owner {
		ok, err := store.Has(operatorKey(owner, frame.Caller))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotAuthorized
		}
	}
	if err := state.Store(store, approvalKey(tokenID), to); err != nil {
		return err
	}
	return contract.EmitEvent(accessibleState, frame, erc721.ABI, "Approval", owner, to, tokenID)
}

func (t *Token) setApprovalForAll(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, operator common.Address, approved bool) error {
	var err error
	if approved {
		err = store.Put(operatorKey(frame.Caller, operator), []byte{1})
	} else {
		err = store.Delete(operatorKey(frame.Caller, operator))
	}
	if err != nil {
		return err
	}
	return contract.EmitEvent(accessibleState, frame, erc721.ABI, "ApprovalForAll", frame.Caller, operator, approved)
}

func (t *Token) transfer(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, from, to common.Address, tokenID *big.Int) error {
	owner, err := ownerOf(store, tokenID)
	if err != nil {
		return err
	}
	if owner != from {
		return ErrNotOwner
	}
	if frame.Caller != owner {
		var approved common.Address
		if _, err := state.Load(store, approvalKey(tokenID), &approved); err != nil {
			return err
		}
		operator, err := store.Has(operatorKey(owner, frame.Caller))
		if err != nil {
			return err
		}
		if approved != frame.Caller && !operator {
			return ErrNotAuthorized
		}
	}
	if t.BeforeTransfer != nil {
		if err := t.BeforeTransfer(accessibleState, frame, from, to, tokenID); err != nil {
			return err
		}
	}

	if err := state.Delete(store, approvalKey(tokenID)); err != nil {
		return err
	}
	if err := addBalance(store, from, -1); err != nil {
		return err
	}
	if err := addBalance(store, to, 1); err != nil {
		return err
	}
	if err := state.Store(store, ownerKey(tokenID), to); err != nil {
		return err
	}
	return contract.EmitEvent(accessibleState, frame, erc721.ABI, "Transfer", from, to, tokenID)
}

func (t *Token) mint(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, to common.Address, tokenID *big.Int) error {
	exists, err := store.Has(ownerKey(tokenID))
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrTokenExists, tokenID)
	}
	if err := addBalance(store, to, 1); err != nil {
		return err
	}
	if err := state.Store(store, ownerKey(tokenID), to); err != nil {
		return err
	}
	return contract.EmitEvent(accessibleState, frame, erc721.ABI, "Transfer", common.Address{}, to, tokenID)
}

func (t *Token) burn(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, tokenID *big.Int) error {
	owner, err := ownerOf(store, tokenID)
	if err != nil {
		return err
	}
	if frame.Caller != owner {
		return ErrNotAuthorized
	}
	if err := addBalance(store, owner, -1); err != nil {
		return err
	}
	if err := state.Delete(store, ownerKey(tokenID)); err != nil {
		return err
	}
	if err := state.Delete(store, approvalKey(tokenID)); err != nil {
		return err
	}
	return contract.EmitEvent(accessibleState, frame, erc721.ABI, "Transfer", owner, common.Address{}, tokenID)
}

func checkOnReceived(accessibleState contract.AccessibleState, frame contract.CallFrame, from, to common.Address, tokenID *big.Int) error {
	if !accessibleState.HasCode(to) {
		return nil
	}
	input, err := erc721.ReceiverABI.Pack("onERC721Received", frame.Caller, from, tokenID, []byte{})
	if err != nil {
		return err
	}
	ret, err := accessibleState.Call(frame.Address, to, input, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsafeRecipient, err)
	}
	out, err := erc721.ReceiverABI.Unpack("onERC721Received", ret)
	if err != nil || out[0].([4]byte) != erc721.ReceivedSelector {
		return ErrUnsafeRecipient
	}
	return nil
}
