// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oracle implements the appraisal source the lending facet values
// collateral with.
package oracle

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/state"
)

const storageNamespace = "nftlend.oracle.storage"

var (
	ErrNoAppraisal    = errors.New("no appraisal for item")
	ErrOracleNotSet   = errors.New("appraisal oracle not configured")
	ErrInvalidPrice   = errors.New("price must be positive")
	ErrNotOracleAdmin = errors.New("caller is not the oracle owner")

	ownerKey = []byte("owner")
)

const abiJSON = `[
	{"type":"constructor","inputs":[{"name":"_owner","type":"address"}]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[
		{"name":"newOwner","type":"address"}],"outputs":[]},
	{"type":"function","name":"setFloorPrice","stateMutability":"nonpayable","inputs":[
		{"name":"collection","type":"address"},
		{"name":"price","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"setItemPrice","stateMutability":"nonpayable","inputs":[
		{"name":"collection","type":"address"},
		{"name":"tokenId","type":"uint256"},
		{"name":"price","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"clearItemPrice","stateMutability":"nonpayable","inputs":[
		{"name":"collection","type":"address"},
		{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"floorPrice","stateMutability":"view","inputs":[
		{"name":"collection","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"appraise","stateMutability":"view","inputs":[
		{"name":"collection","type":"address"},
		{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"FloorPriceSet","anonymous":false,"inputs":[
		{"name":"collection","type":"address","indexed":true},
		{"name":"price","type":"uint256","indexed":false}]},
	{"type":"event","name":"ItemPriceSet","anonymous":false,"inputs":[
		{"name":"collection","type":"address","indexed":true},
		{"name":"tokenId","type":"uint256","indexed":true},
		{"name":"price","type":"uint256","indexed":false}]}
]`

// ABI is the oracle interface
var ABI = contract.ParseABI(abiJSON)

var (
	_ contract.StatefulContract = (*PriceOracle)(nil)
	_ contract.Constructor      = (*PriceOracle)(nil)
)

// PriceOracle appraises items from an owner-maintained price book. An item
// price overrides its collection's floor price.
type PriceOracle struct{}

// ConstructorInput packs the deployment arguments of an oracle
func ConstructorInput(owner common.Address) ([]byte, error) {
	return ABI.Pack("", owner)
}

func floorKey(collection common.Address) []byte {
	return state.Key("floor/", collection.Bytes())
}

func itemKey(collection common.Address, tokenID *big.Int) []byte {
	key := state.MakeKey(collection.Bytes(), common.BigToHash(tokenID).Bytes())
	return state.Key("item/", key[:])
}

func (o *PriceOracle) Construct(accessibleState contract.AccessibleState, frame contract.CallFrame, input []byte) error {
	args, err := ABI.Constructor.Inputs.Unpack(input)
	if err != nil {
		return fmt.Errorf("%w: constructor: %v", contract.ErrInvalidInput, err)
	}
	store := state.Namespace(contract.Storage(accessibleState, frame), storageNamespace)
	return state.Store(store, ownerKey, args[0].(common.Address))
}

func (o *PriceOracle) Run(accessibleState contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
	method, args, err := ABI.DecodeCall(input)
	if err != nil {
		return nil, err
	}
	store := state.Namespace(contract.Storage(accessibleState, frame), storageNamespace)

	switch method.Name {
	case "owner":
		owner, err := loadOwner(store)
		if err != nil {
			return nil, err
		}
		return ABI.PackOutput(method.Name, owner)
	case "floorPrice":
		price, err := loadPrice(store, floorKey(args[0].(common.Address)))
		if err != nil {
			return nil, err
		}
		return ABI.PackOutput(method.Name, price)
	case "appraise":
		price, err := appraise(store, args[0].(common.Address), args[1].(*big.Int))
		if err != nil {
			return nil, err
		}
		return ABI.PackOutput(method.Name, price)
	}

	if err := contract.RequireWritable(frame); err != nil {
		return nil, err
	}
	if err := enforceIsOwner(store, frame.Caller); err != nil {
		return nil, err
	}
	switch method.Name {
	case "transferOwnership":
		return nil, state.Store(store, ownerKey, args[0].(common.Address))
	case "setFloorPrice":
		collection, price := args[0].(common.Address), args[1].(*big.Int)
		if price.Sign() <= 0 {
			return nil, ErrInvalidPrice
		}
		if err := state.Store(store, floorKey(collection), price); err != nil {
			return nil, err
		}
		return nil, contract.EmitEvent(accessibleState, frame, ABI, "FloorPriceSet", collection, price)
	case "setItemPrice":
		collection, tokenID, price := args[0].(common.Address), args[1].(*big.Int), args[2].(*big.Int)
		if price.Sign() <= 0 {
			return nil, ErrInvalidPrice
		}
		if err := state.Store(store, itemKey(collection, tokenID), price); err != nil {
			return nil, err
		}
		return nil, contract.EmitEvent(accessibleState, frame, ABI, "ItemPriceSet", collection, tokenID, price)
	case "clearItemPrice":
		return nil, state.Delete(store, itemKey(args[0].(common.Address), args[1].(*big.Int)))
	default:
		return nil, fmt.Errorf("%w: %s", contract.ErrMethodNotFound, method.Name)
	}
}

func loadOwner(store database.Database) (common.Address, error) {
	var owner common.Address
	_, err := state.Load(store, ownerKey, &owner)
	return owner, err
}

func enforceIsOwner(store database.Database, caller common.Address) error {
	owner, err := loadOwner(store)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: %w", contract.ErrUnauthorized, ErrNotOracleAdmin)
	}
	return nil
}

func loadPrice(store database.Database, key []byte) (*big.Int, error) {
	price := new(big.Int)
	if _, err := state.Load(store, key, price); err != nil {
		return nil, err
	}
	return price, nil
}

func appraise(store database.Database, collection common.Address, tokenID *big.Int) (*big.Int, error) {
	price, err := loadPrice(store, itemKey(collection, tokenID))
	if err != nil {
		return nil, err
	}
	if price.Sign() > 0 {
		return price, nil
	}
	price, err = loadPrice(store, floorKey(collection))
	if err != nil {
		return nil, err
	}
	if price.Sign() > 0 {
		return price, nil
	}
	return nil, fmt.Errorf("%w: %s #%s", ErrNoAppraisal, collection, tokenID)
}

// Appraise asks the oracle at oracleAddr for the value of one item. The call
// is static, so the oracle cannot touch state.
func Appraise(accessibleState contract.AccessibleState, caller, oracleAddr, collection common.Address, tokenID *big.Int) (*big.Int, error) {
	if oracleAddr == (common.Address{}) {
		return nil, ErrOracleNotSet
	}
	input, err := ABI.Pack("appraise", collection, tokenID)
	if err != nil {
		return nil, err
	}
	ret, err := accessibleState.StaticCall(caller, oracleAddr, input)
	if err != nil {
		return nil, err
	}
	out, err := ABI.Unpack("appraise", ret)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}
