// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package platform

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/diamond"
	"github.com/luxfi/nftlend/lending"
	"github.com/luxfi/nftlend/state"
	"github.com/luxfi/nftlend/vault"
)

const storageNamespace = "nftlend.platform.storage"

var initializedKey = []byte("initialized")

var (
	ErrAlreadyInitialized = errors.New("platform already initialized")
	ErrNotDelegated       = errors.New("initializer must run through diamondCut")
)

const initializerABIJSON = `[
	{"type":"function","name":"initialize","stateMutability":"nonpayable","inputs":[
		{"name":"oracle","type":"address"},
		{"name":"loanDuration","type":"uint64"},
		{"name":"baseRate","type":"uint256"},
		{"name":"slope1","type":"uint256"},
		{"name":"slope2","type":"uint256"},
		{"name":"optimalUtilization","type":"uint256"},
		{"name":"reserveFactor","type":"uint256"},
		{"name":"interfaceIds","type":"bytes4[]"},
		{"name":"collections","type":"address[]"},
		{"name":"factors","type":"uint256[]"}],"outputs":[]},
	{"type":"event","name":"PlatformInitialized","anonymous":false,"inputs":[
		{"name":"oracle","type":"address","indexed":true},
		{"name":"collections","type":"uint256","indexed":false}]}
]`

// InitializerABI is the interface of the platform initializer
var InitializerABI = contract.ParseABI(initializerABIJSON)

var _ contract.StatefulContract = (*Initializer)(nil)

// Initializer seeds the diamond's state. It is the init target of the first
// diamondCut and only runs delegated, against the diamond's storage.
type Initializer struct{}

// InitializeInput packs the initializer call for cfg
func InitializeInput(cfg Config, oracle common.Address, interfaceIDs [][4]byte) ([]byte, error) {
	collections := make([]common.Address, len(cfg.Collections))
	factors := make([]*big.Int, len(cfg.Collections))
	for i, col := range cfg.Collections {
		collections[i] = col.Address
		factors[i] = new(big.Int).SetUint64(col.FactorBps)
	}
	if interfaceIDs == nil {
		interfaceIDs = [][4]byte{}
	}
	return InitializerABI.Pack(
		"initialize",
		oracle,
		cfg.LoanDuration,
		cfg.BaseRate,
		cfg.Slope1,
		cfg.Slope2,
		cfg.OptimalUtilization,
		cfg.ReserveFactor,
		interfaceIDs,
		collections,
		factors,
	)
}

func (i *Initializer) Run(accessibleState contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
	method, args, err := InitializerABI.DecodeCall(input)
	if err != nil {
		return nil, err
	}
	if method.Name != "initialize" {
		return nil, fmt.Errorf("%w: %s", contract.ErrMethodNotFound, method.Name)
	}
	if frame.Address == frame.CodeAddress {
		return nil, ErrNotDelegated
	}
	if err := contract.RequireWritable(frame); err != nil {
		return nil, err
	}

	storage := contract.Storage(accessibleState, frame)
	platformStore := state.Namespace(storage, storageNamespace)
	done, err := platformStore.Has(initializedKey)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, ErrAlreadyInitialized
	}

	oracleAddr := args[0].(common.Address)
	params := lending.Params{
		Oracle:             oracleAddr,
		LoanDuration:       args[1].(uint64),
		BaseRate:           args[2].(*big.Int),
		Slope1:             args[3].(*big.Int),
		Slope2:             args[4].(*big.Int),
		OptimalUtilization: args[5].(*big.Int),
		ReserveFactor:      args[6].(*big.Int),
	}
	if err := lending.SetParams(lending.Store(storage), params); err != nil {
		return nil, err
	}

	diamondStore := diamond.Store(storage)
	for _, id := range args[7].([][4]byte) {
		if err := diamond.SetSupportedInterface(diamondStore, id, true); err != nil {
			return nil, err
		}
	}

	collections := args[8].([]common.Address)
	factors := args[9].([]*big.Int)
	if len(collections) != len(factors) {
		return nil, fmt.Errorf("%w: %d collections, %d factors", contract.ErrInvalidInput, len(collections), len(factors))
	}
	vaultStore := vault.Store(storage)
	for j, collection := range collections {
		factor := factors[j]
		if collection == (common.Address{}) {
			return nil, fmt.Errorf("%w: zero address", vault.ErrUnsupportedCollection)
		}
		if factor.Cmp(big.NewInt(vault.MaxCollateralFactor)) > 0 {
			return nil, fmt.Errorf("%w: %s", vault.ErrInvalidCollateralFactor, factor)
		}
		c := vault.SupportedCollection{FactorBps: factor.Uint64(), Supported: true}
		if err := vault.StoreCollection(vaultStore, collection, c); err != nil {
			return nil, err
		}
		if err := contract.EmitEvent(accessibleState, frame, vault.ABI, "CollectionSupported", collection, factor); err != nil {
			return nil, err
		}
	}

	if err := platformStore.Put(initializedKey, []byte{1}); err != nil {
		return nil, err
	}
	return nil, contract.EmitEvent(accessibleState, frame, InitializerABI, "PlatformInitialized", oracleAddr, big.NewInt(int64(len(collections))))
}
