// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamond

import (
	"fmt"

	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
)

var (
	_ contract.StatefulContract = (*CutFacet)(nil)
	_ contract.StatefulContract = (*LoupeFacet)(nil)
	_ contract.StatefulContract = (*OwnershipFacet)(nil)
)

// =========================================================================
// Cut
// =========================================================================

// CutFacet mutates the selector registry. Owner only.
type CutFacet struct{}

func (f *CutFacet) Run(accessibleState contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
	method, args, err := CutABI.DecodeCall(input)
	if err != nil {
		return nil, err
	}
	if err := contract.RequirePayable(method, frame); err != nil {
		return nil, err
	}
	if method.Name != "diamondCut" {
		return nil, fmt.Errorf("%w: %s", contract.ErrMethodNotFound, method.Name)
	}
	if err := contract.RequireWritable(frame); err != nil {
		return nil, err
	}
	if err := EnforceIsOwner(storeOf(accessibleState, frame), frame.Caller); err != nil {
		return nil, err
	}

	cuts := *abi.ConvertType(args[0], new([]FacetCut)).(*[]FacetCut)
	init := args[1].(common.Address)
	calldata := args[2].([]byte)
	return nil, diamondCut(accessibleState, frame, cuts, init, calldata)
}

// CutInput packs a diamondCut call
func CutInput(cuts []FacetCut, init common.Address, calldata []byte) ([]byte, error) {
	if calldata == nil {
		calldata = []byte{}
	}
	return CutABI.Pack("diamondCut", cuts, init, calldata)
}

// =========================================================================
// Loupe
// =========================================================================

// LoupeFacet answers registry and ERC-165 queries
type LoupeFacet struct{}

func (f *LoupeFacet) Run(accessibleState contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
	method, args, err := LoupeABI.DecodeCall(input)
	if err != nil {
		return nil, err
	}
	if err := contract.RequirePayable(method, frame); err != nil {
		return nil, err
	}
	store := storeOf(accessibleState, frame)

	switch method.Name {
	case "facets":
		facets, err := Facets(store)
		if err != nil {
			return nil, err
		}
		return LoupeABI.PackOutput(method.Name, facets)
	case "facetFunctionSelectors":
		sels, err := FacetSelectors(store, args[0].(common.Address))
		if err != nil {
			return nil, err
		}
		if sels == nil {
			sels = [][4]byte{}
		}
		return LoupeABI.PackOutput(method.Name, sels)
	case "facetAddresses":
		addrs, err := FacetAddresses(store)
		if err != nil {
			return nil, err
		}
		if addrs == nil {
			addrs = []common.Address{}
		}
		return LoupeABI.PackOutput(method.Name, addrs)
	case "facetAddress":
		addr, err := FacetAddress(store, args[0].([4]byte))
		if err != nil {
			return nil, err
		}
		return LoupeABI.PackOutput(method.Name, addr)
	case "supportsInterface":
		ok, err := SupportsInterface(store, args[0].([4]byte))
		if err != nil {
			return nil, err
		}
		return LoupeABI.PackOutput(method.Name, ok)
	default:
		return nil, fmt.Errorf("%w: %s", contract.ErrMethodNotFound, method.Name)
	}
}

// =========================================================================
// Ownership
// =========================================================================

// OwnershipFacet exposes ERC-173 ownership of the diamond
type OwnershipFacet struct{}

func (f *OwnershipFacet) Run(accessibleState contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
	method, args, err := OwnershipABI.DecodeCall(input)
	if err != nil {
		return nil, err
	}
	if err := contract.RequirePayable(method, frame); err != nil {
		return nil, err
	}
	store := storeOf(accessibleState, frame)

	switch method.Name {
	case "owner":
		owner, err := Owner(store)
		if err != nil {
			return nil, err
		}
		return OwnershipABI.PackOutput(method.Name, owner)
	case "transferOwnership":
		if err := contract.RequireWritable(frame); err != nil {
			return nil, err
		}
		if err := EnforceIsOwner(store, frame.Caller); err != nil {
			return nil, err
		}
		newOwner := args[0].(common.Address)
		if err := setOwner(store, newOwner); err != nil {
			return nil, err
		}
		return nil, contract.EmitEvent(accessibleState, frame, OwnershipABI, "OwnershipTransferred", frame.Caller, newOwner)
	default:
		return nil, fmt.Errorf("%w: %s", contract.ErrMethodNotFound, method.Name)
	}
}
