// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package diamond implements a selector-routing proxy whose behavior is
// assembled from facets that all execute against the proxy's storage.
package diamond

import (
	"errors"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
)

// FacetCutAction is the kind of change a FacetCut applies
type FacetCutAction uint8

const (
	Add FacetCutAction = iota
	Replace
	Remove
)

func (a FacetCutAction) String() string {
	switch a {
	case Add:
		return "add"
	case Replace:
		return "replace"
	case Remove:
		return "remove"
	default:
		return "invalid"
	}
}

// FacetCut binds, rebinds or unbinds a batch of selectors.
// Field order and names follow the ABI tuple.
type FacetCut struct {
	FacetAddress      common.Address
	Action            uint8
	FunctionSelectors [][4]byte
}

// Facet is a facet address with the selectors bound to it
type Facet struct {
	FacetAddress      common.Address
	FunctionSelectors [][4]byte
}

// Errors
var (
	ErrSelectorCollision    = errors.New("function selector already bound")
	ErrSelectorNotBound     = errors.New("function selector not bound")
	ErrReplaceSameFacet     = errors.New("cannot replace function with the same facet")
	ErrImmutableFunction    = errors.New("cannot modify immutable function")
	ErrRemoveFacetNotZero   = errors.New("remove facet address must be zero")
	ErrInvalidCutAction     = errors.New("invalid facet cut action")
	ErrNoSelectors          = errors.New("no selectors in facet cut")
	ErrZeroFacetAddress     = errors.New("facet address cannot be zero")
	ErrFacetHasNoCode       = errors.New("facet has no code")
	ErrInitCalldataNotEmpty = errors.New("init address is zero but calldata is not empty")
	ErrInitHasNoCode        = errors.New("init address has no code")
	ErrInitializationFailed = errors.New("diamond initialization failed")
	ErrFunctionNotFound     = errors.New("function does not exist")
	ErrTooManySelectors     = errors.New("facet selector position overflow")
)

// ERC-165 interface identifiers the platform advertises
var (
	IERC165       = [4]byte{0x01, 0xff, 0xc9, 0xa7}
	IDiamondCut   = [4]byte{0x1f, 0x93, 0x1c, 0x1c}
	IDiamondLoupe = [4]byte{0x48, 0xe2, 0xb0, 0x93}
	IERC173       = [4]byte{0x7f, 0x58, 0x28, 0xd0}
)

const cutABIJSON = `[
	{"type":"constructor","inputs":[
		{"name":"_contractOwner","type":"address"},
		{"name":"_diamondCutFacet","type":"address"}]},
	{"type":"function","name":"diamondCut","stateMutability":"nonpayable","inputs":[
		{"name":"_diamondCut","type":"tuple[]","components":[
			{"name":"facetAddress","type":"address"},
			{"name":"action","type":"uint8"},
			{"name":"functionSelectors","type":"bytes4[]"}]},
		{"name":"_init","type":"address"},
		{"name":"_calldata","type":"bytes"}],"outputs":[]},
	{"type":"event","name":"DiamondCut","anonymous":false,"inputs":[
		{"name":"_diamondCut","type":"tuple[]","indexed":false,"components":[
			{"name":"facetAddress","type":"address"},
			{"name":"action","type":"uint8"},
			{"name":"functionSelectors","type":"bytes4[]"}]},
		{"name":"_init","type":"address","indexed":false},
		{"name":"_calldata","type":"bytes","indexed":false}]}
]`

const loupeABIJSON = `[
	{"type":"function","name":"facets","stateMutability":"view","inputs":[],"outputs":[
		{"name":"facets_","type":"tuple[]","components":[
			{"name":"facetAddress","type":"address"},
			{"name":"functionSelectors","type":"bytes4[]"}]}]},
	{"type":"function","name":"facetFunctionSelectors","stateMutability":"view","inputs":[
		{"name":"_facet","type":"address"}],"outputs":[
		{"name":"facetFunctionSelectors_","type":"bytes4[]"}]},
	{"type":"function","name":"facetAddresses","stateMutability":"view","inputs":[],"outputs":[
		{"name":"facetAddresses_","type":"address[]"}]},
	{"type":"function","name":"facetAddress","stateMutability":"view","inputs":[
		{"name":"_functionSelector","type":"bytes4"}],"outputs":[
		{"name":"facetAddress_","type":"address"}]},
	{"type":"function","name":"supportsInterface","stateMutability":"view","inputs":[
		{"name":"_interfaceId","type":"bytes4"}],"outputs":[
		{"name":"","type":"bool"}]}
]`

const ownershipABIJSON = `[
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[
		{"name":"owner_","type":"address"}]},
	{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[
		{"name":"_newOwner","type":"address"}],"outputs":[]},
	{"type":"event","name":"OwnershipTransferred","anonymous":false,"inputs":[
		{"name":"previousOwner","type":"address","indexed":true},
		{"name":"newOwner","type":"address","indexed":true}]}
]`

var (
	// CutABI covers the diamond constructor and the diamondCut function
	CutABI = contract.ParseABI(cutABIJSON)
	// LoupeABI covers registry introspection and ERC-165
	LoupeABI = contract.ParseABI(loupeABIJSON)
	// OwnershipABI covers ERC-173 ownership
	OwnershipABI = contract.ParseABI(ownershipABIJSON)
)
