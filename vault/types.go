// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vault implements the facet that holds NFT collateral in custody
// and keeps the allow-list of collections accepted as collateral.
package vault

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
)

// MaxCollateralFactor is 100% in basis points
const MaxCollateralFactor = 10000

// SupportedCollection is the allow-list entry of a collection
type SupportedCollection struct {
	FactorBps uint64
	Supported bool
}

// Deposit is the custody record of one item. LockedBy is the id of the loan
// the item secures, 0 when unlocked.
type Deposit struct {
	Collection common.Address
	TokenID    *big.Int
	Depositor  common.Address
	LockedBy   uint64
}

// Locked reports whether a loan holds the item
func (d Deposit) Locked() bool {
	return d.LockedBy != 0
}

// Errors
var (
	ErrInvalidCollateralFactor = errors.New("collateral factor exceeds 10000 basis points")
	ErrUnsupportedCollection   = errors.New("collection not supported")
	ErrAlreadyDeposited        = errors.New("item already deposited")
	ErrNotTokenOwner           = errors.New("caller does not own the item")
	ErrNotApproved             = errors.New("vault not approved to transfer the item")
	ErrNotDeposited            = errors.New("item not deposited")
	ErrCollateralLocked        = errors.New("item locked by an active loan")
	ErrLockMismatch            = errors.New("item not locked by this loan")
	ErrUnsolicitedTransfer     = errors.New("vault only accepts items it pulls itself")
)

const abiJSON = `[
	{"type":"function","name":"addSupportedNFT","stateMutability":"nonpayable","inputs":[
		{"name":"collection","type":"address"},
		{"name":"collateralFactor","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"removeSupportedNFT","stateMutability":"nonpayable","inputs":[
		{"name":"collection","type":"address"}],"outputs":[]},
	{"type":"function","name":"isNFTSupported","stateMutability":"view","inputs":[
		{"name":"collection","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getCollateralFactor","stateMutability":"view","inputs":[
		{"name":"collection","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"depositNFT","stateMutability":"nonpayable","inputs":[
		{"name":"collection","type":"address"},
		{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"withdrawNFT","stateMutability":"nonpayable","inputs":[
		{"name":"collection","type":"address"},
		{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getDeposit","stateMutability":"view","inputs":[
		{"name":"collection","type":"address"},
		{"name":"tokenId","type":"uint256"}],"outputs":[
		{"name":"depositor","type":"address"},
		{"name":"lockedBy","type":"uint256"}]},
	{"type":"function","name":"onERC721Received","stateMutability":"nonpayable","inputs":[
		{"name":"operator","type":"address"},
		{"name":"from","type":"address"},
		{"name":"tokenId","type":"uint256"},
		{"name":"data","type":"bytes"}],"outputs":[{"name":"","type":"bytes4"}]},
	{"type":"event","name":"CollectionSupported","anonymous":false,"inputs":[
		{"name":"collection","type":"address","indexed":true},
		{"name":"collateralFactor","type":"uint256","indexed":false}]},
	{"type":"event","name":"CollectionRemoved","anonymous":false,"inputs":[
		{"name":"collection","type":"address","indexed":true}]},
	{"type":"event","name":"NFTDeposited","anonymous":false,"inputs":[
		{"name":"depositor","type":"address","indexed":true},
		{"name":"collection","type":"address","indexed":true},
		{"name":"tokenId","type":"uint256","indexed":true}]},
	{"type":"event","name":"NFTWithdrawn","anonymous":false,"inputs":[
		{"name":"depositor","type":"address","indexed":true},
		{"name":"collection","type":"address","indexed":true},
		{"name":"tokenId","type":"uint256","indexed":true}]}
]`

// ABI is the vault facet interface
var ABI = contract.ParseABI(abiJSON)
