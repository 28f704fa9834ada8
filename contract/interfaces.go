// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the interfaces shared by every contract hosted on
// the lending platform: the diamond router, its facets, the collections it
// holds in custody and the appraisal oracle.
package contract

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
)

// Errors shared by all contracts
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrMethodNotFound  = errors.New("method not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrWriteProtection = errors.New("write protection: state change in read-only call")
	ErrTransferFailed  = errors.New("transfer failed")
	ErrReentrantCall   = errors.New("reentrant call")
)

// StateDB is the view of shared state a contract is given.
// Storage regions are scoped by account address; writes are journaled by the
// host and discarded when the enclosing call fails.
type StateDB interface {
	Storage(addr common.Address) database.Database

	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int) error
	SubBalance(addr common.Address, amount *uint256.Int) error

	AddLog(log *types.Log)
}

// BlockContext exposes the block the current transaction executes in
type BlockContext interface {
	Number() uint64
	Timestamp() uint64
}

// AccessibleState is what the host hands to a running contract.
type AccessibleState interface {
	GetStateDB() StateDB
	GetBlockContext() BlockContext

	// HasCode reports whether a contract is deployed at addr.
	HasCode(addr common.Address) bool

	// Call runs addr's code in addr's own storage context, transferring value
	// from caller first.
	Call(caller common.Address, addr common.Address, input []byte, value *uint256.Int) ([]byte, error)

	// StaticCall runs addr's code with writes forbidden.
	StaticCall(caller common.Address, addr common.Address, input []byte) ([]byte, error)

	// DelegateCall runs codeAddr's code against frame's storage context,
	// keeping the caller, value and read-only flag of frame.
	DelegateCall(frame CallFrame, codeAddr common.Address, input []byte) ([]byte, error)
}

// CallFrame describes the context a contract is executing in.
type CallFrame struct {
	Caller      common.Address // msg.sender
	Address     common.Address // account whose storage and balance are in use
	CodeAddress common.Address // account whose code is running
	Value       *uint256.Int
	ReadOnly    bool
}

// StatefulContract is implemented by every contract deployed on the host
type StatefulContract interface {
	Run(accessibleState AccessibleState, frame CallFrame, input []byte) ([]byte, error)
}

// Constructor is implemented by contracts that need one-shot initialization
// at deployment.
type Constructor interface {
	Construct(accessibleState AccessibleState, frame CallFrame, input []byte) error
}
