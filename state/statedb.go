// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state implements the journaled account state the host executes
// contracts against.
package state

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoOpenFrame         = errors.New("no open state frame")

	accountPrefix = []byte("account")
	balancePrefix = []byte("balance")
)

type frame struct {
	db   *versiondb.Database
	logs []*types.Log
}

// StateDB layers uncommitted call frames over a base database. Every nested
// call opens a frame; committing folds it into its parent while reverting
// drops its writes and logs.
type StateDB struct {
	base   database.Database
	frames []*frame
	logs   []*types.Log
}

// New returns a StateDB backed by db
func New(db database.Database) *StateDB {
	return &StateDB{base: db}
}

// Depth returns the number of open frames
func (s *StateDB) Depth() int {
	return len(s.frames)
}

func (s *StateDB) current() database.Database {
	if n := len(s.frames); n > 0 {
		return s.frames[n-1].db
	}
	return s.base
}

// Begin opens a new frame on top of the current one
func (s *StateDB) Begin() {
	s.frames = append(s.frames, &frame{db: versiondb.New(s.current())})
}

// Commit folds the top frame into its parent. Committing the outermost frame
// writes through to the base database.
func (s *StateDB) Commit() error {
	n := len(s.frames)
	if n == 0 {
		return ErrNoOpenFrame
	}
	top := s.frames[n-1]
	s.frames = s.frames[:n-1]
	if err := top.db.Commit(); err != nil {
		return fmt.Errorf("commit state frame: %w", err)
	}
	if n > 1 {
		parent := s.frames[n-2]
		parent.logs = append(parent.logs, top.logs...)
	} else {
		s.logs = append(s.logs, top.logs...)
	}
	return nil
}

// Revert discards the top frame
func (s *StateDB) Revert() {
	n := len(s.frames)
	if n == 0 {
		return
	}
	s.frames[n-1].db.Abort()
	s.frames = s.frames[:n-1]
}

// TakeLogs returns and clears the logs of committed outermost frames
func (s *StateDB) TakeLogs() []*types.Log {
	logs := s.logs
	s.logs = nil
	return logs
}

// Storage returns the storage region of addr
func (s *StateDB) Storage(addr common.Address) database.Database {
	return prefixdb.New(append(append([]byte{}, accountPrefix...), addr.Bytes()...), s.current())
}

func (s *StateDB) balances() database.Database {
	return prefixdb.New(balancePrefix, s.current())
}

// GetBalance returns the native balance of addr
func (s *StateDB) GetBalance(addr common.Address) *uint256.Int {
	raw, err := s.balances().Get(addr.Bytes())
	if err != nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).SetBytes(raw)
}

// SetBalance overwrites the native balance of addr
func (s *StateDB) SetBalance(addr common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return s.balances().Delete(addr.Bytes())
	}
	raw := amount.Bytes32()
	return s.balances().Put(addr.Bytes(), raw[:])
}

// AddBalance credits addr
func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int) error {
	sum, overflow := new(uint256.Int).AddOverflow(s.GetBalance(addr), amount)
	if overflow {
		return fmt.Errorf("balance overflow for %s", addr)
	}
	return s.SetBalance(addr, sum)
}

// SubBalance debits addr
func (s *StateDB) SubBalance(addr common.Address, amount *uint256.Int) error {
	balance := s.GetBalance(addr)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, addr, balance, amount)
	}
	return s.SetBalance(addr, new(uint256.Int).Sub(balance, amount))
}

// AddLog journals a log in the top frame
func (s *StateDB) AddLog(log *types.Log) {
	if n := len(s.frames); n > 0 {
		s.frames[n-1].logs = append(s.frames[n-1].logs, log)
		return
	}
	s.logs = append(s.logs, log)
}
