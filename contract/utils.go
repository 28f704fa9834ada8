// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/core/types"
)

// Storage returns the storage region of the account the frame executes for.
func Storage(accessibleState AccessibleState, frame CallFrame) database.Database {
	return accessibleState.GetStateDB().Storage(frame.Address)
}

// RequireWritable rejects state changes inside a static call
func RequireWritable(frame CallFrame) error {
	if frame.ReadOnly {
		return ErrWriteProtection
	}
	return nil
}

// CallValue returns the native value attached to the frame, never nil
func CallValue(frame CallFrame) *uint256.Int {
	if frame.Value == nil {
		return new(uint256.Int)
	}
	return frame.Value
}

// RequirePayable rejects native value sent to a method the ABI marks
// nonpayable. The host credits value before code runs.
func RequirePayable(method *abi.Method, frame CallFrame) error {
	if !method.IsPayable() && !CallValue(frame).IsZero() {
		return fmt.Errorf("%w: %s is not payable", ErrInvalidInput, method.Name)
	}
	return nil
}

// EmitEvent packs the named event from contractABI and appends it to the
// transaction's log, attributed to the frame's account.
func EmitEvent(accessibleState AccessibleState, frame CallFrame, contractABI ExtendedABI, name string, args ...interface{}) error {
	topics, data, err := contractABI.PackEvent(name, args...)
	if err != nil {
		return err
	}
	accessibleState.GetStateDB().AddLog(&types.Log{
		Address:     frame.Address,
		Topics:      topics,
		Data:        data,
		BlockNumber: accessibleState.GetBlockContext().Number(),
	})
	return nil
}
