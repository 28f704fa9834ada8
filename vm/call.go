// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
)

type callKind uint8

const (
	callKindCall callKind = iota
	callKindStatic
	callKindDelegate
)

func (k callKind) String() string {
	switch k {
	case callKindCall:
		return "call"
	case callKindStatic:
		return "staticcall"
	case callKindDelegate:
		return "delegatecall"
	default:
		return "unknown"
	}
}

// call runs one frame. Its writes and logs fold into the caller's frame on
// success and vanish on failure; static frames never keep their writes.
func (h *Host) call(kind callKind, frame contract.CallFrame, input []byte) ([]byte, error) {
	if h.depth >= MaxCallDepth {
		h.metrics.calls.WithLabelValues(kind.String(), resultReverted).Inc()
		return nil, ErrDepth
	}
	h.depth++
	defer func() { h.depth-- }()
	if kind == callKindStatic {
		h.static++
		defer func() { h.static-- }()
	}

	h.state.Begin()
	ret, err := h.run(kind, frame, input)
	if err != nil || kind == callKindStatic {
		h.state.Revert()
	} else if cerr := h.state.Commit(); cerr != nil {
		err = cerr
	}
	if err != nil {
		h.metrics.calls.WithLabelValues(kind.String(), resultReverted).Inc()
		return nil, err
	}
	h.metrics.calls.WithLabelValues(kind.String(), resultSuccess).Inc()
	return ret, nil
}

func (h *Host) run(kind callKind, frame contract.CallFrame, input []byte) ([]byte, error) {
	if kind == callKindCall && frame.Value != nil && !frame.Value.IsZero() {
		if frame.ReadOnly {
			return nil, ErrStaticValue
		}
		if err := h.state.SubBalance(frame.Caller, frame.Value); err != nil {
			return nil, fmt.Errorf("%w: %w", contract.ErrTransferFailed, err)
		}
		if err := h.state.AddBalance(frame.Address, frame.Value); err != nil {
			return nil, err
		}
	}

	m, ok := h.code.GetByAddress(frame.CodeAddress)
	if !ok {
		if kind == callKindDelegate {
			return nil, fmt.Errorf("%w: %s", ErrNoCode, frame.CodeAddress)
		}
		// plain value transfer to an account without code
		return nil, nil
	}
	return m.Contract.Run(hostState{h}, frame, input)
}

// hostState is the contract.AccessibleState handed to running contracts.
// It reaches the host without taking its lock; contracts only run while the
// host already holds it.
type hostState struct {
	h *Host
}

func (s hostState) GetStateDB() contract.StateDB {
	return s.h.state
}

func (s hostState) GetBlockContext() contract.BlockContext {
	return s.h.block
}

func (s hostState) HasCode(addr common.Address) bool {
	_, ok := s.h.code.GetByAddress(addr)
	return ok
}

func (s hostState) Call(caller common.Address, addr common.Address, input []byte, value *uint256.Int) ([]byte, error) {
	if value == nil {
		value = new(uint256.Int)
	}
	return s.h.call(callKindCall, contract.CallFrame{
		Caller:      caller,
		Address:     addr,
		CodeAddress: addr,
		Value:       value,
		ReadOnly:    s.h.static > 0,
	}, input)
}

func (s hostState) StaticCall(caller common.Address, addr common.Address, input []byte) ([]byte, error) {
	return s.h.call(callKindStatic, contract.CallFrame{
		Caller:      caller,
		Address:     addr,
		CodeAddress: addr,
		Value:       new(uint256.Int),
		ReadOnly:    true,
	}, input)
}

func (s hostState) DelegateCall(frame contract.CallFrame, codeAddr common.Address, input []byte) ([]byte, error) {
	frame.CodeAddress = codeAddr
	return s.h.call(callKindDelegate, frame, input)
}
