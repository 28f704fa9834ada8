// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/state"
)

var (
	user    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	target  = common.HexToAddress("0x0000000000000000000000000000000000001000")
	library = common.HexToAddress("0x0000000000000000000000000000000000002000")
	errBoom = errors.New("boom")
)

// runFunc adapts a function to contract.StatefulContract
type runFunc func(env contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error)

func (f runFunc) Run(env contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
	return f(env, frame, input)
}

type constructed struct {
	runFunc
	fail bool
}

func (c constructed) Construct(env contract.AccessibleState, frame contract.CallFrame, input []byte) error {
	if err := contract.Storage(env, frame).Put([]byte("ctor"), input); err != nil {
		return err
	}
	if c.fail {
		return errBoom
	}
	return nil
}

func newTestHost(t *testing.T) *Host {
	h, err := New(memdb.New(), nil)
	require.NoError(t, err)
	return h
}

func writer(fail bool) runFunc {
	return func(env contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
		if err := contract.RequireWritable(frame); err != nil {
			return nil, err
		}
		if err := contract.Storage(env, frame).Put([]byte("k"), input); err != nil {
			return nil, err
		}
		env.GetStateDB().AddLog(&types.Log{Address: frame.Address})
		if fail {
			return nil, errBoom
		}
		return input, nil
	}
}

func storedValue(t *testing.T, h *Host, addr common.Address, key string) []byte {
	v, err := h.state.Storage(addr).Get([]byte(key))
	if err != nil {
		return nil
	}
	return v
}

func TestTransactCommitsOnSuccess(t *testing.T) {
	require := require.New(t)

	h := newTestHost(t)
	require.NoError(h.Deploy("writer", target, writer(false), user, nil))

	receipt, err := h.Transact(user, target, []byte("v1"), nil)
	require.NoError(err)
	require.Equal([]byte("v1"), receipt.Return)
	require.Len(receipt.Logs, 1)
	require.Equal([]byte("v1"), storedValue(t, h, target, "k"))
}

func TestTransactRevertsOnFailure(t *testing.T) {
	require := require.New(t)

	h := newTestHost(t)
	require.NoError(h.Deploy("writer", target, writer(true), user, nil))
	require.NoError(h.SetBalance(user, uint256.NewInt(10)))

	_, err := h.Transact(user, target, []byte("v1"), uint256.NewInt(4))
	require.ErrorIs(err, errBoom)
	require.Nil(storedValue(t, h, target, "k"))
	require.Equal(uint64(10), h.Balance(user).Uint64())
	require.True(h.Balance(target).IsZero())
}

func TestValueTransfer(t *testing.T) {
	require := require.New(t)

	h := newTestHost(t)
	var seen *uint256.Int
	require.NoError(h.Deploy("payable", target, runFunc(func(env contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
		seen = env.GetStateDB().GetBalance(frame.Address)
		return nil, nil
	}), user, nil))
	require.NoError(h.SetBalance(user, uint256.NewInt(10)))

	_, err := h.Transact(user, target, nil, uint256.NewInt(4))
	require.NoError(err)
	require.Equal(uint64(4), seen.Uint64(), "value credited before code runs")
	require.Equal(uint64(6), h.Balance(user).Uint64())

	_, err = h.Transact(user, target, nil, uint256.NewInt(7))
	require.ErrorIs(err, contract.ErrTransferFailed)
	require.ErrorIs(err, state.ErrInsufficientBalance)

	// plain transfer to an account without code
	other := common.HexToAddress("0x1000000000000000000000000000000000000002")
	_, err = h.Transact(user, other, nil, uint256.NewInt(6))
	require.NoError(err)
	require.Equal(uint64(6), h.Balance(other).Uint64())
}

func TestNestedFailureOnlyRevertsInnerFrame(t *testing.T) {
	require := require.New(t)

	h := newTestHost(t)
	require.NoError(h.Deploy("failing", library, writer(true), user, nil))
	require.NoError(h.Deploy("outer", target, runFunc(func(env contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
		if err := contract.Storage(env, frame).Put([]byte("outer"), []byte{1}); err != nil {
			return nil, err
		}
		_, err := env.Call(frame.Address, library, []byte("inner"), nil)
		require.ErrorIs(err, errBoom)
		return nil, nil
	}), user, nil))

	receipt, err := h.Transact(user, target, nil, nil)
	require.NoError(err)
	require.Empty(receipt.Logs)
	require.Equal([]byte{1}, storedValue(t, h, target, "outer"))
	require.Nil(storedValue(t, h, library, "k"))
}

func TestDelegateCallUsesCallerStorage(t *testing.T) {
	require := require.New(t)

	h := newTestHost(t)
	var inner contract.CallFrame
	require.NoError(h.Deploy("library", library, runFunc(func(env contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
		inner = frame
		return nil, contract.Storage(env, frame).Put([]byte("k"), input)
	}), user, nil))
	require.NoError(h.Deploy("proxy", target, runFunc(func(env contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
		return env.DelegateCall(frame, library, input)
	}), user, nil))
	require.NoError(h.SetBalance(user, uint256.NewInt(5)))

	_, err := h.Transact(user, target, []byte("v"), uint256.NewInt(5))
	require.NoError(err)
	require.Equal(user, inner.Caller)
	require.Equal(target, inner.Address)
	require.Equal(library, inner.CodeAddress)
	require.Equal(uint64(5), inner.Value.Uint64())
	require.Equal([]byte("v"), storedValue(t, h, target, "k"))
	require.Nil(storedValue(t, h, library, "k"))
	require.Equal(uint64(5), h.Balance(target).Uint64())
	require.True(h.Balance(library).IsZero())

	_, err = h.Transact(user, target, []byte("v"), nil)
	require.NoError(err)
}

func TestDelegateCallToEmptyAccount(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, h.Deploy("proxy", target, runFunc(func(env contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
		return env.DelegateCall(frame, library, input)
	}), user, nil))

	_, err := h.Transact(user, target, nil, nil)
	require.ErrorIs(t, err, ErrNoCode)
}

func TestStaticCallDiscardsWrites(t *testing.T) {
	require := require.New(t)

	h := newTestHost(t)
	require.NoError(h.Deploy("writer", library, writer(false), user, nil))
	require.NoError(h.Deploy("reader", target, runFunc(func(env contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
		return env.StaticCall(frame.Address, library, input)
	}), user, nil))

	_, err := h.Transact(user, target, []byte("v"), nil)
	require.ErrorIs(err, contract.ErrWriteProtection)

	_, err = h.View(user, library, []byte("v"))
	require.ErrorIs(err, contract.ErrWriteProtection)
}

func TestStaticContextPropagatesToCalls(t *testing.T) {
	require := require.New(t)

	h := newTestHost(t)
	require.NoError(h.Deploy("writer", library, writer(false), user, nil))
	require.NoError(h.Deploy("relay", target, runFunc(func(env contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
		return env.Call(frame.Address, library, input, nil)
	}), user, nil))

	_, err := h.View(user, target, []byte("v"))
	require.ErrorIs(err, contract.ErrWriteProtection)
}

func TestCallDepthLimit(t *testing.T) {
	require := require.New(t)

	h := newTestHost(t)
	depth := 0
	require.NoError(h.Deploy("recursive", target, runFunc(func(env contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
		depth++
		return env.Call(frame.Address, frame.Address, input, nil)
	}), user, nil))

	_, err := h.Transact(user, target, nil, nil)
	require.ErrorIs(err, ErrDepth)
	require.Equal(MaxCallDepth, depth)
}

func TestDeployRunsConstructor(t *testing.T) {
	require := require.New(t)

	h := newTestHost(t)
	require.NoError(h.Deploy("ok", target, constructed{runFunc: writer(false)}, user, []byte("init")))
	require.Equal([]byte("init"), storedValue(t, h, target, "ctor"))

	err := h.Deploy("bad", library, constructed{runFunc: writer(false), fail: true}, user, []byte("init"))
	require.ErrorIs(err, errBoom)
	require.Nil(storedValue(t, h, library, "ctor"))
	_, deployed := h.Deployment(library)
	require.False(deployed)

	// the address is free again after a failed construction
	require.NoError(h.Deploy("bad", library, writer(false), user, nil))
}

func TestBlockClock(t *testing.T) {
	require := require.New(t)

	h, err := New(memdb.New(), nil, WithBlock(10, 1000))
	require.NoError(err)

	var seen uint64
	require.NoError(h.Deploy("clock", target, runFunc(func(env contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
		seen = env.GetBlockContext().Timestamp()
		return nil, nil
	}), user, nil))

	h.AdvanceTime(60)
	receipt, err := h.Transact(user, target, nil, nil)
	require.NoError(err)
	require.Equal(uint64(1060), seen)
	require.Equal(uint64(11), receipt.BlockNumber)

	h.SetBlock(20, 5000)
	number, ts := h.Block()
	require.Equal(uint64(20), number)
	require.Equal(uint64(5000), ts)
}

func TestMetrics(t *testing.T) {
	require := require.New(t)

	reg := prometheus.NewRegistry()
	h, err := New(memdb.New(), reg)
	require.NoError(err)
	require.NoError(h.Deploy("writer", target, writer(true), user, nil))

	_, err = h.Transact(user, target, nil, nil)
	require.Error(err)
	require.InDelta(1, testutil.ToFloat64(h.metrics.transactions.WithLabelValues(resultReverted)), 0)

	// a second host cannot claim the same registry
	_, err = New(memdb.New(), reg)
	require.Error(err)
}
