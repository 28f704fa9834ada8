// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vm hosts contracts and executes transactions against them.
package vm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	log "github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/modules"
	"github.com/luxfi/nftlend/state"
)

// MaxCallDepth bounds nested calls within one transaction
const MaxCallDepth = 64

var (
	ErrDepth          = errors.New("max call depth exceeded")
	ErrNoCode         = errors.New("no code at address")
	ErrStaticValue    = errors.New("value transfer in static call")
	ErrNestedTransact = errors.New("transaction already in progress")
)

// Receipt is the outcome of a successful transaction
type Receipt struct {
	BlockNumber uint64
	Timestamp   uint64
	Return      []byte
	Logs        []*types.Log
}

type blockContext struct {
	number    uint64
	timestamp uint64
}

func (b blockContext) Number() uint64    { return b.number }
func (b blockContext) Timestamp() uint64 { return b.timestamp }

// Host owns the account state and deployed code, and executes transactions
// one at a time. A failing transaction leaves state untouched.
type Host struct {
	mu sync.Mutex

	state  *state.StateDB
	code   *modules.Registry
	block  blockContext
	depth  int
	static int
	inTx   bool

	log     log.Logger
	metrics *metrics
}

// Option configures a Host
type Option func(*Host)

// WithLogger sets the host's logger
func WithLogger(logger log.Logger) Option {
	return func(h *Host) {
		h.log = logger
	}
}

// WithBlock sets the initial block number and timestamp
func WithBlock(number, timestamp uint64) Option {
	return func(h *Host) {
		h.block = blockContext{number: number, timestamp: timestamp}
	}
}

// New returns a host over db. Metrics are registered with reg; a nil reg
// keeps them in a private registry.
func New(db database.Database, reg prometheus.Registerer, opts ...Option) (*Host, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}
	h := &Host{
		state:   state.New(db),
		code:    modules.NewRegistry(),
		block:   blockContext{number: 1, timestamp: 1},
		log:     log.NewTestLogger(log.InfoLevel),
		metrics: m,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Deploy installs c at addr. Contracts implementing contract.Constructor are
// constructed with input as deployer; a failed construction undeploys c and
// leaves state untouched.
func (h *Host) Deploy(name string, addr common.Address, c contract.StatefulContract, deployer common.Address, input []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.code.Register(modules.Module{Name: name, Address: addr, Contract: c}); err != nil {
		return err
	}
	ctor, ok := c.(contract.Constructor)
	if !ok {
		h.log.Info("deployed contract", "name", name, "address", addr)
		return nil
	}

	frame := contract.CallFrame{
		Caller:      deployer,
		Address:     addr,
		CodeAddress: addr,
		Value:       new(uint256.Int),
	}
	h.inTx = true
	h.state.Begin()
	err := ctor.Construct(hostState{h}, frame, input)
	if err == nil {
		err = h.state.Commit()
	} else {
		h.state.Revert()
	}
	h.inTx = false
	if err != nil {
		_ = h.state.TakeLogs()
		if uerr := h.code.Unregister(addr); uerr != nil {
			return errors.Join(err, uerr)
		}
		return fmt.Errorf("construct %s: %w", name, err)
	}
	_ = h.state.TakeLogs()
	h.log.Info("deployed contract", "name", name, "address", addr)
	return nil
}

// Transact executes a top-level call from an externally owned account.
// Value moves from from to to before to's code runs.
func (h *Host) Transact(from, to common.Address, input []byte, value *uint256.Int) (*Receipt, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.inTx {
		return nil, ErrNestedTransact
	}
	if value == nil {
		value = new(uint256.Int)
	}
	frame := contract.CallFrame{
		Caller:      from,
		Address:     to,
		CodeAddress: to,
		Value:       value,
	}

	h.inTx = true
	ret, err := h.call(callKindCall, frame, input)
	h.inTx = false
	logs := h.state.TakeLogs()
	if err != nil {
		h.metrics.transactions.WithLabelValues(resultReverted).Inc()
		h.log.Debug("transaction reverted", "from", from, "to", to, "err", err)
		return nil, err
	}
	h.metrics.transactions.WithLabelValues(resultSuccess).Inc()
	h.metrics.logs.Add(float64(len(logs)))
	return &Receipt{
		BlockNumber: h.block.number,
		Timestamp:   h.block.timestamp,
		Return:      ret,
		Logs:        logs,
	}, nil
}

// View executes a read-only call and discards every effect
func (h *Host) View(from, to common.Address, input []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.inTx {
		return nil, ErrNestedTransact
	}
	frame := contract.CallFrame{
		Caller:      from,
		Address:     to,
		CodeAddress: to,
		Value:       new(uint256.Int),
		ReadOnly:    true,
	}
	h.inTx = true
	ret, err := h.call(callKindStatic, frame, input)
	h.inTx = false
	_ = h.state.TakeLogs()
	return ret, err
}

// SetBalance overwrites the native balance of addr
func (h *Host) SetBalance(addr common.Address, amount *uint256.Int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state.SetBalance(addr, amount)
}

// Balance returns the native balance of addr
func (h *Host) Balance(addr common.Address) *uint256.Int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state.GetBalance(addr)
}

// SetBlock moves the chain head
func (h *Host) SetBlock(number, timestamp uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.block = blockContext{number: number, timestamp: timestamp}
}

// AdvanceTime mines one block seconds after the current head
func (h *Host) AdvanceTime(seconds uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.block = blockContext{number: h.block.number + 1, timestamp: h.block.timestamp + seconds}
}

// Block returns the current block number and timestamp
func (h *Host) Block() (uint64, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.block.number, h.block.timestamp
}

// Deployment returns the module deployed at addr
func (h *Host) Deployment(addr common.Address) (modules.Module, bool) {
	return h.code.GetByAddress(addr)
}

// Deployments returns every deployed module in address order
func (h *Host) Deployments() []modules.Module {
	return h.code.Modules()
}
