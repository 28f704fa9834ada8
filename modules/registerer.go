// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/luxfi/geth/common"
)

var (
	ErrReservedAddress   = errors.New("address is reserved")
	ErrAddressInUse      = errors.New("address already has code")
	ErrNameInUse         = errors.New("name already used by a deployment")
	ErrNilContract       = errors.New("nil contract")
	ErrModuleNotDeployed = errors.New("no code at address")
)

// AddressRange represents a continuous range of addresses
type AddressRange struct {
	Start common.Address
	End   common.Address
}

// Contains returns true iff [addr] is contained within the (inclusive)
// range of addresses defined by [a].
func (a *AddressRange) Contains(addr common.Address) bool {
	addrBytes := addr.Bytes()
	return bytes.Compare(addrBytes, a.Start[:]) >= 0 && bytes.Compare(addrBytes, a.End[:]) <= 0
}

// BlackholeAddr is the address where assets are burned
var BlackholeAddr = common.Address{
	1, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Ranges that can never hold code
var reservedRanges = []AddressRange{
	// Zero address and the standard EVM precompiles (0x00-0xff)
	{
		Start: common.HexToAddress("0x0000000000000000000000000000000000000000"),
		End:   common.HexToAddress("0x00000000000000000000000000000000000000ff"),
	},
	// 0x0000...dEaD - Common dead address
	{
		Start: common.HexToAddress("0x000000000000000000000000000000000000dEaD"),
		End:   common.HexToAddress("0x000000000000000000000000000000000000dEaD"),
	},
	// 0xdEaD...0000 - Full dead address prefix
	{
		Start: common.HexToAddress("0xdEaD000000000000000000000000000000000000"),
		End:   common.HexToAddress("0xdEaD000000000000000000000000000000000000"),
	},
}

// ReservedAddress returns true if [addr] can never hold code
func ReservedAddress(addr common.Address) bool {
	if addr == BlackholeAddr {
		return true
	}
	for _, reservedRange := range reservedRanges {
		if reservedRange.Contains(addr) {
			return true
		}
	}
	return false
}

// Registry holds the deployed modules sorted by address
type Registry struct {
	lock    sync.RWMutex
	modules []Module
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{modules: make([]Module, 0)}
}

// Register deploys a module
func (r *Registry) Register(stm Module) error {
	address := stm.Address

	if stm.Contract == nil {
		return fmt.Errorf("%w at %s", ErrNilContract, address)
	}
	if ReservedAddress(address) {
		return fmt.Errorf("%w: %s", ErrReservedAddress, address)
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	for _, registeredModule := range r.modules {
		if registeredModule.Address == address {
			return fmt.Errorf("%w: %s", ErrAddressInUse, address)
		}
		if stm.Name != "" && registeredModule.Name == stm.Name {
			return fmt.Errorf("%w: %s", ErrNameInUse, stm.Name)
		}
	}
	// sort by address to ensure deterministic iteration
	r.modules = insertSortedByAddress(r.modules, stm)
	return nil
}

// Unregister removes the module at address
func (r *Registry) Unregister(address common.Address) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for i, stm := range r.modules {
		if stm.Address == address {
			r.modules = append(r.modules[:i], r.modules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrModuleNotDeployed, address)
}

// GetByAddress returns the module deployed at address
func (r *Registry) GetByAddress(address common.Address) (Module, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	idx := sort.Search(len(r.modules), func(i int) bool {
		return bytes.Compare(r.modules[i].Address.Bytes(), address.Bytes()) >= 0
	})
	if idx < len(r.modules) && r.modules[idx].Address == address {
		return r.modules[idx], true
	}
	return Module{}, false
}

// GetByName returns the module registered under name
func (r *Registry) GetByName(name string) (Module, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, stm := range r.modules {
		if stm.Name == name {
			return stm, true
		}
	}
	return Module{}, false
}

// Modules returns a copy of the registered modules in address order
func (r *Registry) Modules() []Module {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return append([]Module(nil), r.modules...)
}

func insertSortedByAddress(data []Module, stm Module) []Module {
	data = append(data, stm)
	sort.Sort(moduleArray(data))
	return data
}
