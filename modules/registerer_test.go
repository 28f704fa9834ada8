// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/nftlend/contract"
)

type nopContract struct{}

func (nopContract) Run(contract.AccessibleState, contract.CallFrame, []byte) ([]byte, error) {
	return nil, nil
}

func TestReservedAddress(t *testing.T) {
	tests := []struct {
		addr     common.Address
		expected bool
	}{
		{common.Address{}, true},
		{common.HexToAddress("0x0000000000000000000000000000000000000001"), true},
		{common.HexToAddress("0x00000000000000000000000000000000000000ff"), true},
		{common.HexToAddress("0x0000000000000000000000000000000000000100"), false},
		{common.HexToAddress("0x000000000000000000000000000000000000dEaD"), true},
		{common.HexToAddress("0xdEaD000000000000000000000000000000000000"), true},
		{BlackholeAddr, true},
		{common.HexToAddress("0x0000000000000000000000000000000000001100"), false},
	}

	for _, test := range tests {
		require.Equal(t, test.expected, ReservedAddress(test.addr), "address %s", test.addr)
	}
}

func TestRegisterKeepsAddressOrder(t *testing.T) {
	require := require.New(t)

	r := NewRegistry()
	high := common.HexToAddress("0x0000000000000000000000000000000000002000")
	low := common.HexToAddress("0x0000000000000000000000000000000000001000")

	require.NoError(r.Register(Module{Name: "high", Address: high, Contract: nopContract{}}))
	require.NoError(r.Register(Module{Name: "low", Address: low, Contract: nopContract{}}))

	mods := r.Modules()
	require.Len(mods, 2)
	require.Equal(low, mods[0].Address)
	require.Equal(high, mods[1].Address)

	m, ok := r.GetByAddress(high)
	require.True(ok)
	require.Equal("high", m.Name)

	m, ok = r.GetByName("low")
	require.True(ok)
	require.Equal(low, m.Address)

	_, ok = r.GetByAddress(common.HexToAddress("0x0000000000000000000000000000000000001500"))
	require.False(ok)
}

func TestRegisterRejects(t *testing.T) {
	require := require.New(t)

	r := NewRegistry()
	addr := common.HexToAddress("0x0000000000000000000000000000000000001000")
	require.NoError(r.Register(Module{Name: "a", Address: addr, Contract: nopContract{}}))

	err := r.Register(Module{Name: "b", Address: addr, Contract: nopContract{}})
	require.ErrorIs(err, ErrAddressInUse)

	err = r.Register(Module{Name: "a", Address: common.HexToAddress("0x0000000000000000000000000000000000001001"), Contract: nopContract{}})
	require.ErrorIs(err, ErrNameInUse)

	err = r.Register(Module{Address: common.Address{}, Contract: nopContract{}})
	require.ErrorIs(err, ErrReservedAddress)

	err = r.Register(Module{Address: common.HexToAddress("0x0000000000000000000000000000000000001002")})
	require.ErrorIs(err, ErrNilContract)

	// unnamed deployments never collide on name
	require.NoError(r.Register(Module{Address: common.HexToAddress("0x0000000000000000000000000000000000001003"), Contract: nopContract{}}))
	require.NoError(r.Register(Module{Address: common.HexToAddress("0x0000000000000000000000000000000000001004"), Contract: nopContract{}}))
}

func TestUnregister(t *testing.T) {
	require := require.New(t)

	r := NewRegistry()
	addr := common.HexToAddress("0x0000000000000000000000000000000000001000")
	require.NoError(r.Register(Module{Address: addr, Contract: nopContract{}}))
	require.NoError(r.Unregister(addr))

	_, ok := r.GetByAddress(addr)
	require.False(ok)
	require.ErrorIs(r.Unregister(addr), ErrModuleNotDeployed)
}
