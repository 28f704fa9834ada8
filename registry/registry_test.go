// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestDeploymentAddress(t *testing.T) {
	tests := []struct {
		p, c, ii uint8
		expected string
	}{
		{1, 0, 0x00, "0x0000000000000000000000000000000000001000"},
		{2, 0, 0x11, "0x0000000000000000000000000000000000002011"},
		{4, 3, 0x00, "0x0000000000000000000000000000000000004300"},
		{2, 0xF, 0xFF, "0x0000000000000000000000000000000000002fff"},
	}
	for _, tt := range tests {
		require.Equal(t, common.HexToAddress(tt.expected), DeploymentAddress(tt.p, tt.c, tt.ii))
	}

	require.Equal(t, common.Address{}, DeploymentAddress(16, 0, 0))
	require.Equal(t, common.Address{}, DeploymentAddress(1, 16, 0))
}

func TestAddressesAreUnique(t *testing.T) {
	for slot := uint8(0); slot <= MaxSlot; slot++ {
		seen := make(map[common.Address]string)
		for _, d := range AllDeployments {
			addr := d.Address(slot)
			prev, dup := seen[addr]
			require.False(t, dup, "%s and %s share %s", d.Name, prev, addr)
			seen[addr] = d.Name
		}
	}
}

func TestGetAddressAndLookup(t *testing.T) {
	require := require.New(t)

	addr := GetAddress(LendingFacet, 2)
	require.Equal(common.HexToAddress("0x0000000000000000000000000000000000002211"), addr)

	d, slot, ok := Lookup(addr)
	require.True(ok)
	require.Equal(LendingFacet, d.Name)
	require.Equal(uint8(2), slot)

	require.Equal(common.Address{}, GetAddress("Unknown", 0))
	_, _, ok = Lookup(common.HexToAddress("0x0000000000000000000000000000000000009999"))
	require.False(ok)
}

func TestGetByFamily(t *testing.T) {
	require := require.New(t)

	facets := GetByFamily("facet")
	require.Len(facets, 5)
	for _, f := range facets {
		require.Equal(uint8(2), f.Page)
	}
	require.Len(GetByFamily("Core"), 1)
	require.Nil(GetByFamily("unknown"))
}
