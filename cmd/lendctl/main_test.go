// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/nftlend/diamond"
	"github.com/luxfi/nftlend/lending"
	"github.com/luxfi/nftlend/platform"
	"github.com/luxfi/nftlend/platform/platformtest"
	"github.com/luxfi/nftlend/registry"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSelectors(t *testing.T) {
	require := require.New(t)

	out, err := execute(t, "selectors")
	require.NoError(err)
	require.Contains(out, "borrow((address,uint256)[],uint256)")
	require.Contains(out, "depositNFT(address,uint256)")
	require.Contains(out, registry.LendingFacet)
}

func TestSelectorsClash(t *testing.T) {
	var out bytes.Buffer
	err := writeSelectors(&out, []facetABI{
		{registry.LendingFacet, lending.ABI},
		{"LendingFacetCopy", lending.ABI},
	})
	require.ErrorIs(t, err, errSelectorClash)

	require.NoError(t, writeSelectors(&out, []facetABI{{registry.DiamondLoupeFacet, diamond.LoupeABI}}))
}

func TestConfig(t *testing.T) {
	require := require.New(t)

	t.Setenv(platform.EnvPrefix+"LOAN_DURATION", "86400")
	out, err := execute(t, "config")
	require.NoError(err)

	var cfg platform.Config
	require.NoError(json.Unmarshal([]byte(out), &cfg))
	require.Equal(uint64(86400), cfg.LoanDuration)

	// no owner configured
	_, err = execute(t, "config", "--verify")
	require.ErrorIs(err, platform.ErrNoOwner)
}

func TestInspect(t *testing.T) {
	require := require.New(t)

	t.Setenv(platform.EnvPrefix+"OWNER", platformtest.Owner.Hex())
	out, err := execute(t, "inspect")
	require.NoError(err)
	require.Contains(out, registry.GetAddress(registry.Diamond, 0).Hex())
	for _, name := range []string{registry.DiamondCutFacet, registry.NFTVaultFacet, registry.LendingFacet} {
		require.Contains(out, name)
	}
}

func TestDemo(t *testing.T) {
	require := require.New(t)

	out, err := execute(t, "demo", "--metrics")
	require.NoError(err)
	require.Contains(out, "loan 1: liquidated")
	require.Contains(out, "total borrows: 0 wei")
	require.Contains(out, "nftlend_vm_transactions_total")

	out, err = execute(t, "demo", "--price", "100")
	require.NoError(err)
	require.True(strings.HasPrefix(out, "loan 1: active"), out)
}
