// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package platform_test

import (
	"math/big"
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/diamond"
	"github.com/luxfi/nftlend/lending"
	"github.com/luxfi/nftlend/modules"
	"github.com/luxfi/nftlend/oracle"
	"github.com/luxfi/nftlend/platform"
	"github.com/luxfi/nftlend/platform/platformtest"
	"github.com/luxfi/nftlend/registry"
	"github.com/luxfi/nftlend/vault"
	"github.com/luxfi/nftlend/vm"
)

func TestDeploy(t *testing.T) {
	require := require.New(t)

	env, err := platformtest.New(platformtest.Config())
	require.NoError(err)
	d := env.Deployment

	require.Equal(registry.GetAddress(registry.Diamond, 0), d.Diamond)
	require.Equal(registry.GetAddress(registry.PriceOracle, 0), d.Oracle)
	for _, name := range []string{
		registry.DiamondCutFacet,
		registry.DiamondLoupeFacet,
		registry.OwnershipFacet,
		registry.NFTVaultFacet,
		registry.LendingFacet,
	} {
		require.Equal(registry.GetAddress(name, 0), d.Facet(name), name)
	}

	out, err := env.Query(d.Diamond, diamond.OwnershipABI, "owner")
	require.NoError(err)
	require.Equal(platformtest.Owner, out[0])

	out, err = env.Query(d.Diamond, diamond.LoupeABI, "facetAddresses")
	require.NoError(err)
	require.Len(out[0], 5)

	for _, sel := range vault.ABI.Selectors() {
		out, err = env.Query(d.Diamond, diamond.LoupeABI, "facetAddress", sel)
		require.NoError(err)
		require.Equal(d.Facet(registry.NFTVaultFacet), out[0])
	}
	for _, sel := range lending.ABI.Selectors() {
		out, err = env.Query(d.Diamond, diamond.LoupeABI, "facetAddress", sel)
		require.NoError(err)
		require.Equal(d.Facet(registry.LendingFacet), out[0])
	}
	for _, id := range platform.SupportedInterfaces {
		out, err = env.Query(d.Diamond, diamond.LoupeABI, "supportsInterface", id)
		require.NoError(err)
		require.True(out[0].(bool))
	}

	out, err = env.Query(d.Diamond, lending.ABI, "lendingParams")
	require.NoError(err)
	require.Equal(d.Oracle, out[0])
	require.Equal(platform.DefaultLoanDuration, out[1])

	out, err = env.Query(d.Oracle, oracle.ABI, "floorPrice", platformtest.Collection)
	require.NoError(err)
	require.Equal(platformtest.Ether(100), out[0])

	out, err = env.Query(d.Diamond, vault.ABI, "getCollateralFactor", platformtest.Collection)
	require.NoError(err)
	require.Equal(big.NewInt(platformtest.CollateralFactor), out[0])
}

func TestDeployRejectsInvalidConfig(t *testing.T) {
	host, err := vm.New(memdb.New(), nil)
	require.NoError(t, err)

	_, err = platform.Deploy(host, platform.DefaultConfig())
	require.ErrorIs(t, err, platform.ErrNoOwner)
	require.Empty(t, host.Deployments())
}

func TestDeploySlots(t *testing.T) {
	require := require.New(t)

	env, err := platformtest.New(platformtest.Config())
	require.NoError(err)

	_, err = platform.Deploy(env.Host, platformtest.Config())
	require.ErrorIs(err, modules.ErrAddressInUse)

	cfg := platformtest.Config()
	cfg.Slot = 1
	second, err := platform.Deploy(env.Host, cfg)
	require.NoError(err)
	require.Equal(registry.GetAddress(registry.Diamond, 1), second.Diamond)
	require.NotEqual(env.Diamond(), second.Diamond)

	info, slot, ok := registry.Lookup(second.Facet(registry.LendingFacet))
	require.True(ok)
	require.Equal(registry.LendingFacet, info.Name)
	require.Equal(uint8(1), slot)

	m, ok := env.Host.Deployment(second.Facet(registry.LendingFacet))
	require.True(ok)
	require.Equal(platform.DeploymentName(registry.LendingFacet, 1), m.Name)
}

func TestInitializerRunsOnce(t *testing.T) {
	require := require.New(t)

	env, err := platformtest.New(platformtest.Config())
	require.NoError(err)
	initializer := registry.GetAddress(registry.PlatformInitializer, 0)

	input, err := platform.InitializeInput(platformtest.Config(), env.Deployment.Oracle, nil)
	require.NoError(err)

	_, err = env.Host.Transact(platformtest.Owner, initializer, input, nil)
	require.ErrorIs(err, platform.ErrNotDelegated)

	cut, err := diamond.CutInput(nil, initializer, input)
	require.NoError(err)
	_, err = env.Host.Transact(platformtest.Owner, env.Diamond(), cut, nil)
	require.ErrorIs(err, diamond.ErrInitializationFailed)
	require.ErrorIs(err, platform.ErrAlreadyInitialized)
}

// upgradedLending is a lending facet release that changes nothing but its
// address
type upgradedLending struct {
	lending.Facet
}

func TestUpgradeKeepsLoans(t *testing.T) {
	require := require.New(t)

	env, err := platformtest.New(platformtest.Config())
	require.NoError(err)
	require.NoError(env.Fund(platformtest.Ether(100)))
	require.NoError(env.MintAndDeposit(platformtest.Collection, platformtest.Borrower, 1))
	loanID, err := env.Borrow(platformtest.Borrower, platformtest.Collection, platformtest.Ether(50), 1)
	require.NoError(err)

	v2 := common.HexToAddress("0x0000000000000000000000000000000000002f11")
	require.NoError(env.Host.Deploy("LendingFacetV2", v2, &upgradedLending{}, platformtest.Owner, nil))

	cut, err := diamond.CutInput([]diamond.FacetCut{{
		FacetAddress:      v2,
		Action:            uint8(diamond.Replace),
		FunctionSelectors: lending.ABI.Selectors(),
	}}, common.Address{}, nil)
	require.NoError(err)

	_, err = env.Host.Transact(platformtest.Stranger, env.Diamond(), cut, nil)
	require.ErrorIs(err, contract.ErrUnauthorized)

	_, err = env.Host.Transact(platformtest.Owner, env.Diamond(), cut, nil)
	require.NoError(err)

	out, err := env.Query(env.Diamond(), diamond.LoupeABI, "facetAddress", lending.ABI.MustSelector("repay"))
	require.NoError(err)
	require.Equal(v2, out[0])

	// the old facet lost every selector and left the facet list
	out, err = env.Query(env.Diamond(), diamond.LoupeABI, "facetAddresses")
	require.NoError(err)
	require.NotContains(out[0], env.Deployment.Facet(registry.LendingFacet))

	loan, err := env.Loan(loanID)
	require.NoError(err)
	require.Equal(lending.StatusActive, loan.Status)
	require.Equal(platformtest.Ether(50), loan.Principal)

	_, err = env.Lending(platformtest.Borrower, "repay", new(big.Int).SetUint64(loanID), platformtest.Ether(50))
	require.NoError(err)
	loan, err = env.Loan(loanID)
	require.NoError(err)
	require.Equal(lending.StatusRepaid, loan.Status)
}
