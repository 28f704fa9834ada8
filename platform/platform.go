// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package platform deploys and configures a complete lending platform: the
// diamond, its facets, the appraisal oracle and the initial state.
package platform

import (
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/diamond"
	"github.com/luxfi/nftlend/erc721"
	"github.com/luxfi/nftlend/lending"
	"github.com/luxfi/nftlend/oracle"
	"github.com/luxfi/nftlend/registry"
	"github.com/luxfi/nftlend/vault"
	"github.com/luxfi/nftlend/vm"
)

// Deployment records where a platform lives
type Deployment struct {
	Slot    uint8
	Owner   common.Address
	Diamond common.Address
	Oracle  common.Address
	Facets  map[string]common.Address
}

// Facet returns the address of the named facet
func (d *Deployment) Facet(name string) common.Address {
	return d.Facets[name]
}

// SupportedInterfaces are the ERC-165 ids the initializer registers
var SupportedInterfaces = [][4]byte{
	diamond.IERC165,
	diamond.IDiamondCut,
	diamond.IDiamondLoupe,
	diamond.IERC173,
	erc721.ReceiverInterfaceID,
}

type facetSpec struct {
	name     string
	contract contract.StatefulContract
	abi      contract.ExtendedABI
}

// facetSpecs lists the facets bound by the first cut, in cut order
func facetSpecs() []facetSpec {
	return []facetSpec{
		{registry.DiamondLoupeFacet, &diamond.LoupeFacet{}, diamond.LoupeABI},
		{registry.OwnershipFacet, &diamond.OwnershipFacet{}, diamond.OwnershipABI},
		{registry.NFTVaultFacet, &vault.Facet{}, vault.ABI},
		{registry.LendingFacet, &lending.Facet{}, lending.ABI},
	}
}

// DeploymentName is the host module name of a registry contract in slot.
// Slot 0 keeps the bare registry name.
func DeploymentName(name string, slot uint8) string {
	if slot == 0 {
		return name
	}
	return fmt.Sprintf("%s#%d", name, slot)
}

// Cuts returns the cut that binds every platform facet in slot
func Cuts(slot uint8) []diamond.FacetCut {
	specs := facetSpecs()
	cuts := make([]diamond.FacetCut, 0, len(specs))
	for _, s := range specs {
		cuts = append(cuts, diamond.FacetCut{
			FacetAddress:      registry.GetAddress(s.name, slot),
			Action:            uint8(diamond.Add),
			FunctionSelectors: s.abi.Selectors(),
		})
	}
	return cuts
}

// Deploy installs a platform described by cfg on host. Every contract lands
// on its registry address for cfg.Slot; the facets are bound and the state
// seeded by a single diamondCut sent by the owner.
func Deploy(host *vm.Host, cfg Config) (*Deployment, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	d := &Deployment{
		Slot:    cfg.Slot,
		Owner:   cfg.Owner,
		Diamond: registry.GetAddress(registry.Diamond, cfg.Slot),
		Oracle:  registry.GetAddress(registry.PriceOracle, cfg.Slot),
		Facets:  make(map[string]common.Address),
	}

	deployCode := func(name string, c contract.StatefulContract, input []byte) (common.Address, error) {
		addr := registry.GetAddress(name, cfg.Slot)
		if err := host.Deploy(DeploymentName(name, cfg.Slot), addr, c, cfg.Owner, input); err != nil {
			return common.Address{}, fmt.Errorf("deploy %s: %w", name, err)
		}
		return addr, nil
	}

	cutFacet, err := deployCode(registry.DiamondCutFacet, &diamond.CutFacet{}, nil)
	if err != nil {
		return nil, err
	}
	d.Facets[registry.DiamondCutFacet] = cutFacet
	for _, s := range facetSpecs() {
		addr, err := deployCode(s.name, s.contract, nil)
		if err != nil {
			return nil, err
		}
		d.Facets[s.name] = addr
	}
	initializer, err := deployCode(registry.PlatformInitializer, &Initializer{}, nil)
	if err != nil {
		return nil, err
	}

	oracleInput, err := oracle.ConstructorInput(cfg.Owner)
	if err != nil {
		return nil, err
	}
	if _, err := deployCode(registry.PriceOracle, &oracle.PriceOracle{}, oracleInput); err != nil {
		return nil, err
	}
	diamondInput, err := diamond.ConstructorInput(cfg.Owner, cutFacet)
	if err != nil {
		return nil, err
	}
	if _, err := deployCode(registry.Diamond, diamond.NewDiamond(), diamondInput); err != nil {
		return nil, err
	}

	for _, col := range cfg.Collections {
		if col.FloorPrice == nil || col.FloorPrice.Sign() == 0 {
			continue
		}
		input, err := oracle.ABI.Pack("setFloorPrice", col.Address, col.FloorPrice)
		if err != nil {
			return nil, err
		}
		if _, err := host.Transact(cfg.Owner, d.Oracle, input, nil); err != nil {
			return nil, fmt.Errorf("set floor price of %s: %w", col.Address, err)
		}
	}

	initInput, err := InitializeInput(cfg, d.Oracle, SupportedInterfaces)
	if err != nil {
		return nil, err
	}
	cutInput, err := diamond.CutInput(Cuts(cfg.Slot), initializer, initInput)
	if err != nil {
		return nil, err
	}
	if _, err := host.Transact(cfg.Owner, d.Diamond, cutInput, nil); err != nil {
		return nil, fmt.Errorf("initial diamond cut: %w", err)
	}
	return d, nil
}
