// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"fmt"

	"github.com/luxfi/geth/common"
)

// ============================================================================
// PLATFORM ADDRESS SCHEME
// ============================================================================
//
// Every platform contract lives at a trailing-significant 20-byte address:
//   Format: 0x0000000000000000000000000000000000PCII
//
//   0x 0000...0000 P C II
//                  │ │ └┴─ Item         (8 bits, 256 items per family×slot)
//                  │ └──── Deployment slot (4 bits, 16 side-by-side platforms)
//                  └────── Family page  (4 bits)
//
// P nibble = family:
//   P=1 → Core (the diamond itself)
//   P=2 → Facets
//   P=3 → Initializers
//   P=4 → Oracles
//
// C nibble = deployment slot. Slot 0 is the default platform; other slots
// host independent platforms on the same host.
//
// Example: LendingFacet in slot 0 = P=2, C=0, II=11
//          Address = 0x0000000000000000000000000000000000002011

// Contract names
const (
	Diamond             = "Diamond"
	DiamondCutFacet     = "DiamondCutFacet"
	DiamondLoupeFacet   = "DiamondLoupeFacet"
	OwnershipFacet      = "OwnershipFacet"
	NFTVaultFacet       = "NFTVaultFacet"
	LendingFacet        = "LendingFacet"
	PlatformInitializer = "PlatformInitializer"
	PriceOracle         = "PriceOracle"
)

// MaxSlot is the highest deployment slot
const MaxSlot = 0xF

// DeploymentAddress calculates address from (P, C, II) nibbles.
// Returns the zero address when a nibble is out of range.
func DeploymentAddress(p, c, ii uint8) common.Address {
	if p > 15 || c > 15 {
		return common.Address{}
	}
	selector := fmt.Sprintf("%x%x%02x", p, c, ii)
	addr := "0000000000000000000000000000000000" + selector
	return common.HexToAddress("0x" + addr)
}

// FamilyPage returns the P-nibble for a family name
func FamilyPage(family string) uint8 {
	switch family {
	case "Core", "core":
		return 1
	case "Facet", "facet", "Facets", "facets":
		return 2
	case "Init", "init", "Initializer", "initializer":
		return 3
	case "Oracle", "oracle":
		return 4
	default:
		return 0xFF
	}
}

// DeploymentInfo contains metadata about a platform contract
type DeploymentInfo struct {
	Name        string
	Family      string
	Page        uint8
	Item        uint8
	Description string
}

// Address returns the contract's address in the given deployment slot
func (d DeploymentInfo) Address(slot uint8) common.Address {
	return DeploymentAddress(d.Page, slot, d.Item)
}

// AllDeployments lists every contract a platform deploys
var AllDeployments = []DeploymentInfo{
	{Diamond, "Core", 1, 0x00, "Selector-routing proxy holding all platform state"},

	{DiamondCutFacet, "Facet", 2, 0x00, "Facet registry mutation (diamondCut)"},
	{DiamondLoupeFacet, "Facet", 2, 0x01, "Facet registry introspection and ERC-165"},
	{OwnershipFacet, "Facet", 2, 0x02, "Administrative ownership"},
	{NFTVaultFacet, "Facet", 2, 0x10, "Collection whitelist and NFT custody"},
	{LendingFacet, "Facet", 2, 0x11, "Collateralized loans and liquidation"},

	{PlatformInitializer, "Initializer", 3, 0x00, "One-shot state seeding run by the first cut"},

	{PriceOracle, "Oracle", 4, 0x00, "Per-item collateral appraisal"},
}

// GetInfo returns the metadata of the named contract
func GetInfo(name string) (DeploymentInfo, bool) {
	for _, d := range AllDeployments {
		if d.Name == name {
			return d, true
		}
	}
	return DeploymentInfo{}, false
}

// GetAddress returns the address of the named contract in a deployment slot
func GetAddress(name string, slot uint8) common.Address {
	d, ok := GetInfo(name)
	if !ok {
		return common.Address{}
	}
	return d.Address(slot)
}

// GetByFamily returns all contracts of a family
func GetByFamily(family string) []DeploymentInfo {
	page := FamilyPage(family)
	if page == 0xFF {
		return nil
	}

	var result []DeploymentInfo
	for _, d := range AllDeployments {
		if d.Page == page {
			result = append(result, d)
		}
	}
	return result
}

// Lookup returns the contract deployed at addr and its slot
func Lookup(addr common.Address) (DeploymentInfo, uint8, bool) {
	for slot := uint8(0); slot <= MaxSlot; slot++ {
		for _, d := range AllDeployments {
			if d.Address(slot) == addr {
				return d, slot, true
			}
		}
	}
	return DeploymentInfo{}, 0, false
}
