// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamond

import (
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
)

var (
	_ contract.StatefulContract = (*Diamond)(nil)
	_ contract.Constructor      = (*Diamond)(nil)
)

// Diamond is the proxy. It routes every call by selector to the bound facet
// and runs the facet against its own storage and balance.
type Diamond struct{}

// NewDiamond returns the proxy contract
func NewDiamond() *Diamond {
	return &Diamond{}
}

// ConstructorInput packs the deployment arguments of a diamond
func ConstructorInput(owner, cutFacet common.Address) ([]byte, error) {
	return CutABI.Pack("", owner, cutFacet)
}

// Construct records the owner and binds diamondCut to cutFacet
func (d *Diamond) Construct(accessibleState contract.AccessibleState, frame contract.CallFrame, input []byte) error {
	args, err := CutABI.Constructor.Inputs.Unpack(input)
	if err != nil {
		return fmt.Errorf("%w: constructor: %v", contract.ErrInvalidInput, err)
	}
	owner := args[0].(common.Address)
	cutFacet := args[1].(common.Address)

	store := storeOf(accessibleState, frame)
	if err := setOwner(store, owner); err != nil {
		return err
	}
	if err := contract.EmitEvent(accessibleState, frame, OwnershipABI, "OwnershipTransferred", common.Address{}, owner); err != nil {
		return err
	}

	cuts := []FacetCut{{
		FacetAddress:      cutFacet,
		Action:            uint8(Add),
		FunctionSelectors: [][4]byte{CutABI.MustSelector("diamondCut")},
	}}
	return diamondCut(accessibleState, frame, cuts, common.Address{}, nil)
}

// Run routes input to the facet bound to its selector. Empty input is a plain
// native transfer and is accepted.
func (d *Diamond) Run(accessibleState contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}
	if len(input) < 4 {
		return nil, fmt.Errorf("%w: calldata shorter than a selector", contract.ErrInvalidInput)
	}

	var sel [4]byte
	copy(sel[:], input[:4])
	facet, err := FacetAddress(storeOf(accessibleState, frame), sel)
	if err != nil {
		return nil, err
	}
	if facet == (common.Address{}) {
		return nil, fmt.Errorf("%w: %x", ErrFunctionNotFound, sel)
	}
	return accessibleState.DelegateCall(frame, facet, input)
}
