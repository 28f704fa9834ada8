// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamond

import (
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/state"
)

// StorageNamespace names the diamond's region of the proxy's storage
const StorageNamespace = "nftlend.diamond.storage"

var (
	ownerKey  = []byte("owner")
	facetsKey = []byte("facets")
)

func selectorKey(sel [4]byte) []byte {
	return state.Key("sel/", sel[:])
}

func facetKey(facet common.Address) []byte {
	return state.Key("fsel/", facet.Bytes())
}

func interfaceKey(id [4]byte) []byte {
	return state.Key("iface/", id[:])
}

// selectorBinding is the stored record of a bound selector
type selectorBinding struct {
	FacetAddress common.Address
	Position     uint64 // index in the facet's selector list
}

// facetSelectors is the stored record of a facet's selectors
type facetSelectors struct {
	Selectors [][4]byte
	Position  uint64 // index in the facet address list
}

type facetList struct {
	Addresses []common.Address
}

// Store returns the diamond region of an account's storage
func Store(db database.Database) database.Database {
	return state.Namespace(db, StorageNamespace)
}

func storeOf(accessibleState contract.AccessibleState, frame contract.CallFrame) database.Database {
	return Store(contract.Storage(accessibleState, frame))
}

// Owner returns the diamond's administrative owner
func Owner(store database.Database) (common.Address, error) {
	var owner common.Address
	if _, err := state.Load(store, ownerKey, &owner); err != nil {
		return common.Address{}, err
	}
	return owner, nil
}

func setOwner(store database.Database, owner common.Address) error {
	return state.Store(store, ownerKey, owner)
}

// EnforceIsOwner fails with contract.ErrUnauthorized unless caller owns the
// diamond.
func EnforceIsOwner(store database.Database, caller common.Address) error {
	owner, err := Owner(store)
	if err != nil {
		return err
	}
	if caller != owner {
		return fmt.Errorf("%w: %s is not the diamond owner", contract.ErrUnauthorized, caller)
	}
	return nil
}

// FacetAddress returns the facet bound to sel, or the zero address
func FacetAddress(store database.Database, sel [4]byte) (common.Address, error) {
	var b selectorBinding
	if _, err := state.Load(store, selectorKey(sel), &b); err != nil {
		return common.Address{}, err
	}
	return b.FacetAddress, nil
}

// FacetSelectors returns the selectors bound to facet
func FacetSelectors(store database.Database, facet common.Address) ([][4]byte, error) {
	var fs facetSelectors
	if _, err := state.Load(store, facetKey(facet), &fs); err != nil {
		return nil, err
	}
	return fs.Selectors, nil
}

// FacetAddresses returns every facet with at least one bound selector
func FacetAddresses(store database.Database) ([]common.Address, error) {
	var list facetList
	if _, err := state.Load(store, facetsKey, &list); err != nil {
		return nil, err
	}
	return list.Addresses, nil
}

// Facets returns every facet with its selectors
func Facets(store database.Database) ([]Facet, error) {
	addrs, err := FacetAddresses(store)
	if err != nil {
		return nil, err
	}
	facets := make([]Facet, 0, len(addrs))
	for _, addr := range addrs {
		sels, err := FacetSelectors(store, addr)
		if err != nil {
			return nil, err
		}
		facets = append(facets, Facet{FacetAddress: addr, FunctionSelectors: sels})
	}
	return facets, nil
}

// SupportsInterface reports the ERC-165 flag for id
func SupportsInterface(store database.Database, id [4]byte) (bool, error) {
	return store.Has(interfaceKey(id))
}

// SetSupportedInterface sets or clears the ERC-165 flag for id
func SetSupportedInterface(store database.Database, id [4]byte, supported bool) error {
	if supported {
		return store.Put(interfaceKey(id), []byte{1})
	}
	return store.Delete(interfaceKey(id))
}

// diamondCut applies cuts in order, then runs the init delegatecall. Any
// failure aborts the whole cut; the host discards the frame's writes.
func diamondCut(accessibleState contract.AccessibleState, frame contract.CallFrame, cuts []FacetCut, init common.Address, calldata []byte) error {
	store := storeOf(accessibleState, frame)
	for i, cut := range cuts {
		var err error
		switch FacetCutAction(cut.Action) {
		case Add:
			err = addFunctions(accessibleState, frame, store, cut.FacetAddress, cut.FunctionSelectors)
		case Replace:
			err = replaceFunctions(accessibleState, frame, store, cut.FacetAddress, cut.FunctionSelectors)
		case Remove:
			err = removeFunctions(frame, store, cut.FacetAddress, cut.FunctionSelectors)
		default:
			err = fmt.Errorf("%w: %d", ErrInvalidCutAction, cut.Action)
		}
		if err != nil {
			return fmt.Errorf("cut %d: %w", i, err)
		}
	}
	if err := contract.EmitEvent(accessibleState, frame, CutABI, "DiamondCut", cuts, init, calldata); err != nil {
		return err
	}
	return initializeDiamondCut(accessibleState, frame, init, calldata)
}

func addFunctions(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, facet common.Address, sels [][4]byte) error {
	if len(sels) == 0 {
		return ErrNoSelectors
	}
	if facet == (common.Address{}) {
		return ErrZeroFacetAddress
	}
	var fs facetSelectors
	found, err := state.Load(store, facetKey(facet), &fs)
	if err != nil {
		return err
	}
	if !found {
		if err := enforceHasCode(accessibleState, facet); err != nil {
			return err
		}
		if fs.Position, err = addFacet(store, facet); err != nil {
			return err
		}
	}
	for _, sel := range sels {
		old, err := FacetAddress(store, sel)
		if err != nil {
			return err
		}
		if old != (common.Address{}) {
			return fmt.Errorf("%w: %x bound to %s", ErrSelectorCollision, sel, old)
		}
		if err := addFunction(store, &fs, sel, facet); err != nil {
			return err
		}
	}
	return state.Store(store, facetKey(facet), &fs)
}

func replaceFunctions(accessibleState contract.AccessibleState, frame contract.CallFrame, store database.Database, facet common.Address, sels [][4]byte) error {
	if len(sels) == 0 {
		return ErrNoSelectors
	}
	if facet == (common.Address{}) {
		return ErrZeroFacetAddress
	}
	var fs facetSelectors
	found, err := state.Load(store, facetKey(facet), &fs)
	if err != nil {
		return err
	}
	if !found {
		if err := enforceHasCode(accessibleState, facet); err != nil {
			return err
		}
		if fs.Position, err = addFacet(store, facet); err != nil {
			return err
		}
	}
	for _, sel := range sels {
		old, err := FacetAddress(store, sel)
		if err != nil {
			return err
		}
		switch old {
		case facet:
			return fmt.Errorf("%w: %x", ErrReplaceSameFacet, sel)
		case common.Address{}:
			return fmt.Errorf("%w: %x", ErrSelectorNotBound, sel)
		case frame.Address:
			return fmt.Errorf("%w: %x", ErrImmutableFunction, sel)
		}
		// the replacement facet's record must be current before the old
		// facet's list shrinks
		if err := state.Store(store, facetKey(facet), &fs); err != nil {
			return err
		}
		if err := removeFunction(store, old, sel); err != nil {
			return err
		}
		// removal may have moved the replacement facet in the address list
		if _, err := state.Load(store, facetKey(facet), &fs); err != nil {
			return err
		}
		if err := addFunction(store, &fs, sel, facet); err != nil {
			return err
		}
	}
	return state.Store(store, facetKey(facet), &fs)
}

func removeFunctions(frame contract.CallFrame, store database.Database, facet common.Address, sels [][4]byte) error {
	if len(sels) == 0 {
		return ErrNoSelectors
	}
	if facet != (common.Address{}) {
		return fmt.Errorf("%w: %s", ErrRemoveFacetNotZero, facet)
	}
	for _, sel := range sels {
		old, err := FacetAddress(store, sel)
		if err != nil {
			return err
		}
		if old == (common.Address{}) {
			return fmt.Errorf("%w: %x", ErrSelectorNotBound, sel)
		}
		if old == frame.Address {
			return fmt.Errorf("%w: %x", ErrImmutableFunction, sel)
		}
		if err := removeFunction(store, old, sel); err != nil {
			return err
		}
	}
	return nil
}

func enforceHasCode(accessibleState contract.AccessibleState, facet common.Address) error {
	if !accessibleState.HasCode(facet) {
		return fmt.Errorf("%w: %s", ErrFacetHasNoCode, facet)
	}
	return nil
}

// addFacet appends facet to the address list and returns its position
func addFacet(store database.Database, facet common.Address) (uint64, error) {
	var list facetList
	if _, err := state.Load(store, facetsKey, &list); err != nil {
		return 0, err
	}
	position := uint64(len(list.Addresses))
	list.Addresses = append(list.Addresses, facet)
	return position, state.Store(store, facetsKey, &list)
}

// addFunction binds sel to facet, appending it to fs. The caller persists fs.
func addFunction(store database.Database, fs *facetSelectors, sel [4]byte, facet common.Address) error {
	if len(fs.Selectors) >= 1<<16 {
		return ErrTooManySelectors
	}
	binding := selectorBinding{
		FacetAddress: facet,
		Position:     uint64(len(fs.Selectors)),
	}
	fs.Selectors = append(fs.Selectors, sel)
	return state.Store(store, selectorKey(sel), &binding)
}

// removeFunction unbinds sel from facet by swapping the facet's last selector
// into its slot. A facet left without selectors leaves the address list the
// same way.
func removeFunction(store database.Database, facet common.Address, sel [4]byte) error {
	var binding selectorBinding
	if _, err := state.Load(store, selectorKey(sel), &binding); err != nil {
		return err
	}
	var fs facetSelectors
	if _, err := state.Load(store, facetKey(facet), &fs); err != nil {
		return err
	}

	last := uint64(len(fs.Selectors) - 1)
	if binding.Position != last {
		moved := fs.Selectors[last]
		fs.Selectors[binding.Position] = moved
		if err := state.Store(store, selectorKey(moved), &selectorBinding{
			FacetAddress: facet,
			Position:     binding.Position,
		}); err != nil {
			return err
		}
	}
	fs.Selectors = fs.Selectors[:last]
	if err := state.Delete(store, selectorKey(sel)); err != nil {
		return err
	}
	if len(fs.Selectors) > 0 {
		return state.Store(store, facetKey(facet), &fs)
	}

	var list facetList
	if _, err := state.Load(store, facetsKey, &list); err != nil {
		return err
	}
	lastFacet := uint64(len(list.Addresses) - 1)
	if fs.Position != lastFacet {
		moved := list.Addresses[lastFacet]
		list.Addresses[fs.Position] = moved
		var movedSelectors facetSelectors
		if _, err := state.Load(store, facetKey(moved), &movedSelectors); err != nil {
			return err
		}
		movedSelectors.Position = fs.Position
		if err := state.Store(store, facetKey(moved), &movedSelectors); err != nil {
			return err
		}
	}
	list.Addresses = list.Addresses[:lastFacet]
	if err := state.Delete(store, facetKey(facet)); err != nil {
		return err
	}
	return state.Store(store, facetsKey, &list)
}

func initializeDiamondCut(accessibleState contract.AccessibleState, frame contract.CallFrame, init common.Address, calldata []byte) error {
	if init == (common.Address{}) {
		if len(calldata) > 0 {
			return ErrInitCalldataNotEmpty
		}
		return nil
	}
	if !accessibleState.HasCode(init) {
		return fmt.Errorf("%w: %s", ErrInitHasNoCode, init)
	}
	if _, err := accessibleState.DelegateCall(frame, init, calldata); err != nil {
		return fmt.Errorf("%w: %w", ErrInitializationFailed, err)
	}
	return nil
}
