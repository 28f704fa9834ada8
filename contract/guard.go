// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"github.com/luxfi/nftlend/state"
)

const guardNamespace = "nftlend.reentrancy.storage"

var guardKey = []byte("entered")

// NonReentrant runs fn while holding the account-wide reentrancy lock of the
// frame's account. The lock lives in account storage, so every facet sharing
// that account shares it. A failed fn leaves the lock set, but the host
// discards the frame's writes on failure.
func NonReentrant(accessibleState AccessibleState, frame CallFrame, fn func() ([]byte, error)) ([]byte, error) {
	store := state.Namespace(Storage(accessibleState, frame), guardNamespace)
	entered, err := store.Has(guardKey)
	if err != nil {
		return nil, err
	}
	if entered {
		return nil, ErrReentrantCall
	}
	if err := store.Put(guardKey, []byte{1}); err != nil {
		return nil, err
	}

	ret, err := fn()
	if err != nil {
		return nil, err
	}
	if err := store.Delete(guardKey); err != nil {
		return nil, err
	}
	return ret, nil
}
