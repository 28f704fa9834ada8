// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"
	"math/big"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/state"
)

// StorageNamespace names the vault's region of the diamond's storage
const StorageNamespace = "nftlend.vault.storage"

// Store returns the vault region of an account's storage
func Store(db database.Database) database.Database {
	return state.Namespace(db, StorageNamespace)
}

func collectionKey(collection common.Address) []byte {
	return state.Key("col/", collection.Bytes())
}

func depositKey(collection common.Address, tokenID *big.Int) []byte {
	key := state.MakeKey(collection.Bytes(), common.BigToHash(tokenID).Bytes())
	return state.Key("dep/", key[:])
}

// LoadCollection returns the allow-list entry of collection; unknown
// collections read as unsupported with factor 0.
func LoadCollection(store database.Database, collection common.Address) (SupportedCollection, error) {
	var c SupportedCollection
	_, err := state.Load(store, collectionKey(collection), &c)
	return c, err
}

// StoreCollection writes the allow-list entry of collection
func StoreCollection(store database.Database, collection common.Address, c SupportedCollection) error {
	return state.Store(store, collectionKey(collection), &c)
}

// LoadDeposit returns the custody record of an item
func LoadDeposit(store database.Database, collection common.Address, tokenID *big.Int) (Deposit, bool, error) {
	var d Deposit
	found, err := state.Load(store, depositKey(collection, tokenID), &d)
	return d, found, err
}

func storeDeposit(store database.Database, d Deposit) error {
	return state.Store(store, depositKey(d.Collection, d.TokenID), &d)
}

func deleteDeposit(store database.Database, collection common.Address, tokenID *big.Int) error {
	return state.Delete(store, depositKey(collection, tokenID))
}

// LockDeposit marks an unlocked deposit as securing loanID
func LockDeposit(store database.Database, collection common.Address, tokenID *big.Int, loanID uint64) error {
	d, found, err := LoadDeposit(store, collection, tokenID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s #%s", ErrNotDeposited, collection, tokenID)
	}
	if d.Locked() {
		return fmt.Errorf("%w: %s #%s by loan %d", ErrCollateralLocked, collection, tokenID, d.LockedBy)
	}
	d.LockedBy = loanID
	return storeDeposit(store, d)
}

// UnlockDeposit clears the lock loanID holds on a deposit
func UnlockDeposit(store database.Database, collection common.Address, tokenID *big.Int, loanID uint64) error {
	d, err := lockedDeposit(store, collection, tokenID, loanID)
	if err != nil {
		return err
	}
	d.LockedBy = 0
	return storeDeposit(store, d)
}

// ReleaseDeposit removes a deposit locked by loanID from custody records so
// the item can leave the vault on liquidation.
func ReleaseDeposit(store database.Database, collection common.Address, tokenID *big.Int, loanID uint64) error {
	if _, err := lockedDeposit(store, collection, tokenID, loanID); err != nil {
		return err
	}
	return deleteDeposit(store, collection, tokenID)
}

func lockedDeposit(store database.Database, collection common.Address, tokenID *big.Int, loanID uint64) (Deposit, error) {
	d, found, err := LoadDeposit(store, collection, tokenID)
	if err != nil {
		return Deposit{}, err
	}
	if !found {
		return Deposit{}, fmt.Errorf("%w: %s #%s", ErrNotDeposited, collection, tokenID)
	}
	if d.LockedBy != loanID {
		return Deposit{}, fmt.Errorf("%w: %s #%s locked by %d, not %d", ErrLockMismatch, collection, tokenID, d.LockedBy, loanID)
	}
	return d, nil
}
