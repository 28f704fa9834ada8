// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/rlp"
	"github.com/zeebo/blake3"
)

// NamespaceKey derives the fixed location of a named storage region.
func NamespaceKey(name string) common.Hash {
	return MakeKey([]byte(name))
}

// MakeKey hashes the concatenation of parts into a storage key
func MakeKey(parts ...[]byte) common.Hash {
	h := blake3.New()
	for _, part := range parts {
		h.Write(part)
	}
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// Namespace returns the named region of an account's storage. Regions with
// distinct names never overlap, so independent modules sharing one account
// cannot clobber each other's records.
func Namespace(db database.Database, name string) database.Database {
	key := NamespaceKey(name)
	return prefixdb.New(key[:], db)
}

// Load decodes the RLP record at key into v. It reports false when the key is
// absent.
func Load(db database.KeyValueReader, key []byte, v interface{}) (bool, error) {
	raw, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

// Store RLP-encodes v at key
func Store(db database.KeyValueWriter, key []byte, v interface{}) error {
	raw, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	return db.Put(key, raw)
}

// Delete removes key; removing an absent key is not an error
func Delete(db database.KeyValueDeleter, key []byte) error {
	return db.Delete(key)
}

// Key builds a record key from a prefix and an identifier
func Key(prefix string, id []byte) []byte {
	key := make([]byte, 0, len(prefix)+len(id))
	key = append(key, prefix...)
	return append(key, id...)
}
