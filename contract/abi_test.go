// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"math/big"
	"testing"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

var testABI = ParseABI(`[
	{"type":"function","name":"get","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"put","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"event","name":"Moved","anonymous":false,"inputs":[
		{"name":"id","type":"uint256","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"memo","type":"string","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]}
]`)

func TestSelectorsSortedByName(t *testing.T) {
	require := require.New(t)

	sels := testABI.Selectors()
	require.Len(sels, 2)
	require.Equal(testABI.MustSelector("get"), sels[0])
	require.Equal(testABI.MustSelector("put"), sels[1])
	require.Panics(func() { testABI.MustSelector("missing") })
}

func TestDecodeCall(t *testing.T) {
	require := require.New(t)

	input, err := testABI.Pack("get", big.NewInt(7))
	require.NoError(err)
	method, args, err := testABI.DecodeCall(input)
	require.NoError(err)
	require.Equal("get", method.Name)
	require.Equal(big.NewInt(7), args[0])

	_, _, err = testABI.DecodeCall(input[:3])
	require.ErrorIs(err, ErrInvalidInput)
	_, _, err = testABI.DecodeCall([]byte{1, 2, 3, 4})
	require.ErrorIs(err, ErrMethodNotFound)
	_, _, err = testABI.DecodeCall(input[:10])
	require.ErrorIs(err, ErrInvalidInput)

	_, err = testABI.PackOutput("missing")
	require.ErrorIs(err, ErrMethodNotFound)
}

func TestPackEvent(t *testing.T) {
	require := require.New(t)
	to := common.HexToAddress("0x1000000000000000000000000000000000000001")

	topics, data, err := testABI.PackEvent("Moved", uint64(3), to, "note", big.NewInt(9))
	require.NoError(err)
	require.Equal([]common.Hash{
		testABI.Events["Moved"].ID,
		common.BigToHash(big.NewInt(3)),
		common.BytesToHash(to.Bytes()),
		common.BytesToHash(crypto.Keccak256([]byte("note"))),
	}, topics)
	require.Equal(common.BigToHash(big.NewInt(9)).Bytes(), data)

	_, _, err = testABI.PackEvent("Moved", uint64(3))
	require.Error(err)
	_, _, err = testABI.PackEvent("Moved", 3.5, to, "note", big.NewInt(9))
	require.Error(err)
	_, _, err = testABI.PackEvent("Missing")
	require.Error(err)
}
