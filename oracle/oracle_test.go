// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"math/big"
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/vm"
)

var (
	admin      = common.HexToAddress("0x1000000000000000000000000000000000000001")
	stranger   = common.HexToAddress("0x1000000000000000000000000000000000000002")
	collection = common.HexToAddress("0x0000000000000000000000000000000000005000")
	oracleAddr = common.HexToAddress("0x0000000000000000000000000000000000004000")
	consumer   = common.HexToAddress("0x0000000000000000000000000000000000004001")
)

type appraiser struct {
	value *big.Int
}

func (a *appraiser) Run(env contract.AccessibleState, frame contract.CallFrame, input []byte) ([]byte, error) {
	var err error
	a.value, err = Appraise(env, frame.Address, common.BytesToAddress(input[:20]), collection, new(big.Int).SetBytes(input[20:]))
	return nil, err
}

func newOracle(t *testing.T) *vm.Host {
	require := require.New(t)

	host, err := vm.New(memdb.New(), nil)
	require.NoError(err)
	ctor, err := ConstructorInput(admin)
	require.NoError(err)
	require.NoError(host.Deploy("oracle", oracleAddr, &PriceOracle{}, admin, ctor))
	return host
}

func transact(t *testing.T, host *vm.Host, from common.Address, name string, args ...interface{}) error {
	input, err := ABI.Pack(name, args...)
	require.NoError(t, err)
	_, err = host.Transact(from, oracleAddr, input, nil)
	return err
}

func appraiseView(t *testing.T, host *vm.Host, tokenID int64) (*big.Int, error) {
	input, err := ABI.Pack("appraise", collection, big.NewInt(tokenID))
	require.NoError(t, err)
	ret, err := host.View(stranger, oracleAddr, input)
	if err != nil {
		return nil, err
	}
	out, err := ABI.Unpack("appraise", ret)
	require.NoError(t, err)
	return out[0].(*big.Int), nil
}

func TestItemPriceOverridesFloor(t *testing.T) {
	require := require.New(t)

	host := newOracle(t)
	_, err := appraiseView(t, host, 1)
	require.ErrorIs(err, ErrNoAppraisal)

	require.NoError(transact(t, host, admin, "setFloorPrice", collection, big.NewInt(50)))
	price, err := appraiseView(t, host, 1)
	require.NoError(err)
	require.Equal(int64(50), price.Int64())

	require.NoError(transact(t, host, admin, "setItemPrice", collection, big.NewInt(1), big.NewInt(100)))
	price, err = appraiseView(t, host, 1)
	require.NoError(err)
	require.Equal(int64(100), price.Int64())

	price, err = appraiseView(t, host, 2)
	require.NoError(err)
	require.Equal(int64(50), price.Int64())

	require.NoError(transact(t, host, admin, "clearItemPrice", collection, big.NewInt(1)))
	price, err = appraiseView(t, host, 1)
	require.NoError(err)
	require.Equal(int64(50), price.Int64())
}

func TestOnlyOwnerSetsPrices(t *testing.T) {
	require := require.New(t)

	host := newOracle(t)
	err := transact(t, host, stranger, "setFloorPrice", collection, big.NewInt(50))
	require.ErrorIs(err, contract.ErrUnauthorized)

	err = transact(t, host, admin, "setFloorPrice", collection, big.NewInt(0))
	require.ErrorIs(err, ErrInvalidPrice)

	require.NoError(transact(t, host, admin, "transferOwnership", stranger))
	require.NoError(transact(t, host, stranger, "setFloorPrice", collection, big.NewInt(5)))
	err = transact(t, host, admin, "setFloorPrice", collection, big.NewInt(5))
	require.ErrorIs(err, contract.ErrUnauthorized)
}

func TestAppraiseClient(t *testing.T) {
	require := require.New(t)

	host := newOracle(t)
	a := &appraiser{}
	require.NoError(host.Deploy("consumer", consumer, a, admin, nil))
	require.NoError(transact(t, host, admin, "setItemPrice", collection, big.NewInt(3), big.NewInt(70)))

	_, err := host.Transact(stranger, consumer, append(oracleAddr.Bytes(), 3), nil)
	require.NoError(err)
	require.Equal(int64(70), a.value.Int64())

	_, err = host.Transact(stranger, consumer, append(common.Address{}.Bytes(), 3), nil)
	require.ErrorIs(err, ErrOracleNotSet)

	_, err = host.Transact(stranger, consumer, append(oracleAddr.Bytes(), 4), nil)
	require.ErrorIs(err, ErrNoAppraisal)
}
