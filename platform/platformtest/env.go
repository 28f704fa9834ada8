// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package platformtest deploys a complete platform next to a reference
// collection on an in-memory host, for tests and demos.
package platformtest

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/erc721"
	"github.com/luxfi/nftlend/erc721/erc721test"
	"github.com/luxfi/nftlend/lending"
	"github.com/luxfi/nftlend/oracle"
	"github.com/luxfi/nftlend/platform"
	"github.com/luxfi/nftlend/vault"
	"github.com/luxfi/nftlend/vm"
)

// Well-known accounts
var (
	Owner      = common.HexToAddress("0x1000000000000000000000000000000000000001")
	Borrower   = common.HexToAddress("0x1000000000000000000000000000000000000002")
	Lender     = common.HexToAddress("0x1000000000000000000000000000000000000003")
	Liquidator = common.HexToAddress("0x1000000000000000000000000000000000000004")
	Stranger   = common.HexToAddress("0x1000000000000000000000000000000000000005")

	Collection      = common.HexToAddress("0x7e57000000000000000000000000000000000001")
	OtherCollection = common.HexToAddress("0x7e57000000000000000000000000000000000002")
)

const (
	// CollateralFactor is the factor Collection is listed with
	CollateralFactor = 7000
	// StartTime is the timestamp of the first block
	StartTime = 1_700_000_000
)

// Ether returns n * 1e18
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), lending.RAY)
}

// Config lists Collection at 70% with a 100 ether floor price
func Config() platform.Config {
	cfg := platform.DefaultConfig()
	cfg.Owner = Owner
	cfg.Collections = []platform.CollectionConfig{
		{Address: Collection, FactorBps: CollateralFactor, FloorPrice: Ether(100)},
	}
	return cfg
}

// Env is a deployed platform with two reference collections. Collection is
// listed by the config; OtherCollection is deployed but not listed.
type Env struct {
	Host       *vm.Host
	Deployment *platform.Deployment
	Token      *erc721test.Token
	OtherToken *erc721test.Token
}

// New deploys cfg on a fresh host
func New(cfg platform.Config, opts ...vm.Option) (*Env, error) {
	opts = append([]vm.Option{vm.WithBlock(1, StartTime)}, opts...)
	host, err := vm.New(memdb.New(), nil, opts...)
	if err != nil {
		return nil, err
	}
	return Setup(host, cfg)
}

// Setup deploys both reference collections and the platform described by
// cfg on host
func Setup(host *vm.Host, cfg platform.Config) (*Env, error) {
	e := &Env{
		Host:       host,
		Token:      &erc721test.Token{},
		OtherToken: &erc721test.Token{},
	}
	if err := host.Deploy("Collection", Collection, e.Token, Owner, nil); err != nil {
		return nil, err
	}
	if err := host.Deploy("OtherCollection", OtherCollection, e.OtherToken, Owner, nil); err != nil {
		return nil, err
	}
	d, err := platform.Deploy(host, cfg)
	if err != nil {
		return nil, err
	}
	e.Deployment = d
	return e, nil
}

// Diamond returns the platform's address
func (e *Env) Diamond() common.Address {
	return e.Deployment.Diamond
}

// Send packs method from contractABI and transacts it from from to to
func (e *Env) Send(from, to common.Address, contractABI contract.ExtendedABI, value *big.Int, method string, args ...interface{}) (*vm.Receipt, error) {
	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	var v *uint256.Int
	if value != nil {
		var overflow bool
		if v, overflow = uint256.FromBig(value); overflow {
			return nil, fmt.Errorf("value %s overflows", value)
		}
	}
	return e.Host.Transact(from, to, input, v)
}

// Query runs a view of contractABI on to and unpacks its outputs
func (e *Env) Query(to common.Address, contractABI contract.ExtendedABI, method string, args ...interface{}) ([]interface{}, error) {
	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	ret, err := e.Host.View(Stranger, to, input)
	if err != nil {
		return nil, err
	}
	return contractABI.Unpack(method, ret)
}

// Vault transacts a vault method on the diamond
func (e *Env) Vault(from common.Address, method string, args ...interface{}) (*vm.Receipt, error) {
	return e.Send(from, e.Diamond(), vault.ABI, nil, method, args...)
}

// Lending transacts a lending method on the diamond
func (e *Env) Lending(from common.Address, method string, args ...interface{}) (*vm.Receipt, error) {
	return e.Send(from, e.Diamond(), lending.ABI, nil, method, args...)
}

// Mint creates item id of collection for to
func (e *Env) Mint(collection, to common.Address, id int64) error {
	_, err := e.Send(to, collection, erc721test.ExtrasABI, nil, "mint", to, big.NewInt(id))
	return err
}

// Approve lets the diamond move item id on behalf of holder
func (e *Env) Approve(collection, holder common.Address, id int64) error {
	_, err := e.Send(holder, collection, erc721.ABI, nil, "approve", e.Diamond(), big.NewInt(id))
	return err
}

// MintAndDeposit mints item id to holder and deposits it in the vault
func (e *Env) MintAndDeposit(collection, holder common.Address, id int64) error {
	if err := e.Mint(collection, holder, id); err != nil {
		return err
	}
	if err := e.Approve(collection, holder, id); err != nil {
		return err
	}
	_, err := e.Vault(holder, "depositNFT", collection, big.NewInt(id))
	return err
}

// Fund gives Lender amount and supplies it as liquidity
func (e *Env) Fund(amount *big.Int) error {
	if err := e.Credit(Lender, amount); err != nil {
		return err
	}
	_, err := e.Send(Lender, e.Diamond(), lending.ABI, amount, "supplyLiquidity")
	return err
}

// Credit adds amount to the native balance of addr
func (e *Env) Credit(addr common.Address, amount *big.Int) error {
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return fmt.Errorf("amount %s overflows", amount)
	}
	return e.Host.SetBalance(addr, new(uint256.Int).Add(e.Host.Balance(addr), v))
}

// Balance returns the native balance of addr
func (e *Env) Balance(addr common.Address) *big.Int {
	return e.Host.Balance(addr).ToBig()
}

// SetItemPrice overrides the appraisal of one item
func (e *Env) SetItemPrice(collection common.Address, id int64, price *big.Int) error {
	_, err := e.Send(Owner, e.Deployment.Oracle, oracle.ABI, nil, "setItemPrice", collection, big.NewInt(id), price)
	return err
}

// Borrow opens a loan over the given items of collection and returns its id
func (e *Env) Borrow(from, collection common.Address, amount *big.Int, ids ...int64) (uint64, error) {
	refs := make([]lending.CollateralRef, len(ids))
	for i, id := range ids {
		refs[i] = lending.CollateralRef{Collection: collection, TokenID: big.NewInt(id)}
	}
	receipt, err := e.Lending(from, "borrow", refs, amount)
	if err != nil {
		return 0, err
	}
	out, err := lending.ABI.Unpack("borrow", receipt.Return)
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

// OwnerOf returns the holder of item id of collection
func (e *Env) OwnerOf(collection common.Address, id int64) (common.Address, error) {
	out, err := e.Query(collection, erc721.ABI, "ownerOf", big.NewInt(id))
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// Loan returns the stored loan record of id
func (e *Env) Loan(id uint64) (lending.Loan, error) {
	out, err := e.Query(e.Diamond(), lending.ABI, "getLoan", new(big.Int).SetUint64(id))
	if err != nil {
		return lending.Loan{}, err
	}
	return lending.Loan{
		ID:        id,
		Borrower:  out[0].(common.Address),
		Principal: out[1].(*big.Int),
		Interest:  out[2].(*big.Int),
		Rate:      out[3].(*big.Int),
		StartTime: out[4].(uint64),
		Maturity:  out[5].(uint64),
		Status:    lending.LoanStatus(out[6].(uint8)),
	}, nil
}

// Outstanding returns what closes loan id at the current block
func (e *Env) Outstanding(id uint64) (*big.Int, error) {
	out, err := e.Query(e.Diamond(), lending.ABI, "outstandingBalance", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}
