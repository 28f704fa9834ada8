// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package erc721 talks to ERC-721 collections from inside a running contract.
package erc721

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
)

const abiJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[
		{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[
		{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getApproved","stateMutability":"view","inputs":[
		{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"isApprovedForAll","stateMutability":"view","inputs":[
		{"name":"owner","type":"address"},
		{"name":"operator","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[
		{"name":"to","type":"address"},
		{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"setApprovalForAll","stateMutability":"nonpayable","inputs":[
		{"name":"operator","type":"address"},
		{"name":"approved","type":"bool"}],"outputs":[]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[
		{"name":"from","type":"address"},
		{"name":"to","type":"address"},
		{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"safeTransferFrom","stateMutability":"nonpayable","inputs":[
		{"name":"from","type":"address"},
		{"name":"to","type":"address"},
		{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[
		{"name":"from","type":"address","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"tokenId","type":"uint256","indexed":true}]},
	{"type":"event","name":"Approval","anonymous":false,"inputs":[
		{"name":"owner","type":"address","indexed":true},
		{"name":"approved","type":"address","indexed":true},
		{"name":"tokenId","type":"uint256","indexed":true}]},
	{"type":"event","name":"ApprovalForAll","anonymous":false,"inputs":[
		{"name":"owner","type":"address","indexed":true},
		{"name":"operator","type":"address","indexed":true},
		{"name":"approved","type":"bool","indexed":false}]}
]`

const receiverABIJSON = `[
	{"type":"function","name":"onERC721Received","stateMutability":"nonpayable","inputs":[
		{"name":"operator","type":"address"},
		{"name":"from","type":"address"},
		{"name":"tokenId","type":"uint256"},
		{"name":"data","type":"bytes"}],"outputs":[{"name":"","type":"bytes4"}]}
]`

var (
	// ABI is the IERC721 interface
	ABI = contract.ParseABI(abiJSON)
	// ReceiverABI is the IERC721Receiver interface
	ReceiverABI = contract.ParseABI(receiverABIJSON)
	// ReceivedSelector is the value onERC721Received returns to accept a token
	ReceivedSelector = ReceiverABI.MustSelector("onERC721Received")

	// InterfaceID is the ERC-165 identifier of IERC721
	InterfaceID = [4]byte{0x80, 0xac, 0x58, 0xcd}
	// ReceiverInterfaceID is the ERC-165 identifier of IERC721Receiver
	ReceiverInterfaceID = [4]byte{0x15, 0x0b, 0x7a, 0x02}
)

// Client calls a collection on behalf of the running contract. Any failure of
// the collection surfaces as contract.ErrTransferFailed.
type Client struct {
	env        contract.AccessibleState
	caller     common.Address
	collection common.Address
}

// NewClient returns a client calling collection as caller
func NewClient(accessibleState contract.AccessibleState, caller, collection common.Address) Client {
	return Client{env: accessibleState, caller: caller, collection: collection}
}

// Collection returns the collection address
func (c Client) Collection() common.Address {
	return c.collection
}

func (c Client) view(name string, args ...interface{}) ([]interface{}, error) {
	input, err := ABI.Pack(name, args...)
	if err != nil {
		return nil, err
	}
	ret, err := c.env.StaticCall(c.caller, c.collection, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %w", contract.ErrTransferFailed, c.collection, name, err)
	}
	out, err := ABI.Unpack(name, ret)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", contract.ErrTransferFailed, c.collection, name, err)
	}
	return out, nil
}

// OwnerOf returns the current owner of tokenID
func (c Client) OwnerOf(tokenID *big.Int) (common.Address, error) {
	out, err := c.view("ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// GetApproved returns the single-token approval of tokenID
func (c Client) GetApproved(tokenID *big.Int) (common.Address, error) {
	out, err := c.view("getApproved", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// IsApprovedForAll reports whether operator may move all of owner's tokens
func (c Client) IsApprovedForAll(owner, operator common.Address) (bool, error) {
	out, err := c.view("isApprovedForAll", owner, operator)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// CanTransfer reports whether operator is approved to move tokenID out of
// owner's wallet, either per token or for the whole collection.
func (c Client) CanTransfer(owner, operator common.Address, tokenID *big.Int) (bool, error) {
	approved, err := c.GetApproved(tokenID)
	if err != nil {
		return false, err
	}
	if approved == operator {
		return true, nil
	}
	return c.IsApprovedForAll(owner, operator)
}

// TransferFrom moves tokenID from from to to
func (c Client) TransferFrom(from, to common.Address, tokenID *big.Int) error {
	input, err := ABI.Pack("transferFrom", from, to, tokenID)
	if err != nil {
		return err
	}
	if _, err := c.env.Call(c.caller, c.collection, input, nil); err != nil {
		return fmt.Errorf("%w: %s.transferFrom: %w", contract.ErrTransferFailed, c.collection, err)
	}
	return nil
}
