// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
)

// Selector is the 4-byte function identifier calls are routed by
type Selector = [4]byte

// ExtendedABI wraps the standard ABI and adds call decoding, output packing
// and event packing helpers.
type ExtendedABI struct {
	abi.ABI
}

// ParseABI parses the raw ABI JSON and returns an ExtendedABI
func ParseABI(rawABI string) ExtendedABI {
	parsed, err := abi.JSON(strings.NewReader(rawABI))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return ExtendedABI{ABI: parsed}
}

// Selectors returns the selectors of every method in the ABI, ordered by
// method name.
func (e ExtendedABI) Selectors() []Selector {
	names := make([]string, 0, len(e.Methods))
	for name := range e.Methods {
		names = append(names, name)
	}
	sort.Strings(names)

	selectors := make([]Selector, 0, len(names))
	for _, name := range names {
		selectors = append(selectors, e.MustSelector(name))
	}
	return selectors
}

// MustSelector returns the selector of the named method
func (e ExtendedABI) MustSelector(name string) Selector {
	method, exist := e.Methods[name]
	if !exist {
		panic(fmt.Sprintf("method '%s' not found", name))
	}
	var sel Selector
	copy(sel[:], method.ID)
	return sel
}

// DecodeCall resolves the method addressed by input's selector and unpacks
// its arguments.
func (e ExtendedABI) DecodeCall(input []byte) (*abi.Method, []interface{}, error) {
	if len(input) < 4 {
		return nil, nil, fmt.Errorf("%w: calldata shorter than a selector", ErrInvalidInput)
	}
	method, err := e.MethodById(input[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %x", ErrMethodNotFound, input[:4])
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, method.Name, err)
	}
	return method, args, nil
}

// PackOutput encodes args as the return data of the named method
func (e ExtendedABI) PackOutput(name string, args ...interface{}) ([]byte, error) {
	method, ok := e.Methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, name)
	}
	return method.Outputs.Pack(args...)
}

// PackEvent encodes the named event. Indexed args become topics after the
// event id; the rest are packed into the log data.
func (e ExtendedABI) PackEvent(name string, args ...interface{}) ([]common.Hash, []byte, error) {
	event, ok := e.Events[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown event %q", name)
	}
	if len(args) != len(event.Inputs) {
		return nil, nil, fmt.Errorf("event %s takes %d args, got %d", name, len(event.Inputs), len(args))
	}

	topics := make([]common.Hash, 0, 4)
	if !event.Anonymous {
		topics = append(topics, event.ID)
	}
	var (
		dataArgs   abi.Arguments
		dataValues []interface{}
	)
	for i, input := range event.Inputs {
		if !input.Indexed {
			dataArgs = append(dataArgs, input)
			dataValues = append(dataValues, args[i])
			continue
		}
		topic, err := packTopic(args[i])
		if err != nil {
			return nil, nil, fmt.Errorf("event %s arg %s: %w", name, input.Name, err)
		}
		topics = append(topics, topic)
	}
	data, err := dataArgs.Pack(dataValues...)
	if err != nil {
		return nil, nil, err
	}
	return topics, data, nil
}

// packTopic encodes one indexed value. Dynamic values are hashed.
func packTopic(value interface{}) (common.Hash, error) {
	switch v := value.(type) {
	case common.Address:
		return common.BytesToHash(v.Bytes()), nil
	case common.Hash:
		return v, nil
	case *big.Int:
		return common.BigToHash(v), nil
	case uint64:
		return common.BigToHash(new(big.Int).SetUint64(v)), nil
	case [4]byte:
		// fixed bytes are left-aligned
		var h common.Hash
		copy(h[:], v[:])
		return h, nil
	case []byte:
		return common.BytesToHash(crypto.Keccak256(v)), nil
	case string:
		return common.BytesToHash(crypto.Keccak256([]byte(v))), nil
	default:
		return common.Hash{}, fmt.Errorf("unsupported indexed type: %T", value)
	}
}
