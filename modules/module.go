// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package modules tracks the code deployed on the host, keyed by address.
package modules

import (
	"bytes"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/contract"
)

// Module is a contract deployed at a fixed address
type Module struct {
	// Name identifies the deployment in logs and tooling. Optional; when set
	// it must be unique across the registry.
	Name     string
	Address  common.Address
	Contract contract.StatefulContract
}

type moduleArray []Module

func (u moduleArray) Len() int {
	return len(u)
}

func (u moduleArray) Swap(i, j int) {
	u[i], u[j] = u[j], u[i]
}

func (u moduleArray) Less(i, j int) bool {
	return bytes.Compare(u[i].Address.Bytes(), u[j].Address.Bytes()) < 0
}
