// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"bytes"

	"github.com/luxfi/geth/common"
)

// StatefulContract is a contract reachable at a fixed address.
type StatefulContract interface {
	Run(caller common.Address, input []byte, suppliedGas uint64, readOnly bool) (ret []byte, remainingGas uint64, err error)
}

// Module binds a contract to its address and config key.
type Module struct {
	// ConfigKey is the unique key of the module in config files
	ConfigKey string
	// Address the contract is reachable at
	Address common.Address
	// Contract executes calls
	Contract StatefulContract
}

type moduleArray []Module

func (m moduleArray) Len() int { return len(m) }

func (m moduleArray) Swap(i, j int) { m[i], m[j] = m[j], m[i] }

func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address.Bytes(), m[j].Address.Bytes()) < 0
}
