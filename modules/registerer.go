// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/luxfi/geth/common"
)

// AddressRange represents a continuous range of addresses
type AddressRange struct {
	Start common.Address
	End   common.Address
}

// Contains returns true iff [addr] is contained within the (inclusive)
// range of addresses defined by [a].
func (a *AddressRange) Contains(addr common.Address) bool {
	addrBytes := addr.Bytes()
	return bytes.Compare(addrBytes, a.Start[:]) >= 0 && bytes.Compare(addrBytes, a.End[:]) <= 0
}

// BlackholeAddr is the address where assets are burned
var BlackholeAddr = common.Address{
	1, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// VaultRange is the reserved page for managed vault contracts.
var VaultRange = AddressRange{
	Start: common.HexToAddress("0x0000000000000000000000000000000000009030"),
	End:   common.HexToAddress("0x000000000000000000000000000000000000903f"),
}

var (
	mu sync.RWMutex

	// registeredModules is a list of Module to preserve order
	// for deterministic iteration
	registeredModules = make([]Module, 0)

	// Reserved address ranges for stateful contracts
	reservedRanges = []AddressRange{
		VaultRange,
	}
)

// VaultAddress returns the address of the vault in slot index of the
// reserved vault page.
func VaultAddress(index uint8) (common.Address, error) {
	if index > 0x0f {
		return common.Address{}, fmt.Errorf("vault slot %d out of range", index)
	}
	addr := VaultRange.Start
	addr[common.AddressLength-1] += index
	return addr, nil
}

// ReservedAddress returns true if [addr] is in a reserved range
func ReservedAddress(addr common.Address) bool {
	for _, reservedRange := range reservedRanges {
		if reservedRange.Contains(addr) {
			return true
		}
	}
	return false
}

// RegisterModule registers a stateful contract module
func RegisterModule(stm Module) error {
	address := stm.Address
	key := stm.ConfigKey

	if address == BlackholeAddr {
		return fmt.Errorf("address %s overlaps with blackhole address", address)
	}
	if !ReservedAddress(address) {
		return fmt.Errorf("address %s not in a reserved range", address)
	}
	if stm.Contract == nil {
		return fmt.Errorf("module %s has no contract", key)
	}

	mu.Lock()
	defer mu.Unlock()

	for _, registeredModule := range registeredModules {
		if registeredModule.ConfigKey == key {
			return fmt.Errorf("name %s already used by a stateful contract", key)
		}
		if registeredModule.Address == address {
			return fmt.Errorf("address %s already used by a stateful contract", address)
		}
	}
	// sort by address to ensure deterministic iteration
	registeredModules = insertSortedByAddress(registeredModules, stm)
	return nil
}

// UnregisterModule removes the module registered under key.
func UnregisterModule(key string) bool {
	mu.Lock()
	defer mu.Unlock()

	for i, stm := range registeredModules {
		if stm.ConfigKey == key {
			registeredModules = append(registeredModules[:i], registeredModules[i+1:]...)
			return true
		}
	}
	return false
}

func GetModuleByAddress(address common.Address) (Module, bool) {
	mu.RLock()
	defer mu.RUnlock()

	for _, stm := range registeredModules {
		if stm.Address == address {
			return stm, true
		}
	}
	return Module{}, false
}

func GetModule(key string) (Module, bool) {
	mu.RLock()
	defer mu.RUnlock()

	for _, stm := range registeredModules {
		if stm.ConfigKey == key {
			return stm, true
		}
	}
	return Module{}, false
}

// RegisteredModules returns a copy of the registered modules ordered by address.
func RegisteredModules() []Module {
	mu.RLock()
	defer mu.RUnlock()

	return append([]Module(nil), registeredModules...)
}

// Call routes a call to the module at address.
func Call(address, caller common.Address, input []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	stm, ok := GetModuleByAddress(address)
	if !ok {
		return nil, suppliedGas, fmt.Errorf("no stateful contract at %s", address)
	}
	return stm.Contract.Run(caller, input, suppliedGas, readOnly)
}

func insertSortedByAddress(data []Module, stm Module) []Module {
	data = append(data, stm)
	sort.Sort(moduleArray(data))
	return data
}
