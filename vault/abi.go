// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
)

// VaultRawABI describes the vault's call surface and events.
const VaultRawABI = `[
	{"type":"function","name":"initialDeposit","stateMutability":"nonpayable","inputs":[{"name":"amounts","type":"uint256[]"},{"name":"weights","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"deposit","stateMutability":"nonpayable","inputs":[{"name":"amounts","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"depositIfBalanceUnchanged","stateMutability":"nonpayable","inputs":[{"name":"amounts","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"depositRiskingArbitrage","stateMutability":"nonpayable","inputs":[{"name":"amounts","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"depositRiskingArbitrageIfBalanceUnchanged","stateMutability":"nonpayable","inputs":[{"name":"amounts","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"amounts","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"withdrawIfBalanceUnchanged","stateMutability":"nonpayable","inputs":[{"name":"amounts","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"updateWeightsGradually","stateMutability":"nonpayable","inputs":[{"name":"weights","type":"uint256[]"},{"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"cancelWeightUpdates","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"setSwapFee","stateMutability":"nonpayable","inputs":[{"name":"newSwapFee","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"enableTradingRiskingArbitrage","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"enableTradingWithWeights","stateMutability":"nonpayable","inputs":[{"name":"weights","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"enableTradingWithOraclePrice","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"disableTrading","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"setOraclesEnabled","stateMutability":"nonpayable","inputs":[{"name":"enabled","type":"bool"}],"outputs":[]},
	{"type":"function","name":"setGuardian","stateMutability":"nonpayable","inputs":[{"name":"newGuardian","type":"address"}],"outputs":[]},
	{"type":"function","name":"claimGuardianFees","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"finalize","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]},
	{"type":"function","name":"acceptOwnership","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"cancelOwnershipTransfer","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"renounceOwnership","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"getHoldings","stateMutability":"view","inputs":[],"outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"getNormalizedWeights","stateMutability":"view","inputs":[],"outputs":[{"name":"weights","type":"uint256[]"}]},
	{"type":"function","name":"getGuardianFees","stateMutability":"view","inputs":[{"name":"guardian","type":"address"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"guardian","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"isSwapEnabled","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"description","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},

	{"type":"event","name":"InitialDeposit","anonymous":false,"inputs":[{"name":"requestedAmounts","type":"uint256[]","indexed":false},{"name":"amounts","type":"uint256[]","indexed":false},{"name":"weights","type":"uint256[]","indexed":false}]},
	{"type":"event","name":"Deposit","anonymous":false,"inputs":[{"name":"requestedAmounts","type":"uint256[]","indexed":false},{"name":"amounts","type":"uint256[]","indexed":false},{"name":"weights","type":"uint256[]","indexed":false}]},
	{"type":"event","name":"Withdraw","anonymous":false,"inputs":[{"name":"requestedAmounts","type":"uint256[]","indexed":false},{"name":"amounts","type":"uint256[]","indexed":false},{"name":"weights","type":"uint256[]","indexed":false}]},
	{"type":"event","name":"UpdateWeightsGradually","anonymous":false,"inputs":[{"name":"startTime","type":"uint256","indexed":false},{"name":"endTime","type":"uint256","indexed":false},{"name":"weights","type":"uint256[]","indexed":false}]},
	{"type":"event","name":"CancelWeightUpdates","anonymous":false,"inputs":[{"name":"weights","type":"uint256[]","indexed":false}]},
	{"type":"event","name":"SetSwapEnabled","anonymous":false,"inputs":[{"name":"swapEnabled","type":"bool","indexed":false}]},
	{"type":"event","name":"SetSwapFee","anonymous":false,"inputs":[{"name":"swapFee","type":"uint256","indexed":false}]},
	{"type":"event","name":"SetOraclesEnabled","anonymous":false,"inputs":[{"name":"enabled","type":"bool","indexed":false}]},
	{"type":"event","name":"GuardianChanged","anonymous":false,"inputs":[{"name":"previousGuardian","type":"address","indexed":true},{"name":"guardian","type":"address","indexed":true}]},
	{"type":"event","name":"DistributeGuardianFees","anonymous":false,"inputs":[{"name":"guardian","type":"address","indexed":true},{"name":"amounts","type":"uint256[]","indexed":false}]},
	{"type":"event","name":"Finalized","anonymous":false,"inputs":[{"name":"caller","type":"address","indexed":true},{"name":"amounts","type":"uint256[]","indexed":false}]},
	{"type":"event","name":"OwnershipTransferOffered","anonymous":false,"inputs":[{"name":"currentOwner","type":"address","indexed":true},{"name":"pendingOwner","type":"address","indexed":true}]},
	{"type":"event","name":"OwnershipTransferCanceled","anonymous":false,"inputs":[{"name":"owner","type":"address","indexed":true},{"name":"canceledOwner","type":"address","indexed":true}]},
	{"type":"event","name":"OwnershipTransferred","anonymous":false,"inputs":[{"name":"previousOwner","type":"address","indexed":true},{"name":"newOwner","type":"address","indexed":true}]},
	{"type":"event","name":"Sweep","anonymous":false,"inputs":[{"name":"token","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]}
]`

// VaultABI is the parsed vault ABI.
var VaultABI = ParseABI(VaultRawABI)

// ExtendedABI wraps the standard ABI with call, output and event helpers
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

// PackOutput packs the outputs of the named method, without the method ID.
func (e ExtendedABI) PackOutput(name string, args ...interface{}) ([]byte, error) {
	method, exist := e.Methods[name]
	if !exist {
		return nil, fmt.Errorf("method '%s' not found", name)
	}
	return method.Outputs.Pack(args...)
}

// UnpackCall resolves the method from the 4-byte selector and unpacks its
// arguments.
func (e ExtendedABI) UnpackCall(input []byte) (*abi.Method, []interface{}, error) {
	if len(input) < 4 {
		return nil, nil, fmt.Errorf("%w: input too short (%d bytes)", ErrInvalidInput, len(input))
	}
	method, err := e.MethodById(input[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %x", ErrUnknownSelector, input[:4])
	}
	data := input[4:]
	if len(data)%32 != 0 {
		return nil, nil, fmt.Errorf("%w: improperly formatted input for %s", ErrInvalidInput, method.Name)
	}
	args, err := method.Inputs.Unpack(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return method, args, nil
}

// PackEvent packs the given event name and arguments to conform the ABI.
// Returns the topics for the event and the packed data of non-indexed args.
func (e ExtendedABI) PackEvent(name string, args ...interface{}) ([]common.Hash, []byte, error) {
	event, exist := e.Events[name]
	if !exist {
		return nil, nil, fmt.Errorf("event '%s' not found", name)
	}
	if len(args) != len(event.Inputs) {
		return nil, nil, fmt.Errorf("event '%s' unexpected number of inputs %d", name, len(args))
	}

	var (
		nonIndexedInputs = make([]interface{}, 0)
		indexedInputs    = make([]interface{}, 0)
		nonIndexedArgs   abi.Arguments
	)
	for i, arg := range event.Inputs {
		if arg.Indexed {
			indexedInputs = append(indexedInputs, args[i])
		} else {
			nonIndexedArgs = append(nonIndexedArgs, arg)
			nonIndexedInputs = append(nonIndexedInputs, args[i])
		}
	}

	packedArguments, err := nonIndexedArgs.Pack(nonIndexedInputs...)
	if err != nil {
		return nil, nil, err
	}

	topics := make([]common.Hash, 0, len(indexedInputs)+1)
	if !event.Anonymous {
		topics = append(topics, event.ID)
	}
	for _, input := range indexedInputs {
		topic, err := packTopic(input)
		if err != nil {
			return nil, nil, err
		}
		topics = append(topics, topic)
	}
	return topics, packedArguments, nil
}

// UnpackEvent decodes the non-indexed data of a vault log.
func (e ExtendedABI) UnpackEvent(name string, log *types.Log) ([]interface{}, error) {
	event, exist := e.Events[name]
	if !exist {
		return nil, fmt.Errorf("event '%s' not found", name)
	}
	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return nil, fmt.Errorf("log is not a '%s' event", name)
	}
	return event.Inputs.NonIndexed().Unpack(log.Data)
}

// packTopic packs a single indexed argument into a topic hash
func packTopic(value interface{}) (common.Hash, error) {
	switch v := value.(type) {
	case common.Address:
		return common.BytesToHash(v.Bytes()), nil
	case common.Hash:
		return v, nil
	case []byte:
		return common.BytesToHash(crypto.Keccak256(v)), nil
	case string:
		return common.BytesToHash(crypto.Keccak256([]byte(v))), nil
	default:
		return common.Hash{}, fmt.Errorf("unsupported indexed type: %T", value)
	}
}

// emit packs an event and appends it to the host log.
func (v *Vault) emit(name string, args ...interface{}) error {
	topics, data, err := VaultABI.PackEvent(name, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s event: %w", name, err)
	}
	v.host.AddLog(&types.Log{
		Address:     v.address,
		Topics:      topics,
		Data:        data,
		BlockNumber: v.host.BlockNumber(),
	})
	return nil
}

func bigTime(t uint64) *big.Int {
	return new(big.Int).SetUint64(t)
}
