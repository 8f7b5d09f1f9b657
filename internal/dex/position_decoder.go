package dex

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"pointsScope/internal/model"
)

// PositionDecoder decodes V3 pool Mint and Burn logs.
type PositionDecoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
}

// NewPositionDecoder builds a decoder for Mint/Burn plus any configured aliases.
func NewPositionDecoder(cfg DecoderConfig) (*PositionDecoder, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, err
	}

	topicToName := map[string]string{
		strings.ToLower(poolABI.Events[model.EventMint].ID.Hex()): model.EventMint,
		strings.ToLower(poolABI.Events[model.EventBurn].ID.Hex()): model.EventBurn,
	}

	for topic0, name := range cfg.Topic0Map {
		original := name
		name = normalizeEventName(name)
		if name == "" {
			return nil, fmt.Errorf("unsupported event name in topic0 map: %s", original)
		}
		if topic0 == "" {
			continue
		}
		topicToName[strings.ToLower(topic0)] = name
	}

	return &PositionDecoder{
		poolABI:     poolABI,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks if the topic0 is a known Mint or Burn.
func (d *PositionDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Topics returns every topic0 the decoder accepts, for log filters.
func (d *PositionDecoder) Topics() []common.Hash {
	out := make([]common.Hash, 0, len(d.topicToName))
	for topic := range d.topicToName {
		out = append(out, common.HexToHash(topic))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

// Decode converts a LogRecord into a LiquidityEvent.
func (d *PositionDecoder) Decode(log model.LogRecord) (model.LiquidityEvent, error) {
	if len(log.Topics) == 0 {
		return model.LiquidityEvent{}, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return model.LiquidityEvent{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return model.LiquidityEvent{}, fmt.Errorf("invalid pool address: %s", log.Address)
	}

	event := d.poolABI.Events[name]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.LiquidityEvent{}, err
	}

	var indexed struct {
		Owner     common.Address
		TickLower *big.Int
		TickUpper *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.LiquidityEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.LiquidityEvent{}, err
	}
	// Mint carries the sender before the amounts.
	if name == model.EventMint {
		if len(values) != 4 {
			return model.LiquidityEvent{}, fmt.Errorf("unexpected mint values: %d", len(values))
		}
		if _, err := asAddress(values[0]); err != nil {
			return model.LiquidityEvent{}, err
		}
		values = values[1:]
	}
	if len(values) != 3 {
		return model.LiquidityEvent{}, fmt.Errorf("unexpected %s values: %d", strings.ToLower(name), len(values))
	}

	amounts := make([]*big.Int, 0, 3)
	for _, value := range values {
		amount, err := asBigInt(value)
		if err != nil {
			return model.LiquidityEvent{}, err
		}
		amounts = append(amounts, amount)
	}

	tickLower, err := int24FromBig(indexed.TickLower)
	if err != nil {
		return model.LiquidityEvent{}, err
	}
	tickUpper, err := int24FromBig(indexed.TickUpper)
	if err != nil {
		return model.LiquidityEvent{}, err
	}

	return model.LiquidityEvent{
		Kind:        name,
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Timestamp:   log.Timestamp,
		Pool:        common.HexToAddress(log.Address).Hex(),
		Owner:       indexed.Owner.Hex(),
		TickLower:   tickLower,
		TickUpper:   tickUpper,
		Amount:      amounts[0].String(),
		Amount0:     amounts[1].String(),
		Amount1:     amounts[2].String(),
	}, nil
}

func normalizeEventName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mint":
		return model.EventMint
	case "burn":
		return model.EventBurn
	default:
		return ""
	}
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	out := make([]common.Hash, 0, indexedCount)
	for _, topic := range topics[1:] {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
