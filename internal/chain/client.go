package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// DefaultTimestampWindow is how many blocks behind the newest cached block
// keep their timestamps. The log sync walks blocks in ascending order.
const DefaultTimestampWindow = 50_000

// Client is the chain access of one command run: log queries, block times
// and pool reads. Callers construct one and close it.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	times     *blockTimes

	chainOnce sync.Once
	chainID   *big.Int
	chainErr  error
}

// NewClient dials the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		times:     newBlockTimes(DefaultTimestampWindow),
	}, nil
}

func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID is fetched once per client.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.chainOnce.Do(func() {
		c.chainID, c.chainErr = c.ethClient.ChainID(ctx)
	})
	if c.chainErr != nil {
		return nil, fmt.Errorf("chain id: %w", c.chainErr)
	}
	return new(big.Int).Set(c.chainID), nil
}

func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// BlockTimestamp returns the header time of block number.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	if ts, ok := c.times.get(number); ok {
		return ts, nil
	}
	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, fmt.Errorf("header %d: %w", number, err)
	}
	c.times.put(number, header.Time)
	return header.Time, nil
}

// FilterLogs returns logs emitted by pools in [fromBlock, toBlock] whose
// topic0 is one of topic0.
func (c *Client) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, pools []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: pools,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// CallContract performs an eth_call at blockNumber, or latest when nil.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// blockTimes caches block timestamps within a window behind the newest block
// seen. Older entries are dropped when the window moves.
type blockTimes struct {
	mu     sync.RWMutex
	window uint64
	newest uint64
	byNum  map[uint64]uint64
}

func newBlockTimes(window uint64) *blockTimes {
	return &blockTimes{window: window, byNum: make(map[uint64]uint64)}
}

func (b *blockTimes) get(number uint64) (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ts, ok := b.byNum[number]
	return ts, ok
}

func (b *blockTimes) put(number, ts uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if number > b.newest {
		b.newest = number
	}
	if b.newest-number > b.window {
		return
	}
	b.byNum[number] = ts
	if uint64(len(b.byNum)) <= b.window {
		return
	}
	for n := range b.byNum {
		if b.newest-n > b.window {
			delete(b.byNum, n)
		}
	}
}
