package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/speedrun-hq/airdropper/pkg/rpcpool"
)

// FakeEndpoint scripts the liveness behaviour of one URL.
type FakeEndpoint struct {
	ChainID  int64
	ProbeErr error
	// Hang makes the chain id probe block until its context is done.
	Hang bool
}

// FakeNetwork is an in-memory set of RPC endpoints for rpcpool.WithDialer.
// Contract calls are routed to Contracts by destination address.
type FakeNetwork struct {
	mu        sync.Mutex
	endpoints map[string]*FakeEndpoint
	dials     []string

	Contracts map[common.Address]*ContractStub
	// Receipt answers eth_getTransactionReceipt. A nil func reports ethereum.NotFound.
	Receipt func(ctx context.Context, url string, hash common.Hash) (*types.Receipt, error)
}

// NewFakeNetwork creates a network where every url answers with chainID.
func NewFakeNetwork(chainID int64, urls ...string) *FakeNetwork {
	n := &FakeNetwork{
		endpoints: make(map[string]*FakeEndpoint),
		Contracts: make(map[common.Address]*ContractStub),
	}
	for _, u := range urls {
		n.endpoints[u] = &FakeEndpoint{ChainID: chainID}
	}
	return n
}

// Endpoint returns the scripted behaviour for url so a test can change it.
func (n *FakeNetwork) Endpoint(url string) *FakeEndpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.endpoints[url]
}

// SetProbeErr makes every probe against url fail with err (nil restores it).
func (n *FakeNetwork) SetProbeErr(url string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.endpoints[url].ProbeErr = err
}

// Dial implements rpcpool.DialFunc.
func (n *FakeNetwork) Dial(_ context.Context, url string) (rpcpool.Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.dials = append(n.dials, url)
	if _, ok := n.endpoints[url]; !ok {
		return nil, fmt.Errorf("dial %s: no such host", url)
	}
	return &FakeClient{network: n, url: url}, nil
}

// Dials returns every dialed url in order.
func (n *FakeNetwork) Dials() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.dials...)
}

// FakeClient is the rpcpool.Client handed out by FakeNetwork.
type FakeClient struct {
	network *FakeNetwork
	url     string
}

var _ rpcpool.Client = (*FakeClient)(nil)

func (c *FakeClient) ChainID(ctx context.Context) (*big.Int, error) {
	c.network.mu.Lock()
	ep := *c.network.endpoints[c.url]
	c.network.mu.Unlock()

	if ep.Hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if ep.ProbeErr != nil {
		return nil, ep.ProbeErr
	}
	return big.NewInt(ep.ChainID), nil
}

func (c *FakeClient) CodeAt(_ context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (c *FakeClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil {
		return nil, errors.New("call without destination")
	}
	c.network.mu.Lock()
	stub, ok := c.network.Contracts[*msg.To]
	c.network.mu.Unlock()
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return stub.Handle(msg.Data)
}

func (c *FakeClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if c.network.Receipt == nil {
		return nil, ethereum.NotFound
	}
	return c.network.Receipt(ctx, c.url, hash)
}

func (c *FakeClient) Close() {}

// ContractStub answers eth_call for one contract using its ABI.
type ContractStub struct {
	mu       sync.Mutex
	abi      *abi.ABI
	handlers map[string]func(args []interface{}) ([]interface{}, error)
}

// NewContractStub creates a stub for the contract described by parsed.
func NewContractStub(parsed *abi.ABI) *ContractStub {
	return &ContractStub{
		abi:      parsed,
		handlers: make(map[string]func(args []interface{}) ([]interface{}, error)),
	}
}

// On registers the handler for method. Returned values are ABI-encoded as the method outputs.
func (s *ContractStub) On(method string, h func(args []interface{}) ([]interface{}, error)) *ContractStub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
	return s
}

// Returns registers a handler that always answers values.
func (s *ContractStub) Returns(method string, values ...interface{}) *ContractStub {
	return s.On(method, func([]interface{}) ([]interface{}, error) { return values, nil })
}

// Handle decodes calldata, runs the matching handler and encodes its result.
func (s *ContractStub) Handle(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, errors.New("execution reverted")
	}
	method, err := s.abi.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	h, ok := s.handlers[method.Name]
	s.mu.Unlock()
	if !ok {
		return nil, errors.New("execution reverted")
	}

	out, err := h(args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}
