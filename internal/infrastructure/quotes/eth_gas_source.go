package quotes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
)

// tier spreads applied to the node's suggested price
var (
	slowFactor = decimal.NewFromFloat(0.8)
	fastFactor = decimal.NewFromFloat(1.5)
)

// RPCGasSource derives gas tiers from each network's JSON-RPC node via
// eth_gasPrice. Connections are dialed lazily and reused.
type RPCGasSource struct {
	endpoints map[entities.Network]string
	logger    *zap.Logger

	mu      sync.Mutex
	clients map[entities.Network]*ethclient.Client
}

// NewRPCGasSource creates an RPC-backed gas source from a network-to-URL map
func NewRPCGasSource(endpoints map[string]string, logger *zap.Logger) *RPCGasSource {
	eps := make(map[entities.Network]string, len(endpoints))
	for name, url := range endpoints {
		network := entities.Network(name)
		if network.IsValid() {
			eps[network] = url
		} else {
			logger.Warn("Ignoring RPC endpoint for unknown network", zap.String("network", name))
		}
	}
	return &RPCGasSource{
		endpoints: eps,
		logger:    logger,
		clients:   make(map[entities.Network]*ethclient.Client),
	}
}

// FetchGasQuote suggests a gas price from the network's node and spreads
// it into slow/standard/fast tiers
func (s *RPCGasSource) FetchGasQuote(ctx context.Context, network entities.Network) (entities.GasQuote, error) {
	client, err := s.clientFor(network)
	if err != nil {
		return entities.GasQuote{}, err
	}

	suggested, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return entities.GasQuote{}, fmt.Errorf("suggest gas price for %s: %w", network, err)
	}

	// node reports wei; quotes carry gwei
	standard := decimal.NewFromBigInt(suggested, -9)

	return entities.GasQuote{
		Network:   network,
		Slow:      standard.Mul(slowFactor),
		Standard:  standard,
		Fast:      standard.Mul(fastFactor),
		FetchedAt: time.Now(),
	}, nil
}

// Close releases all dialed connections
func (s *RPCGasSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for network, client := range s.clients {
		client.Close()
		delete(s.clients, network)
	}
}

// Shutdown implements the graceful shutdown contract
func (s *RPCGasSource) Shutdown(_ time.Duration) error {
	s.Close()
	return nil
}

func (s *RPCGasSource) clientFor(network entities.Network) (*ethclient.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if client, ok := s.clients[network]; ok {
		return client, nil
	}

	url, ok := s.endpoints[network]
	if !ok {
		return nil, fmt.Errorf("no RPC endpoint configured for network %s", network)
	}

	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial %s node: %w", network, err)
	}
	s.clients[network] = client
	return client, nil
}
