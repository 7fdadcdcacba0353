// Package registry caches the chain and token metadata served by the API.
// A loaded snapshot is read-only; reloads replace the whole snapshot
// atomically so concurrent readers never observe partial state.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/aori-io/aori-go/pkg/types"
)

// Source provides the registry bootstrap endpoints. *client.Client satisfies
// it.
type Source interface {
	GetChains(ctx context.Context) ([]types.ChainInfo, error)
	GetTokens(ctx context.Context) ([]types.TokenInfo, error)
}

type snapshot struct {
	chainsByKey map[string]*types.ChainInfo
	chainsByID  map[uint64]*types.ChainInfo
	chainsByEID map[uint32]*types.ChainInfo
	// tokens keyed by chainKey, then lowercase address
	tokens map[string]map[string]*types.TokenInfo
}

// Registry is a read-through cache of chain/token metadata.
type Registry struct {
	source Source
	logger *zap.Logger
	snap   atomic.Pointer[snapshot]
}

// New creates an empty registry backed by source. Call Load before lookups.
func New(source Source, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{source: source, logger: logger}
	r.snap.Store(&snapshot{
		chainsByKey: map[string]*types.ChainInfo{},
		chainsByID:  map[uint64]*types.ChainInfo{},
		chainsByEID: map[uint32]*types.ChainInfo{},
		tokens:      map[string]map[string]*types.TokenInfo{},
	})
	return r
}

// Load fetches the chain list, and the token list when loadTokens is set,
// then installs the result as the new snapshot.
func (r *Registry) Load(ctx context.Context, loadTokens bool) error {
	chains, err := r.source.GetChains(ctx)
	if err != nil {
		return fmt.Errorf("failed to load chains: %w", err)
	}

	snap := &snapshot{
		chainsByKey: make(map[string]*types.ChainInfo, len(chains)),
		chainsByID:  make(map[uint64]*types.ChainInfo, len(chains)),
		chainsByEID: make(map[uint32]*types.ChainInfo, len(chains)),
		tokens:      map[string]map[string]*types.TokenInfo{},
	}
	for i := range chains {
		c := chains[i]
		c.ChainKey = strings.ToLower(c.ChainKey)
		snap.chainsByKey[c.ChainKey] = &c
		snap.chainsByID[c.ChainID] = &c
		snap.chainsByEID[c.EID] = &c
	}

	if loadTokens {
		tokens, err := r.source.GetTokens(ctx)
		if err != nil {
			return fmt.Errorf("failed to load tokens: %w", err)
		}
		for i := range tokens {
			t := tokens[i]
			t.ChainKey = strings.ToLower(t.ChainKey)
			byAddr := snap.tokens[t.ChainKey]
			if byAddr == nil {
				byAddr = map[string]*types.TokenInfo{}
				snap.tokens[t.ChainKey] = byAddr
			}
			byAddr[strings.ToLower(t.Address)] = &t
		}
		r.logger.Debug("registry loaded", zap.Int("chains", len(chains)), zap.Int("tokens", len(tokens)))
	} else {
		r.logger.Debug("registry loaded", zap.Int("chains", len(chains)))
	}

	r.snap.Store(snap)
	return nil
}

// Reload refreshes the snapshot, preserving whether tokens were loaded.
func (r *Registry) Reload(ctx context.Context) error {
	return r.Load(ctx, len(r.snap.Load().tokens) > 0)
}

// ChainByKey looks a chain up by its key, case-insensitively.
func (r *Registry) ChainByKey(key string) (*types.ChainInfo, error) {
	snap := r.snap.Load()
	if c, ok := snap.chainsByKey[strings.ToLower(key)]; ok {
		return c, nil
	}
	return nil, &types.UnknownChainError{ChainKey: key, Available: chainKeys(snap)}
}

// ChainByID looks a chain up by its numeric chain id.
func (r *Registry) ChainByID(id uint64) (*types.ChainInfo, bool) {
	c, ok := r.snap.Load().chainsByID[id]
	return c, ok
}

// ChainByEID looks a chain up by its cross-chain messaging endpoint id.
func (r *Registry) ChainByEID(eid uint32) (*types.ChainInfo, bool) {
	c, ok := r.snap.Load().chainsByEID[eid]
	return c, ok
}

// Chains returns every chain in the current snapshot.
func (r *Registry) Chains() []types.ChainInfo {
	snap := r.snap.Load()
	out := make([]types.ChainInfo, 0, len(snap.chainsByKey))
	for _, c := range snap.chainsByKey {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainKey < out[j].ChainKey })
	return out
}

// Token looks up token metadata by chain key and address.
func (r *Registry) Token(chainKey, address string) (*types.TokenInfo, bool) {
	byAddr := r.snap.Load().tokens[strings.ToLower(chainKey)]
	if byAddr == nil {
		return nil, false
	}
	t, ok := byAddr[strings.ToLower(address)]
	return t, ok
}

// TokenDecimals returns a token's decimals, inferring from its symbol when
// the upstream data omits them.
func (r *Registry) TokenDecimals(chainKey, address string) uint8 {
	t, ok := r.Token(chainKey, address)
	if !ok {
		return 18
	}
	if t.Decimals != nil {
		return *t.Decimals
	}
	return inferDecimals(t.Symbol)
}

// inferDecimals is the fallback table for tokens whose metadata omits
// decimals.
func inferDecimals(symbol string) uint8 {
	switch strings.ToUpper(symbol) {
	case "USDC", "USDT":
		return 6
	case "WETH", "ETH":
		return 18
	case "WBTC":
		return 8
	default:
		return 18
	}
}

func chainKeys(snap *snapshot) []string {
	keys := make([]string, 0, len(snap.chainsByKey))
	for k := range snap.chainsByKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
