package gateway

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/time/rate"
)

const subscribeBatchSize = 100

// subscribeBatchRate caps how many subscribe batches go out per second.
// Front servers throttle control traffic independently of market data,
// so bursts of hundreds of batches (e.g. restoring a large snapshot
// after reconnect) are paced rather than fired all at once. Unsubscribe
// calls are not paced.
const subscribeBatchRate = 5

// subscriptionRegistry tracks the subscribed-symbol set against a
// caller-supplied universe used only for wildcard expansion (§3, §4.E).
// It is owned exclusively by the dispatch loop; no locking is used here,
// matching §5's single-writer rule.
type subscriptionRegistry struct {
	universe    []string
	subscribed  map[string]struct{}
	maxSubs     int
	logger      Logger
	limiter     *rate.Limiter
	onSubscribe func(symbol string) // bar-aggregator init hook
	onRemove    func(symbol string)
}

func newSubscriptionRegistry(universe []string, maxSubs int, logger Logger) *subscriptionRegistry {
	return &subscriptionRegistry{
		universe:    universe,
		subscribed:  make(map[string]struct{}),
		maxSubs:     maxSubs,
		logger:      logger,
		limiter:     rate.NewLimiter(rate.Limit(subscribeBatchRate), subscribeBatchRate),
		onSubscribe: func(string) {},
		onRemove:    func(string) {},
	}
}

// SetUniverse replaces the symbol universe used for wildcard expansion.
func (r *subscriptionRegistry) SetUniverse(universe []string) {
	r.universe = universe
}

// Count returns the number of currently subscribed symbols.
func (r *subscriptionRegistry) Count() int {
	return len(r.subscribed)
}

// Snapshot returns a sorted copy of the subscribed set, used by the
// reconnect restore path.
func (r *subscriptionRegistry) Snapshot() []string {
	out := make([]string, 0, len(r.subscribed))
	for s := range r.subscribed {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// expand resolves patterns against the universe: a pattern containing *
// or ? is glob-matched against the universe; anything else is treated
// as a literal symbol. The result is deduplicated but not sorted beyond
// that (insertion order is preserved for batching determinism).
func (r *subscriptionRegistry) expand(patterns []string) []string {
	seen := make(map[string]struct{})
	var out []string

	for _, p := range patterns {
		if strings.ContainsAny(p, "*?") {
			matched := false
			for _, sym := range r.universe {
				if globMatch(p, sym) {
					matched = true
					if _, ok := seen[sym]; !ok {
						seen[sym] = struct{}{}
						out = append(out, sym)
					}
				}
			}
			if !matched && r.logger != nil {
				r.logger.Warnf("subscription pattern %q matched no symbols in the universe", p)
			}
			continue
		}
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// globMatch implements the glob semantics in §4.E: * matches any run of
// characters including empty, ? matches exactly one character.
// filepath.Match implements the same grammar for non-path strings.
func globMatch(pattern, s string) bool {
	ok, err := filepath.Match(pattern, s)
	return err == nil && ok
}

// subscriber is the narrow interface the registry needs from the
// connection manager to perform the native-call side of a subscribe.
type subscriber interface {
	sendSubscribe(symbols []string) error
	sendUnsubscribe(symbols []string) error
}

// subscribe implements §4.E's subscribe contract. sub performs the
// actual wire call per batch; its errors are logged, not propagated,
// matching "individual batch failures are logged but do not fail the
// whole call".
func (r *subscriptionRegistry) subscribe(patterns []string, sub subscriber) ([]string, error) {
	expanded := r.expand(patterns)

	var fresh []string
	for _, sym := range expanded {
		if _, already := r.subscribed[sym]; !already {
			fresh = append(fresh, sym)
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	if r.Count()+len(fresh) > r.maxSubs {
		return nil, NewError(KindSubscriptionLimitExceeded, "subscription would exceed max_subscriptions", map[string]interface{}{
			"current":   r.Count(),
			"max":       r.maxSubs,
			"requested": fresh,
		}, nil)
	}

	var accepted []string
	for _, batch := range chunk(fresh, subscribeBatchSize) {
		_ = r.limiter.Wait(context.Background())
		if err := sub.sendSubscribe(batch); err != nil {
			if r.logger != nil {
				r.logger.Errorf("subscribe batch failed: %v", err)
			}
			continue
		}
		for _, sym := range batch {
			r.subscribed[sym] = struct{}{}
			r.onSubscribe(sym)
			accepted = append(accepted, sym)
		}
	}
	return accepted, nil
}

// unsubscribe implements §4.E's unsubscribe contract.
func (r *subscriptionRegistry) unsubscribe(symbols []string, sub subscriber) []string {
	var toRemove []string
	for _, sym := range symbols {
		if _, ok := r.subscribed[sym]; ok {
			toRemove = append(toRemove, sym)
		}
	}
	if len(toRemove) == 0 {
		return nil
	}

	if err := sub.sendUnsubscribe(toRemove); err != nil {
		if r.logger != nil {
			r.logger.Errorf("unsubscribe failed: %v", err)
		}
		return nil
	}

	for _, sym := range toRemove {
		delete(r.subscribed, sym)
		r.onRemove(sym)
	}
	return toRemove
}

// restoreSnapshot clears the subscribed set and resubscribes the given
// symbols, used by the reconnect loop after a successful re-login (§4.D
// restore path).
func (r *subscriptionRegistry) restoreSnapshot(snapshot []string, sub subscriber) ([]string, error) {
	r.subscribed = make(map[string]struct{})
	return r.subscribe(snapshot, sub)
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}
