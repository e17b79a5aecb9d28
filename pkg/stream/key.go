// Package stream implements a real-time kline streaming client: a persistent
// websocket connection to an exchange push-feed with multiplexed
// subscriptions, automatic reconnection with resubscription replay, and typed
// observer fan-out for decoded market data events.
package stream

import (
	"strings"

	"github.com/rxtech-lab/argo-stream/internal/types"
	"github.com/rxtech-lab/argo-stream/pkg/errors"
)

// Key identifies one logical subscription: a symbol at a granularity. Keys
// are normalized (lower-cased symbol, canonical interval code) so the same
// stream always maps to the same key regardless of caller spelling.
type Key struct {
	Symbol   string
	Interval types.Interval
}

// NewKey normalizes and validates a subscription key.
func NewKey(symbol string, interval types.Interval) (Key, error) {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if symbol == "" {
		return Key{}, errors.New(errors.ErrCodeInvalidSymbol, "symbol must not be empty")
	}

	if !interval.IsValid() {
		return Key{}, errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval: %s", interval)
	}

	return Key{Symbol: symbol, Interval: interval}, nil
}

// StreamName returns the exchange stream identifier for the key, e.g.
// "btcusdt@kline_1m".
func (k Key) StreamName() string {
	return k.Symbol + "@kline_" + string(k.Interval)
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return k.StreamName()
}
