package types

import (
	"time"

	"github.com/rxtech-lab/argo-stream/pkg/errors"
	"github.com/shopspring/decimal"
)

// Interval is the candle granularity of a kline stream, using the exchange's
// canonical codes ("1m", "1h", "1d", ...).
type Interval string

const (
	Interval1s  Interval = "1s"
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval2h  Interval = "2h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval3d  Interval = "3d"
	Interval1w  Interval = "1w"
	Interval1M  Interval = "1M"
)

// validIntervals is the set of interval codes the exchange accepts.
var validIntervals = map[Interval]struct{}{
	Interval1s: {}, Interval1m: {}, Interval3m: {}, Interval5m: {},
	Interval15m: {}, Interval30m: {}, Interval1h: {}, Interval2h: {},
	Interval4h: {}, Interval6h: {}, Interval8h: {}, Interval12h: {},
	Interval1d: {}, Interval3d: {}, Interval1w: {}, Interval1M: {},
}

// ParseInterval validates a raw interval code and returns its canonical form.
func ParseInterval(raw string) (Interval, error) {
	interval := Interval(raw)
	if _, ok := validIntervals[interval]; !ok {
		return "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval: %s", raw)
	}

	return interval, nil
}

// IsValid reports whether the interval is a canonical exchange code.
func (i Interval) IsValid() bool {
	_, ok := validIntervals[i]

	return ok
}

// Kline is one OHLCV sample for a symbol and interval. Prices and volume are
// decimals, never floats, so a streamed value round-trips exactly.
type Kline struct {
	Symbol    string
	Interval  Interval
	OpenTime  time.Time
	CloseTime time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	// IsFinal is true once the interval has closed. Consumers replace their
	// last candle while IsFinal is false and append a new one when it flips.
	IsFinal bool
}

// ConnectionStatus is broadcast to observers whenever stream connectivity
// changes. Err is set only for failure transitions.
type ConnectionStatus struct {
	Connected bool
	Message   string
	Err       error
}
