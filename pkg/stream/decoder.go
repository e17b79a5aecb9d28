package stream

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-stream/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// wsEventProbe carries only the event-type discriminator so irrelevant
// control and ack frames can be rejected without a full decode.
type wsEventProbe struct {
	EventType string `json:"e"`
}

// wsKlineEvent is the inbound wire format of a kline push event.
type wsKlineEvent struct {
	EventType string  `json:"e"`
	EventTime int64   `json:"E"`
	Symbol    string  `json:"s"`
	Kline     wsKline `json:"k"`
}

// wsKline carries the candle payload. Prices and volume arrive as
// decimal-strings; open/close times as epoch milliseconds.
type wsKline struct {
	StartTime int64  `json:"t"`
	EndTime   int64  `json:"T"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
	IsFinal   bool   `json:"x"`
}

const eventTypeKline = "kline"

// Decoder turns raw inbound frames into domain kline events. A malformed or
// irrelevant frame is dropped (logged at debug level), never surfaced: a
// single bad frame must not terminate the receive loop.
type Decoder struct {
	logger *zap.Logger
}

// NewDecoder creates a decoder that reports dropped frames to the given
// logger.
func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Decoder{logger: logger}
}

// Decode parses a raw frame. The second return value is false when the frame
// is not a kline event or could not be decoded.
func (d *Decoder) Decode(raw []byte) (types.Kline, bool) {
	var probe wsEventProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		d.logger.Debug("dropping malformed frame", zap.Error(err))

		return types.Kline{}, false
	}

	if probe.EventType != eventTypeKline {
		d.logger.Debug("ignoring non-kline frame", zap.String("event_type", probe.EventType))

		return types.Kline{}, false
	}

	var event wsKlineEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		d.logger.Debug("dropping undecodable kline frame", zap.Error(err))

		return types.Kline{}, false
	}

	return d.toKline(event)
}

func (d *Decoder) toKline(event wsKlineEvent) (types.Kline, bool) {
	symbol := strings.ToLower(event.Symbol)
	if symbol == "" {
		d.logger.Debug("dropping kline frame without symbol")

		return types.Kline{}, false
	}

	interval, err := types.ParseInterval(event.Kline.Interval)
	if err != nil {
		d.logger.Debug("dropping kline frame with unknown interval",
			zap.String("interval", event.Kline.Interval))

		return types.Kline{}, false
	}

	// Prices are parsed as decimals, never floats, so repeated updates
	// cannot accumulate rounding error.
	fields := [5]string{
		event.Kline.Open, event.Kline.High, event.Kline.Low,
		event.Kline.Close, event.Kline.Volume,
	}

	var values [5]decimal.Decimal

	for i, field := range fields {
		value, err := decimal.NewFromString(field)
		if err != nil {
			d.logger.Debug("dropping kline frame with bad numeric field",
				zap.String("value", field), zap.Error(err))

			return types.Kline{}, false
		}

		values[i] = value
	}

	return types.Kline{
		Symbol:    symbol,
		Interval:  interval,
		OpenTime:  time.UnixMilli(event.Kline.StartTime),
		CloseTime: time.UnixMilli(event.Kline.EndTime),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		IsFinal:   event.Kline.IsFinal,
	}, true
}
