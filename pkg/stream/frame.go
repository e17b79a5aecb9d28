package stream

// Control-frame methods understood by the exchange push-feed.
const (
	methodSubscribe   = "SUBSCRIBE"
	methodUnsubscribe = "UNSUBSCRIBE"
)

// controlFrame is the outbound wire format for subscription changes:
//
//	{"method":"SUBSCRIBE","params":["btcusdt@kline_1m"],"id":1}
//
// Frames are fire-and-forget; no acknowledgement is awaited. Correctness
// relies on the exchange treating subscribe/unsubscribe as idempotent.
type controlFrame struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

func newControlFrame(method string, id int64, key Key) controlFrame {
	return controlFrame{
		Method: method,
		Params: []string{key.StreamName()},
		ID:     id,
	}
}
