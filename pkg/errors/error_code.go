package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidInterval      ErrorCode = 102
	ErrCodeInvalidSymbol        ErrorCode = 103
	ErrCodeMissingParameter     ErrorCode = 104

	// Connection errors (200-299)
	ErrCodeConnectFailed ErrorCode = 200
	ErrCodeNotConnected  ErrorCode = 201
	ErrCodeSendFailed    ErrorCode = 202
	ErrCodeClientClosed  ErrorCode = 203
	ErrCodeCloseFailed   ErrorCode = 204

	// Stream errors (300-399)
	ErrCodeDecodeFailed   ErrorCode = 300
	ErrCodeStreamClosed   ErrorCode = 301
	ErrCodeObserverFailed ErrorCode = 302

	// Executor/cancellation errors (400-499)
	ErrCodeSourceClosed   ErrorCode = 400
	ErrCodeExecutorClosed ErrorCode = 401
	ErrCodeExecuteFailed  ErrorCode = 402
)
