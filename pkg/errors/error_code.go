package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Boot/configuration errors (100-199). These are fatal: the engine
	// refuses to start rather than run partially configured.
	ErrCodeInvalidConfiguration    ErrorCode = 100
	ErrCodeInvalidFeedHost         ErrorCode = 101
	ErrCodeMissingLedgerPath       ErrorCode = 102
	ErrCodeInvalidProviderConfig   ErrorCode = 103
	ErrCodeMissingSeedPhrase       ErrorCode = 104
	ErrCodeDuplicateStrategy       ErrorCode = 105
	ErrCodeStrategyBootFailed      ErrorCode = 106
	ErrCodeCollaboratorBootFailed  ErrorCode = 107
	ErrCodeWalletProviderUnset     ErrorCode = 108

	// Risk rejections (200-299). Logged and swallowed at the submission
	// gate, never surfaced to the calling strategy.
	ErrCodeWalletNotLoaded    ErrorCode = 200
	ErrCodeAmountExceedsFunds ErrorCode = 201
	ErrCodeAmountNotPositive  ErrorCode = 202

	// Execution failures (300-399)
	ErrCodeSwapSubmitFailed   ErrorCode = 300
	ErrCodeCancelSubmitFailed ErrorCode = 301
	ErrCodeQuoteFailed        ErrorCode = 302

	// Replay failures (400-499)
	ErrCodeStrategyNotFound      ErrorCode = 400
	ErrCodeStrategyNotReplayable ErrorCode = 401
	ErrCodeBacktestIDMissing     ErrorCode = 402
	ErrCodeReplayDataPullFailed  ErrorCode = 403
	ErrCodeReplayAlreadyRan      ErrorCode = 404

	// Sweep failures (500-599)
	ErrCodeSweepCancelFailed ErrorCode = 500

	// Feed/market errors (600-699)
	ErrCodeFeedConnectFailed  ErrorCode = 600
	ErrCodeFeedClosed         ErrorCode = 601
	ErrCodeMarketQueryFailed  ErrorCode = 602
	ErrCodeMarketParseFailed  ErrorCode = 603
	ErrCodePoolNotFound       ErrorCode = 604

	// Ledger errors (700-799)
	ErrCodeLedgerQueryFailed  ErrorCode = 700
	ErrCodeLedgerInsertFailed ErrorCode = 701
	ErrCodeLedgerNotOpen      ErrorCode = 702
)
