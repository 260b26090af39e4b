package event

type ResultType string

const (
	ResultTypeSuccess ResultType = "success"
	ResultTypeError   ResultType = "error"
)

type ErrorCode string

const (
	ErrorCodeMalformed     ErrorCode = "ERROR_MALFORMED_MESSAGE"
	ErrorCodeUnknownType   ErrorCode = "ERROR_UNKNOWN_MESSAGE_TYPE"
	ErrorCodeUnknownSender ErrorCode = "ERROR_UNKNOWN_SENDER"
	ErrorCodeBadSignature  ErrorCode = "ERROR_BAD_SIGNATURE"
	ErrorCodeReplay        ErrorCode = "ERROR_REPLAY"
	ErrorCodeHandler       ErrorCode = "ERROR_HANDLER_FAILURE"
	ErrorCodeStore         ErrorCode = "ERROR_STORE_FAILURE"
)
