package rpc

// RpcError is a method failure reported inside the result object
type RpcError struct {
	Code        int    `json:"error_code"`
	ErrorString string `json:"error"`
	Message     string `json:"error_message,omitempty"`
}

func (e RpcError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorString
}

// Error codes
const (
	RpcUNKNOWN          = -1
	RpcMETHOD_NOT_FOUND = -32601
	RpcINVALID_PARAMS   = -32602
	RpcINTERNAL         = -32603

	RpcMISSING_COMMAND  = 2
	RpcNOT_ENABLED      = 31
	RpcACT_NOT_FOUND    = 19
	RpcACT_MALFORMED    = 50
	RpcINVALID_TX       = 42
	RpcOBJECT_NOT_FOUND = 92
)

func NewRpcError(code int, errorString, message string) *RpcError {
	return &RpcError{Code: code, ErrorString: errorString, Message: message}
}

func RpcErrorInvalidParams(message string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", message)
}

func RpcErrorMethodNotFound(method string) *RpcError {
	return NewRpcError(RpcMETHOD_NOT_FOUND, "unknownCmd", "Unknown method: "+method)
}

func RpcErrorActNotFound(message string) *RpcError {
	return NewRpcError(RpcACT_NOT_FOUND, "actNotFound", message)
}

func RpcErrorActMalformed(message string) *RpcError {
	return NewRpcError(RpcACT_MALFORMED, "actMalformed", message)
}

func RpcErrorEntryNotFound(message string) *RpcError {
	return NewRpcError(RpcOBJECT_NOT_FOUND, "entryNotFound", message)
}

func RpcErrorInvalidTransaction(message string) *RpcError {
	return NewRpcError(RpcINVALID_TX, "invalidTransaction", message)
}

func RpcErrorNotEnabled(message string) *RpcError {
	return NewRpcError(RpcNOT_ENABLED, "notEnabled", message)
}

func RpcErrorInternal(message string) *RpcError {
	return NewRpcError(RpcINTERNAL, "internal", message)
}
