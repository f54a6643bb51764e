package pap

import (
	"fmt"
	"strconv"
)

// ValidationError reports bad input to message construction, mutation or
// serialization. It never reaches the network.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pap: invalid %s: %s", e.Field, e.Reason)
}

// TransportError wraps a connection, TLS or read failure talking to the gateway.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "pap: transport failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// GatewayError is a well-formed rejection. Code is either the HTTP status
// (400, 404, 405, 503) or the PAP result code from a badmessage-response.
type GatewayError struct {
	Code    int
	Message string
}

func (e *GatewayError) Error() string {
	return "pap: gateway rejected push: " + strconv.Itoa(e.Code) + " " + e.Message
}

// ProtocolError means the gateway answered with a body this client cannot
// interpret.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return "pap: unexpected response: " + e.Reason + ": " + e.Err.Error()
	}
	return "pap: unexpected response: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }
