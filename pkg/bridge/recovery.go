package bridge

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"
)

// RecoveryAction says how to handle a failed bridge call.
type RecoveryAction int

const (
	// NoRetry: validation failure, protocol error, or timeout. Surface it.
	NoRetry RecoveryAction = iota
	// RetrySameSession: transient, try again on the existing session.
	RetrySameSession
	// RetryNewSession: the transport died, recreate the session first.
	RetryNewSession
)

func (a RecoveryAction) String() string {
	switch a {
	case RetrySameSession:
		return "retry"
	case RetryNewSession:
		return "retry_new_session"
	default:
		return "no_retry"
	}
}

// Recovery timing constants.
const (
	// InitTimeout bounds the first connect (transport start + handshake).
	InitTimeout = 30 * time.Second
	// ReinitTimeout bounds session recreation during recovery.
	ReinitTimeout = 10 * time.Second
	// OperationTimeout is the fallback per-call deadline when the config
	// does not set one. Mining and crafting tools are legitimately slow.
	OperationTimeout = 90 * time.Second
	// RetryBackoffMin and RetryBackoffMax bound the jittered retry pause.
	RetryBackoffMin = 250 * time.Millisecond
	RetryBackoffMax = 750 * time.Millisecond
)

// ClassifyError picks the recovery action for a bridge call error.
//
// Timeouts are not retried: a slow tool call is most likely still running
// on the bridge side and firing it again would double the action.
func ClassifyError(err error) RecoveryAction {
	if err == nil {
		return NoRetry
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NoRetry
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NoRetry
		}
		return RetryNewSession
	}
	if isConnectionError(err) {
		return RetryNewSession
	}
	// JSON-RPC protocol errors and everything unknown: not safe to retry.
	return NoRetry
}

// isConnectionError detects transport-level failures worth a new session.
func isConnectionError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"broken pipe",
		"no such host",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
