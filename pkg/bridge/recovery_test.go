package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "net failure" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want RecoveryAction
	}{
		{"nil", nil, NoRetry},
		{"context canceled", context.Canceled, NoRetry},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), NoRetry},
		{"net timeout", &fakeNetError{timeout: true}, NoRetry},
		{"net failure", &fakeNetError{}, RetryNewSession},
		{"eof", io.EOF, RetryNewSession},
		{"wrapped eof", fmt.Errorf("read: %w", io.ErrUnexpectedEOF), RetryNewSession},
		{"connection refused", errors.New("dial tcp: connection refused"), RetryNewSession},
		{"broken pipe", errors.New("write: Broken Pipe"), RetryNewSession},
		{"protocol error", errors.New("jsonrpc: invalid params"), NoRetry},
		{"unknown", errors.New("weird"), NoRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestRecoveryActionString(t *testing.T) {
	assert.Equal(t, "no_retry", NoRetry.String())
	assert.Equal(t, "retry", RetrySameSession.String())
	assert.Equal(t, "retry_new_session", RetryNewSession.String())
}
