package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetErrorTypeClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"transient", NewTransientError(errors.New("boom"), "try again"), ErrorTypeTransient},
		{"permanent", NewPermanentError(errors.New("boom"), "give up"), ErrorTypePermanent},
		{"validation", NewValidationError("team_members", "must not be empty"), ErrorTypeValidation},
		{"schema", NewSchemaError("plan", "{oops", errors.New("bad json")), ErrorTypeSchema},
		{"wrapped transient", fmt.Errorf("call failed: %w", NewTransientError(errors.New("x"), "")), ErrorTypeTransient},
		{"unknown defaults to permanent", errors.New("mystery"), ErrorTypePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestNetworkErrorsAreTransient(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	assert.True(t, IsTransient(opErr))
	assert.False(t, IsTransient(NewValidationError("", "bad payload")))
}

func TestFromHTTPStatus(t *testing.T) {
	err := FromHTTPStatus(429, errors.New("rate limited"))
	assert.True(t, IsTransient(err))

	err = FromHTTPStatus(400, errors.New("bad request"))
	assert.False(t, IsTransient(err))
}

func TestRetryWithResultStopsOnPermanent(t *testing.T) {
	calls := 0
	_, err := RetryWithResult(context.Background(), DefaultRetryConfig(), func(ctx context.Context) (string, error) {
		calls++
		return "", NewPermanentError(errors.New("nope"), "")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithResultRetriesTransient(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	calls := 0
	got, err := RetryWithResult(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(errors.New("flaky"), "")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RetryWithResult(ctx, DefaultRetryConfig(), func(ctx context.Context) (int, error) {
		return 0, NewTransientError(errors.New("x"), "")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
