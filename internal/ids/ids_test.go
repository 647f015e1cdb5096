package ids

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionIDShape(t *testing.T) {
	id := NewSessionID()
	assert.Len(t, id, 36)
	assert.NotEqual(t, id, NewSessionID())
}

func TestRequestIDPrefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewRequestID(), "req_"))
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, SessionID(ctx))

	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithWorkflowID(ctx, "wf-1")
	assert.Equal(t, "sess-1", SessionID(ctx))
	assert.Equal(t, "wf-1", WorkflowID(ctx))

	// Empty values never overwrite.
	ctx = WithSessionID(ctx, "")
	assert.Equal(t, "sess-1", SessionID(ctx))
}
