// ABOUTME: Tests for identity propagation through context
// ABOUTME: Covers attach, retrieve and anonymous contexts

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithIdentity_RoundTrip(t *testing.T) {
	id := &Identity{Subject: "alice", Scopes: []string{"mcp.access"}}
	ctx := WithIdentity(t.Context(), id)

	assert.Same(t, id, FromContext(ctx))
	assert.Equal(t, "alice", SubjectFromContext(ctx))
}

func TestFromContext_Anonymous(t *testing.T) {
	assert.Nil(t, FromContext(t.Context()))
	assert.Empty(t, SubjectFromContext(t.Context()))
}

func TestFromContext_WrongValueType(t *testing.T) {
	ctx := context.WithValue(t.Context(), identityKey{}, "alice")
	assert.Nil(t, FromContext(ctx))
}
