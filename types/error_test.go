package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrReplyProviderFailed, "provider failed").WithCause(root)

	assert.Equal(t, ErrReplyProviderFailed, GetErrorCode(err))
	assert.True(t, errors.Is(err, root))
	assert.Equal(t, "[REPLY_PROVIDER_FAILED] provider failed: root", err.Error())
}

func TestGetErrorCode_Wrapped(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrTimeout, "slow")
	wrapped := fmt.Errorf("outer: %w", inner)

	assert.True(t, IsErrorCode(wrapped, ErrTimeout))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
	assert.Equal(t, "[TIMEOUT] slow", inner.Error())
}

func TestMessage_Constructors(t *testing.T) {
	t.Parallel()

	m := NewUserMessage("hi").WithName("user")
	assert.Equal(t, RoleUser, m.Role)
	assert.Equal(t, "user", m.Name)
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.Timestamp.IsZero())

	a := NewAssistantMessage("hello")
	assert.Equal(t, RoleAssistant, a.Role)
	assert.Equal(t, RoleSystem, NewSystemMessage("sys").Role)
}

func TestMessage_WithMetadataDoesNotAlias(t *testing.T) {
	t.Parallel()

	base := NewUserMessage("x").WithMetadata("a", 1)
	derived := base.WithMetadata("b", 2)

	assert.Len(t, base.Metadata, 1)
	assert.Len(t, derived.Metadata, 2)
}

func TestClone(t *testing.T) {
	t.Parallel()

	orig := []Message{NewUserMessage("a").WithMetadata("k", "v")}
	cp := Clone(orig)
	cp[0].Content = "changed"
	cp[0].Metadata["k"] = "other"

	assert.Equal(t, "a", orig[0].Content)
	assert.Equal(t, "v", orig[0].Metadata["k"])
}
