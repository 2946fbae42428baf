package errors

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewf(t *testing.T) {
	err := Newf("error: %s %d", "test", 42)
	require.NotNil(t, err)
	assert.Equal(t, "error: test 42", err.Error())
}

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := WithHint(New("error"), "try this fix")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "try this fix", hints[0])
}

func TestInvalidRequestError(t *testing.T) {
	err := NewInvalidRequestError("template id is required")

	assert.True(t, IsInvalidRequestError(err))
	assert.False(t, IsBackendError(err))
	assert.Contains(t, err.Error(), "template id is required")

	wrapped := Wrap(err, "save")
	assert.True(t, IsInvalidRequestError(wrapped))
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("template %q", "weekly")

	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), `template "weekly"`)
	assert.False(t, IsNotFoundError(nil))
}

func TestWrapBackend(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, WrapBackend("save", nil))
	})

	t.Run("names operation and keeps cause", func(t *testing.T) {
		err := WrapBackend("append version", sql.ErrConnDone)

		require.Error(t, err)
		assert.True(t, IsBackendError(err))
		assert.True(t, Is(err, sql.ErrConnDone))
		assert.Contains(t, err.Error(), "append version")
		assert.Contains(t, err.Error(), sql.ErrConnDone.Error())
	})

	t.Run("not confused with validation", func(t *testing.T) {
		err := WrapBackend("get", New("boom"))
		assert.False(t, IsInvalidRequestError(err))
	})
}
