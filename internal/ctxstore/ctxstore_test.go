package ctxstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	const key = Key("traceId")

	ctx := With(context.Background(), key, "abc")

	value, ok := From[string](ctx, key)
	assert.True(t, ok)
	assert.Equal(t, "abc", value)

	_, ok = From[int](ctx, key)
	assert.False(t, ok)

	assert.Equal(t, "abc", MustFrom[string](ctx, key))
	assert.PanicsWithValue(t, "ctxstore: other not found", func() {
		MustFrom[string](ctx, Key("other"))
	})
}
