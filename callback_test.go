package relay_test

import (
	"strings"
	"testing"

	// Packages
	relay "github.com/mutablelogic/go-relay"
	assert "github.com/stretchr/testify/assert"
)

func Test_callback_001(t *testing.T) {
	assert := assert.New(t)
	data := relay.CallbackData(relay.KeyEnter, "@5")
	key, window, ok := relay.ParseCallbackData(data)
	assert.True(ok)
	assert.Equal(relay.KeyEnter, key)
	assert.Equal("@5", window)
}

func Test_callback_002(t *testing.T) {
	assert := assert.New(t)
	for _, data := range []string{"", "ui:", "ui:enter", "ui:enter:", "ui:bogus:@1", "other:enter:@1"} {
		_, _, ok := relay.ParseCallbackData(data)
		assert.False(ok, data)
	}
}

func Test_callback_003(t *testing.T) {
	assert := assert.New(t)
	data := relay.CallbackData(relay.KeyRefresh, strings.Repeat("w", 100))
	assert.Len(data, 64)
}

func Test_error_001(t *testing.T) {
	assert := assert.New(t)
	err := error(&relay.RateLimitError{RetryAfter: 30e9})
	d, ok := relay.RetryAfter(err)
	assert.True(ok)
	assert.Equal(float64(30), d.Seconds())
	assert.ErrorIs(err, relay.ErrRateLimited)

	_, ok = relay.RetryAfter(relay.ErrTransient.With("blip"))
	assert.False(ok)
	assert.True(relay.IsPermanent(relay.ErrPermanent.Withf("message %d", 1)))
}

func Test_key_001(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(relay.ConversationKey{UserID: 1}, relay.Key(1, -5))
	assert.Equal("1:42", relay.Key(1, 42).String())
	assert.False(relay.Key(1, 0).HasThread())
}
