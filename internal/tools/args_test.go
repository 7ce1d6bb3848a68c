package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArgsAccessors(t *testing.T) {
	args := Args{
		"url":      "https://example.com",
		"count":    float64(3), // JSON numbers decode to float64
		"ratio":    0.5,
		"headless": false,
		"headers":  map[string]any{"Accept": "application/json", "X-Retry": float64(2)},
	}

	assert.Equal(t, "https://example.com", args.String("url", ""))
	assert.Equal(t, "fallback", args.String("missing", "fallback"))
	assert.Equal(t, 3, args.Int("count", 0))
	assert.Equal(t, 7, args.Int("missing", 7))
	assert.Equal(t, 0.5, args.Float("ratio", 0))
	assert.False(t, args.Bool("headless", true))
	assert.True(t, args.Bool("missing", true))
	assert.True(t, args.Has("url"))
	assert.False(t, args.Has("missing"))

	headers := args.StringMap("headers")
	assert.Equal(t, "application/json", headers["Accept"])
	assert.Equal(t, "2", headers["X-Retry"], "non-string members render with %v")
	assert.Nil(t, args.StringMap("missing"))
}

func TestArgsTimeoutOverride(t *testing.T) {
	def := 30 * time.Second
	assert.Equal(t, def, Args{}.Timeout(def))
	assert.Equal(t, 100*time.Millisecond, Args{"timeout": float64(100)}.Timeout(def))
	assert.Equal(t, def, Args{"timeout": float64(0)}.Timeout(def), "non-positive override is ignored")
	assert.Equal(t, def, Args{"timeout": float64(-5)}.Timeout(def))
}
