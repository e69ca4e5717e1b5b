package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseToolArgsJSON(t *testing.T) {
	args := ParseToolArgs(`{"mob": "zombie", "count": 2}`)
	assert.Equal(t, "zombie", args["mob"])
	assert.Equal(t, float64(2), args["count"])
}

func TestParseToolArgsNonObjectJSONWrapped(t *testing.T) {
	args := ParseToolArgs(`["a", "b"]`)
	assert.Equal(t, []any{"a", "b"}, args["input"])

	args = ParseToolArgs(`42`)
	assert.Equal(t, float64(42), args["input"])
}

func TestParseToolArgsYAMLWithStructure(t *testing.T) {
	args := ParseToolArgs("items:\n  - oak_log\n  - stick\ncount: 3")
	assert.Equal(t, []any{"oak_log", "stick"}, args["items"])
	assert.Equal(t, 3, args["count"])
}

func TestParseToolArgsKeyValuePairs(t *testing.T) {
	args := ParseToolArgs("name: oak_log, count: 5, digOnly=true")
	assert.Equal(t, "oak_log", args["name"])
	assert.Equal(t, int64(5), args["count"])
	assert.Equal(t, true, args["digOnly"])
}

func TestParseToolArgsScalarCoercion(t *testing.T) {
	args := ParseToolArgs("a: 1.5, b: null, c: hello")
	assert.Equal(t, 1.5, args["a"])
	assert.Nil(t, args["b"])
	assert.Equal(t, "hello", args["c"])
}

func TestParseToolArgsRawFallback(t *testing.T) {
	args := ParseToolArgs("mine some logs nearby")
	assert.Equal(t, "mine some logs nearby", args["input"])
}

func TestParseToolArgsEmpty(t *testing.T) {
	args := ParseToolArgs("   ")
	assert.NotNil(t, args)
	assert.Empty(t, args)
}
