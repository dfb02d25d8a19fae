package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileJQFilter_Invalid(t *testing.T) {
	_, err := compileJQFilter(".amount >")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse jq filter")
}

func TestJQMatches(t *testing.T) {
	row := map[string]interface{}{
		"owner":     "alice",
		"amount":    2.5,
		"token_ids": nil,
	}

	tests := []struct {
		name   string
		filter string
		want   bool
	}{
		{"equality match", `.owner == "alice"`, true},
		{"equality miss", `.owner == "bob"`, false},
		{"numeric comparison", `.amount > 1`, true},
		{"numeric comparison miss", `.amount > 10`, false},
		{"null field is falsy", `.token_ids`, false},
		{"missing field is falsy", `.nonexistent`, false},
		{"string field is truthy", `.owner`, true},
		{"zero is truthy", `0`, true},
		{"empty string is truthy", `""`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := compileJQFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, jqMatches(code, row))
		})
	}
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, isTruthy(nil))
	assert.False(t, isTruthy(false))
	assert.True(t, isTruthy(true))
	assert.True(t, isTruthy(0))
	assert.True(t, isTruthy(""))
	assert.True(t, isTruthy([]interface{}{}))
}

func TestFormatTokenIDs(t *testing.T) {
	assert.Equal(t, "(none)", formatTokenIDs(nil))
	assert.Equal(t, "", formatTokenIDs([]int64{}))
	assert.Equal(t, "1,2,3", formatTokenIDs([]int64{1, 2, 3}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefghij", 5))
}
