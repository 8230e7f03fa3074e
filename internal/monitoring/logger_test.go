package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLoggerReplacesHook(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("session %s started", "abc")
	assert.Equal(t, "session %s started", got)
}

func TestSetLoggerNilMutes(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(string, ...interface{}) { called = true })
	SetLogger(nil)

	require.NotPanics(t, func() { Logf("dropped") })
	assert.False(t, called)
}

func TestLogfDefaultIsUsable(t *testing.T) {
	require.NotNil(t, Logf)
}
