package stream

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEScannerParsesNamedEvents(t *testing.T) {
	raw := "event: connected\ndata: {}\n\n" +
		": heartbeat\n\n" +
		"event: action_evaluated\ndata: {\"tool\":\"shell\"}\n\n"
	scanner := newSSEScanner(strings.NewReader(raw))

	event, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, "connected", event.name)
	assert.Equal(t, "{}", string(event.data))

	event, err = scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, "action_evaluated", event.name)
	assert.Equal(t, `{"tool":"shell"}`, string(event.data))

	_, err = scanner.Next()
	assert.Equal(t, io.EOF, err)
}

func TestSSEScannerJoinsMultiLineData(t *testing.T) {
	scanner := newSSEScanner(strings.NewReader("data: first\ndata: second\n\n"))
	event, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, "message", event.name)
	assert.Equal(t, "first\nsecond", string(event.data))
}

func TestSSEScannerHandlesCRLFAndMissingSpace(t *testing.T) {
	scanner := newSSEScanner(strings.NewReader("event:connected\r\ndata:ok\r\n\r\n"))
	event, err := scanner.Next()
	require.NoError(t, err)
	assert.Equal(t, "connected", event.name)
	assert.Equal(t, "ok", string(event.data))
}

func TestSSEScannerDiscardsPartialFrameOnEOF(t *testing.T) {
	scanner := newSSEScanner(strings.NewReader("event: action_evaluated\ndata: {\"tool\""))
	_, err := scanner.Next()
	require.Error(t, err)
}
