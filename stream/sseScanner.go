package stream

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is one decoded text/event-stream frame.
type sseEvent struct {
	name string
	data []byte
}

// sseScanner reads named events off a text/event-stream body. Comment lines
// (the gateway's keep-alive heartbeats) are skipped, multi-line data fields
// are joined with newlines, and a frame with no event name dispatches as
// "message".
type sseScanner struct {
	reader *bufio.Reader
}

func newSSEScanner(r io.Reader) *sseScanner {
	return &sseScanner{reader: bufio.NewReader(r)}
}

// Next blocks until a complete frame arrives. A partial frame cut off by the
// transport is discarded with the read error.
func (s *sseScanner) Next() (*sseEvent, error) {
	var name string
	var data []byte
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if len(name) == 0 && len(data) == 0 {
				continue
			}
			if len(name) == 0 {
				name = "message"
			}
			return &sseEvent{name: name, data: data}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, value...)
		}
	}
}
