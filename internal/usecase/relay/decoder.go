// Package relay forwards a live upstream log stream to a downstream consumer,
// one event at a time, in arrival order.
package relay

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/scout-hq/scout/internal/domain"
)

// dataPrefix introduces a framed event line in the upstream stream.
const dataPrefix = "data: "

// Decoder reads upstream bytes and yields one LogEvent per framed line.
// Partial lines are buffered until the line terminator arrives; a trailing
// unterminated line at EOF is still delivered before the EOF is reported.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps an upstream stream.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next event, or io.EOF when the stream ends cleanly.
// Blank lines are skipped. Lines that are not valid framed events are
// delivered verbatim as info events rather than dropped.
func (d *Decoder) Next() (domain.LogEvent, error) {
	for {
		line, err := d.r.ReadString('\n')
		text := strings.TrimRight(line, "\r\n")

		if text != "" {
			return decodeLine(text), nil
		}
		if err != nil {
			return domain.LogEvent{}, err
		}
	}
}

func decodeLine(line string) domain.LogEvent {
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return domain.LogEvent{Message: line, Kind: domain.EventInfo}
	}

	var ev domain.LogEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.Message == "" {
		return domain.LogEvent{Message: payload, Kind: domain.EventInfo}
	}

	switch ev.Kind {
	case domain.EventInfo, domain.EventSuccess, domain.EventError:
	default:
		ev.Kind = domain.EventInfo
	}

	return ev
}
