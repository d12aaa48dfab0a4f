package relay

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/scout-hq/scout/internal/domain"
)

// chunkReader yields the input in fixed chunks to exercise reads that split
// lines at arbitrary byte boundaries.
type chunkReader struct {
	data []byte
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.size
	if n > len(c.data) {
		n = len(c.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func drain(t *testing.T, dec *Decoder) []domain.LogEvent {
	t.Helper()
	var events []domain.LogEvent
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		events = append(events, ev)
	}
}

func TestDecoder_FramedEvents(t *testing.T) {
	input := "data: {\"message\":\"started\",\"type\":\"info\"}\n" +
		"data: {\"message\":\"batch 1 done\",\"type\":\"success\"}\n" +
		"data: {\"message\":\"record failed\",\"type\":\"error\"}\n"

	events := drain(t, NewDecoder(strings.NewReader(input)))

	want := []domain.LogEvent{
		{Message: "started", Kind: domain.EventInfo},
		{Message: "batch 1 done", Kind: domain.EventSuccess},
		{Message: "record failed", Kind: domain.EventError},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestDecoder_PartialLinesBufferedAcrossReads(t *testing.T) {
	input := "data: {\"message\":\"one\",\"type\":\"info\"}\n" +
		"data: {\"message\":\"two\",\"type\":\"info\"}\n"

	for _, size := range []int{1, 2, 3, 7, 1024} {
		events := drain(t, NewDecoder(&chunkReader{data: []byte(input), size: size}))
		if len(events) != 2 {
			t.Fatalf("chunk size %d: got %d events, want 2", size, len(events))
		}
		if events[0].Message != "one" || events[1].Message != "two" {
			t.Errorf("chunk size %d: events = %+v", size, events)
		}
	}
}

func TestDecoder_UnparseablePayloadKeptVerbatim(t *testing.T) {
	input := "data: not json at all\n"

	events := drain(t, NewDecoder(strings.NewReader(input)))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Message != "not json at all" || events[0].Kind != domain.EventInfo {
		t.Errorf("event = %+v", events[0])
	}
}

func TestDecoder_UnprefixedLineKeptVerbatim(t *testing.T) {
	events := drain(t, NewDecoder(strings.NewReader("upstream noise\n")))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Message != "upstream noise" || events[0].Kind != domain.EventInfo {
		t.Errorf("event = %+v", events[0])
	}
}

func TestDecoder_BlankLinesSkipped(t *testing.T) {
	input := "\ndata: {\"message\":\"a\",\"type\":\"info\"}\n\n\ndata: {\"message\":\"b\",\"type\":\"info\"}\n\n"

	events := drain(t, NewDecoder(strings.NewReader(input)))
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
}

func TestDecoder_TrailingUnterminatedLineDelivered(t *testing.T) {
	input := "data: {\"message\":\"a\",\"type\":\"info\"}\ndata: {\"message\":\"last\",\"type\":\"success\"}"

	dec := NewDecoder(strings.NewReader(input))

	first, err := dec.Next()
	if err != nil || first.Message != "a" {
		t.Fatalf("first = %+v, %v", first, err)
	}
	last, err := dec.Next()
	if err != nil {
		t.Fatalf("trailing line should be delivered before EOF: %v", err)
	}
	if last.Message != "last" || last.Kind != domain.EventSuccess {
		t.Errorf("last = %+v", last)
	}
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want EOF", err)
	}
}

func TestDecoder_CRLFLineEndings(t *testing.T) {
	events := drain(t, NewDecoder(strings.NewReader("data: {\"message\":\"a\",\"type\":\"info\"}\r\n")))
	if len(events) != 1 || events[0].Message != "a" {
		t.Errorf("events = %+v", events)
	}
}

func TestDecoder_UnknownKindNormalizedToInfo(t *testing.T) {
	events := drain(t, NewDecoder(strings.NewReader("data: {\"message\":\"a\",\"type\":\"debug\"}\n")))
	if len(events) != 1 || events[0].Kind != domain.EventInfo {
		t.Errorf("events = %+v", events)
	}
}
