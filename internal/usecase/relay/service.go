package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/scout-hq/scout/internal/domain"
	"github.com/scout-hq/scout/internal/logger"
	"github.com/scout-hq/scout/internal/metrics"
)

// Sink receives relayed events. Send failing means the downstream consumer is
// gone; the relay stops reading upstream.
type Sink interface {
	Send(ev domain.LogEvent) error
}

// StreamOpener starts the upstream job and returns its live event stream plus
// the upstream HTTP status. The relay owns the returned reader.
type StreamOpener func(ctx context.Context) (io.ReadCloser, int, error)

// Service relays an upstream event stream to a sink. Stateless, safe for
// concurrent use.
type Service struct{}

// New creates a relay service.
func New() *Service {
	return &Service{}
}

// Run connects upstream and forwards events until the stream ends. Every exit
// path delivers exactly one terminal event to the sink (unless the sink itself
// has failed) and releases the upstream reader. The returned error is for
// logging only; stream failures are already reported on the sink.
func (s *Service) Run(ctx context.Context, open StreamOpener, sink Sink) error {
	log := logger.FromContext(ctx)

	body, status, err := open(ctx)
	if err != nil {
		s.send(sink, domain.LogEvent{
			Message: fmt.Sprintf("Failed to connect to enrichment pipeline: %v", err),
			Kind:    domain.EventError,
		})
		return fmt.Errorf("open upstream stream: %w", err)
	}

	if status < 200 || status >= 300 {
		body.Close()
		s.send(sink, domain.LogEvent{
			Message: fmt.Sprintf("Upstream pipeline returned %d %s", status, http.StatusText(status)),
			Kind:    domain.EventError,
		})
		return fmt.Errorf("upstream stream status %d", status)
	}

	// Close the body when the downstream consumer cancels, so a blocked read
	// unblocks and the upstream connection is released promptly.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			body.Close()
		case <-watchDone:
		}
	}()
	defer body.Close()

	dec := NewDecoder(body)
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			s.send(sink, domain.LogEvent{
				Message: "Processing complete",
				Kind:    domain.EventSuccess,
			})
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				log.Info("relay cancelled by consumer")
				return ctx.Err()
			}
			s.send(sink, domain.LogEvent{
				Message: fmt.Sprintf("Stream error: %v", err),
				Kind:    domain.EventError,
			})
			return fmt.Errorf("read upstream stream: %w", err)
		}

		if err := s.send(sink, ev); err != nil {
			log.Info("relay consumer went away", zap.Error(err))
			return fmt.Errorf("forward event: %w", err)
		}
	}
}

func (s *Service) send(sink Sink, ev domain.LogEvent) error {
	if err := sink.Send(ev); err != nil {
		return err
	}
	metrics.RelayEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	return nil
}
