package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Outcome classifies an audited action.
type Outcome string

const (
	OutcomeSuccess       Outcome = "Success"
	OutcomeFailed        Outcome = "Failed"
	OutcomeSecurityEvent Outcome = "SecurityEvent"
)

// Event is the canonical audit record for credential operations.
type Event struct {
	Timestamp     time.Time         `json:"timestamp"`
	Action        string            `json:"action"`
	UserID        string            `json:"user_id,omitempty"`
	Email         string            `json:"email,omitempty"`
	Detail        string            `json:"detail,omitempty"`
	SourceAddress string            `json:"source_address,omitempty"`
	UserAgent     string            `json:"user_agent,omitempty"`
	Outcome       Outcome           `json:"outcome"`
	Error         string            `json:"error,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// ZapSink writes audit events as structured log entries. Security events are
// logged at warn level.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("audit")}
}

func (s *ZapSink) Emit(_ context.Context, event Event) {
	fields := []zap.Field{
		zap.Time("timestamp", event.Timestamp),
		zap.String("action", event.Action),
		zap.String("outcome", string(event.Outcome)),
		zap.String("user_id", event.UserID),
		zap.String("email", event.Email),
		zap.String("source_address", event.SourceAddress),
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.Detail != "" {
		fields = append(fields, zap.String("detail", event.Detail))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}

	if event.Outcome == OutcomeSecurityEvent {
		s.logger.Warn("audit event", fields...)
		return
	}
	s.logger.Info("audit event", fields...)
}
