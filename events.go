package main

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// eventLogger appends one JSON line per UI/domain event to the session's
// events.jsonl. Rendering never reads it back; it exists for headless
// drivers and postmortems.
type eventLogger struct {
	log *zap.Logger
	mu  sync.Mutex
	seq uint64
}

func newEventLogger(stateDir string, sessionID string) *eventLogger {
	if sessionID == "" {
		sessionID = "sess_unknown"
	}
	dir := filepath.Join(stateDir, sessionID)
	_ = os.MkdirAll(dir, 0o755)

	f, err := os.OpenFile(filepath.Join(dir, "events.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		// A session without an event log is still usable.
		return &eventLogger{log: zap.NewNop()}
	}

	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:    "timestamp",
		MessageKey: "type",
		LineEnding: zapcore.DefaultLineEnding,
		EncodeTime: zapcore.RFC3339NanoTimeEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(f)), zapcore.InfoLevel)
	return &eventLogger{log: zap.New(core)}
}

func (l *eventLogger) Append(source string, eventType string, payload any, correlationID string, causationID string) {
	if l == nil || l.log == nil {
		return
	}
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.mu.Unlock()

	fields := []zap.Field{
		zap.Uint64("seq", seq),
		zap.String("source", source),
		zap.Any("payload", payload),
	}
	if correlationID != "" {
		fields = append(fields, zap.String("correlation_id", correlationID))
	}
	if causationID != "" {
		fields = append(fields, zap.String("causation_id", causationID))
	}
	l.log.Info(eventType, fields...)
}

func (l *eventLogger) Close() {
	if l == nil || l.log == nil {
		return
	}
	_ = l.log.Sync()
}

type alertSeverity string

const (
	alertInfo  alertSeverity = "INFO"
	alertWarn  alertSeverity = "WARN"
	alertError alertSeverity = "ERROR"
)

type systemAlert struct {
	At            string         `json:"at"`
	Severity      alertSeverity  `json:"severity"`
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	Context       map[string]any `json:"context,omitempty"`
	CorrelationID string         `json:"correlation_id"`
}

func newCorrelationID() string {
	return uuid.NewString()
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
