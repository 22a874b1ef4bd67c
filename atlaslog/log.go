// Package atlaslog provides Atlas's structured logging: a logrus
// logger configured with an output splitter that routes error-level
// records to stderr and everything else to stdout, so containerized
// deployments can apply different handling per stream without parsing
// log bodies.
package atlaslog

import (
	"bytes"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes formatted log lines to stderr when they carry
// logrus's error, fatal or panic level marker, in the text formatter's
// form ("level=error") or the JSON formatter's ("level":"error"), and
// to stdout otherwise.
type OutputSplitter struct{}

func (OutputSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte("level=fatal")) || bytes.Contains(p, []byte("level=panic")) ||
		bytes.Contains(p, []byte(`"level":"error"`)) || bytes.Contains(p, []byte(`"level":"fatal"`)) || bytes.Contains(p, []byte(`"level":"panic"`)) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Config configures a Logger.
type Config struct {
	Level  string // debug|info|warn|error, default info
	JSON   bool   // JSON formatter instead of text
	Fields logrus.Fields
}

// New builds a *logrus.Logger wired with OutputSplitter and the given
// configuration.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(OutputSplitter{})

	if cfg.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// WithService returns an entry carrying a "service" field, the
// starting point for every component-scoped logger in Atlas.
func WithService(logger *logrus.Logger, service string) *logrus.Entry {
	return logger.WithField("service", service)
}

// IngestFields builds the structured fields used when logging ingest
// outcomes: context id, operation kind, the ids touched, and the
// outcome. This is audit-style logging, not audit storage — Atlas
// keeps no durable record of who ingested what.
func IngestFields(contextID, op string, ids []string, outcome string) logrus.Fields {
	return logrus.Fields{
		"context_id": contextID,
		"op":         op,
		"ids":        ids,
		"outcome":    outcome,
	}
}

// RequestFields builds the structured fields used when logging an HTTP
// request/response pair.
func RequestFields(method, path string, status int, latency time.Duration, requestID string) logrus.Fields {
	return logrus.Fields{
		"method":     method,
		"path":       path,
		"status":     status,
		"latency_ms": latency.Milliseconds(),
		"request_id": requestID,
	}
}
