package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type LogLevel string

const (
	LevelInfo  LogLevel = "INFO"
	LevelDebug LogLevel = "DEBUG"
	LevelError LogLevel = "ERROR"
)

type LogFields map[string]interface{}

type Logger interface {
	WithFields(fields LogFields) Logger

	Info(action, message string)
	Debug(action, message string)
	Error(action string, err error)
}

// jsonLogger writes one JSON line per entry.
type jsonLogger struct {
	mu         *sync.Mutex
	out        io.Writer
	service    string
	hostname   string
	baseFields LogFields
}

// logEntry is the wire shape of a log line. ride_id and request_id are
// promoted to top-level keys so log pipelines can index them.
type logEntry struct {
	Timestamp string    `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Service   string    `json:"service"`
	Action    string    `json:"action"`
	Message   string    `json:"message"`
	Hostname  string    `json:"hostname"`
	RequestID string    `json:"request_id,omitempty"`
	RideID    string    `json:"ride_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Fields    LogFields `json:"fields,omitempty"`
}

// NewLogger creates a structured JSON logger for a service.
func NewLogger(serviceName string) Logger {
	return NewLoggerWithOutput(serviceName, os.Stdout)
}

// NewLoggerWithOutput creates a logger writing to the given destination.
func NewLoggerWithOutput(serviceName string, out io.Writer) Logger {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &jsonLogger{
		mu:         &sync.Mutex{},
		out:        out,
		service:    serviceName,
		hostname:   host,
		baseFields: make(LogFields),
	}
}

// WithFields returns a logger that includes the given fields in every entry.
func (l *jsonLogger) WithFields(fields LogFields) Logger {
	newFields := make(LogFields, len(l.baseFields)+len(fields))
	for k, v := range l.baseFields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &jsonLogger{
		mu:         l.mu,
		out:        l.out,
		service:    l.service,
		hostname:   l.hostname,
		baseFields: newFields,
	}
}

func (l *jsonLogger) Info(action, message string) {
	l.log(LevelInfo, action, message, "")
}

func (l *jsonLogger) Debug(action, message string) {
	l.log(LevelDebug, action, message, "")
}

func (l *jsonLogger) Error(action string, err error) {
	l.log(LevelError, action, err.Error(), err.Error())
}

func (l *jsonLogger) log(level LogLevel, action, message, errMsg string) {
	entry := &logEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Service:   l.service,
		Action:    action,
		Message:   message,
		Hostname:  l.hostname,
		Error:     errMsg,
		Fields:    make(LogFields),
	}

	for k, v := range l.baseFields {
		switch k {
		case "ride_id":
			if rideID, ok := v.(string); ok {
				entry.RideID = rideID
				continue
			}
		case "request_id":
			if reqID, ok := v.(string); ok {
				entry.RequestID = reqID
				continue
			}
		}
		entry.Fields[k] = v
	}
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal log entry: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, string(line))
}
