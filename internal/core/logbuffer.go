package core

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// LogEntry is a single log line captured from the engine logger.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Component string    `json:"component,omitempty"`
	Message   string    `json:"message"`
	Raw       string    `json:"raw"`
}

// LogRingBuffer is a fixed-size ring buffer of recent log lines. It is an
// io.Writer so it can sit behind a zerolog MultiLevelWriter; JSON lines are
// split into level, component and message.
type LogRingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	maxSize int
	pos     int
	full    bool
}

// NewLogRingBuffer creates a ring buffer that holds up to maxSize entries.
func NewLogRingBuffer(maxSize int) *LogRingBuffer {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LogRingBuffer{
		entries: make([]LogEntry, maxSize),
		maxSize: maxSize,
	}
}

type zerologLine struct {
	Level     string `json:"level"`
	Component string `json:"component"`
	Module    string `json:"module"`
	Message   string `json:"message"`
}

// Write implements io.Writer.
func (b *LogRingBuffer) Write(p []byte) (n int, err error) {
	line := strings.TrimRight(string(p), "\n")
	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Raw:       line,
		Message:   line,
	}

	var parsed zerologLine
	if strings.HasPrefix(line, "{") && json.Unmarshal([]byte(line), &parsed) == nil {
		entry.Level = parsed.Level
		entry.Component = parsed.Component
		if entry.Component == "" {
			entry.Component = parsed.Module
		}
		entry.Message = parsed.Message
	}

	b.mu.Lock()
	b.entries[b.pos] = entry
	b.pos = (b.pos + 1) % b.maxSize
	if b.pos == 0 {
		b.full = true
	}
	b.mu.Unlock()

	return len(p), nil
}

// GetEntries returns the most recent n log entries in chronological order.
func (b *LogRingBuffer) GetEntries(n int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := b.pos
	if b.full {
		total = b.maxSize
	}

	if n > total {
		n = total
	}
	if n <= 0 {
		return []LogEntry{}
	}

	result := make([]LogEntry, n)
	start := b.pos - n
	if start < 0 {
		start += b.maxSize
	}
	for i := 0; i < n; i++ {
		result[i] = b.entries[(start+i)%b.maxSize]
	}
	return result
}
