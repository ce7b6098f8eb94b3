package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScanEvent is the compact record of a finished scan published to the bus.
// It carries counters only, never document content.
type ScanEvent struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ScanID        string    `json:"scan_id"`
	FileName      string    `json:"file_name"`
	Format        string    `json:"format"`
	FileSize      int64     `json:"file_size"`
	HiddenBytes   int64     `json:"hidden_bytes"`
	HiddenRatio   float64   `json:"hidden_ratio"`
	RiskScore     float64   `json:"risk_score"`
	RiskLevel     string    `json:"risk_level"`
	VerdictSource string    `json:"verdict_source"`
	Findings      int       `json:"findings"`
}

// NewScanEvent summarizes a report as an event with a fresh ID.
func NewScanEvent(r *ScanReport) *ScanEvent {
	return &ScanEvent{
		ID:            uuid.New().String(),
		Timestamp:     time.Now().UTC(),
		ScanID:        r.ScanID,
		FileName:      r.FileName,
		Format:        r.Format.String(),
		FileSize:      r.FileSize,
		HiddenBytes:   r.HiddenBytes,
		HiddenRatio:   r.HiddenRatio,
		RiskScore:     r.RiskScore,
		RiskLevel:     string(r.RiskLevel),
		VerdictSource: r.VerdictSource,
		Findings:      len(r.Findings),
	}
}

// Subject is the bus subject the event is published on.
func (e *ScanEvent) Subject() string {
	return fmt.Sprintf("%s.%s.%s", scanSubjectPrefix, e.Format, e.RiskLevel)
}

// Marshal serializes the event to JSON.
func (e *ScanEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalScanEvent deserializes a ScanEvent from JSON.
func UnmarshalScanEvent(data []byte) (*ScanEvent, error) {
	var event ScanEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
