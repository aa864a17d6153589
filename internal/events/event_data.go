// Package events fans out pipeline events to live subscribers.
package events

import (
	"encoding/json"
	"time"
)

// EventType identifies an event.
type EventType string

const (
	PricesUpdated    EventType = "PRICES_UPDATED"
	SnapshotRecorded EventType = "SNAPSHOT_RECORDED"
	RefreshCompleted EventType = "REFRESH_COMPLETED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"
)

// EventData is a typed event payload.
type EventData interface {
	// EventType names the event the payload belongs to.
	EventType() EventType
}

// PricesUpdatedData is published after quotes were written back to positions.
type PricesUpdatedData struct {
	Class     string `json:"asset_type,omitempty"`
	Requested int    `json:"requested"`
	Updated   int    `json:"updated"`
}

func (d *PricesUpdatedData) EventType() EventType {
	return PricesUpdated
}

// SnapshotRecordedData is published after a daily snapshot was upserted.
type SnapshotRecordedData struct {
	Date      string `json:"record_date"`
	Total     string `json:"total_value"`
	DayChange string `json:"day_change"`
}

func (d *SnapshotRecordedData) EventType() EventType {
	return SnapshotRecorded
}

// RefreshCompletedData summarizes a refresh run across all users.
type RefreshCompletedData struct {
	RunID     string `json:"run_id"`
	Users     int    `json:"users"`
	Requested int    `json:"requested"`
	Updated   int    `json:"updated"`
	Failed    int    `json:"failed"`
}

func (d *RefreshCompletedData) EventType() EventType {
	return RefreshCompleted
}

// ErrorEventData carries an error message.
type ErrorEventData struct {
	Error string `json:"error"`
}

func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// EventWithData is an event with typed data. UserID 0 marks a system event.
type EventWithData struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	UserID    int64     `json:"user_id,omitempty"`
	Data      EventData `json:"data"`
}

// UnmarshalJSON restores the typed data from the event type.
func (e *EventWithData) UnmarshalJSON(data []byte) error {
	type Alias EventWithData
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		return nil
	}

	var eventData EventData
	switch aux.Type {
	case PricesUpdated:
		eventData = &PricesUpdatedData{}
	case SnapshotRecorded:
		eventData = &SnapshotRecordedData{}
	case RefreshCompleted:
		eventData = &RefreshCompletedData{}
	case ErrorOccurred:
		eventData = &ErrorEventData{}
	default:
		generic := &GenericEventData{Type: aux.Type}
		if err := json.Unmarshal(aux.Data, &generic.Data); err != nil {
			return err
		}
		e.Data = generic
		return nil
	}

	if err := json.Unmarshal(aux.Data, eventData); err != nil {
		return err
	}
	e.Data = eventData
	return nil
}

// GenericEventData carries payloads of event types without a dedicated struct.
type GenericEventData struct {
	Type EventType
	Data map[string]interface{}
}

func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON writes only the payload.
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}
