package event

import (
	"time"

	"github.com/google/uuid"
)

// Event notifies collaborators that a workflow transition happened. The
// owning business object (leave request, ticket, claim) reacts to the
// terminal events to update its own status.
type Event struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	WorkflowID string                 `json:"workflow_id"`
	RequestID  string                 `json:"request_id"`
	ModuleName string                 `json:"module_name"`
	Payload    map[string]interface{} `json:"payload"`
	Timestamp  time.Time              `json:"timestamp"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, workflowID, requestID, moduleName string, payload map[string]interface{}) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		WorkflowID: workflowID,
		RequestID:  requestID,
		ModuleName: moduleName,
		Payload:    payload,
		Timestamp:  time.Now(),
	}
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadFloat retrieves a float64 value from the payload
func (e *Event) GetPayloadFloat(key string) float64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		case int:
			return float64(v)
		}
	}
	return 0.0
}
