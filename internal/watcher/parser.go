package watcher

import (
	"encoding/json"
	"strings"

	"github.com/IQAIcom/mcp-near-agent/internal/models"
)

// eventLogPrefix is the sentinel contracts prepend to structured event logs
// (NEP-297).
const eventLogPrefix = "EVENT_JSON:"

type eventLog struct {
	Standard string            `json:"standard"`
	Version  string            `json:"version"`
	Event    string            `json:"event"`
	Data     []json.RawMessage `json:"data"`
}

// parseEventLog extracts an AgentEvent from one log line. It returns false
// when the line carries no matching event: missing sentinel, malformed JSON,
// a different event name, or an empty data array. Malformed input is never
// an error, just a non-match.
func parseEventLog(line, eventName, sender string) (models.AgentEvent, bool) {
	if !strings.HasPrefix(line, eventLogPrefix) {
		return models.AgentEvent{}, false
	}

	var parsed eventLog
	if err := json.Unmarshal([]byte(line[len(eventLogPrefix):]), &parsed); err != nil {
		return models.AgentEvent{}, false
	}
	if parsed.Event != eventName || len(parsed.Data) == 0 {
		return models.AgentEvent{}, false
	}

	// The first data element is the event payload
	var payload map[string]interface{}
	if err := json.Unmarshal(parsed.Data[0], &payload); err != nil {
		return models.AgentEvent{}, false
	}

	requestID := ""
	if id, ok := payload["request_id"].(string); ok {
		requestID = id
	}

	return models.NewAgentEvent(parsed.Event, requestID, sender, payload), true
}
