package ws

import (
	"encoding/json"

	"github.com/agrioracle/agri-oracle/internal/oracle"
	"github.com/agrioracle/agri-oracle/internal/scenario"
)

// Message types.
const (
	TypeSimulate = "SIMULATE"
	TypeResult   = "RESULT"
	TypeError    = "ERROR"
)

// Error codes carried by ERROR messages.
const (
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrUnknownShock = "E_UNKNOWN_SHOCK"
	ErrRateLimit    = "E_RATE_LIMIT"
	ErrInternal     = "E_INTERNAL"
)

// SimulateMsg asks the server to run a scenario.
type SimulateMsg struct {
	Type      string            `json:"type"`
	RequestID string            `json:"request_id,omitempty"`
	Scenario  scenario.Scenario `json:"scenario"`
}

// ResultMsg carries a completed run. NarrativeError is set when the run
// succeeded but its narrative could not be produced.
type ResultMsg struct {
	Type           string         `json:"type"`
	RequestID      string         `json:"request_id,omitempty"`
	Result         *oracle.Result `json:"result"`
	NarrativeError string         `json:"narrative_error,omitempty"`
}

// ErrorMsg reports a rejected or failed request.
type ErrorMsg struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type baseMsg struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
}

// decodeBase extracts the envelope fields without validating the rest.
func decodeBase(b []byte) (baseMsg, error) {
	var m baseMsg
	err := json.Unmarshal(b, &m)
	return m, err
}
