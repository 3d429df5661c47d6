package shared

import (
	"time"

	"github.com/vegarwe/skistart-lockedup/internal/rack"
)

const (
	TypeStatus = "status"
	TypeLog    = "log"
)

type StatusEnvelope struct {
	Type string            `json:"type"` // always "status"
	Rack []rack.PortStatus `json:"rack"`
}

type LogEnvelope struct {
	Type  string `json:"type"` // always "log"
	Entry string `json:"entry"`
}

// Envelope decodes either notification kind.
type Envelope struct {
	Type  string            `json:"type"`
	Rack  []rack.PortStatus `json:"rack,omitempty"`
	Entry string            `json:"entry,omitempty"`
}

type UnlockRequest struct {
	Number int `json:"number"`
}

type JournalEntry struct {
	ID    string    `json:"id"`
	At    time.Time `json:"at"`
	Entry string    `json:"entry"`
}

type LogResponse struct {
	Entries []JournalEntry `json:"entries"`
}

type HealthResponse struct {
	Ok          bool `json:"ok"`
	Ports       int  `json:"ports"`
	Subscribers int  `json:"subscribers"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
