package broadcast

import (
	"encoding/json"
	"fmt"

	"github.com/vegarwe/skistart-lockedup/internal/rack"
	"github.com/vegarwe/skistart-lockedup/internal/shared"
)

type Kind int

const (
	KindStatus Kind = iota
	KindLog
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindLog:
		return "log"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is one notification for subscribers.
type Message struct {
	Kind   Kind
	Status rack.Snapshot
	Entry  string
}

func StatusMessage(s rack.Snapshot) Message {
	return Message{Kind: KindStatus, Status: s}
}

func LogMessage(entry string) Message {
	return Message{Kind: KindLog, Entry: entry}
}

// MarshalJSON produces {"type":"status","rack":[...]} or {"type":"log","entry":"..."}.
func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case KindStatus:
		return json.Marshal(shared.StatusEnvelope{Type: shared.TypeStatus, Rack: m.Status.Rack()})
	case KindLog:
		return json.Marshal(shared.LogEnvelope{Type: shared.TypeLog, Entry: m.Entry})
	default:
		return nil, fmt.Errorf("unknown message kind %d", int(m.Kind))
	}
}
