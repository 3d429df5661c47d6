package rack

// Snapshot is an immutable copy of the port table.
type Snapshot struct {
	Ports       []Port
	DoorSensors bool
}

// PortStatus is the wire shape of one port.
type PortStatus struct {
	Status     string     `json:"status"`
	CardUID    *string    `json:"card_uid"`
	DoorState  *int       `json:"door_state,omitempty"`
	DoorStatus DoorStatus `json:"door_status,omitempty"`
}

const (
	occupied  = "occupied"
	available = "available"
)

// Rack renders the snapshot index-aligned with port index. Door fields are
// only present when the rack has door sensors.
func (s Snapshot) Rack() []PortStatus {
	out := make([]PortStatus, len(s.Ports))
	for i, p := range s.Ports {
		ps := PortStatus{Status: available}
		if p.Occupied() {
			card := p.CardID
			ps.Status = occupied
			ps.CardUID = &card
		}
		if s.DoorSensors {
			state := 0
			if p.DoorOpen {
				state = 1
			}
			ps.DoorState = &state
			ps.DoorStatus = p.DoorStatus
		}
		out[i] = ps
	}
	return out
}

// Holder returns the index of the port holding cardID, or -1.
func (s Snapshot) Holder(cardID string) int {
	if cardID == "" {
		return -1
	}
	for _, p := range s.Ports {
		if p.CardID == cardID {
			return p.Index
		}
	}
	return -1
}
