package rack

import (
	"errors"
	"fmt"
)

// MaxPorts is the largest rack the engine supports.
const MaxPorts = 2

var (
	ErrTooManyPorts     = errors.New("port count exceeds supported maximum")
	ErrInvalidPortCount = errors.New("port count must be positive")
	ErrPortOutOfRange   = errors.New("port index out of range")
)

type Port struct {
	Index      int
	CardID     string // empty when the port is free
	DoorOpen   bool
	DoorStatus DoorStatus
}

func (p Port) Occupied() bool {
	return p.CardID != ""
}

// Table is the shared port record. It has no lock of its own; the Engine
// serializes every access.
type Table struct {
	ports       []Port
	doorSensors bool
}

func NewTable(count int, doorSensors bool) (*Table, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPortCount, count)
	}
	if count > MaxPorts {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPorts, count, MaxPorts)
	}

	t := &Table{
		ports:       make([]Port, count),
		doorSensors: doorSensors,
	}
	for i := range t.ports {
		// Door state is unknown until the first sensor edge; assume open.
		t.ports[i] = Port{Index: i, DoorOpen: true, DoorStatus: StatusAvailable}
	}
	return t, nil
}

func (t *Table) Len() int {
	return len(t.ports)
}

func (t *Table) DoorSensors() bool {
	return t.doorSensors
}

func (t *Table) port(idx int) (*Port, error) {
	if idx < 0 || idx >= len(t.ports) {
		return nil, fmt.Errorf("%w: %d (rack has %d ports)", ErrPortOutOfRange, idx, len(t.ports))
	}
	return &t.ports[idx], nil
}

// holding returns the port holding cardID, or nil.
func (t *Table) holding(cardID string) *Port {
	for i := range t.ports {
		if t.ports[i].CardID == cardID {
			return &t.ports[i]
		}
	}
	return nil
}

// firstFree returns the lowest-index free port, or nil when the rack is full.
func (t *Table) firstFree() *Port {
	for i := range t.ports {
		if !t.ports[i].Occupied() {
			return &t.ports[i]
		}
	}
	return nil
}

func (t *Table) snapshot() Snapshot {
	ports := make([]Port, len(t.ports))
	copy(ports, t.ports)
	return Snapshot{Ports: ports, DoorSensors: t.doorSensors}
}
