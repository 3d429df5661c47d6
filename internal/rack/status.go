package rack

type DoorStatus string

const (
	StatusAvailable DoorStatus = "available"
	StatusOpen      DoorStatus = "open"
	StatusClosed    DoorStatus = "closed"
	StatusLocked    DoorStatus = "locked"
	StatusUnlocked  DoorStatus = "unlocked"
	StatusForced    DoorStatus = "forced"
)

// Transition names the event that last touched a port.
type Transition int

const (
	TransitionAssign Transition = iota
	TransitionRelease
	TransitionDoor
)

func (t Transition) String() string {
	switch t {
	case TransitionAssign:
		return "assign"
	case TransitionRelease:
		return "release"
	case TransitionDoor:
		return "door"
	default:
		return "unknown"
	}
}

// DeriveStatus computes the door status written by a transition.
//
// Assign and release label a closed door differently ("locked" vs "unlocked")
// even though the physical state may be the same; door edges use the
// occupancy/door table.
func DeriveStatus(occupied, doorSensors, doorOpen bool, kind Transition) DoorStatus {
	if !doorSensors {
		if occupied {
			return StatusLocked
		}
		return StatusAvailable
	}

	switch kind {
	case TransitionAssign:
		if doorOpen {
			return StatusOpen
		}
		return StatusLocked
	case TransitionRelease:
		if doorOpen {
			return StatusOpen
		}
		return StatusUnlocked
	default:
		switch {
		case !occupied && doorOpen:
			return StatusOpen
		case !occupied:
			return StatusClosed
		case doorOpen:
			return StatusForced
		default:
			return StatusLocked
		}
	}
}
