package elevfsm

import (
	"fmt"

	"elevsim/common"
)

const (
	MsgInvalidFloor = "El piso especificado no es válido."
	msgStatusFmt    = "El ascensor está en el piso %d con %d personas."
)

// Elevator is the state of one simulated car. It belongs to a single
// session and is never shared.
type Elevator struct {
	Floor     int
	Occupancy int
	Requested *int // last accepted floor request, nil until the first one
}

func elevator_initialized(cfg common.Config) Elevator {
	return Elevator{
		Floor:     cfg.MinFloor,
		Occupancy: 0,
	}
}

func StatusMessage(floor, occupancy int) string {
	return fmt.Sprintf(msgStatusFmt, floor, occupancy)
}

// passengersEntering boards as many people as fit, bounded by the number of
// floors left above the car. The requested floor plays no part here.
func passengersEntering(cfg common.Config, e Elevator) int {
	return max(0, min(cfg.Capacity-e.Occupancy, cfg.MaxFloor-e.Floor))
}

// passengersLeaving lets off one person per floor of travel, at most
// everyone on board.
func passengersLeaving(e Elevator, requested int) int {
	dist := requested - e.Floor
	if dist < 0 {
		dist = -dist
	}
	return min(e.Occupancy, dist)
}
