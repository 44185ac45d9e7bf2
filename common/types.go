package common

// FloorVisitRecord accumulates what the elevator saw at one floor.
type FloorVisitRecord struct {
	Floor          int `json:"floor"`
	PassengersSeen int `json:"passengersSeen"` // sum of occupancy at each arrival
	Visits         int `json:"visits"`
}

// VisitSnapshot is a point-in-time copy of the visit table, keyed by floor.
type VisitSnapshot map[int]FloorVisitRecord
