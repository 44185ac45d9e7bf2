// Package visitstats holds the per-floor visit counters shared by every
// elevator session and read by the exporter.
package visitstats

import (
	"sync"

	"elevsim/common"

	"github.com/tiendc/go-deepcopy"
)

type Store struct {
	mu      sync.Mutex
	records common.VisitSnapshot
}

func NewStore() *Store {
	return &Store{records: make(common.VisitSnapshot)}
}

// RecordArrival counts one arrival at floor with occupancy passengers on
// board. Both counters of the record change under the same lock.
func (s *Store) RecordArrival(floor, occupancy int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[floor]
	if !ok {
		rec = common.FloorVisitRecord{Floor: floor}
	}
	rec.Visits++
	rec.PassengersSeen += occupancy
	s.records[floor] = rec
}

// Snapshot returns an independent copy of every record.
func (s *Store) Snapshot() common.VisitSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(common.VisitSnapshot, len(s.records))
	if err := deepcopy.Copy(&out, s.records); err != nil {
		for floor, rec := range s.records {
			out[floor] = rec
		}
	}
	return out
}

func (s *Store) TotalVisits() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, rec := range s.records {
		total += rec.Visits
	}
	return total
}
