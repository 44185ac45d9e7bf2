// utils.go
// Purpose: Small helpers shared by the transport and export code.
package common

import "sort"

func TrimZeros(b []byte) []byte {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return b[:i]
}

// SortedFloors returns the floors present in the snapshot in ascending order.
func (s VisitSnapshot) SortedFloors() []int {
	floors := make([]int, 0, len(s))
	for f := range s {
		floors = append(floors, f)
	}
	sort.Ints(floors)
	return floors
}

// TotalVisits sums the visit counters of every record.
func (s VisitSnapshot) TotalVisits() int {
	total := 0
	for _, rec := range s {
		total += rec.Visits
	}
	return total
}
