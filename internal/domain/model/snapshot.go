package model

import "time"

// Snapshot is the complete rating state at one point in logical time.
//
// Order lists competitors in the order they were first seen; ranking uses it to
// break exact ties. UpdatedAt is zero when the snapshot was never persisted.
// Watermark is the highest event whose results are folded into Ratings.
type Snapshot struct {
	Ratings   map[CompetitorID]float64
	Order     []CompetitorID
	UpdatedAt time.Time
	Watermark EventKey
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() Snapshot {
	return Snapshot{Ratings: make(map[CompetitorID]float64)}
}

// Len returns the number of rated competitors.
func (s Snapshot) Len() int { return len(s.Ratings) }

// Has reports whether id has a rating.
func (s Snapshot) Has(id CompetitorID) bool {
	_, ok := s.Ratings[id]
	return ok
}

// Rating returns the rating of id and whether it exists.
func (s Snapshot) Rating(id CompetitorID) (float64, bool) {
	r, ok := s.Ratings[id]
	return r, ok
}

// Put sets the rating of id, appending it to Order when it is new.
// Put mutates s; callers that must keep the original use Clone first.
func (s *Snapshot) Put(id CompetitorID, rating float64) {
	if s.Ratings == nil {
		s.Ratings = make(map[CompetitorID]float64)
	}
	if _, ok := s.Ratings[id]; !ok {
		s.Order = append(s.Order, id)
	}
	s.Ratings[id] = rating
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Ratings:   make(map[CompetitorID]float64, len(s.Ratings)),
		Order:     make([]CompetitorID, len(s.Order)),
		UpdatedAt: s.UpdatedAt,
		Watermark: s.Watermark,
	}
	for id, r := range s.Ratings {
		out.Ratings[id] = r
	}
	copy(out.Order, s.Order)
	return out
}
