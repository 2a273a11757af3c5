package events

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// SimulatedSource emits random product events with a configurable
// probability per poll. It stands in for a real queue or webhook feed
// in development and demos.
type SimulatedSource struct {
	mu          sync.Mutex
	rng         *rand.Rand
	probability float64
	idMin       int64
	idMax       int64
}

// NewSimulatedSource creates a source that yields an event on roughly
// probability of polls, with product ids drawn uniformly from
// [idMin, idMax].
func NewSimulatedSource(probability float64, idMin, idMax int64) *SimulatedSource {
	if idMax < idMin {
		idMax = idMin
	}
	return &SimulatedSource{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		probability: probability,
		idMin:       idMin,
		idMax:       idMax,
	}
}

var simulatedTypes = []Type{TypeAdd, TypeUpdate, TypeDelete}

// Poll returns a random event or nil.
func (s *SimulatedSource) Poll(_ context.Context) (*ProductEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() >= s.probability {
		return nil, nil
	}
	return &ProductEvent{
		EventType: simulatedTypes[s.rng.Intn(len(simulatedTypes))],
		ProductID: s.idMin + s.rng.Int63n(s.idMax-s.idMin+1),
		Timestamp: time.Now().UTC(),
	}, nil
}
