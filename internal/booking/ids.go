package booking

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// AppointmentIDPrefix prefixes every appointment id
const AppointmentIDPrefix = "APT-"

// ID strategies accepted by NewIDGenerator
const (
	IDStrategyUUID     = "uuid"
	IDStrategySequence = "sequence"
)

// IDGenerator produces appointment ids that are unique under concurrent use
type IDGenerator interface {
	NextID() string
}

// UUIDGenerator issues APT-<uuid v4> ids
type UUIDGenerator struct{}

// NextID returns a random id
func (UUIDGenerator) NextID() string {
	return AppointmentIDPrefix + uuid.New().String()
}

// SequenceGenerator issues APT-000001, APT-000002, ... from an atomic counter
type SequenceGenerator struct {
	last atomic.Int64
}

// NewSequenceGenerator starts the sequence after start
func NewSequenceGenerator(start int64) *SequenceGenerator {
	g := &SequenceGenerator{}
	g.last.Store(start)
	return g
}

// NextID returns the next id in the sequence
func (g *SequenceGenerator) NextID() string {
	return fmt.Sprintf("%s%06d", AppointmentIDPrefix, g.last.Add(1))
}

// NewIDGenerator builds the generator for strategy. start seeds the
// sequence strategy and is ignored otherwise.
func NewIDGenerator(strategy string, start int64) (IDGenerator, error) {
	switch strategy {
	case "", IDStrategyUUID:
		return UUIDGenerator{}, nil
	case IDStrategySequence:
		return NewSequenceGenerator(start), nil
	default:
		return nil, fmt.Errorf("unknown id strategy: %q", strategy)
	}
}
