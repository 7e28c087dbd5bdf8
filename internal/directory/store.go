package directory

import (
	"context"
	"sync"

	"github.com/vinaykumargajjela/care-link-appointments/pkg/interfaces"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/logger"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

type entry struct {
	mu     sync.Mutex
	doctor *types.Doctor
}

// Store is the in-process doctor catalog. Catalog membership is guarded by
// mu; each doctor's slots are guarded by that doctor's own mutex so that
// reservations against different doctors never contend.
type Store struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
	logger  *logger.Logger
}

var _ interfaces.DirectoryStore = (*Store)(nil)

// NewStore creates a catalog holding copies of doctors in the given order
func NewStore(log *logger.Logger, doctors ...*types.Doctor) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		logger:  log,
	}
	for _, d := range doctors {
		s.Put(d)
	}
	return s
}

// NewSeededStore creates a catalog holding the built-in doctors
func NewSeededStore(log *logger.Logger) *Store {
	s := NewStore(log, SeedDoctors()...)
	log.WithComponent("directory").Infof("Loaded %d doctors into catalog", len(s.order))
	return s
}

// Put inserts or replaces a doctor. A replaced doctor keeps its position.
func (s *Store) Put(doctor *types.Doctor) {
	cp := doctor.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[cp.ID]; ok {
		e.mu.Lock()
		e.doctor = cp
		e.mu.Unlock()
		return
	}
	s.entries[cp.ID] = &entry{doctor: cp}
	s.order = append(s.order, cp.ID)
}

func (s *Store) lookup(doctorID string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[doctorID]
	return e, ok
}

// snapshot returns copies of all doctors in catalog order
func (s *Store) snapshot() []*types.Doctor {
	s.mu.RLock()
	list := make([]*entry, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.entries[id])
	}
	s.mu.RUnlock()

	out := make([]*types.Doctor, 0, len(list))
	for _, e := range list {
		e.mu.Lock()
		out = append(out, e.doctor.Clone())
		e.mu.Unlock()
	}
	return out
}

// List returns every doctor in catalog order
func (s *Store) List(ctx context.Context) ([]*types.Doctor, error) {
	return s.snapshot(), nil
}

// Get returns a copy of one doctor
func (s *Store) Get(ctx context.Context, doctorID string) (*types.Doctor, error) {
	e, ok := s.lookup(doctorID)
	if !ok {
		return nil, types.ErrDoctorNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doctor.Clone(), nil
}

// Search filters the catalog without mutating it
func (s *Store) Search(ctx context.Context, query *types.DoctorQuery) ([]*types.Doctor, error) {
	return Filter(s.snapshot(), query), nil
}

// ReserveSlot checks and consumes a slot while holding the doctor's lock,
// so concurrent callers on the same slot see exactly one success.
func (s *Store) ReserveSlot(ctx context.Context, doctorID, slotID string) (*types.Doctor, *types.TimeSlot, error) {
	e, ok := s.lookup(doctorID)
	if !ok {
		return nil, nil, types.ErrDoctorNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	slot := e.doctor.Slot(slotID)
	if slot == nil {
		return nil, nil, types.ErrSlotNotFound
	}
	if !slot.Available {
		return nil, nil, types.ErrSlotUnavailable
	}

	doctor := e.doctor.Clone()
	reserved := *slot
	slot.Available = false

	s.logger.WithFields(map[string]interface{}{
		"component": "directory",
		"doctor_id": doctorID,
		"slot_id":   slotID,
	}).Debug("Slot reserved")

	return doctor, &reserved, nil
}

// ReleaseSlot marks a slot available again. Releasing an open slot is a no-op.
func (s *Store) ReleaseSlot(ctx context.Context, doctorID, slotID string) error {
	e, ok := s.lookup(doctorID)
	if !ok {
		return types.ErrDoctorNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	slot := e.doctor.Slot(slotID)
	if slot == nil {
		return types.ErrSlotNotFound
	}
	slot.Available = true

	s.logger.WithFields(map[string]interface{}{
		"component": "directory",
		"doctor_id": doctorID,
		"slot_id":   slotID,
	}).Debug("Slot released")

	return nil
}
