package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/vinaykumargajjela/care-link-appointments/pkg/interfaces"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

// MemoryLedger keeps appointments in insertion order with an id index.
// Like the postgres ledger, it lets only one active appointment hold a slot.
type MemoryLedger struct {
	mu    sync.RWMutex
	items []*types.Appointment
	byID  map[string]int
	// held maps doctor and slot to the id of the active appointment on it
	held map[string]string
	now  func() time.Time
}

var _ interfaces.AppointmentLedger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		byID: make(map[string]int),
		held: make(map[string]string),
		now:  time.Now,
	}
}

// Append adds an appointment at the end of the ledger
func (l *MemoryLedger) Append(ctx context.Context, apt *types.Appointment) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byID[apt.ID]; exists {
		return types.NewConflictError("DUPLICATE_APPOINTMENT", "Appointment already exists")
	}
	if apt.Status != types.StatusCancelled {
		key := slotKey(apt.DoctorID, apt.SlotID)
		if _, taken := l.held[key]; taken {
			return types.ErrSlotUnavailable
		}
		l.held[key] = apt.ID
	}
	l.byID[apt.ID] = len(l.items)
	l.items = append(l.items, apt.Clone())
	return nil
}

// Get returns one appointment
func (l *MemoryLedger) Get(ctx context.Context, id string) (*types.Appointment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx, ok := l.byID[id]
	if !ok {
		return nil, types.ErrAppointmentNotFound
	}
	return l.items[idx].Clone(), nil
}

// SetStatus changes the status of an appointment after guard approves it
func (l *MemoryLedger) SetStatus(ctx context.Context, id string, status types.AppointmentStatus, guard interfaces.StatusGuard) (*types.Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.byID[id]
	if !ok {
		return nil, types.ErrAppointmentNotFound
	}
	apt := l.items[idx]
	if guard != nil {
		if err := guard(apt.Clone()); err != nil {
			return nil, err
		}
	}
	key := slotKey(apt.DoctorID, apt.SlotID)
	switch {
	case status == types.StatusCancelled:
		if l.held[key] == apt.ID {
			delete(l.held, key)
		}
	case apt.Status == types.StatusCancelled:
		if holder, taken := l.held[key]; taken && holder != apt.ID {
			return nil, types.ErrSlotUnavailable
		}
		l.held[key] = apt.ID
	}
	apt.Status = status
	apt.UpdatedAt = l.now()
	return apt.Clone(), nil
}

func slotKey(doctorID, slotID string) string {
	return doctorID + "/" + slotID
}

// Active returns every appointment that still holds its slot, in insertion order
func (l *MemoryLedger) Active(ctx context.Context) ([]*types.Appointment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*types.Appointment, 0, len(l.held))
	for _, apt := range l.items {
		if apt.Status != types.StatusCancelled {
			out = append(out, apt.Clone())
		}
	}
	return out, nil
}

// FindByPatient returns the appointments booked under key, which is
// matched against the patient email or the patient id, in insertion order
func (l *MemoryLedger) FindByPatient(ctx context.Context, key string) ([]*types.Appointment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*types.Appointment, 0)
	for _, apt := range l.items {
		if apt.PatientEmail == key || (apt.PatientID != "" && apt.PatientID == key) {
			out = append(out, apt.Clone())
		}
	}
	return out, nil
}

// Recent returns up to n of the most recently appended appointments,
// oldest first
func (l *MemoryLedger) Recent(ctx context.Context, n int) ([]*types.Appointment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 {
		return []*types.Appointment{}, nil
	}
	start := len(l.items) - n
	if start < 0 {
		start = 0
	}
	out := make([]*types.Appointment, 0, len(l.items)-start)
	for _, apt := range l.items[start:] {
		out = append(out, apt.Clone())
	}
	return out, nil
}

// CountByStatus counts appointments in the given status
func (l *MemoryLedger) CountByStatus(ctx context.Context, status types.AppointmentStatus) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, apt := range l.items {
		if apt.Status == status {
			n++
		}
	}
	return n, nil
}

// CountCreatedToday counts appointments created on the current local date
func (l *MemoryLedger) CountCreatedToday(ctx context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start, end := DayBounds(l.now())
	n := 0
	for _, apt := range l.items {
		created := apt.CreatedAt.In(start.Location())
		if !created.Before(start) && created.Before(end) {
			n++
		}
	}
	return n, nil
}

// Count returns the total number of appointments
func (l *MemoryLedger) Count(ctx context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items), nil
}

// DayBounds returns the start of t's local calendar day and the start of
// the next one
func DayBounds(t time.Time) (time.Time, time.Time) {
	local := t.Local()
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return start, start.AddDate(0, 0, 1)
}
