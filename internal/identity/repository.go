package identity

import (
	"context"
	"sync"
	"time"

	"github.com/vinaykumargajjela/care-link-appointments/pkg/interfaces"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

// MemoryRepository keeps patients in process memory, keyed by id with a
// secondary index by email. Emails match exactly and case-sensitively.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*types.Patient
	byEmail map[string]string
}

var _ interfaces.PatientRepository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*types.Patient),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryRepository) insertLocked(p *types.Patient) {
	cp := p.Clone()
	r.byID[cp.ID] = cp
	r.byEmail[cp.Email] = cp.ID
}

// Create stores a new patient
func (r *MemoryRepository) Create(ctx context.Context, patient *types.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[patient.Email]; exists {
		return types.ErrDuplicateEmail
	}
	r.insertLocked(patient)
	return nil
}

// GetOrCreate returns the stored patient or inserts the one built by create
func (r *MemoryRepository) GetOrCreate(ctx context.Context, email string, create func() *types.Patient) (*types.Patient, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byEmail[email]; ok {
		return r.byID[id].Clone(), false, nil
	}

	p := create()
	p.Email = email
	r.insertLocked(p)
	return p.Clone(), true, nil
}

// Claim gives a password to a patient that was created without one. An
// empty phone keeps the stored phone.
func (r *MemoryRepository) Claim(ctx context.Context, patient *types.Patient) (*types.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[patient.Email]
	if !ok || r.byID[id].PasswordHash != "" {
		return nil, types.ErrDuplicateEmail
	}
	p := r.byID[id]
	p.Name = patient.Name
	if patient.Phone != "" {
		p.Phone = patient.Phone
	}
	p.PasswordHash = patient.PasswordHash
	p.UpdatedAt = time.Now()
	return p.Clone(), nil
}

// GetByEmail retrieves a patient by email
func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*types.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, types.ErrPatientNotFound
	}
	return r.byID[id].Clone(), nil
}

// GetByID retrieves a patient by id
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*types.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, types.ErrPatientNotFound
	}
	return p.Clone(), nil
}

// Update applies profile changes to the patient stored under email
func (r *MemoryRepository) Update(ctx context.Context, email string, updates *types.PatientUpdates) (*types.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, types.ErrPatientNotFound
	}
	p := r.byID[id]
	updates.Apply(p)
	p.UpdatedAt = time.Now()
	return p.Clone(), nil
}

// Count returns the number of stored patients
func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}
