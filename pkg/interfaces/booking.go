package interfaces

import (
	"context"
	"time"

	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

// DirectoryStore holds the doctor catalog and owns slot availability
type DirectoryStore interface {
	List(ctx context.Context) ([]*types.Doctor, error)
	Get(ctx context.Context, doctorID string) (*types.Doctor, error)
	Search(ctx context.Context, query *types.DoctorQuery) ([]*types.Doctor, error)

	// ReserveSlot resolves the doctor and slot and flips the slot's
	// available flag in one step. It returns snapshots taken before the flip.
	ReserveSlot(ctx context.Context, doctorID, slotID string) (*types.Doctor, *types.TimeSlot, error)
	// ReleaseSlot sets a consumed slot back to available.
	ReleaseSlot(ctx context.Context, doctorID, slotID string) error
}

// PatientRepository defines the interface for patient persistence
type PatientRepository interface {
	// Create fails with types.ErrDuplicateEmail if the email is taken.
	Create(ctx context.Context, patient *types.Patient) error
	// GetOrCreate returns the patient stored under email, or stores and
	// returns the one built by create. The check and insert are atomic.
	GetOrCreate(ctx context.Context, email string, create func() *types.Patient) (*types.Patient, bool, error)
	// Claim sets the name, phone and password hash of the patient stored
	// under patient.Email if that record has no password yet, and returns
	// the stored patient. It fails with types.ErrDuplicateEmail otherwise.
	Claim(ctx context.Context, patient *types.Patient) (*types.Patient, error)
	GetByEmail(ctx context.Context, email string) (*types.Patient, error)
	GetByID(ctx context.Context, id string) (*types.Patient, error)
	Update(ctx context.Context, email string, updates *types.PatientUpdates) (*types.Patient, error)
	Count(ctx context.Context) (int, error)
}

// StatusGuard inspects the current record before a status change and
// returns an error to abort it.
type StatusGuard func(current *types.Appointment) error

// AppointmentLedger persists appointments in insertion order
type AppointmentLedger interface {
	// Append fails with types.ErrSlotUnavailable when another non-cancelled
	// appointment holds the same doctor and slot.
	Append(ctx context.Context, apt *types.Appointment) error
	Get(ctx context.Context, id string) (*types.Appointment, error)
	// SetStatus runs guard and the update atomically with respect to other
	// status changes of the same appointment.
	SetStatus(ctx context.Context, id string, status types.AppointmentStatus, guard StatusGuard) (*types.Appointment, error)
	// FindByPatient matches key against the patient email or patient id.
	FindByPatient(ctx context.Context, key string) ([]*types.Appointment, error)
	// Active returns the non-cancelled appointments in insertion order.
	Active(ctx context.Context) ([]*types.Appointment, error)
	Recent(ctx context.Context, n int) ([]*types.Appointment, error)
	CountByStatus(ctx context.Context, status types.AppointmentStatus) (int, error)
	CountCreatedToday(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

// AppointmentCache is a read-through cache of a patient's appointments.
// A miss is never an error.
type AppointmentCache interface {
	Get(ctx context.Context, key string) ([]*types.Appointment, bool, error)
	Set(ctx context.Context, key string, appointments []*types.Appointment, ttl time.Duration) error
	// Version returns a counter that Invalidate advances for key.
	Version(ctx context.Context, key string) (int64, error)
	// SetIfVersion stores appointments only if key is still at version and
	// reports whether it did.
	SetIfVersion(ctx context.Context, key string, version int64, appointments []*types.Appointment, ttl time.Duration) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// IdentityService resolves and registers patients
type IdentityService interface {
	ResolveOrCreate(ctx context.Context, email string) (*types.Patient, error)
	Register(ctx context.Context, req *types.RegisterRequest) (*types.Patient, error)
	Login(ctx context.Context, req *types.LoginRequest) (*types.Patient, error)
	UpdateProfile(ctx context.Context, email string, updates *types.PatientUpdates) (*types.Patient, error)
	CountPatients(ctx context.Context) (int, error)
}

// BookingEngine books and cancels appointments
type BookingEngine interface {
	Book(ctx context.Context, req *types.BookingRequest) (*types.Appointment, error)
	// Cancel fails with types.ErrForbidden unless requester owns the
	// appointment.
	Cancel(ctx context.Context, appointmentID string, requester *types.SessionClaims) (*types.Appointment, error)
	// AppointmentsForPatient reads through the cache; key is a patient email
	// or patient id.
	AppointmentsForPatient(ctx context.Context, key string) ([]*types.Appointment, error)
	// InvalidatePatient drops cached appointment lists stored under keys
	// (a patient's email and/or id).
	InvalidatePatient(ctx context.Context, keys ...string) error
	Stats(ctx context.Context) (*types.LedgerStats, error)
}
