package identity

import (
	"context"
	"errors"
	"time"

	"github.com/vinaykumargajjela/care-link-appointments/pkg/config"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/interfaces"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/logger"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/monitoring"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

// Service implements the IdentityService interface
type Service struct {
	config    config.IdentityConfig
	repo      interfaces.PatientRepository
	passwords *PasswordManager
	metrics   *monitoring.MetricsCollector
	logger    *logger.Logger
}

var _ interfaces.IdentityService = (*Service)(nil)

// NewService creates a new identity service
func NewService(cfg config.IdentityConfig, repo interfaces.PatientRepository, passwords *PasswordManager, metrics *monitoring.MetricsCollector, log *logger.Logger) *Service {
	return &Service{
		config:    cfg,
		repo:      repo,
		passwords: passwords,
		metrics:   metrics,
		logger:    log,
	}
}

func (s *Service) synthesize(email string) func() *types.Patient {
	return func() *types.Patient {
		now := time.Now()
		return &types.Patient{
			ID:        NewPatientID(),
			Email:     email,
			Name:      DisplayNameFromEmail(email),
			Phone:     s.config.DefaultPhone,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
}

// ResolveOrCreate returns the patient registered under email, creating one
// with a name derived from the email if none exists. Concurrent calls for
// the same unseen email return the same patient.
func (s *Service) ResolveOrCreate(ctx context.Context, email string) (*types.Patient, error) {
	if email == "" {
		return nil, types.ErrMissingFields
	}

	patient, created, err := s.repo.GetOrCreate(ctx, email, s.synthesize(email))
	if err != nil {
		s.metrics.RecordSystemError("resolve_patient", "identity")
		return nil, err
	}
	s.metrics.RecordPatientResolved(created)

	if created {
		s.logger.Audit(email, "create_patient", "patient:"+patient.ID, true, map[string]interface{}{
			"source": "resolve",
		})
	}
	return patient, nil
}

// Register creates a patient with a hashed password. An email that only
// exists because it was used to book is claimed instead; an email that
// already has a password fails with types.ErrDuplicateEmail.
func (s *Service) Register(ctx context.Context, req *types.RegisterRequest) (*types.Patient, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, types.ErrMissingFields
	}

	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "Failed to register user", err)
	}

	now := time.Now()
	patient := &types.Patient{
		ID:           NewPatientID(),
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	claimed := false
	err = s.repo.Create(ctx, patient)
	if errors.Is(err, types.ErrDuplicateEmail) {
		// Booking creates patients without a password; the first
		// registration for that email takes the record over.
		var existing *types.Patient
		if existing, err = s.repo.Claim(ctx, patient); err == nil {
			patient, claimed = existing, true
		}
	}
	if err != nil {
		s.metrics.RecordAuthAttempt("register", "failure")
		s.logger.Audit(req.Email, "register", "patient", false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	s.metrics.RecordAuthAttempt("register", "success")
	s.logger.Audit(req.Email, "register", "patient:"+patient.ID, true, map[string]interface{}{
		"claimed": claimed,
	})
	return patient, nil
}

// Login verifies credentials. In demo mode an unknown email is accepted and
// a patient is synthesized for it, and a patient without a stored password
// is accepted with any password.
func (s *Service) Login(ctx context.Context, req *types.LoginRequest) (*types.Patient, error) {
	if req.Email == "" || req.Password == "" {
		return nil, types.ErrMissingFields
	}

	patient, err := s.authenticate(ctx, req)
	if err != nil {
		s.metrics.RecordAuthAttempt("password", "failure")
		s.logger.Audit(req.Email, "login", "session", false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	s.metrics.RecordAuthAttempt("password", "success")
	s.logger.Audit(req.Email, "login", "patient:"+patient.ID, true, map[string]interface{}{
		"demo_mode": s.config.DemoMode,
	})
	return patient, nil
}

func (s *Service) authenticate(ctx context.Context, req *types.LoginRequest) (*types.Patient, error) {
	patient, err := s.repo.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
	case errors.Is(err, types.ErrPatientNotFound):
		if !s.config.DemoMode {
			return nil, types.ErrInvalidCredentials
		}
		return s.ResolveOrCreate(ctx, req.Email)
	default:
		return nil, err
	}

	if patient.PasswordHash == "" {
		if s.config.DemoMode {
			return patient, nil
		}
		return nil, types.ErrInvalidCredentials
	}

	ok, err := s.passwords.VerifyPassword(patient.PasswordHash, req.Password)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "Failed to verify credentials", err)
	}
	if !ok {
		return nil, types.ErrInvalidCredentials
	}
	return patient, nil
}

// UpdateProfile applies profile edits to the patient stored under email
func (s *Service) UpdateProfile(ctx context.Context, email string, updates *types.PatientUpdates) (*types.Patient, error) {
	patient, err := s.repo.Update(ctx, email, updates)
	if err != nil {
		return nil, err
	}
	s.logger.Audit(email, "update_profile", "patient:"+patient.ID, true, nil)
	return patient, nil
}

// CountPatients returns the number of known patients
func (s *Service) CountPatients(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
