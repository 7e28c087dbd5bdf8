package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/database"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/interfaces"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/logger"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

// PostgresRepository implements patient persistence on PostgreSQL
type PostgresRepository struct {
	db     *database.DB
	logger *logger.Logger
}

var _ interfaces.PatientRepository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new patient repository
func NewPostgresRepository(db *database.DB, log *logger.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: log,
	}
}

const patientColumns = `id, email, name, phone, date_of_birth, gender, address, password_hash, created_at, updated_at`

func scanPatient(row interface{ Scan(...interface{}) error }) (*types.Patient, error) {
	var p types.Patient
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.Name,
		&p.Phone,
		&p.DateOfBirth,
		&p.Gender,
		&p.Address,
		&p.PasswordHash,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrPatientNotFound
		}
		return nil, fmt.Errorf("failed to scan patient: %w", err)
	}
	return &p, nil
}

// Create inserts a new patient
func (r *PostgresRepository) Create(ctx context.Context, patient *types.Patient) error {
	query := `
		INSERT INTO patients (` + patientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.Email,
		patient.Name,
		patient.Phone,
		patient.DateOfBirth,
		patient.Gender,
		patient.Address,
		patient.PasswordHash,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	r.logger.DatabaseOperation(ctx, "insert", "patients", time.Since(start).Milliseconds(), 1, err == nil)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return types.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

// GetOrCreate inserts the patient built by create unless the email is
// already taken; the unique index on email makes the check-and-insert atomic.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, email string, create func() *types.Patient) (*types.Patient, bool, error) {
	p := create()
	p.Email = email

	query := `
		INSERT INTO patients (` + patientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (email) DO NOTHING
		RETURNING id`

	var id string
	err := r.db.QueryRowContext(ctx, query,
		p.ID,
		p.Email,
		p.Name,
		p.Phone,
		p.DateOfBirth,
		p.Gender,
		p.Address,
		p.PasswordHash,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&id)
	switch {
	case err == nil:
		return p, true, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, err := r.GetByEmail(ctx, email)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	default:
		return nil, false, fmt.Errorf("failed to upsert patient: %w", err)
	}
}

// Claim gives a password to a patient that was created without one. The
// password_hash condition makes concurrent claims race on a single row.
func (r *PostgresRepository) Claim(ctx context.Context, patient *types.Patient) (*types.Patient, error) {
	query := `
		UPDATE patients
		SET name = $2, phone = COALESCE(NULLIF($3, ''), phone), password_hash = $4, updated_at = $5
		WHERE email = $1 AND password_hash = ''
		RETURNING ` + patientColumns

	start := time.Now()
	p, err := scanPatient(r.db.QueryRowContext(ctx, query,
		patient.Email,
		patient.Name,
		patient.Phone,
		patient.PasswordHash,
		time.Now(),
	))
	r.logger.DatabaseOperation(ctx, "update", "patients", time.Since(start).Milliseconds(), 1, err == nil)

	if err != nil {
		if errors.Is(err, types.ErrPatientNotFound) {
			return nil, types.ErrDuplicateEmail
		}
		return nil, err
	}
	return p, nil
}

// GetByEmail retrieves a patient by email
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*types.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE email = $1`
	return scanPatient(r.db.QueryRowContext(ctx, query, email))
}

// GetByID retrieves a patient by id
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*types.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	return scanPatient(r.db.QueryRowContext(ctx, query, id))
}

// Update applies profile changes in a transaction
func (r *PostgresRepository) Update(ctx context.Context, email string, updates *types.PatientUpdates) (*types.Patient, error) {
	var updated *types.Patient

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		p, err := scanPatient(tx.QueryRowContext(ctx,
			`SELECT `+patientColumns+` FROM patients WHERE email = $1 FOR UPDATE`, email))
		if err != nil {
			return err
		}

		updates.Apply(p)
		p.UpdatedAt = time.Now()

		_, err = tx.ExecContext(ctx, `
			UPDATE patients
			SET name = $2, phone = $3, date_of_birth = $4, gender = $5, address = $6, updated_at = $7
			WHERE id = $1`,
			p.ID, p.Name, p.Phone, p.DateOfBirth, p.Gender, p.Address, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update patient: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Count returns the number of stored patients
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return n, nil
}
