package ledger

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
	"github.com/vinaykumargajjela/care-link-appointments/pkg/monitoring"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

// PostgresLedger implements the appointment ledger on PostgreSQL. The seq
// column carries insertion order.
type PostgresLedger struct {
	db      *database.DB
	metrics *monitoring.MetricsCollector
	logger  *logger.Logger
	now     func() time.Time
}

var _ interfaces.AppointmentLedger = (*PostgresLedger)(nil)

// NewPostgresLedger creates a new PostgreSQL-backed ledger
func NewPostgresLedger(db *database.DB, metrics *monitoring.MetricsCollector, log *logger.Logger) *PostgresLedger {
	return &PostgresLedger{
		db:      db,
		metrics: metrics,
		logger:  log,
		now:     time.Now,
	}
}

const appointmentColumns = `id, doctor_id, doctor_name, specialization, patient_id, patient_name,
	patient_email, patient_phone, slot_id, slot_date, slot_time, reason, fees, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*types.Appointment, error) {
	var apt types.Appointment
	err := row.Scan(
		&apt.ID,
		&apt.DoctorID,
		&apt.DoctorName,
		&apt.Specialization,
		&apt.PatientID,
		&apt.PatientName,
		&apt.PatientEmail,
		&apt.PatientPhone,
		&apt.SlotID,
		&apt.Date,
		&apt.Time,
		&apt.Reason,
		&apt.Fees,
		&apt.Status,
		&apt.CreatedAt,
		&apt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to scan appointment: %w", err)
	}
	return &apt, nil
}

func (l *PostgresLedger) observe(op string, start time.Time) {
	l.metrics.RecordDBQuery(op, time.Since(start))
}

func (l *PostgresLedger) queryList(ctx context.Context, op, query string, args ...interface{}) ([]*types.Appointment, error) {
	defer l.observe(op, time.Now())

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	out := make([]*types.Appointment, 0)
	for rows.Next() {
		apt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, apt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}
	return out, nil
}

// Append inserts an appointment
func (l *PostgresLedger) Append(ctx context.Context, apt *types.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	start := time.Now()
	_, err := l.db.ExecContext(ctx, query,
		apt.ID,
		apt.DoctorID,
		apt.DoctorName,
		apt.Specialization,
		apt.PatientID,
		apt.PatientName,
		apt.PatientEmail,
		apt.PatientPhone,
		apt.SlotID,
		apt.Date,
		apt.Time,
		apt.Reason,
		apt.Fees,
		apt.Status,
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	l.observe("insert", start)
	l.logger.DatabaseOperation(ctx, "insert", "appointments", time.Since(start).Milliseconds(), 1, err == nil)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			if pqErr.Constraint == database.ActiveSlotIndex {
				return types.ErrSlotUnavailable
			}
			return types.NewConflictError("DUPLICATE_APPOINTMENT", "Appointment already exists")
		}
		return fmt.Errorf("failed to append appointment: %w", err)
	}
	return nil
}

// Get retrieves an appointment by id
func (l *PostgresLedger) Get(ctx context.Context, id string) (*types.Appointment, error) {
	defer l.observe("select", time.Now())
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	return scanAppointment(l.db.QueryRowContext(ctx, query, id))
}

// SetStatus locks the row, runs guard, and updates the status in one transaction
func (l *PostgresLedger) SetStatus(ctx context.Context, id string, status types.AppointmentStatus, guard interfaces.StatusGuard) (*types.Appointment, error) {
	defer l.observe("update", time.Now())

	var updated *types.Appointment
	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		apt, err := scanAppointment(tx.QueryRowContext(ctx,
			`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		if guard != nil {
			if err := guard(apt.Clone()); err != nil {
				return err
			}
		}

		apt.Status = status
		apt.UpdatedAt = l.now()
		if _, err := tx.ExecContext(ctx,
			`UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1`,
			apt.ID, apt.Status, apt.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to update appointment status: %w", err)
		}
		updated = apt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// FindByPatient returns the appointments whose patient email or patient id
// equals key, in insertion order
func (l *PostgresLedger) FindByPatient(ctx context.Context, key string) ([]*types.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_email = $1 OR (patient_id <> '' AND patient_id = $1)
		ORDER BY seq`
	return l.queryList(ctx, "select", query, key)
}

// Active returns every appointment that still holds its slot, in insertion order
func (l *PostgresLedger) Active(ctx context.Context) ([]*types.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status <> $1
		ORDER BY seq`
	return l.queryList(ctx, "select", query, types.StatusCancelled)
}

// Recent returns up to n of the latest appointments, oldest first
func (l *PostgresLedger) Recent(ctx context.Context, n int) ([]*types.Appointment, error) {
	if n <= 0 {
		return []*types.Appointment{}, nil
	}
	query := `
		SELECT ` + appointmentColumns + `
		FROM (
			SELECT seq, ` + appointmentColumns + `
			FROM appointments
			ORDER BY seq DESC
			LIMIT $1
		) latest
		ORDER BY seq`
	return l.queryList(ctx, "select", query, n)
}

func (l *PostgresLedger) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	defer l.observe("count", time.Now())

	var n int
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return n, nil
}

// CountByStatus counts appointments in the given status
func (l *PostgresLedger) CountByStatus(ctx context.Context, status types.AppointmentStatus) (int, error) {
	return l.count(ctx, `SELECT COUNT(*) FROM appointments WHERE status = $1`, status)
}

// CountCreatedToday counts appointments created on the server's current local date
func (l *PostgresLedger) CountCreatedToday(ctx context.Context) (int, error) {
	start, end := DayBounds(l.now())
	return l.count(ctx, `SELECT COUNT(*) FROM appointments WHERE created_at >= $1 AND created_at < $2`, start, end)
}

// Count returns the total number of appointments
func (l *PostgresLedger) Count(ctx context.Context) (int, error) {
	return l.count(ctx, `SELECT COUNT(*) FROM appointments`)
}
