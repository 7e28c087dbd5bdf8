package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/config"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/database"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/logger"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/monitoring"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

var appointmentRowColumns = []string{
	"id", "doctor_id", "doctor_name", "specialization", "patient_id", "patient_name",
	"patient_email", "patient_phone", "slot_id", "slot_date", "slot_time", "reason",
	"fees", "status", "created_at", "updated_at",
}

func addAppointmentRow(rows *sqlmock.Rows, apt *types.Appointment) *sqlmock.Rows {
	return rows.AddRow(
		apt.ID, apt.DoctorID, apt.DoctorName, apt.Specialization, apt.PatientID, apt.PatientName,
		apt.PatientEmail, apt.PatientPhone, apt.SlotID, apt.Date, apt.Time, apt.Reason,
		apt.Fees, string(apt.Status), apt.CreatedAt, apt.UpdatedAt,
	)
}

func setupPostgresLedger(t *testing.T) (*PostgresLedger, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.Wrap(sqlDB, &config.DatabaseConfig{}, logger.NewNop())
	return NewPostgresLedger(db, monitoring.NewMetricsCollector("ledger-test"), logger.NewNop()), mock
}

func TestPostgresLedger_Append(t *testing.T) {
	l, mock := setupPostgresLedger(t)
	apt := sampleAppointment("APT-1", "jane@x.com", time.Now())

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(apt.ID, apt.DoctorID, apt.DoctorName, apt.Specialization, apt.PatientID, apt.PatientName,
			apt.PatientEmail, apt.PatientPhone, apt.SlotID, apt.Date, apt.Time, apt.Reason,
			apt.Fees, apt.Status, apt.CreatedAt, apt.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, l.Append(context.Background(), apt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_AppendDuplicate(t *testing.T) {
	l, mock := setupPostgresLedger(t)

	mock.ExpectExec("INSERT INTO appointments").WillReturnError(&pq.Error{Code: "23505"})

	err := l.Append(context.Background(), sampleAppointment("APT-1", "jane@x.com", time.Now()))
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrorTypeConflict, appErr.Type)
	assert.Equal(t, "DUPLICATE_APPOINTMENT", appErr.Code)
}

func TestPostgresLedger_AppendTakenSlot(t *testing.T) {
	l, mock := setupPostgresLedger(t)

	mock.ExpectExec("INSERT INTO appointments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: database.ActiveSlotIndex})

	err := l.Append(context.Background(), sampleAppointment("APT-2", "b@x.com", time.Now()))
	assert.ErrorIs(t, err, types.ErrSlotUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_Active(t *testing.T) {
	l, mock := setupPostgresLedger(t)

	rows := sqlmock.NewRows(appointmentRowColumns)
	addAppointmentRow(rows, sampleAppointment("APT-1", "a@x.com", time.Now()))
	mock.ExpectQuery(`SELECT .* FROM appointments WHERE status <> \$1 ORDER BY seq`).
		WithArgs(types.StatusCancelled).
		WillReturnRows(rows)

	active, err := l.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"APT-1"}, appointmentIDs(active))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_Get_NotFound(t *testing.T) {
	l, mock := setupPostgresLedger(t)

	mock.ExpectQuery(`SELECT .* FROM appointments WHERE id = \$1`).
		WithArgs("APT-x").
		WillReturnRows(sqlmock.NewRows(appointmentRowColumns))

	_, err := l.Get(context.Background(), "APT-x")
	assert.ErrorIs(t, err, types.ErrAppointmentNotFound)
}

func TestPostgresLedger_FindByPatient(t *testing.T) {
	l, mock := setupPostgresLedger(t)
	now := time.Now()

	rows := sqlmock.NewRows(appointmentRowColumns)
	addAppointmentRow(rows, sampleAppointment("APT-1", "jane@x.com", now))
	addAppointmentRow(rows, sampleAppointment("APT-2", "jane@x.com", now))
	mock.ExpectQuery(`SELECT .* FROM appointments WHERE patient_email = \$1 .* ORDER BY seq`).
		WithArgs("jane@x.com").
		WillReturnRows(rows)

	found, err := l.FindByPatient(context.Background(), "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"APT-1", "APT-2"}, appointmentIDs(found))
	assert.Equal(t, types.StatusConfirmed, found[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_Recent(t *testing.T) {
	l, mock := setupPostgresLedger(t)

	rows := sqlmock.NewRows(appointmentRowColumns)
	addAppointmentRow(rows, sampleAppointment("APT-4", "a@x.com", time.Now()))
	addAppointmentRow(rows, sampleAppointment("APT-5", "a@x.com", time.Now()))
	mock.ExpectQuery(`ORDER BY seq DESC LIMIT \$1 \) latest ORDER BY seq`).
		WithArgs(5).
		WillReturnRows(rows)

	recent, err := l.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"APT-4", "APT-5"}, appointmentIDs(recent))
}

func TestPostgresLedger_SetStatus(t *testing.T) {
	l, mock := setupPostgresLedger(t)
	apt := sampleAppointment("APT-1", "jane@x.com", time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM appointments WHERE id = \$1 FOR UPDATE`).
		WithArgs("APT-1").
		WillReturnRows(addAppointmentRow(sqlmock.NewRows(appointmentRowColumns), apt))
	mock.ExpectExec("UPDATE appointments SET status").
		WithArgs("APT-1", types.StatusCancelled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := l.SetStatus(context.Background(), "APT-1", types.StatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, updated.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_SetStatus_GuardRollsBack(t *testing.T) {
	l, mock := setupPostgresLedger(t)
	apt := sampleAppointment("APT-1", "jane@x.com", time.Now())
	apt.Status = types.StatusCancelled

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM appointments WHERE id = \$1 FOR UPDATE`).
		WithArgs("APT-1").
		WillReturnRows(addAppointmentRow(sqlmock.NewRows(appointmentRowColumns), apt))
	mock.ExpectRollback()

	_, err := l.SetStatus(context.Background(), "APT-1", types.StatusCancelled, func(current *types.Appointment) error {
		if current.Status == types.StatusCancelled {
			return types.ErrAlreadyCancelled
		}
		return nil
	})
	assert.ErrorIs(t, err, types.ErrAlreadyCancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_Counts(t *testing.T) {
	l, mock := setupPostgresLedger(t)
	ctx := context.Background()
	fixed := time.Date(2024, 8, 5, 12, 0, 0, 0, time.Local)
	l.now = func() time.Time { return fixed }

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments WHERE status = \$1`).
		WithArgs(types.StatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments WHERE created_at >= \$1 AND created_at < \$2`).
		WithArgs(time.Date(2024, 8, 5, 0, 0, 0, 0, time.Local), time.Date(2024, 8, 6, 0, 0, 0, 0, time.Local)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	confirmed, err := l.CountByStatus(ctx, types.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, 4, confirmed)

	today, err := l.CountCreatedToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, today)

	total, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
