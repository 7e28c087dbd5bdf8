package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/interfaces"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

func sampleAppointment(id, email string, createdAt time.Time) *types.Appointment {
	return &types.Appointment{
		ID:             id,
		DoctorID:       "1",
		DoctorName:     "Dr. Sarah Johnson",
		Specialization: "General Medicine",
		PatientID:      "USER-" + email,
		PatientName:    "Jane",
		PatientEmail:   email,
		PatientPhone:   "555-0001",
		SlotID:         "slot-" + id,
		Date:           "2024-08-05",
		Time:           "09:00 AM",
		Reason:         types.DefaultReason,
		Fees:           150,
		Status:         types.StatusConfirmed,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func appointmentIDs(apts []*types.Appointment) []string {
	out := make([]string, len(apts))
	for i, a := range apts {
		out[i] = a.ID
	}
	return out
}

// runLedgerContract exercises behaviour every ledger backend must share.
func runLedgerContract(t *testing.T, newLedger func(t *testing.T) interfaces.AppointmentLedger) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Microsecond)

	t.Run("append and get", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Append(ctx, sampleAppointment("APT-1", "jane@x.com", now)))

		got, err := l.Get(ctx, "APT-1")
		require.NoError(t, err)
		assert.Equal(t, "Dr. Sarah Johnson", got.DoctorName)
		assert.Equal(t, 150.0, got.Fees)
		assert.Equal(t, types.StatusConfirmed, got.Status)

		_, err = l.Get(ctx, "APT-missing")
		assert.ErrorIs(t, err, types.ErrAppointmentNotFound)
	})

	t.Run("find by patient keeps insertion order", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Append(ctx, sampleAppointment("APT-b", "jane@x.com", now)))
		require.NoError(t, l.Append(ctx, sampleAppointment("APT-a", "other@x.com", now)))
		require.NoError(t, l.Append(ctx, sampleAppointment("APT-c", "jane@x.com", now.Add(-time.Hour))))

		found, err := l.FindByPatient(ctx, "jane@x.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"APT-b", "APT-c"}, appointmentIDs(found))

		byID, err := l.FindByPatient(ctx, "USER-other@x.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"APT-a"}, appointmentIDs(byID))

		none, err := l.FindByPatient(ctx, "JANE@x.com")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("recent returns the last n oldest first", func(t *testing.T) {
		l := newLedger(t)
		for i := 1; i <= 7; i++ {
			require.NoError(t, l.Append(ctx, sampleAppointment(fmt.Sprintf("APT-%d", i), "jane@x.com", now)))
		}

		recent, err := l.Recent(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"APT-3", "APT-4", "APT-5", "APT-6", "APT-7"}, appointmentIDs(recent))

		all, err := l.Recent(ctx, 50)
		require.NoError(t, err)
		assert.Len(t, all, 7)

		none, err := l.Recent(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("set status honours guard", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Append(ctx, sampleAppointment("APT-1", "jane@x.com", now)))

		blocked := types.NewConflictError("BLOCKED", "blocked")
		_, err := l.SetStatus(ctx, "APT-1", types.StatusCancelled, func(current *types.Appointment) error {
			assert.Equal(t, types.StatusConfirmed, current.Status)
			return blocked
		})
		assert.ErrorIs(t, err, blocked)

		got, err := l.Get(ctx, "APT-1")
		require.NoError(t, err)
		assert.Equal(t, types.StatusConfirmed, got.Status)

		updated, err := l.SetStatus(ctx, "APT-1", types.StatusCancelled, nil)
		require.NoError(t, err)
		assert.Equal(t, types.StatusCancelled, updated.Status)
		assert.Equal(t, "2024-08-05", updated.Date)
		assert.Equal(t, 150.0, updated.Fees)

		_, err = l.SetStatus(ctx, "APT-missing", types.StatusCancelled, nil)
		assert.ErrorIs(t, err, types.ErrAppointmentNotFound)
	})

	t.Run("concurrent guarded transitions apply once", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Append(ctx, sampleAppointment("APT-1", "jane@x.com", now)))

		guard := func(current *types.Appointment) error {
			if current.Status == types.StatusCancelled {
				return types.ErrAlreadyCancelled
			}
			return nil
		}

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := l.SetStatus(ctx, "APT-1", types.StatusCancelled, guard); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, types.ErrAlreadyCancelled)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, successes)
	})

	t.Run("one active appointment per slot", func(t *testing.T) {
		l := newLedger(t)
		first := sampleAppointment("APT-1", "a@x.com", now)
		first.SlotID = "1-1"
		require.NoError(t, l.Append(ctx, first))

		second := sampleAppointment("APT-2", "b@x.com", now)
		second.SlotID = "1-1"
		assert.ErrorIs(t, l.Append(ctx, second), types.ErrSlotUnavailable)

		otherDoctor := sampleAppointment("APT-3", "c@x.com", now)
		otherDoctor.DoctorID = "2"
		otherDoctor.SlotID = "1-1"
		require.NoError(t, l.Append(ctx, otherDoctor))

		// Cancelling frees the slot for a new booking.
		_, err := l.SetStatus(ctx, "APT-1", types.StatusCancelled, nil)
		require.NoError(t, err)
		require.NoError(t, l.Append(ctx, second))

		confirmed, err := l.CountByStatus(ctx, types.StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, 2, confirmed)
	})

	t.Run("active skips cancelled appointments", func(t *testing.T) {
		l := newLedger(t)
		for i := 1; i <= 3; i++ {
			require.NoError(t, l.Append(ctx, sampleAppointment(fmt.Sprintf("APT-%d", i), "jane@x.com", now)))
		}
		_, err := l.SetStatus(ctx, "APT-2", types.StatusCancelled, nil)
		require.NoError(t, err)

		active, err := l.Active(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"APT-1", "APT-3"}, appointmentIDs(active))
	})

	t.Run("counts", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Append(ctx, sampleAppointment("APT-1", "a@x.com", now)))
		require.NoError(t, l.Append(ctx, sampleAppointment("APT-2", "b@x.com", now)))
		require.NoError(t, l.Append(ctx, sampleAppointment("APT-3", "c@x.com", now.AddDate(0, 0, -2))))
		_, err := l.SetStatus(ctx, "APT-2", types.StatusCancelled, nil)
		require.NoError(t, err)

		total, err := l.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, total)

		confirmed, err := l.CountByStatus(ctx, types.StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, 2, confirmed)

		cancelled, err := l.CountByStatus(ctx, types.StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, 1, cancelled)

		today, err := l.CountCreatedToday(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, today)
	})
}
