package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vinaykumargajjela/care-link-appointments/pkg/config"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/interfaces"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/logger"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/monitoring"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Dependencies are the collaborators of the booking engine
type Dependencies struct {
	Config    config.BookingConfig
	CacheTTL  time.Duration
	Directory interfaces.DirectoryStore
	Identity  interfaces.IdentityService
	Ledger    interfaces.AppointmentLedger
	Cache     interfaces.AppointmentCache
	IDs       IDGenerator
	Metrics   *monitoring.MetricsCollector
	Logger    *logger.Logger
}

// Engine implements the BookingEngine interface
type Engine struct {
	config    config.BookingConfig
	cacheTTL  time.Duration
	directory interfaces.DirectoryStore
	identity  interfaces.IdentityService
	ledger    interfaces.AppointmentLedger
	cache     interfaces.AppointmentCache
	ids       IDGenerator
	metrics   *monitoring.MetricsCollector
	tracer    trace.Tracer
	logger    *logger.Logger
	now       func() time.Time
}

var _ interfaces.BookingEngine = (*Engine)(nil)

// NewEngine creates a new booking engine
func NewEngine(deps Dependencies) *Engine {
	ids := deps.IDs
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Engine{
		config:    deps.Config,
		cacheTTL:  deps.CacheTTL,
		directory: deps.Directory,
		identity:  deps.Identity,
		ledger:    deps.Ledger,
		cache:     deps.Cache,
		ids:       ids,
		metrics:   deps.Metrics,
		tracer:    otel.Tracer("care-link/booking"),
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// outcome turns an error into a metric label
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}

func asInternal(message string, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return types.NewInternalError(types.ErrCodeInternalError, message, err)
}

// Book validates the request, consumes the slot, and records a confirmed
// appointment. Validation short-circuits in this order: required fields,
// doctor, slot, slot availability.
func (e *Engine) Book(ctx context.Context, req *types.BookingRequest) (*types.Appointment, error) {
	ctx, span := e.tracer.Start(ctx, "booking.Book", trace.WithAttributes(
		attribute.String("doctor.id", req.DoctorID),
		attribute.String("slot.id", req.SelectedSlotID),
	))
	defer span.End()

	apt, err := e.book(ctx, req)
	e.metrics.RecordBooking(outcome(err))
	if err != nil {
		monitoring.RecordSpanError(span, err)
		e.logger.Audit(req.PatientEmail, "book_appointment", "doctor:"+req.DoctorID, false, map[string]interface{}{
			"slot_id": req.SelectedSlotID,
			"error":   err.Error(),
		})
		return nil, err
	}

	span.SetAttributes(attribute.String("appointment.id", apt.ID))
	e.logger.Audit(apt.PatientEmail, "book_appointment", "appointment:"+apt.ID, true, map[string]interface{}{
		"doctor_id": apt.DoctorID,
		"slot_id":   apt.SlotID,
		"fees":      apt.Fees,
	})
	return apt, nil
}

func (e *Engine) book(ctx context.Context, req *types.BookingRequest) (*types.Appointment, error) {
	if req.DoctorID == "" || req.PatientName == "" || req.PatientEmail == "" || req.SelectedSlotID == "" {
		return nil, types.ErrMissingFields
	}

	doctor, slot, err := e.directory.ReserveSlot(ctx, req.DoctorID, req.SelectedSlotID)
	if err != nil {
		return nil, err
	}

	patient, err := e.identity.ResolveOrCreate(ctx, req.PatientEmail)
	if err != nil {
		e.releaseSlot(ctx, doctor.ID, slot.ID)
		return nil, asInternal("Failed to resolve patient", err)
	}

	now := e.now()
	apt := &types.Appointment{
		ID:             e.ids.NextID(),
		DoctorID:       doctor.ID,
		DoctorName:     doctor.Name,
		Specialization: doctor.Specialization,
		PatientID:      patient.ID,
		PatientName:    req.PatientName,
		PatientEmail:   req.PatientEmail,
		PatientPhone:   req.PatientPhone,
		SlotID:         slot.ID,
		Date:           slot.Date,
		Time:           slot.Time,
		Reason:         e.reason(req.Reason),
		Fees:           doctor.Fees,
		Status:         types.StatusConfirmed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.ledger.Append(ctx, apt); err != nil {
		if errors.Is(err, types.ErrSlotUnavailable) {
			// Another instance sharing the ledger holds the slot; keep it
			// reserved here too.
			return nil, err
		}
		e.releaseSlot(ctx, doctor.ID, slot.ID)
		e.metrics.RecordSystemError("ledger_append", "booking")
		return nil, asInternal("Failed to book appointment", err)
	}

	e.invalidate(ctx, apt.PatientEmail, apt.PatientID)
	return apt, nil
}

func (e *Engine) reason(requested string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	if e.config.DefaultReason != "" {
		return e.config.DefaultReason
	}
	return types.DefaultReason
}

// releaseSlot undoes a reservation whose booking could not be recorded
func (e *Engine) releaseSlot(ctx context.Context, doctorID, slotID string) {
	if err := e.directory.ReleaseSlot(ctx, doctorID, slotID); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"doctor_id": doctorID,
			"slot_id":   slotID,
		}).Error("Failed to release slot after aborted booking")
	}
}

func (e *Engine) invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := e.cache.Invalidate(ctx, key); err != nil {
			e.logger.WithContext(ctx).WithError(err).Warn("Failed to invalidate appointment cache")
		}
	}
}

// RestoreReservations marks the slot of every active ledger appointment as
// taken in the directory and returns how many slots it reserved. It runs
// before the service accepts bookings.
func (e *Engine) RestoreReservations(ctx context.Context) (int, error) {
	active, err := e.ledger.Active(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load active appointments: %w", err)
	}

	restored := 0
	for _, apt := range active {
		_, _, err := e.directory.ReserveSlot(ctx, apt.DoctorID, apt.SlotID)
		switch {
		case err == nil:
			restored++
		case errors.Is(err, types.ErrSlotUnavailable):
		default:
			e.logger.WithError(err).WithFields(map[string]interface{}{
				"appointment_id": apt.ID,
				"doctor_id":      apt.DoctorID,
				"slot_id":        apt.SlotID,
			}).Warn("Active appointment refers to a slot missing from the directory")
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"active":   len(active),
		"restored": restored,
	}).Info("Restored slot reservations from the appointment ledger")
	return restored, nil
}

// owns reports whether the session belongs to the appointment's patient
func owns(requester *types.SessionClaims, apt *types.Appointment) bool {
	if requester == nil {
		return false
	}
	if requester.Email != "" && requester.Email == apt.PatientEmail {
		return true
	}
	return requester.PatientID != "" && requester.PatientID == apt.PatientID
}

// Cancel moves a confirmed or pending appointment owned by requester to
// cancelled
func (e *Engine) Cancel(ctx context.Context, appointmentID string, requester *types.SessionClaims) (*types.Appointment, error) {
	ctx, span := e.tracer.Start(ctx, "booking.Cancel", trace.WithAttributes(
		attribute.String("appointment.id", appointmentID),
	))
	defer span.End()

	actor := ""
	if requester != nil {
		actor = requester.Email
	}

	apt, err := e.ledger.SetStatus(ctx, appointmentID, types.StatusCancelled, func(current *types.Appointment) error {
		if !owns(requester, current) {
			return types.ErrForbidden
		}
		if current.Status == types.StatusCancelled {
			return types.ErrAlreadyCancelled
		}
		return nil
	})
	e.metrics.RecordCancellation(outcome(err))
	if err != nil {
		monitoring.RecordSpanError(span, err)
		e.logger.Audit(actor, "cancel_appointment", "appointment:"+appointmentID, false, map[string]interface{}{
			"error": err.Error(),
		})
		return nil, asInternal("Failed to cancel appointment", err)
	}

	if e.config.ReopenSlotOnCancel {
		if err := e.directory.ReleaseSlot(ctx, apt.DoctorID, apt.SlotID); err != nil {
			e.logger.WithContext(ctx).WithError(err).Warn("Cancelled appointment's slot could not be reopened")
		}
	}

	e.invalidate(ctx, apt.PatientEmail, apt.PatientID)
	e.logger.Audit(actor, "cancel_appointment", "appointment:"+apt.ID, true, map[string]interface{}{
		"slot_reopened": e.config.ReopenSlotOnCancel,
	})
	return apt, nil
}

// AppointmentsForPatient returns a patient's appointments in booking order,
// served from the cache when possible
func (e *Engine) AppointmentsForPatient(ctx context.Context, key string) ([]*types.Appointment, error) {
	cached, hit, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("Appointment cache read failed, falling back to ledger")
		hit = false
	}
	e.metrics.RecordCacheLookup(hit)
	if hit {
		return cached, nil
	}

	// The version is read before the ledger so that a booking or cancel
	// landing during the read stops the stale list from being cached.
	version, versionErr := e.cache.Version(ctx, key)

	apts, err := e.ledger.FindByPatient(ctx, key)
	if err != nil {
		return nil, asInternal("Failed to fetch appointments", err)
	}

	if versionErr != nil {
		e.logger.WithContext(ctx).WithError(versionErr).Warn("Appointment cache version unavailable, not caching")
		return apts, nil
	}
	stored, err := e.cache.SetIfVersion(ctx, key, version, apts, e.cacheTTL)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("Failed to populate appointment cache")
	} else if !stored {
		e.logger.WithContext(ctx).Debug("Appointments changed during read, cache not populated")
	}
	return apts, nil
}

// InvalidatePatient drops any cached appointment lists for keys
func (e *Engine) InvalidatePatient(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := e.cache.Invalidate(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Stats summarises the ledger
func (e *Engine) Stats(ctx context.Context) (*types.LedgerStats, error) {
	total, err := e.ledger.Count(ctx)
	if err != nil {
		return nil, asInternal("Failed to fetch statistics", err)
	}
	users, err := e.identity.CountPatients(ctx)
	if err != nil {
		return nil, asInternal("Failed to fetch statistics", err)
	}
	today, err := e.ledger.CountCreatedToday(ctx)
	if err != nil {
		return nil, asInternal("Failed to fetch statistics", err)
	}

	limit := e.config.RecentLimit
	if limit <= 0 {
		limit = 5
	}
	recent, err := e.ledger.Recent(ctx, limit)
	if err != nil {
		return nil, asInternal("Failed to fetch statistics", err)
	}

	byStatus := make(map[types.AppointmentStatus]int, 3)
	for _, status := range []types.AppointmentStatus{types.StatusPending, types.StatusConfirmed, types.StatusCancelled} {
		n, err := e.ledger.CountByStatus(ctx, status)
		if err != nil {
			return nil, asInternal("Failed to fetch statistics", err)
		}
		byStatus[status] = n
	}

	return &types.LedgerStats{
		TotalAppointments:  total,
		TotalUsers:         users,
		AppointmentsToday:  today,
		RecentAppointments: recent,
		ByStatus:           byStatus,
	}, nil
}
