package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/vinaykumargajjela/care-link-appointments/internal/directory"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/monitoring"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

const apiRunningMessage = "HealthCare Connect API is running"

// successResponse is the envelope of every successful API response
type successResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
	Token   string      `json:"token,omitempty"`
}

// errorResponse is the envelope of every failed API response
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// doctorView adds the recomputed open slot count to a catalog entry
type doctorView struct {
	*types.Doctor
	OpenSlots int `json:"openSlots"`
}

func newDoctorView(d *types.Doctor) doctorView {
	return doctorView{Doctor: d, OpenSlots: d.OpenSlots()}
}

type healthResponse struct {
	Success   bool                     `json:"success"`
	Message   string                   `json:"message"`
	Timestamp time.Time                `json:"timestamp"`
	Stats     healthStats              `json:"stats"`
	Status    monitoring.HealthStatus  `json:"status"`
	Checks    []monitoring.HealthCheck `json:"checks"`
}

type healthStats struct {
	TotalAppointments int `json:"totalAppointments"`
	TotalUsers        int `json:"totalUsers"`
}

// handleListDoctors handles GET /api/doctors
func (s *Service) handleListDoctors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := &types.DoctorQuery{
		Text:           q.Get("search"),
		Specialization: q.Get("specialization"),
	}
	if raw := q.Get("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid value for available")
			return
		}
		query.AvailableOnly = available
	}

	doctors, err := s.directory.Search(r.Context(), query)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	views := make([]doctorView, 0, len(doctors))
	for _, d := range doctors {
		views = append(views, newDoctorView(d))
	}
	s.writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Data:    views,
		Message: "Doctors fetched successfully",
	})
}

// handleGetDoctor handles GET /api/doctors/{id}
func (s *Service) handleGetDoctor(w http.ResponseWriter, r *http.Request) {
	doctor, err := s.directory.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Data:    newDoctorView(doctor),
		Message: "Doctor fetched successfully",
	})
}

// handleSpecializations handles GET /api/specializations
func (s *Service) handleSpecializations(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Data:    directory.Specializations,
		Message: "Specializations fetched successfully",
	})
}

// handleBookAppointment handles POST /api/appointments
func (s *Service) handleBookAppointment(w http.ResponseWriter, r *http.Request) {
	var req types.BookingRequest
	if !s.decode(w, r, &req) {
		return
	}

	apt, err := s.booking.Book(r.Context(), &req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, successResponse{
		Success: true,
		Data:    apt,
		Message: "Appointment booked successfully",
	})
}

// handleListAppointments handles GET /api/appointments/{userId}. userId is
// a patient email or patient id.
func (s *Service) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	apts, err := s.booking.AppointmentsForPatient(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if apts == nil {
		apts = []*types.Appointment{}
	}
	s.writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Data:    apts,
		Message: "Appointments fetched successfully",
	})
}

// handleCancelAppointment handles POST /api/appointments/{id}/cancel. Only
// the patient who owns the appointment may cancel it.
func (s *Service) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	claims, _ := sessionFromContext(r.Context())
	apt, err := s.booking.Cancel(r.Context(), mux.Vars(r)["id"], claims)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Data:    apt,
		Message: "Appointment cancelled successfully",
	})
}

// handleRegister handles POST /api/auth/register
func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}

	patient, err := s.identity.Register(r.Context(), &req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusCreated, patient, "User registered successfully")
}

// handleLogin handles POST /api/auth/login
func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if !s.decode(w, r, &req) {
		return
	}

	patient, err := s.identity.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, types.ErrMissingFields) {
			s.writeError(w, http.StatusBadRequest, "Email and password are required")
			return
		}
		s.writeAppError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusOK, patient, "Login successful")
}

// handleLogout handles POST /api/auth/logout. Sessions are stateless, so
// logout only drops the patient's cached appointment list.
func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := sessionFromContext(r.Context())
	if err := s.booking.InvalidatePatient(r.Context(), claims.Email, claims.PatientID); err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Warn("Failed to invalidate appointment cache on logout")
	}
	s.logger.Audit(claims.Email, "logout", "patient:"+claims.PatientID, true, nil)
	s.writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Data:    nil,
		Message: "Logged out successfully",
	})
}

// handleUpdateProfile handles PUT /api/auth/profile
func (s *Service) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := sessionFromContext(r.Context())

	var updates types.PatientUpdates
	if !s.decode(w, r, &updates) {
		return
	}

	patient, err := s.identity.UpdateProfile(r.Context(), claims.Email, &updates)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Data:    patient,
		Message: "Profile updated successfully",
	})
}

// handleHealth handles GET /api/health
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.CheckHealth(r.Context())

	resp := healthResponse{
		Success:   report.Status != monitoring.HealthStatusUnhealthy,
		Message:   apiRunningMessage,
		Timestamp: report.Timestamp,
		Status:    report.Status,
		Checks:    report.Checks,
	}

	stats, err := s.booking.Stats(r.Context())
	if err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Warn("Health check could not read ledger statistics")
		resp.Success = false
		resp.Status = monitoring.HealthStatusUnhealthy
	} else {
		resp.Stats = healthStats{
			TotalAppointments: stats.TotalAppointments,
			TotalUsers:        stats.TotalUsers,
		}
	}

	status := http.StatusOK
	if resp.Status == monitoring.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

// handleStats handles GET /api/stats
func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.booking.Stats(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Data:    stats,
		Message: "Statistics fetched successfully",
	})
}

// handleNotFound answers unmatched routes
func (s *Service) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
		s.writeError(w, http.StatusNotFound, "API endpoint not found")
		return
	}
	http.NotFound(w, r)
}

// writeSession issues a bearer token for patient and writes it with the
// patient record
func (s *Service) writeSession(w http.ResponseWriter, r *http.Request, status int, patient *types.Patient, message string) {
	token, _, err := s.tokens.Issue(patient)
	if err != nil {
		s.writeAppError(w, r, types.NewInternalError(types.ErrCodeInternalError, "Failed to issue session token", err))
		return
	}
	s.writeJSON(w, status, successResponse{
		Success: true,
		Data:    patient,
		Message: message,
		Token:   token,
	})
}

// decode reads a JSON request body into v, answering 400 on failure
func (s *Service) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeJSON writes a JSON response
func (s *Service) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError writes a failed envelope with a human readable message
func (s *Service) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, errorResponse{Success: false, Message: message})
}

// writeAppError maps an error from the booking core onto an HTTP status
func (s *Service) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Type == types.ErrorTypeInternal {
		s.logger.WithContext(r.Context()).WithError(err).Error("Request failed")
		s.writeInternalError(w, err)
		return
	}

	s.writeJSON(w, statusForError(appErr.Type), errorResponse{
		Success: false,
		Message: appErr.Message,
		Code:    appErr.Code,
	})
}

// writeInternalError writes a 500; the detail is hidden in production
func (s *Service) writeInternalError(w http.ResponseWriter, err error) {
	detail := "Something went wrong"
	if !s.config.IsProduction() {
		detail = err.Error()
	}
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{
		Success: false,
		Message: "Internal server error",
		Error:   detail,
	})
}

// statusForError maps error types to HTTP status codes
func statusForError(t types.ErrorType) int {
	switch t {
	case types.ErrorTypeValidation:
		return http.StatusBadRequest
	case types.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case types.ErrorTypeAuthorization:
		return http.StatusForbidden
	case types.ErrorTypeNotFound:
		return http.StatusNotFound
	case types.ErrorTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
