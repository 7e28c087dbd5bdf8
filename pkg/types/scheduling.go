package types

import "time"

// AppointmentStatus represents appointment status values
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// DefaultReason is recorded when a booking carries no reason.
const DefaultReason = "General consultation"

// Appointment is a booked slot. Doctor and slot fields are copied at
// booking time; only Status and UpdatedAt change afterwards.
type Appointment struct {
	ID             string            `json:"id" db:"id"`
	DoctorID       string            `json:"doctorId" db:"doctor_id"`
	DoctorName     string            `json:"doctorName" db:"doctor_name"`
	Specialization string            `json:"specialization" db:"specialization"`
	PatientID      string            `json:"patientId,omitempty" db:"patient_id"`
	PatientName    string            `json:"patientName" db:"patient_name"`
	PatientEmail   string            `json:"patientEmail" db:"patient_email"`
	PatientPhone   string            `json:"patientPhone" db:"patient_phone"`
	SlotID         string            `json:"selectedSlot" db:"slot_id"`
	Date           string            `json:"date" db:"slot_date"`
	Time           string            `json:"time" db:"slot_time"`
	Reason         string            `json:"reason" db:"reason"`
	Fees           float64           `json:"fees" db:"fees"`
	Status         AppointmentStatus `json:"status" db:"status"`
	CreatedAt      time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time         `json:"updatedAt" db:"updated_at"`
}

// Clone returns a copy of the appointment.
func (a *Appointment) Clone() *Appointment {
	cp := *a
	return &cp
}

// BookingRequest is the input of a booking. Client-sent doctor name,
// specialization and fee are ignored; the catalog is authoritative.
type BookingRequest struct {
	DoctorID       string  `json:"doctorId"`
	DoctorName     string  `json:"doctorName,omitempty"`
	Specialization string  `json:"specialization,omitempty"`
	PatientName    string  `json:"patientName"`
	PatientEmail   string  `json:"patientEmail"`
	PatientPhone   string  `json:"patientPhone"`
	SelectedSlotID string  `json:"selectedSlot"`
	Reason         string  `json:"reason,omitempty"`
	Fees           float64 `json:"fees,omitempty"`
}

// LedgerStats summarises the appointment ledger
type LedgerStats struct {
	TotalAppointments  int                       `json:"totalAppointments"`
	TotalUsers         int                       `json:"totalUsers"`
	AppointmentsToday  int                       `json:"appointmentsToday"`
	RecentAppointments []*Appointment            `json:"recentAppointments"`
	ByStatus           map[AppointmentStatus]int `json:"byStatus"`
}
