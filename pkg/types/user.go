package types

import "time"

// Patient represents a registered or synthesized user of the booking site
type Patient struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	Phone        string    `json:"phone" db:"phone"`
	DateOfBirth  string    `json:"dateOfBirth,omitempty" db:"date_of_birth"`
	Gender       string    `json:"gender,omitempty" db:"gender"`
	Address      string    `json:"address,omitempty" db:"address"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Clone returns a copy of the patient.
func (p *Patient) Clone() *Patient {
	cp := *p
	return &cp
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PatientUpdates represents profile changes. Email and ID cannot change.
type PatientUpdates struct {
	Name        *string `json:"name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	Address     *string `json:"address,omitempty"`
}

// Apply copies the non-nil updates onto p.
func (u *PatientUpdates) Apply(p *Patient) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.DateOfBirth != nil {
		p.DateOfBirth = *u.DateOfBirth
	}
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	if u.Address != nil {
		p.Address = *u.Address
	}
}

// SessionClaims identifies the patient behind a bearer token
type SessionClaims struct {
	PatientID string `json:"patient_id"`
	Email     string `json:"email"`
}
