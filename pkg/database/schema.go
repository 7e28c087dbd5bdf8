package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the tables backing the patient repository and the
// appointment ledger. Statements are idempotent.
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.WithComponent("database").Info("Creating database schema...")

	statements := []string{
		createPatientsTable,
		createAppointmentsTable,
		createAppointmentsIndexes,
		createActiveSlotIndex,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	db.logger.WithComponent("database").Info("Database schema created successfully")
	return nil
}

// SQL DDL statements for table creation
const (
	createPatientsTable = `
		CREATE TABLE IF NOT EXISTS patients (
			id VARCHAR(64) PRIMARY KEY,
			email VARCHAR(320) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(64) NOT NULL DEFAULT '',
			date_of_birth VARCHAR(32) NOT NULL DEFAULT '',
			gender VARCHAR(32) NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			password_hash VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	// seq is the insertion order; it is the ledger's only notion of recency.
	createAppointmentsTable = `
		CREATE TABLE IF NOT EXISTS appointments (
			seq BIGSERIAL UNIQUE,
			id VARCHAR(64) PRIMARY KEY,
			doctor_id VARCHAR(64) NOT NULL,
			doctor_name VARCHAR(255) NOT NULL,
			specialization VARCHAR(255) NOT NULL,
			patient_id VARCHAR(64) NOT NULL DEFAULT '',
			patient_name VARCHAR(255) NOT NULL,
			patient_email VARCHAR(320) NOT NULL,
			patient_phone VARCHAR(64) NOT NULL DEFAULT '',
			slot_id VARCHAR(64) NOT NULL,
			slot_date VARCHAR(32) NOT NULL,
			slot_time VARCHAR(32) NOT NULL,
			reason TEXT NOT NULL,
			fees NUMERIC(12,2) NOT NULL CHECK (fees >= 0),
			status VARCHAR(16) NOT NULL CHECK (status IN ('pending', 'confirmed', 'cancelled')),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`

	createAppointmentsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_appointments_patient_email ON appointments(patient_email);
		CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status);
		CREATE INDEX IF NOT EXISTS idx_appointments_created_at ON appointments(created_at);`

	// At most one active appointment may hold a slot. Replicas and restarts
	// share this table, so it backs the in-memory slot flags.
	createActiveSlotIndex = `
		CREATE UNIQUE INDEX IF NOT EXISTS ` + ActiveSlotIndex + `
		ON appointments(doctor_id, slot_id) WHERE status <> 'cancelled';`
)

// ActiveSlotIndex names the unique index over the slots of non-cancelled
// appointments
const ActiveSlotIndex = "idx_appointments_active_slot"
