package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID                uuid.UUID
	Name              string
	Specialty         *string
	Active            bool
	AcceptingBookings bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Status    Status
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClinicalRecord is created exactly once when an appointment completes.
// AppointmentID is a weak reference, records may outlive the appointment row.
type ClinicalRecord struct {
	ID            uuid.UUID
	AppointmentID *uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	Diagnosis     string
	Prescription  *string
	Notes         *string
	CreatedAt     time.Time
}

// Slot is a derived view, never persisted.
type Slot struct {
	Time      time.Time
	Available bool
}

type AppointmentEvent struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type AppointmentDetail struct {
	Appointment
	Patient *Patient
	Doctor  *Doctor
}
