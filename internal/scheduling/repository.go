package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	ErrDoctorUnavailable = errors.New("doctor is not accepting bookings")
	ErrSlotTaken         = errors.New("requested time overlaps an existing appointment")
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrStartTimeInPast      = errors.New("start time must be in the future")
	ErrOutsideBusinessHours = errors.New("start time is outside business hours")
	ErrMissingDiagnosis     = errors.New("diagnosis is required to complete an appointment")
	ErrInvalidStatus        = errors.New("unknown appointment status")
	ErrInvalidSlotDuration  = errors.New("slot duration must be positive")
	ErrInvalidBusinessHours = errors.New("business hours window is invalid")
)

// PractitionerDirectory answers eligibility questions about doctors.
// Both methods return ErrDoctorNotFound for unknown ids.
type PractitionerDirectory interface {
	IsActive(ctx context.Context, doctorID uuid.UUID) (bool, error)
	IsAcceptingBookings(ctx context.Context, doctorID uuid.UUID) (bool, error)
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error)

	// Conflict checks. Overlap is the half-open interval test against
	// scheduled rows for the doctor; exclude (uuid.Nil for none) lets an
	// update re-check without colliding with itself.
	ListScheduledBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)
	HasScheduledOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, exclude uuid.UUID) (bool, error)

	// Creation and updates. UpdateAppointmentStatus is compare-and-swap:
	// it fails with ErrAppointmentNotFound when the row is no longer in
	// the from status. CompleteWithRecord applies the same swap and the
	// clinical record insert as one atomic unit.
	CreateScheduledAppointment(ctx context.Context, patientID, doctorID uuid.UUID, start, end time.Time, notes *string) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	CompleteWithRecord(ctx context.Context, id uuid.UUID, rec ClinicalRecord) (*Appointment, *ClinicalRecord, error)

	// No-show worker
	FindOverdueScheduled(ctx context.Context, endedBefore time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev AppointmentEvent) error
}
