package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/scheduling-engine/internal/config"
	redisclient "github.com/clinicops/scheduling-engine/internal/redis"
)

const (
	EventAppointmentBooked = "APPOINTMENT_BOOKED"
	EventStatusChanged     = "STATUS_CHANGED"
	EventRecordCreated     = "RECORD_CREATED"
	EventAppointmentNoShow = "APPOINTMENT_NO_SHOW"
)

var (
	ErrBookingContended = errors.New("doctor is currently being booked, please retry")
)

// ClinicalInput carries the clinical fields accepted on a status change.
// Diagnosis is mandatory for the completed transition.
type ClinicalInput struct {
	Diagnosis    string
	Prescription *string
	Notes        *string
}

type Service struct {
	repo      Repository
	directory PractitionerDirectory
	locker    redisclient.Locker
	cfg       config.Config

	now func() time.Time
}

func NewService(repo Repository, directory PractitionerDirectory, locker redisclient.Locker, cfg config.Config) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		locker:    locker,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *Service) hours() BusinessHours {
	return BusinessHours{Open: s.cfg.OpenHour, Close: s.cfg.CloseHour}
}

// Book reserves a slot for a patient with a doctor. The overlap check
// and the insert run inside a per-doctor lock so that concurrent
// requests for the same doctor cannot both commit overlapping rows.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, start time.Time, notes *string) (*Appointment, error) {
	now := s.now()
	if !start.After(now) {
		return nil, ErrStartTimeInPast
	}
	if !s.hours().Contains(start) {
		return nil, ErrOutsideBusinessHours
	}

	// Eligibility is a hard precondition, checked before any interval math.
	active, err := s.directory.IsActive(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("check doctor active: %w", err)
	}
	if !active {
		return nil, ErrDoctorUnavailable
	}

	accepting, err := s.directory.IsAcceptingBookings(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("check doctor accepting: %w", err)
	}
	if !accepting {
		return nil, ErrDoctorUnavailable
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	end := start.Add(s.cfg.SlotDuration)

	var created *Appointment

	err = s.locker.WithDoctorLock(ctx, doctorID, func(lockCtx context.Context) error {
		// Inside the critical section re-check for overlapping rows
		conflict, err := s.repo.HasScheduledOverlap(lockCtx, doctorID, start, end, uuid.Nil)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if conflict {
			return ErrSlotTaken
		}

		appt, err := s.repo.CreateScheduledAppointment(lockCtx, patientID, doctorID, start, end, notes)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"doctor_id":  doctorID.String(),
			"patient_id": patientID.String(),
			"start_time": start,
			"end_time":   end,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingContended
		}
		return nil, err
	}

	return created, nil
}

// ChangeStatus drives an appointment through the lifecycle table. The
// completed transition additionally requires a diagnosis and creates
// exactly one clinical record, atomically with the status flip.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, to Status, clinical ClinicalInput) (*Appointment, *ClinicalRecord, error) {
	if !to.Valid() {
		return nil, nil, ErrInvalidStatus
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load appointment: %w", err)
	}

	if !CanTransition(appt.Status, to) {
		return nil, nil, ErrInvalidTransition
	}

	if to == StatusCompleted {
		if strings.TrimSpace(clinical.Diagnosis) == "" {
			return nil, nil, ErrMissingDiagnosis
		}

		apptID := appt.ID
		rec := ClinicalRecord{
			AppointmentID: &apptID,
			PatientID:     appt.PatientID,
			DoctorID:      appt.DoctorID,
			Diagnosis:     strings.TrimSpace(clinical.Diagnosis),
			Prescription:  clinical.Prescription,
			Notes:         clinical.Notes,
		}

		updated, record, err := s.repo.CompleteWithRecord(ctx, appt.ID, rec)
		if err != nil {
			// The compare-and-swap missed: someone moved it out of
			// scheduled between our read and the update.
			if errors.Is(err, ErrAppointmentNotFound) {
				return nil, nil, ErrInvalidTransition
			}
			return nil, nil, fmt.Errorf("complete appointment: %w", err)
		}

		s.logEvent(ctx, updated.ID, EventStatusChanged, map[string]any{
			"from": string(StatusScheduled),
			"to":   string(StatusCompleted),
		})
		s.logEvent(ctx, updated.ID, EventRecordCreated, map[string]any{
			"record_id": record.ID.String(),
		})

		return updated, record, nil
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, nil, ErrInvalidTransition
		}
		return nil, nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventStatusChanged, map[string]any{
		"from": string(appt.Status),
		"to":   string(to),
	})

	return updated, nil, nil
}

// DaySlots computes the bookable view of one day for one doctor. Slots
// are derived on request, nothing is persisted. An inactive or
// non-accepting doctor yields a fully unavailable day rather than an
// error; an unknown doctor is still reported as not found.
func (s *Service) DaySlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	active, err := s.directory.IsActive(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("check doctor active: %w", err)
	}

	accepting := false
	if active {
		accepting, err = s.directory.IsAcceptingBookings(ctx, doctorID)
		if err != nil {
			return nil, fmt.Errorf("check doctor accepting: %w", err)
		}
	}

	times, err := SlotTimes(date, s.hours(), s.cfg.SlotDuration)
	if err != nil {
		return nil, err
	}

	if !active || !accepting {
		slots := make([]Slot, 0, len(times))
		for _, t := range times {
			slots = append(slots, Slot{Time: t, Available: false})
		}
		return slots, nil
	}

	y, m, d := date.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	booked, err := s.repo.ListScheduledBetween(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("list scheduled appointments: %w", err)
	}

	return MarkAvailability(times, s.cfg.SlotDuration, booked, s.now()), nil
}

// MarkOverdueNoShows is intended to be called by the worker periodically.
// Scheduled appointments whose end time passed the grace period are
// moved to no_show, which frees nothing (the slot is already history)
// but keeps reporting honest.
func (s *Service) MarkOverdueNoShows(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.NoShowGrace)

	overdue, err := s.repo.FindOverdueScheduled(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find overdue appointments: %w", err)
	}

	for _, appt := range overdue {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusNoShow)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue
			}
			log.Printf("failed to mark appointment %s as no_show: %v", appt.ID, err)
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentNoShow, map[string]any{
			"reason": "worker",
		})
	}

	return nil
}

// GetAppointment retrieves a fully hydrated appointment by ID
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return detail, nil
}

// ListAppointmentsByPatient retrieves appointments for a specific patient
func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appointments, err := s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID

	ev := AppointmentEvent{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event %s for appointment %s: %v", eventType, appointmentID, err)
	}
}
