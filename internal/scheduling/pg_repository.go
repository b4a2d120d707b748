package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var specialty *string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&specialty,
		&d.Active,
		&d.AcceptingBookings,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Specialty = specialty
	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Notes = notes
	return &a, nil
}

func scanRecord(row pgx.Row) (*ClinicalRecord, error) {
	var r ClinicalRecord
	var appointmentID *uuid.UUID
	var prescription, notes *string

	err := row.Scan(
		&r.ID,
		&appointmentID,
		&r.PatientID,
		&r.DoctorID,
		&r.Diagnosis,
		&prescription,
		&notes,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.AppointmentID = appointmentID
	r.Prescription = prescription
	r.Notes = notes
	return &r, nil
}

const appointmentColumns = `id, patient_id, doctor_id, start_time, end_time, status, notes, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, active, accepting_bookings, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) IsActive(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	doctor, err := r.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return false, err
	}
	return doctor.Active, nil
}

func (r *PgRepository) IsAcceptingBookings(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	doctor, err := r.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return false, err
	}
	return doctor.AcceptingBookings, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListScheduledBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND status = 'scheduled'
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) HasScheduledOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, exclude uuid.UUID) (bool, error) {
	var excludeID *uuid.UUID
	if exclude != uuid.Nil {
		excludeID = &exclude
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE doctor_id = $1
			  AND status = 'scheduled'
			  AND start_time < $3
			  AND end_time > $2
			  AND ($4::uuid IS NULL OR id <> $4)
		)
	`, doctorID, start, end, excludeID).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *PgRepository) CreateScheduledAppointment(ctx context.Context, patientID, doctorID uuid.UUID, start, end time.Time, notes *string) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, start_time, end_time, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'scheduled', $6, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, patientID, doctorID, start, end, notes)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

// CompleteWithRecord flips the appointment to completed and inserts the
// clinical record in one transaction. Either both land or neither does.
// The status update is a compare-and-swap from scheduled, so a
// concurrent transition surfaces as ErrAppointmentNotFound.
func (r *PgRepository) CompleteWithRecord(ctx context.Context, id uuid.UUID, rec ClinicalRecord) (*Appointment, *ClinicalRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin complete tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'completed',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'scheduled'
		RETURNING `+appointmentColumns+`
	`, id)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, nil, err
	}

	recordID := uuid.New()
	recRow := tx.QueryRow(ctx, `
		INSERT INTO clinical_records (id, appointment_id, patient_id, doctor_id, diagnosis, prescription, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, appointment_id, patient_id, doctor_id, diagnosis, prescription, notes, created_at
	`, recordID, rec.AppointmentID, rec.PatientID, rec.DoctorID, rec.Diagnosis, rec.Prescription, rec.Notes)

	record, err := scanRecord(recRow)
	if err != nil {
		return nil, nil, fmt.Errorf("insert clinical record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit complete tx: %w", err)
	}

	return appt, record, nil
}

func (r *PgRepository) FindOverdueScheduled(ctx context.Context, endedBefore time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'scheduled'
		  AND end_time < $1
	`, endedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	appt, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &AppointmentDetail{Appointment: *appt}

	patient, err := r.GetPatientByID(ctx, appt.PatientID)
	if err == nil {
		detail.Patient = patient
	} else if !errors.Is(err, ErrPatientNotFound) {
		return nil, err
	}

	doctor, err := r.GetDoctorByID(ctx, appt.DoctorID)
	if err == nil {
		detail.Doctor = doctor
	} else if !errors.Is(err, ErrDoctorNotFound) {
		return nil, err
	}

	return detail, nil
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.patient_id, a.doctor_id, a.start_time, a.end_time, a.status, a.notes, a.created_at, a.updated_at,
		       d.id, d.name, d.specialty, d.active, d.accepting_bookings, d.created_at, d.updated_at
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.patient_id = $1
		ORDER BY a.start_time DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		var detail AppointmentDetail
		var doctor Doctor
		var notes, specialty *string

		err := rows.Scan(
			&detail.ID,
			&detail.PatientID,
			&detail.DoctorID,
			&detail.StartTime,
			&detail.EndTime,
			&detail.Status,
			&notes,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&doctor.ID,
			&doctor.Name,
			&specialty,
			&doctor.Active,
			&doctor.AcceptingBookings,
			&doctor.CreatedAt,
			&doctor.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		detail.Notes = notes
		doctor.Specialty = specialty
		detail.Doctor = &doctor
		result = append(result, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev AppointmentEvent) error {
	var appID *uuid.UUID
	if ev.AppointmentID != nil {
		appID = ev.AppointmentID
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, appID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert appointment event: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
