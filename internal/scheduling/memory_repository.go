package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository and PractitionerDirectory
// used by tests and local experiments. It mirrors the Postgres
// semantics, including compare-and-swap status updates and the atomic
// complete-with-record path.
type MemoryRepository struct {
	mu           sync.RWMutex
	patients     map[uuid.UUID]*Patient
	doctors      map[uuid.UUID]*Doctor
	appointments map[uuid.UUID]*Appointment
	records      map[uuid.UUID]*ClinicalRecord
	events       []AppointmentEvent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:     make(map[uuid.UUID]*Patient),
		doctors:      make(map[uuid.UUID]*Doctor),
		appointments: make(map[uuid.UUID]*Appointment),
		records:      make(map[uuid.UUID]*ClinicalRecord),
	}
}

// Seed helpers

func (m *MemoryRepository) AddPatient(p Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.patients[p.ID] = &cp
}

func (m *MemoryRepository) AddDoctor(d Doctor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := d
	m.doctors[d.ID] = &cp
}

// Records returns a copy of all clinical records, for assertions.
func (m *MemoryRepository) Records() []ClinicalRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ClinicalRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, *r)
	}
	return out
}

// Events returns a copy of the event log, for assertions.
func (m *MemoryRepository) Events() []AppointmentEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AppointmentEvent, len(m.events))
	copy(out, m.events)
	return out
}

// PractitionerDirectory

func (m *MemoryRepository) IsActive(_ context.Context, doctorID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doctors[doctorID]
	if !ok {
		return false, ErrDoctorNotFound
	}
	return d.Active, nil
}

func (m *MemoryRepository) IsAcceptingBookings(_ context.Context, doctorID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doctors[doctorID]
	if !ok {
		return false, ErrDoctorNotFound
	}
	return d.AcceptingBookings, nil
}

// Repository

func (m *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) ListScheduledBetween(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Appointment
	for _, a := range m.appointments {
		if a.DoctorID != doctorID || a.Status != StatusScheduled {
			continue
		}
		if Overlaps(a.StartTime, a.EndTime, from, to) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *MemoryRepository) HasScheduledOverlap(_ context.Context, doctorID uuid.UUID, start, end time.Time, exclude uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.appointments {
		if a.DoctorID != doctorID {
			continue
		}
		if a.Status != StatusScheduled {
			continue
		}
		if exclude != uuid.Nil && a.ID == exclude {
			continue
		}
		if Overlaps(a.StartTime, a.EndTime, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) CreateScheduledAppointment(_ context.Context, patientID, doctorID uuid.UUID, start, end time.Time, notes *string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	appt := &Appointment{
		ID:        uuid.New(),
		PatientID: patientID,
		DoctorID:  doctorID,
		StartTime: start,
		EndTime:   end,
		Status:    StatusScheduled,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.appointments[appt.ID] = appt

	cp := *appt
	return &cp, nil
}

func (m *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}

	a.Status = to
	a.UpdatedAt = time.Now()

	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) CompleteWithRecord(_ context.Context, id uuid.UUID, rec ClinicalRecord) (*Appointment, *ClinicalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || a.Status != StatusScheduled {
		return nil, nil, ErrAppointmentNotFound
	}

	a.Status = StatusCompleted
	a.UpdatedAt = time.Now()

	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	stored := rec
	m.records[rec.ID] = &stored

	apptCopy := *a
	recCopy := rec
	return &apptCopy, &recCopy, nil
}

func (m *MemoryRepository) FindOverdueScheduled(_ context.Context, endedBefore time.Time) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Appointment
	for _, a := range m.appointments {
		if a.Status == StatusScheduled && a.EndTime.Before(endedBefore) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *MemoryRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	appt, err := m.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	detail := &AppointmentDetail{Appointment: *appt}
	if p, ok := m.patients[appt.PatientID]; ok {
		cp := *p
		detail.Patient = &cp
	}
	if d, ok := m.doctors[appt.DoctorID]; ok {
		cp := *d
		detail.Doctor = &cp
	}
	return detail, nil
}

func (m *MemoryRepository) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []AppointmentDetail
	for _, a := range m.appointments {
		if a.PatientID != patientID {
			continue
		}
		detail := AppointmentDetail{Appointment: *a}
		if d, ok := m.doctors[a.DoctorID]; ok {
			cp := *d
			detail.Doctor = &cp
		}
		all = append(all, detail)
	}

	// Newest first, matching the SQL ordering.
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].StartTime.After(all[i].StartTime) {
				all[i], all[j] = all[j], all[i]
			}
		}
	}

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryRepository) InsertEvent(_ context.Context, ev AppointmentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}
