package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/scheduling-engine/internal/config"
	"github.com/clinicops/scheduling-engine/internal/scheduling"
)

type inlineLocker struct{}

func (inlineLocker) WithDoctorLock(ctx context.Context, _ uuid.UUID, fn func(context.Context) error) error {
	return fn(ctx)
}

type testEnv struct {
	router  http.Handler
	repo    *scheduling.MemoryRepository
	doctor  uuid.UUID
	patient uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := scheduling.NewMemoryRepository()
	doctor := uuid.New()
	patient := uuid.New()
	repo.AddDoctor(scheduling.Doctor{ID: doctor, Name: "Dr. Osei", Active: true, AcceptingBookings: true})
	repo.AddPatient(scheduling.Patient{ID: patient, Name: "Mia Tan"})

	cfg := config.Config{
		OpenHour:     9,
		CloseHour:    17,
		SlotDuration: 30 * time.Minute,
		NoShowGrace:  time.Hour,
	}
	svc := scheduling.NewService(repo, repo, inlineLocker{}, cfg)

	router := NewRouter(RouterConfig{Service: svc, Env: "test", Version: "test"})

	return &testEnv{router: router, repo: repo, doctor: doctor, patient: patient}
}

// tomorrowAt returns tomorrow at the given local clock time, which is
// always in the future and inside a 9-17 business day for valid hours.
func tomorrowAt(hour, min int) time.Time {
	tomorrow := time.Now().AddDate(0, 0, 1)
	y, m, d := tomorrow.Date()
	return time.Date(y, m, d, hour, min, 0, 0, time.Local)
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) book(t *testing.T, start time.Time) AppointmentResponse {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		PatientID: e.patient.String(),
		DoctorID:  e.doctor.String(),
		StartTime: start.Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("booking failed: status %d, body %s", rec.Code, rec.Body.String())
	}

	var resp AppointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestCreateAppointment(t *testing.T) {
	e := newTestEnv(t)

	resp := e.book(t, tomorrowAt(10, 0))

	if resp.Status != "scheduled" {
		t.Errorf("status = %s, want scheduled", resp.Status)
	}
	if resp.PatientID != e.patient || resp.DoctorID != e.doctor {
		t.Error("ids not echoed back")
	}
	if !resp.EndTime.Equal(resp.StartTime.Add(30 * time.Minute)) {
		t.Errorf("end - start = %s, want 30m", resp.EndTime.Sub(resp.StartTime))
	}
}

func TestCreateAppointment_BadRequests(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		req  CreateAppointmentRequest
		want int
	}{
		{
			"malformed patient id",
			CreateAppointmentRequest{PatientID: "nope", DoctorID: e.doctor.String(), StartTime: tomorrowAt(10, 0).Format(time.RFC3339)},
			http.StatusBadRequest,
		},
		{
			"malformed start time",
			CreateAppointmentRequest{PatientID: e.patient.String(), DoctorID: e.doctor.String(), StartTime: "next tuesday"},
			http.StatusBadRequest,
		},
		{
			"outside business hours",
			CreateAppointmentRequest{PatientID: e.patient.String(), DoctorID: e.doctor.String(), StartTime: tomorrowAt(19, 0).Format(time.RFC3339)},
			http.StatusBadRequest,
		},
		{
			"unknown doctor",
			CreateAppointmentRequest{PatientID: e.patient.String(), DoctorID: uuid.NewString(), StartTime: tomorrowAt(10, 0).Format(time.RFC3339)},
			http.StatusNotFound,
		},
		{
			"unknown patient",
			CreateAppointmentRequest{PatientID: uuid.NewString(), DoctorID: e.doctor.String(), StartTime: tomorrowAt(10, 0).Format(time.RFC3339)},
			http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/appointments", tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCreateAppointment_Conflict(t *testing.T) {
	e := newTestEnv(t)

	e.book(t, tomorrowAt(10, 0))

	rec := e.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		PatientID: e.patient.String(),
		DoctorID:  e.doctor.String(),
		StartTime: tomorrowAt(10, 15).Format(time.RFC3339),
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("overlapping booking: status = %d, want 409", rec.Code)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatal(err)
	}
	if errResp.Error != "slot_taken" {
		t.Errorf("error code = %q, want slot_taken", errResp.Error)
	}
}

func TestCreateAppointment_UnavailableDoctor(t *testing.T) {
	e := newTestEnv(t)

	paused := uuid.New()
	e.repo.AddDoctor(scheduling.Doctor{ID: paused, Name: "Dr. Paused", Active: true, AcceptingBookings: false})

	rec := e.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		PatientID: e.patient.String(),
		DoctorID:  paused.String(),
		StartTime: tomorrowAt(10, 0).Format(time.RFC3339),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestSlots(t *testing.T) {
	e := newTestEnv(t)

	e.book(t, tomorrowAt(10, 0))

	date := tomorrowAt(0, 0).Format("2006-01-02")
	rec := e.do(t, http.MethodGet, fmt.Sprintf("/appointments/slots?doctorId=%s&date=%s", e.doctor, date), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var slots []SlotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &slots); err != nil {
		t.Fatal(err)
	}

	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}

	seen := make(map[string]bool)
	for _, s := range slots {
		seen[s.Time] = s.Available
	}
	if seen["10:00"] {
		t.Error("10:00 should be unavailable after booking")
	}
	if !seen["10:30"] {
		t.Error("10:30 should be available, touching intervals do not conflict")
	}
	if !seen["09:00"] {
		t.Error("09:00 should be available")
	}
}

func TestSlots_BadRequests(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/appointments/slots?doctorId=nope&date=2025-03-10", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad doctor id: status = %d, want 400", rec.Code)
	}

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/appointments/slots?doctorId=%s&date=March+10", e.doctor), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", rec.Code)
	}

	date := tomorrowAt(0, 0).Format("2006-01-02")
	rec = e.do(t, http.MethodGet, fmt.Sprintf("/appointments/slots?doctorId=%s&date=%s", uuid.New(), date), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown doctor: status = %d, want 404", rec.Code)
	}
}

func TestChangeStatus_Complete(t *testing.T) {
	e := newTestEnv(t)

	appt := e.book(t, tomorrowAt(10, 0))

	rec := e.do(t, http.MethodPut, "/appointments/"+appt.ID.String()+"/status", ChangeStatusRequest{
		Status:    "completed",
		Diagnosis: "flu",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp ChangeStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if resp.Appointment.Status != "completed" {
		t.Errorf("appointment status = %s, want completed", resp.Appointment.Status)
	}
	if resp.ClinicalRecord == nil {
		t.Fatal("expected a clinical record in the response")
	}
	if resp.ClinicalRecord.Diagnosis != "flu" {
		t.Errorf("diagnosis = %q, want flu", resp.ClinicalRecord.Diagnosis)
	}
	if resp.ClinicalRecord.AppointmentID == nil || *resp.ClinicalRecord.AppointmentID != appt.ID {
		t.Error("record does not reference the appointment")
	}
}

func TestChangeStatus_MissingDiagnosis(t *testing.T) {
	e := newTestEnv(t)

	appt := e.book(t, tomorrowAt(10, 0))

	rec := e.do(t, http.MethodPut, "/appointments/"+appt.ID.String()+"/status", ChangeStatusRequest{
		Status: "completed",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got := len(e.repo.Records()); got != 0 {
		t.Errorf("expected no clinical records, got %d", got)
	}
}

func TestChangeStatus_IllegalTransition(t *testing.T) {
	e := newTestEnv(t)

	appt := e.book(t, tomorrowAt(10, 0))

	rec := e.do(t, http.MethodPut, "/appointments/"+appt.ID.String()+"/status", ChangeStatusRequest{Status: "cancelled"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel failed: status %d", rec.Code)
	}

	rec = e.do(t, http.MethodPut, "/appointments/"+appt.ID.String()+"/status", ChangeStatusRequest{
		Status:    "completed",
		Diagnosis: "flu",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("cancelled -> completed: status = %d, want 409", rec.Code)
	}
}

func TestChangeStatus_NotFound(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPut, "/appointments/"+uuid.NewString()+"/status", ChangeStatusRequest{Status: "cancelled"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetAppointment(t *testing.T) {
	e := newTestEnv(t)

	appt := e.book(t, tomorrowAt(10, 0))

	rec := e.do(t, http.MethodGet, "/appointments/"+appt.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp AppointmentDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Doctor == nil || resp.Doctor.Name != "Dr. Osei" {
		t.Error("doctor summary missing")
	}
	if resp.Patient == nil || resp.Patient.Name != "Mia Tan" {
		t.Error("patient summary missing")
	}

	rec = e.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", rec.Code)
	}
}

func TestListAppointments(t *testing.T) {
	e := newTestEnv(t)

	e.book(t, tomorrowAt(10, 0))
	e.book(t, tomorrowAt(11, 0))

	rec := e.do(t, http.MethodGet, "/appointments?patientId="+e.patient.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp []AppointmentDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp) != 2 {
		t.Errorf("expected 2 appointments, got %d", len(resp))
	}
}
