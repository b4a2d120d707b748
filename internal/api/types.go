package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/scheduling-engine/internal/scheduling"
)

type CreateAppointmentRequest struct {
	PatientID string  `json:"patientId"`
	DoctorID  string  `json:"doctorId"`
	StartTime string  `json:"startTime"`
	Notes     *string `json:"notes,omitempty"`
}

type ChangeStatusRequest struct {
	Status       string  `json:"status"`
	Diagnosis    string  `json:"diagnosis,omitempty"`
	Prescription *string `json:"prescription,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patientId"`
	DoctorID  uuid.UUID `json:"doctorId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Status    string    `json:"status"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ClinicalRecordResponse struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID *uuid.UUID `json:"appointmentId,omitempty"`
	PatientID     uuid.UUID  `json:"patientId"`
	DoctorID      uuid.UUID  `json:"doctorId"`
	Diagnosis     string     `json:"diagnosis"`
	Prescription  *string    `json:"prescription,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type ChangeStatusResponse struct {
	Appointment    AppointmentResponse     `json:"appointment"`
	ClinicalRecord *ClinicalRecordResponse `json:"clinicalRecord,omitempty"`
}

type SlotResponse struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type PersonSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	Patient *PersonSummary `json:"patient,omitempty"`
	Doctor  *PersonSummary `json:"doctor,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Status:    string(a.Status),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toRecordResponse(r *scheduling.ClinicalRecord) *ClinicalRecordResponse {
	if r == nil {
		return nil
	}
	return &ClinicalRecordResponse{
		ID:            r.ID,
		AppointmentID: r.AppointmentID,
		PatientID:     r.PatientID,
		DoctorID:      r.DoctorID,
		Diagnosis:     r.Diagnosis,
		Prescription:  r.Prescription,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
	}
}

func toDetailResponse(d *scheduling.AppointmentDetail) AppointmentDetailResponse {
	resp := AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(&d.Appointment),
	}
	if d.Patient != nil {
		resp.Patient = &PersonSummary{ID: d.Patient.ID, Name: d.Patient.Name}
	}
	if d.Doctor != nil {
		resp.Doctor = &PersonSummary{ID: d.Doctor.ID, Name: d.Doctor.Name}
	}
	return resp
}
