package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/scheduling-engine/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	patientIDs, err := seedPatients(context.Background(), pool, 5000)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, doctorIDs, patientIDs); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		// A small fraction of doctors is inactive or paused so the
		// unavailable path has real data to hit.
		active := gofakeit.Number(0, 19) != 0
		accepting := active && gofakeit.Number(0, 9) != 0

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, active, accepting_bookings, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, name, spec, active, accepting)
		if err != nil {
			return nil, err
		}

		if active && accepting {
			ids = append(ids, id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return ids, nil
}

// seedAppointments books a partial day of back-to-back appointments per
// doctor, starting tomorrow at 09:00. Sequential half-open intervals
// never overlap, so the seeded data respects the scheduling invariant.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, doctorIDs, patientIDs []uuid.UUID) error {
	if len(doctorIDs) == 0 || len(patientIDs) == 0 {
		log.Println("no bookable doctors or patients, skipping appointments")
		return nil
	}

	log.Printf("seeding appointments for %d doctors", len(doctorIDs))

	const duration = 30 * time.Minute

	tomorrow := time.Now().AddDate(0, 0, 1)
	y, m, d := tomorrow.Date()
	dayOpen := time.Date(y, m, d, 9, 0, 0, 0, time.Local)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	total := 0
	for _, doctorID := range doctorIDs {
		slots := gofakeit.Number(2, 8)
		start := dayOpen

		for i := 0; i < slots; i++ {
			patientID := patientIDs[gofakeit.Number(0, len(patientIDs)-1)]
			end := start.Add(duration)

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (id, patient_id, doctor_id, start_time, end_time, status, notes, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, 'scheduled', NULL, now(), now())
			`, uuid.New(), patientID, doctorID, start, end)
			if err != nil {
				return err
			}

			total++
			start = end
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("appointments seeded: %d", total)
	return nil
}
