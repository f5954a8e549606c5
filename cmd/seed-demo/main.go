package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/config"
	"github.com/cecproctor/proctor-backend/internal/database"
	"github.com/cecproctor/proctor-backend/internal/logger"
	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository/postgres"
	"github.com/cecproctor/proctor-backend/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	store := postgres.NewStore(pool)
	activityService := service.NewActivityService(store.Activity, log)
	studentService := service.NewStudentService(store.Students, activityService, log)
	teacherService := service.NewTeacherService(store.Teachers, activityService, log)
	examService := service.NewExamService(store.Exams, nil, cfg.CodeGenMaxAttempts, log)

	fmt.Println("=== Seeding demo students ===")
	students := []service.StudentInput{
		{StudentID: "STU001", Name: "John Smith", Email: "john.smith@student.cec.edu", Status: model.StudentStatusActive},
		{StudentID: "STU002", Name: "Sarah Johnson", Email: "sarah.johnson@student.cec.edu", Status: model.StudentStatusActive},
		{StudentID: "STU003", Name: "Mike Davis", Email: "mike.davis@student.cec.edu", Status: model.StudentStatusSuspended},
	}
	for _, in := range students {
		s, err := studentService.Create(ctx, in)
		if report(log, err, "student", in.StudentID) {
			fmt.Printf("Created student %s (%s)\n", s.Name, s.StudentID)
		}
	}

	fmt.Println("=== Seeding demo teachers ===")
	teachers := []service.TeacherInput{
		{Name: "Dr. Emily Wilson", Email: "teacher@cec.edu", Department: "Mathematics", Status: model.TeacherStatusActive},
		{Name: "Prof. Robert Chen", Email: "robert.chen@cec.edu", Department: "Physics", Status: model.TeacherStatusActive},
	}
	for _, in := range teachers {
		t, err := teacherService.Create(ctx, in)
		if report(log, err, "teacher", in.Email) {
			fmt.Printf("Created teacher %s (%s)\n", t.Name, t.Department)
		}
	}

	fmt.Println("=== Seeding demo exams ===")
	mathExam, err := examService.Create(ctx, service.ExamInput{
		Title:           "Mathematics Final Exam",
		Description:     "Comprehensive final examination covering all topics",
		FormURL:         "https://forms.google.com/sample-math-exam",
		DurationMinutes: 120,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}
	if _, err := examService.Activate(ctx, mathExam.ID); err != nil {
		log.Fatal().Err(err).Msg("Failed to activate exam")
	}
	fmt.Printf("Created active exam %q with access code %s\n", mathExam.Title, mathExam.UniqueID)

	physics, err := examService.Create(ctx, service.ExamInput{
		Title:           "Physics Quiz",
		Description:     "Weekly physics quiz on mechanics",
		FormURL:         "https://forms.google.com/sample-physics-quiz",
		DurationMinutes: 60,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}
	fmt.Printf("Created draft exam %q with access code %s\n", physics.Title, physics.UniqueID)

	fmt.Println("=== Seeding complete ===")
}

// report prints duplicates as skipped and aborts on anything else.
func report(log zerolog.Logger, err error, kind, key string) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, service.ErrConflict) {
		fmt.Printf("Skipping existing %s %s\n", kind, key)
		return false
	}
	log.Fatal().Err(err).Str(kind, key).Msg("Seeding failed")
	return false
}
