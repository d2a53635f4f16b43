package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/database"
	"github.com/sevahub/sevahub-backend/internal/logger"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
	"github.com/sevahub/sevahub-backend/internal/service"
	"github.com/sevahub/sevahub-backend/internal/validator"
)

// Roster columns, in order: registration number, name, email, department,
// year and an optional attendance percentage. The first row is a header.
func main() {
	var (
		file     string
		password string
		demo     int
	)
	flag.StringVar(&file, "file", "", "Roster to import (.xlsx or .csv)")
	flag.StringVar(&password, "password", "sevahub123", "Initial password for every seeded student")
	flag.IntVar(&demo, "demo", 0, "Generate this many demo students instead of reading a roster")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "seed-students")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var (
		students []model.Student
		err      error
	)
	switch {
	case file != "":
		students, err = readRoster(file)
	case demo > 0:
		students = demoStudents(demo)
	default:
		fmt.Println("Usage: seed-students -file roster.xlsx | -demo 50 [-password secret]")
		flag.PrintDefaults()
		return
	}
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Failed to read roster")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Every seeded student shares one initial password, so hash it once.
	hash, err := service.NewAuthService(cfg, nil).HashPassword(password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}
	for i := range students {
		students[i].PasswordHash = hash
	}

	fmt.Printf("=== Seeding %d Students ===\n", len(students))

	inserted, err := repository.NewStudentRepository(pool).BulkCreate(ctx, students)
	if err != nil {
		log.Fatal().Err(err).Msg("Bulk insert failed; no students were added")
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d students.\n", inserted, len(students))
}

func readRoster(path string) ([]model.Student, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := service.ReadSheet(path, f)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("roster has no data rows")
	}

	seen := map[string]int{}
	students := make([]model.Student, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2
		if len(rec) < 5 {
			return nil, fmt.Errorf("line %d: expected at least 5 columns, got %d", line, len(rec))
		}

		regNo := validator.NormalizeRegNo(rec[0])
		if !validator.ValidRegNo(regNo) {
			return nil, fmt.Errorf("line %d: invalid registration number %q", line, rec[0])
		}
		if prev, dup := seen[regNo]; dup {
			return nil, fmt.Errorf("line %d: %s already appears on line %d", line, regNo, prev)
		}
		seen[regNo] = line

		dept := strings.ToUpper(strings.TrimSpace(rec[3]))
		if !validator.ValidDepartment(dept) {
			return nil, fmt.Errorf("line %d: unknown department %q", line, rec[3])
		}
		year, err := strconv.Atoi(strings.TrimSpace(rec[4]))
		if err != nil || year < 1 || year > 4 {
			return nil, fmt.Errorf("line %d: year must be 1-4", line)
		}

		s := model.Student{
			RegistrationNumber: regNo,
			Name:               strings.TrimSpace(rec[1]),
			Email:              strings.ToLower(strings.TrimSpace(rec[2])),
			Department:         model.Department(dept),
			Year:               year,
		}
		if len(rec) > 5 && strings.TrimSpace(rec[5]) != "" {
			pct, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(rec[5]), "%"), 64)
			if err != nil || pct < 0 || pct > 100 {
				return nil, fmt.Errorf("line %d: attendance must be 0-100", line)
			}
			s.AttendancePercentage = &pct
		}
		students = append(students, s)
	}
	return students, nil
}

var demoNames = []string{
	"Aarav Sharma", "Diya Patel", "Vihaan Reddy", "Ananya Iyer", "Arjun Nair",
	"Ishita Gupta", "Kabir Singh", "Meera Joshi", "Rohan Das", "Saanvi Rao",
	"Aditya Kumar", "Kavya Menon", "Reyansh Verma", "Nisha Pillai", "Siddharth Bose",
	"Tara Kulkarni", "Yash Mehta", "Pooja Hegde", "Dev Malhotra", "Riya Chatterjee",
}

// demoStudents spreads students across departments and years with attendance
// on both sides of the eligibility threshold.
func demoStudents(n int) []model.Student {
	students := make([]model.Student, n)
	for i := range students {
		dept := model.Departments[i%len(model.Departments)]
		pct := float64(60 + (i*7)%40)
		students[i] = model.Student{
			RegistrationNumber:   fmt.Sprintf("21%s%03d", dept, i+1),
			Name:                 demoNames[i%len(demoNames)],
			Email:                fmt.Sprintf("student%03d@campus.edu", i+1),
			Department:           dept,
			Year:                 i%4 + 1,
			AttendancePercentage: &pct,
		}
	}
	return students
}
