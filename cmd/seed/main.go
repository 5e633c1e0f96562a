package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"autograde-backend/internal/config"
	"autograde-backend/internal/domain"
	"autograde-backend/internal/enrichment"
	"autograde-backend/internal/repository/postgres"
	"autograde-backend/internal/utils"
)

type seedAppraiser struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

type seedRegistration struct {
	State          string `yaml:"state"`
	Rego           string `yaml:"rego"`
	Make           string `yaml:"make"`
	Model          string `yaml:"model"`
	Year           string `yaml:"year"`
	Trim           string `yaml:"trim"`
	Colour         string `yaml:"colour"`
	VIN            string `yaml:"vin"`
	EngineNo       string `yaml:"engine_no"`
	ComplianceDate string `yaml:"compliance_date"`
}

type seedData struct {
	Appraisers    []seedAppraiser    `yaml:"appraisers"`
	Registrations []seedRegistration `yaml:"registrations"`
	// FixtureRegistrations also loads the built-in sample register rows.
	FixtureRegistrations bool `yaml:"fixture_registrations"`
}

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "path to config file")
	seedPath := flag.String("seed", "config/seed.yaml", "path to seed data file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	data, err := readSeedFile(*seedPath)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}

	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Printf("Connected to database: %s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	if err := populate(ctx, db, data); err != nil {
		log.Fatalf("Failed to populate data: %v", err)
	}
	log.Println("Seed data loaded")
}

func readSeedFile(path string) (*seedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data seedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func populate(ctx context.Context, db *sql.DB, data *seedData) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, a := range data.Appraisers {
		if a.Email == "" || a.Password == "" {
			return fmt.Errorf("appraiser %d: email and password are required", i+1)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", a.Email, err)
		}
		var id int32
		err = tx.QueryRowContext(ctx, `
			INSERT INTO appraisers (email, name, password_hash)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash
			RETURNING id
		`, strings.ToLower(strings.TrimSpace(a.Email)), a.Name, string(hash)).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert appraiser %s: %w", a.Email, err)
		}
		log.Printf("  appraiser %s (id %d)", a.Email, id)
	}

	rows := make([]domain.Registration, 0, len(data.Registrations))
	for _, r := range data.Registrations {
		rows = append(rows, domain.Registration(r))
	}
	if data.FixtureRegistrations {
		rows = append(rows, enrichment.DefaultRegistrations...)
	}
	for _, r := range rows {
		state := utils.NormalizeState(r.State)
		rego := utils.NormalizeRego(r.Rego)
		if state == "" || rego == "" {
			return fmt.Errorf("registration %q/%q: state and rego are required", r.State, r.Rego)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO registrations (state, rego, make, model, year, trim, colour, vin, engine_no, compliance_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (state, rego) DO UPDATE SET
				make = EXCLUDED.make, model = EXCLUDED.model, year = EXCLUDED.year, trim = EXCLUDED.trim,
				colour = EXCLUDED.colour, vin = EXCLUDED.vin, engine_no = EXCLUDED.engine_no,
				compliance_date = EXCLUDED.compliance_date
		`, state, rego, r.Make, r.Model, r.Year, r.Trim, r.Colour, r.VIN, r.EngineNo, r.ComplianceDate)
		if err != nil {
			return fmt.Errorf("upsert registration %s/%s: %w", state, rego, err)
		}
	}
	log.Printf("  %d registrations", len(rows))

	return tx.Commit()
}
