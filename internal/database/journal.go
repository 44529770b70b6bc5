package database

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Journal is the client-local trip history: joins, leaves, SOS toggles and
// location samples, kept in an embedded sqlite database. Every write is
// best-effort; a journal failure never reaches the sync core.
type Journal struct {
	db *sqlx.DB
}

// Sample is one recorded location sample
type Sample struct {
	ID         string  `db:"id" json:"id"`
	TripCode   string  `db:"trip_code" json:"tripCode"`
	MemberID   string  `db:"member_id" json:"memberId"`
	Latitude   float64 `db:"latitude" json:"latitude"`
	Longitude  float64 `db:"longitude" json:"longitude"`
	Mode       string  `db:"mode" json:"mode"`
	RecordedAt int64   `db:"recorded_at" json:"recordedAt"`
}

// Event is one recorded trip lifecycle event
type Event struct {
	ID        string `db:"id" json:"id"`
	TripCode  string `db:"trip_code" json:"tripCode"`
	Event     string `db:"event" json:"event"`
	Detail    string `db:"detail" json:"detail"`
	CreatedAt int64  `db:"created_at" json:"createdAt"`
}

// Connect opens (or creates) the journal database and runs migrations
func Connect(path string) (*Journal, error) {
	log.Printf("🔌 Opening trip journal at %s...", path)

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Println("✅ Trip journal ready")
	return &Journal{db: db}, nil
}

func migrate(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS trip_events (
			id TEXT PRIMARY KEY,
			trip_code TEXT NOT NULL,
			event TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS location_samples (
			id TEXT PRIMARY KEY,
			trip_code TEXT NOT NULL,
			member_id TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			mode TEXT NOT NULL,
			recorded_at INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_samples_trip ON location_samples(trip_code, recorded_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("journal migration failed: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordEvent stores a trip lifecycle event. Failures are logged and dropped.
func (j *Journal) RecordEvent(tripCode, event, detail string) {
	_, err := j.db.Exec(
		`INSERT INTO trip_events (id, trip_code, event, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), tripCode, event, detail, time.Now().UnixMilli(),
	)
	if err != nil {
		log.Printf("⚠️  Failed to journal %s event for %s: %v", event, tripCode, err)
	}
}

// RecordSample stores one location sample. Failures are logged and dropped.
func (j *Journal) RecordSample(tripCode, memberID string, latitude, longitude float64, mode string) {
	_, err := j.db.Exec(
		`INSERT INTO location_samples (id, trip_code, member_id, latitude, longitude, mode, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), tripCode, memberID, latitude, longitude, mode, time.Now().UnixMilli(),
	)
	if err != nil {
		log.Printf("⚠️  Failed to journal location sample for %s: %v", tripCode, err)
	}
}

// RecentSamples returns the newest samples recorded for a trip
func (j *Journal) RecentSamples(tripCode string, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = 100
	}

	samples := []Sample{}
	err := j.db.Select(&samples,
		`SELECT id, trip_code, member_id, latitude, longitude, mode, recorded_at
		 FROM location_samples WHERE trip_code = ? ORDER BY recorded_at DESC LIMIT ?`,
		tripCode, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	return samples, nil
}

// Events returns the lifecycle events recorded for a trip, newest first
func (j *Journal) Events(tripCode string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	events := []Event{}
	err := j.db.Select(&events,
		`SELECT id, trip_code, event, detail, created_at
		 FROM trip_events WHERE trip_code = ? ORDER BY created_at DESC LIMIT ?`,
		tripCode, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return events, nil
}
