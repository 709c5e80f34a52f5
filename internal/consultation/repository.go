package consultation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a consultation does not exist.
var ErrNotFound = errors.New("consultation not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	Save(ctx context.Context, c *Consultation) error
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	query := `SELECT id, source, input_text, city, symptoms, matches, urgency, specializations, facilities, location, created_at, updated_at
		FROM consultations WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	var c Consultation
	var symptomsJSON, matchesJSON, urgencyJSON, specsJSON, facilitiesJSON, locationJSON []byte

	err := row.Scan(
		&c.ID,
		&c.Source,
		&c.InputText,
		&c.City,
		&symptomsJSON,
		&matchesJSON,
		&urgencyJSON,
		&specsJSON,
		&facilitiesJSON,
		&locationJSON,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query consultation: %w", err)
	}

	columns := []struct {
		name string
		data []byte
		dst  any
	}{
		{"symptoms", symptomsJSON, &c.Symptoms},
		{"matches", matchesJSON, &c.Matches},
		{"urgency", urgencyJSON, &c.Urgency},
		{"specializations", specsJSON, &c.Specializations},
		{"facilities", facilitiesJSON, &c.Facilities},
		{"location", locationJSON, &c.Location},
	}
	for _, col := range columns {
		if len(col.data) == 0 {
			continue
		}
		if err := json.Unmarshal(col.data, col.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", col.name, err)
		}
	}

	return &c, nil
}

func (r *postgresRepo) Save(ctx context.Context, c *Consultation) error {
	values := []any{c.Symptoms, c.Matches, c.Urgency, c.Specializations, c.Facilities, c.Location}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal consultation: %w", err)
		}
		encoded[i] = b
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()

	query := `
		INSERT INTO consultations (id, source, input_text, city, symptoms, matches, urgency, specializations, facilities, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			symptoms = $5,
			matches = $6,
			urgency = $7,
			specializations = $8,
			facilities = $9,
			location = $10,
			updated_at = $12
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.Source, c.InputText, c.City,
		encoded[0], encoded[1], encoded[2], encoded[3], encoded[4], encoded[5],
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save consultation: %w", err)
	}
	return nil
}

// memoryRepo keeps consultations in process memory. It backs the server
// when no database is configured.
type memoryRepo struct {
	mu   sync.RWMutex
	data map[uuid.UUID]Consultation
}

func NewMemoryRepository() Repository {
	return &memoryRepo{data: make(map[uuid.UUID]Consultation)}
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Consultation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *memoryRepo) Save(_ context.Context, c *Consultation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()
	r.data[c.ID] = *c
	return nil
}
