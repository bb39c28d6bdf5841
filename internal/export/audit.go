package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Entry é um registro de exportação realizada
type Entry struct {
	ID          string    `json:"id"`
	Entity      string    `json:"entity"`
	Filename    string    `json:"filename"`
	Rows        int       `json:"rows"`
	RequestedBy string    `json:"requestedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Recorder registra exportações
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// History lista exportações já registradas
type History interface {
	Recent(ctx context.Context, entity string, limit int) ([]Entry, error)
}

// NopRecorder é usado quando não há Postgres configurado
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error { return nil }

// Postgres grava a auditoria de exportações
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

const schema = `CREATE TABLE IF NOT EXISTS export_audit (
	id           UUID PRIMARY KEY,
	entity       TEXT        NOT NULL,
	filename     TEXT        NOT NULL,
	rows         INTEGER     NOT NULL,
	requested_by TEXT        NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema cria a tabela se não existir
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure export_audit: %w", err)
	}
	return nil
}

// Record insere a entrada; id e data são preenchidos quando vazios
func (p *Postgres) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO export_audit(id, entity, filename, rows, requested_by, created_at) VALUES($1,$2,$3,$4,$5,$6)`,
		e.ID, e.Entity, e.Filename, e.Rows, e.RequestedBy, e.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
			return fmt.Errorf("record export: table export_audit missing: %w", err)
		}
		return fmt.Errorf("record export: %w", err)
	}
	return nil
}

// Recent devolve as últimas exportações de uma entidade (todas se entity == "")
func (p *Postgres) Recent(ctx context.Context, entity string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, entity, filename, rows, requested_by, created_at
		   FROM export_audit
		  WHERE ($1 = '' OR entity = $1)
		  ORDER BY created_at DESC
		  LIMIT $2`, entity, limit)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Entity, &e.Filename, &e.Rows, &e.RequestedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
