package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betops-admin/internal/shared/logger"
)

var (
	// ErrNoProfile: entidade sem perfil de exportação
	ErrNoProfile = errors.New("no export profile")
	// ErrNoHistory: a auditoria configurada não guarda histórico
	ErrNoHistory = errors.New("export audit history not available")
)

// Exporter aplica o perfil da entidade, gera o CSV e registra a auditoria
type Exporter struct {
	Profiles Profiles
	Audit    Recorder
	Now      func() time.Time
	OnExport func(entity string) // métricas
	log      *zap.Logger
}

func NewExporter(profiles Profiles, audit Recorder, log *zap.Logger) *Exporter {
	if audit == nil {
		audit = NopRecorder{}
	}
	return &Exporter{Profiles: profiles, Audit: audit, Now: time.Now, log: logger.Nop(log)}
}

// File é o resultado pronto para download
type File struct {
	Name    string
	Content string
	Rows    int
}

// Export converte data (slice tipado) em CSV. Falha na auditoria só gera log.
func (x *Exporter) Export(ctx context.Context, entity string, data any, requestedBy string) (File, error) {
	prof, ok := x.Profiles[entity]
	if !ok {
		return File{}, fmt.Errorf("%w for %q", ErrNoProfile, entity)
	}
	rows, err := Records(data)
	if err != nil {
		return File{}, fmt.Errorf("export %s: %w", entity, err)
	}
	content, err := CSV(rows, prof.Fields)
	if err != nil {
		return File{}, fmt.Errorf("export %s: %w", entity, err)
	}
	f := File{Name: Filename(prof.Filename, x.Now()), Content: content, Rows: len(rows)}

	if err := x.Audit.Record(ctx, Entry{Entity: entity, Filename: f.Name, Rows: f.Rows, RequestedBy: requestedBy}); err != nil {
		x.log.Warn("export audit failed", zap.String("entity", entity), zap.Error(err))
	}
	if x.OnExport != nil {
		x.OnExport(entity)
	}
	x.log.Info("csv exported",
		zap.String("entity", entity),
		zap.String("file", f.Name),
		zap.Int("rows", f.Rows),
	)
	return f, nil
}

// History devolve as últimas exportações (entity "" = todas)
func (x *Exporter) History(ctx context.Context, entity string, limit int) ([]Entry, error) {
	h, ok := x.Audit.(History)
	if !ok {
		return nil, ErrNoHistory
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return h.Recent(ctx, entity, limit)
}
