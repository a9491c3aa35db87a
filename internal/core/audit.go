package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/periop-sync/internal/database"
)

// AuditArtifact is the JSON document written at the end of every run.
type AuditArtifact struct {
	RunID      string                 `json:"run_id"`
	Mode       Mode                   `json:"mode"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Aborted    bool                   `json:"aborted"`
	Stats      map[string]EntityStats `json:"stats"`
	Errors     []RowError             `json:"errors"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// NewAuditArtifact captures a report for serialization.
func NewAuditArtifact(r *RunReport) AuditArtifact {
	a := AuditArtifact{
		RunID:      r.RunID,
		Mode:       r.Mode,
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
		Aborted:    r.Aborted,
		Stats:      make(map[string]EntityStats, len(r.Entities)),
		Errors:     r.Errors,
		Warnings:   r.Warnings,
	}
	for _, e := range r.Entities {
		a.Stats[e.Entity] = e.EntityStats
	}
	if a.Errors == nil {
		a.Errors = []RowError{}
	}
	return a
}

// AuditWriter writes one artifact file per run into Dir.
type AuditWriter struct {
	Dir string
}

// maxArtifactAttempts bounds the suffix search for a free file name.
const maxArtifactAttempts = 100

// Write stores the artifact and returns its path. Existing files are never
// overwritten; a numeric suffix is added until a free name is found.
func (w AuditWriter) Write(r *RunReport) (string, error) {
	dir := w.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create audit dir: %w", err)
	}

	data, err := json.MarshalIndent(NewAuditArtifact(r), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode audit artifact: %w", err)
	}
	data = append(data, '\n')

	base := artifactBase(r)
	for attempt := 0; attempt < maxArtifactAttempts; attempt++ {
		name := base + ".json"
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d.json", base, attempt)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create audit artifact: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("write audit artifact: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close audit artifact: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free audit artifact name for %s", base)
}

func artifactBase(r *RunReport) string {
	short := r.RunID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("sync_%s_%s", r.StartedAt.UTC().Format("20060102T150405Z"), short)
}

// Archiver copies a finished artifact somewhere durable and returns where.
type Archiver interface {
	Archive(ctx context.Context, path string) (string, error)
}

// SyncRunsTable records one row per finished run.
var SyncRunsTable = database.Table{
	Name: "sync_runs",
	Columns: []database.Column{
		{Name: "run_id", Kind: database.KindText},
		{Name: "mode", Kind: database.KindText},
		{Name: "started_at", Kind: database.KindTime},
		{Name: "finished_at", Kind: database.KindTime},
		{Name: "checked", Kind: database.KindInt},
		{Name: "created", Kind: database.KindInt},
		{Name: "updated", Kind: database.KindInt},
		{Name: "skipped", Kind: database.KindInt},
		{Name: "errors", Kind: database.KindInt},
		{Name: "aborted", Kind: database.KindBool},
		{Name: "artifact", Kind: database.KindText},
	},
	Key: []string{"run_id"},
}

func syncRunRecord(r *RunReport) database.Record {
	t := r.Totals()
	rec := database.Record{
		"run_id":      r.RunID,
		"mode":        string(r.Mode),
		"started_at":  r.StartedAt.UTC(),
		"finished_at": r.FinishedAt.UTC(),
		"checked":     int64(t.Checked),
		"created":     int64(t.Created),
		"updated":     int64(t.Updated),
		"skipped":     int64(t.Skipped),
		"errors":      int64(r.TotalErrors()),
		"aborted":     r.Aborted,
	}
	if r.ArtifactPath != "" {
		rec["artifact"] = r.ArtifactPath
	}
	return rec
}
