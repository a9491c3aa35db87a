package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/periop-sync/internal/coerce"
	"github.com/JonMunkholm/periop-sync/internal/database"
	"github.com/JonMunkholm/periop-sync/internal/logging"
)

// FinishTimeout bounds the bookkeeping done after the last group.
var FinishTimeout = 30 * time.Second

// Options configures a Service.
type Options struct {
	Location         *time.Location  // Workbook wall-clock zone; nil means coerce.DefaultZone
	Aliases          coerce.AliasMap // Manual clinician name variants
	MatchThreshold   float64         // Minimum similarity for roster matches
	Workers          int             // Concurrent key buckets per group; < 1 means 1
	HeaderSearchRows int             // Leading rows scanned for the header
	AuditDir         string          // Where run artifacts are written
	Archiver         Archiver        // Optional durable copy of each artifact
	Metrics          *Metrics        // Optional run metrics
}

// Service synchronizes workbook sheets into the store.
type Service struct {
	store      database.Store
	audit      AuditWriter
	archiver   Archiver
	metrics    *Metrics
	loc        *time.Location
	aliases    coerce.AliasMap
	threshold  float64
	workers    int
	headerRows int
	now        func() time.Time
}

// RunOptions selects what a single Run does.
type RunOptions struct {
	Mode   Mode
	Source SheetSource
}

// NewService creates a Service writing to store.
func NewService(store database.Store, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("nil store")
	}

	loc := opts.Location
	if loc == nil {
		var err error
		if loc, err = coerce.LoadZone(""); err != nil {
			return nil, fmt.Errorf("load zone: %w", err)
		}
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	return &Service{
		store:      store,
		audit:      AuditWriter{Dir: opts.AuditDir},
		archiver:   opts.Archiver,
		metrics:    opts.Metrics,
		loc:        loc,
		aliases:    opts.Aliases,
		threshold:  opts.MatchThreshold,
		workers:    workers,
		headerRows: opts.HeaderSearchRows,
		now:        time.Now,
	}, nil
}

// Tables returns every table the service writes, in dependency order.
func Tables() ([]database.Table, error) {
	defs, err := Ordered()
	if err != nil {
		return nil, err
	}
	tables := make([]database.Table, 0, len(defs)+1)
	for _, def := range defs {
		tables = append(tables, def.Table)
	}
	return append(tables, SyncRunsTable), nil
}

// Migrate creates the tables of every registered entity and the run log.
func (s *Service) Migrate(ctx context.Context) error {
	tables, err := Tables()
	if err != nil {
		return err
	}
	if err := s.store.Migrate(ctx, tables...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Run synchronizes every registered entity from opts.Source.
//
// Row problems are collected in the report and never stop the run. The
// returned error is non-nil only when the run could not complete; the report
// is still returned, with Aborted set and its artifact written. A store
// failure or a done ctx aborts the run; records not yet reached are not
// counted.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	if opts.Source == nil {
		return nil, errors.New("no sheet source")
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeFull
	}

	defs, err := Ordered()
	if err != nil {
		return nil, fmt.Errorf("entity order: %w", err)
	}

	report := &RunReport{
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartedAt: s.now().UTC(),
	}
	ctx = logging.ContextWithRunID(ctx, report.RunID)
	log := logging.FromContext(ctx)
	log.Info("sync started", "mode", mode, "entities", len(defs), "workers", s.workers)

	acc := newAccumulator()
	sheets := make(map[string][][]string)

	var runErr error
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("sync interrupted before %s: %w", def.Key, err)
			break
		}
		acc.begin(def.Key)

		rows, err := s.sheetRows(opts.Source, def.Sheet, sheets)
		if errors.Is(err, ErrSheetNotFound) {
			acc.warn("%s: sheet %q not found, skipped", def.Key, def.Sheet)
			log.Warn("sheet not found", "entity", def.Key, "sheet", def.Sheet)
			continue
		}
		if err != nil {
			runErr = err
			break
		}

		headerPos, idx, err := FindHeader(rows, def.FieldSpecs, s.headerRows)
		if err != nil {
			acc.warn("%s: %v", def.Key, err)
			log.Warn("header not found", "entity", def.Key, "sheet", def.Sheet, "error", err)
			continue
		}

		bc := &BuildContext{Location: s.loc}
		if def.UsesClinicians {
			if bc.Clinicians, err = s.resolver(ctx, defs); err != nil {
				runErr = fmt.Errorf("load clinician roster: %w", err)
				if database.IsUnavailable(err) {
					runErr = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
				}
				break
			}
		}

		if runErr = s.syncGroup(ctx, acc, mode, def, bc, rows, headerPos, idx); runErr != nil {
			break
		}
	}

	report.Entities, report.Errors, report.Warnings = acc.snapshot()
	report.Aborted = runErr != nil
	report.FinishedAt = s.now().UTC()
	s.finish(ctx, report)

	if runErr != nil {
		log.Error("sync aborted", "error", runErr, "errors", report.TotalErrors())
		return report, runErr
	}
	t := report.Totals()
	log.Info("sync completed",
		"checked", t.Checked, "created", t.Created, "updated", t.Updated,
		"skipped", t.Skipped, "errors", report.TotalErrors(),
		"duration", report.Duration())
	return report, nil
}

// sheetRows reads a sheet once per run; several entities share a sheet.
func (s *Service) sheetRows(src SheetSource, sheet string, cache map[string][][]string) ([][]string, error) {
	if rows, ok := cache[sheet]; ok {
		return rows, nil
	}
	rows, err := src.Rows(sheet)
	if err != nil {
		return nil, err
	}
	cache[sheet] = rows
	return rows, nil
}

// resolver builds a clinician resolver over the roster currently stored.
func (s *Service) resolver(ctx context.Context, defs []EntityDefinition) (*coerce.Resolver, error) {
	var roster []coerce.Candidate
	for _, def := range defs {
		if def.Candidate == nil {
			continue
		}
		recs, err := s.store.List(ctx, def.Table)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if c, ok := def.Candidate(rec); ok {
				roster = append(roster, c)
			}
		}
	}
	logging.FromContext(ctx).Debug("clinician roster loaded", "candidates", len(roster), "aliases", len(s.aliases))
	return coerce.NewResolver(s.aliases, roster, s.threshold), nil
}

// finish writes the artifact, the run row and metrics. Failures here are
// logged; they never change the outcome of the run.
func (s *Service) finish(ctx context.Context, report *RunReport) {
	log := logging.FromContext(ctx)

	path, err := s.audit.Write(report)
	if err != nil {
		log.Error("write audit artifact", "error", err)
	} else {
		report.ArtifactPath = path
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FinishTimeout)
	defer cancel()

	if !report.Aborted {
		if err := s.store.Insert(ctx, SyncRunsTable, syncRunRecord(report)); err != nil {
			log.Error("record sync run", "error", err)
		}
	}

	if s.archiver != nil && report.ArtifactPath != "" {
		loc, err := s.archiver.Archive(ctx, report.ArtifactPath)
		if err != nil {
			log.Warn("archive audit artifact", "path", report.ArtifactPath, "error", err)
		} else {
			report.ArchiveLocation = loc
		}
	}

	if s.metrics != nil {
		s.metrics.Observe(report)
		if err := s.metrics.Flush(); err != nil {
			log.Warn("write metrics textfile", "error", err)
		}
	}
}
