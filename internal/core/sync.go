package core

// sync.go writes one entity group.
//
// Rows are validated and built in sheet order, then bucketed by record key.
// Buckets run on a bounded errgroup; the records of a bucket are written
// sequentially in row order, so a repeated key is last-write-wins no matter
// how many workers run.

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/periop-sync/internal/database"
	"github.com/JonMunkholm/periop-sync/internal/logging"
)

type workItem struct {
	row Row
	rec database.Record
	key string
}

func (s *Service) syncGroup(
	ctx context.Context,
	acc *accumulator,
	mode Mode,
	def EntityDefinition,
	bc *BuildContext,
	rows [][]string,
	headerPos int,
	idx HeaderIndex,
) error {
	log := logging.WithFields(ctx, "entity", def.Key, "sheet", def.Sheet)
	mark := acc.errorCount()
	validator := NewRowValidator(def.FieldSpecs, idx)

	var order []string
	buckets := make(map[string][]workItem)
	for i := headerPos + 1; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		row := Row{Sheet: def.Sheet, Number: i + 1, Cells: rows[i], Header: idx}
		ident := ""
		if def.IdentifierHeader != "" {
			ident = row.Get(def.IdentifierHeader)
		}

		if err := validator.ValidateRowFirst(row.Cells); err != nil {
			acc.fail(newRowError(def, row, ident, err))
			continue
		}
		recs, err := build(def, bc, row)
		if err != nil {
			acc.fail(newRowError(def, row, ident, err))
			continue
		}

		for _, rec := range recs {
			key := recordKey(def.Table, rec)
			if _, seen := buckets[key]; !seen {
				order = append(order, key)
			}
			buckets[key] = append(buckets[key], workItem{row: row, rec: rec, key: key})
		}
	}

	log.Debug("group built", "records", len(order), "errors", acc.errorCount()-mark)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, key := range order {
		items := buckets[key]
		g.Go(func() error {
			for _, it := range items {
				if gctx.Err() != nil {
					return nil
				}
				if err := s.syncRecord(gctx, acc, mode, def, it); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()
	acc.sortErrorsFrom(mark)
	if err != nil {
		return err
	}
	// Buckets stop quietly once ctx is done; the group is then incomplete.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s interrupted: %w", def.Key, err)
	}

	log.Info("group synchronized", "records", len(order), "errors", acc.errorCount()-mark)
	return nil
}

// build runs the entity builder, turning a panic into a row error.
func build(def EntityDefinition, bc *BuildContext, row Row) (recs []database.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build panicked: %v", r)
		}
	}()
	return def.Build(bc, row)
}

// syncRecord checks parents and writes one record according to mode. It
// returns an error only when the store is unavailable and the run must stop.
func (s *Service) syncRecord(ctx context.Context, acc *accumulator, mode Mode, def EntityDefinition, it workItem) error {
	fail := func(err error) error {
		acc.fail(newRowError(def, it.row, it.key, err))
		if database.IsUnavailable(err) {
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return nil
	}

	for _, p := range def.Parents {
		ok, err := s.parentExists(ctx, p, it.rec)
		if err != nil {
			return fail(storeError("check parent", err))
		}
		if !ok {
			return fail(fmt.Errorf("%w: %s %s", ErrParentMissing, p.Entity, parentKey(p, it.rec)))
		}
	}

	key := def.Table.KeyOf(it.rec)

	if mode == ModeIncremental {
		existing, err := s.store.Get(ctx, def.Table, key)
		if err != nil && !database.IsNotFound(err) {
			return fail(storeError("get", err))
		}

		d := NeedsWrite(def, it.rec, existing)
		if !d.NeedsUpdate {
			acc.record(def.Key, OutcomeSkipped)
			return nil
		}

		if d.IsNew {
			err := s.store.Insert(ctx, def.Table, it.rec)
			switch {
			case database.IsAlreadyExists(err):
				acc.record(def.Key, OutcomeSkipped)
				return nil
			case err != nil:
				return fail(storeError("insert", err))
			}
			acc.record(def.Key, OutcomeCreated)
			return nil
		}

		if err := s.store.Upsert(ctx, def.Table, it.rec); err != nil {
			return fail(storeError("upsert", err))
		}
		logging.FromContext(ctx).Debug("record updated", "entity", def.Key, "key", it.key, "reason", d.Reason)
		acc.record(def.Key, OutcomeUpdated)
		return nil
	}

	exists, err := s.store.Exists(ctx, def.Table, key)
	if err != nil {
		return fail(storeError("exists", err))
	}
	if err := s.store.Upsert(ctx, def.Table, it.rec); err != nil {
		return fail(storeError("upsert", err))
	}
	if exists {
		acc.record(def.Key, OutcomeUpdated)
	} else {
		acc.record(def.Key, OutcomeCreated)
	}
	return nil
}

func (s *Service) parentExists(ctx context.Context, p Parent, rec database.Record) (bool, error) {
	parent, ok := Get(p.Entity)
	if !ok {
		return false, fmt.Errorf("unknown parent entity %s", p.Entity)
	}
	key := make(database.Record, len(p.Columns))
	for child, col := range p.Columns {
		v := database.Value(rec[child])
		if v == nil {
			return false, nil
		}
		key[col] = v
	}
	return s.store.Exists(ctx, parent.Table, key)
}

func parentKey(p Parent, rec database.Record) string {
	parent, ok := Get(p.Entity)
	if !ok {
		return ""
	}
	parts := make([]any, len(parent.Table.Key))
	for i, col := range parent.Table.Key {
		for child, pc := range p.Columns {
			if pc == col {
				parts[i] = rec[child]
			}
		}
	}
	return CompositeKey(parts...)
}
