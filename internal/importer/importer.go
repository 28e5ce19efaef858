// Package importer bulk-loads the CSV data files shipped with the project
// (users.csv, category.csv, genre.csv, titles.csv, genre_title.csv,
// review.csv, comments.csv) into storage.
//
// Rows are written as-is, without the API's validation, in one transaction:
// a bad row anywhere aborts the whole load. Storage constraints (unique
// slugs, the score range, foreign keys) still apply.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/repository"
)

// source ties a table to the file names it may be shipped under.
type source struct {
	table string
	files []string
}

// sources is in dependency order: every table comes after the tables it
// references.
var sources = []source{
	{"users", []string{"users.csv"}},
	{"categories", []string{"category.csv"}},
	{"genres", []string{"genre.csv"}},
	{"titles", []string{"titles.csv"}},
	{"genre_title", []string{"genre_title.csv"}},
	{"reviews", []string{"review.csv", "reviews.csv"}},
	{"comments", []string{"comments.csv"}},
}

// relationColumns maps the relation names used in CSV headers to the
// foreign key columns they fill.
var relationColumns = map[string]string{
	"author":   "author_id",
	"category": "category_id",
	"genre":    "genre_id",
	"review":   "review_id",
	"title":    "title_id",
}

type columnKind int

const (
	kindText columnKind = iota
	kindInt
	kindNullableInt
	kindBool
	kindTime
)

var columnKinds = map[string]columnKind{
	"id":           kindInt,
	"year":         kindInt,
	"score":        kindInt,
	"author_id":    kindInt,
	"genre_id":     kindInt,
	"review_id":    kindInt,
	"title_id":     kindInt,
	"category_id":  kindNullableInt,
	"is_superuser": kindBool,
	"pub_date":     kindTime,
	"date_joined":  kindTime,
}

// Result reports what was loaded from one file.
type Result struct {
	Table string
	File  string
	Rows  int
}

type Importer struct {
	seeder repository.Seeder
	now    func() time.Time
	logger *slog.Logger
}

func New(seeder repository.Seeder, logger *slog.Logger) *Importer {
	return &Importer{
		seeder: seeder,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Load reads every known file present in fsys and inserts its rows. Missing
// files are skipped with a warning. Results are in load order.
func (im *Importer) Load(ctx context.Context, fsys fs.FS) ([]Result, error) {
	var results []Result

	err := im.seeder.Seed(ctx, func(ins repository.RowInserter) error {
		results = results[:0]
		for _, src := range sources {
			name, ok := findFile(fsys, src.files)
			if !ok {
				im.logger.Warn("data file not found, skipping",
					slog.String("table", src.table),
					slog.String("file", src.files[0]),
				)
				continue
			}

			n, err := im.loadFile(ctx, ins, fsys, src.table, name)
			if err != nil {
				return fmt.Errorf("importer: %s: %w", name, err)
			}

			im.logger.Info("data file loaded",
				slog.String("table", src.table),
				slog.String("file", name),
				slog.Int("rows", n),
			)
			results = append(results, Result{Table: src.table, File: name, Rows: n})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func findFile(fsys fs.FS, names []string) (string, bool) {
	for _, name := range names {
		if _, err := fs.Stat(fsys, name); err == nil {
			return name, true
		}
	}
	return "", false
}

func (im *Importer) loadFile(ctx context.Context, ins repository.RowInserter, fsys fs.FS, table, name string) (int, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading header: %w", err)
	}
	columns := columnNames(header)

	var rows [][]any
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("reading line %d: %w", line, err)
		}

		row := make([]any, len(columns))
		for i, col := range columns {
			v, err := im.convert(col, record[i])
			if err != nil {
				return 0, apperror.ValidationFailed(col, fmt.Sprintf("line %d: %v", line, err))
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	return ins.InsertRows(ctx, table, columns, rows)
}

// columnNames normalises a CSV header into storage column names.
func columnNames(header []string) []string {
	columns := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if col, ok := relationColumns[h]; ok {
			h = col
		}
		columns[i] = h
	}
	return columns
}

func (im *Importer) convert(column, raw string) (any, error) {
	raw = strings.TrimSpace(raw)

	switch columnKinds[column] {
	case kindInt:
		return strconv.ParseInt(raw, 10, 64)
	case kindNullableInt:
		if raw == "" {
			return nil, nil
		}
		return strconv.ParseInt(raw, 10, 64)
	case kindBool:
		if raw == "" {
			return false, nil
		}
		return strconv.ParseBool(raw)
	case kindTime:
		if raw == "" {
			return im.now(), nil
		}
		return parseTime(raw)
	}
	return raw, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}
