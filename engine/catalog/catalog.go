// Package catalog builds the canonical anime corpus from the raw CSV
// dataset: load, derive per-record synopsis length, filter out low-quality
// placeholder records, and expose the ordered texts and metadata that drive
// embedding and ingestion.
package catalog

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/AniRecAI/anirec/engine/domain"
	"github.com/AniRecAI/anirec/pkg/fn"
)

// Column names in the raw CSV. The synopsis column keeps the source
// dataset's historical misspelling.
const (
	colMALID    = "MAL_ID"
	colName     = "Name"
	colScore    = "Score"
	colGenres   = "Genres"
	colSynopsis = "sypnopsis"
)

var requiredColumns = []string{colMALID, colName, colScore, colGenres, colSynopsis}

// Loader reads and filters the raw catalog file.
type Loader struct {
	Path           string
	MinSynopsisLen int
	ExcludePattern string
	Logger         *slog.Logger
}

// Corpus is the filtered, ordered record set. Row order of the source file
// is preserved; embeddings are later matched to records by position, so the
// ordering is load-bearing.
type Corpus struct {
	Items []domain.Anime
	byID  map[int64]int
}

// NewCorpus wraps an already filtered, ordered record slice.
func NewCorpus(items []domain.Anime) *Corpus {
	byID := make(map[int64]int, len(items))
	for i, a := range items {
		byID[a.MALID] = i
	}
	return &Corpus{Items: items, byID: byID}
}

// Build runs the full load-derive-filter pass and returns the corpus.
func (l *Loader) Build() (*Corpus, error) {
	log := l.Logger
	if log == nil {
		log = slog.Default()
	}

	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w: %v", l.Path, domain.ErrDataUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog: read header: %w: %v", domain.ErrDataUnavailable, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("catalog: column %q: %w", name, domain.ErrMissingColumn)
		}
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("catalog: read rows: %w: %v", domain.ErrDataUnavailable, err)
	}
	log.Info("catalog loaded", "path", l.Path, "rows", len(rows))

	records := make([]domain.Anime, 0, len(rows))
	for i, row := range rows {
		rec, err := l.parseRow(cols, row)
		if err != nil {
			return nil, fmt.Errorf("catalog: row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}

	kept := fn.Filter(records, func(a domain.Anime) bool {
		if a.SynopsisLength <= l.MinSynopsisLen {
			return false
		}
		return !strings.Contains(a.Synopsis, l.ExcludePattern)
	})
	log.Info("catalog filtered", "kept", len(kept), "dropped", len(records)-len(kept))

	return NewCorpus(kept), nil
}

// parseRow converts one CSV row into a record. A field missing from a short
// row is treated as empty text; its derived length is the length of that
// textual form.
func (l *Loader) parseRow(cols map[string]int, row []string) (domain.Anime, error) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	rawID := strings.TrimSpace(field(colMALID))
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id < 0 {
		return domain.Anime{}, fmt.Errorf("parse %s %q: %w", colMALID, rawID, domain.ErrDataUnavailable)
	}

	syn := field(colSynopsis)
	return domain.Anime{
		MALID:          id,
		Name:           field(colName),
		Score:          field(colScore),
		Genres:         field(colGenres),
		Synopsis:       syn,
		SynopsisLength: utf8.RuneCountInString(syn),
	}, nil
}

// Len returns the number of records in the corpus.
func (c *Corpus) Len() int { return len(c.Items) }

// Texts returns the ordered synopsis list, index-aligned with Meta.
func (c *Corpus) Texts() []string {
	return fn.Map(c.Items, func(a domain.Anime) string { return a.Synopsis })
}

// Meta returns the ordered per-record metadata, index-aligned with Texts.
func (c *Corpus) Meta() []domain.ItemMeta {
	return fn.Map(c.Items, func(a domain.Anime) domain.ItemMeta {
		return domain.ItemMeta{MALID: a.MALID, Name: a.Name}
	})
}

// IDs returns the ordered record ids.
func (c *Corpus) IDs() []int64 {
	return fn.Map(c.Items, func(a domain.Anime) int64 { return a.MALID })
}

// Lookup returns the record for id, or false if it is not in the corpus.
func (c *Corpus) Lookup(id int64) (domain.Anime, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Anime{}, false
	}
	return c.Items[i], true
}
