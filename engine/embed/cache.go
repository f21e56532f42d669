package embed

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AniRecAI/anirec/engine/domain"
)

// cacheMagic identifies the persisted vector file format. Each row stores
// the record id next to its vector, so a corpus reordered or refiltered
// between runs invalidates the cache instead of silently misaligning.
var cacheMagic = [8]byte{'A', 'N', 'I', 'V', 'E', 'C', '0', '1'}

// LoadStatus classifies a cache load attempt. A miss or invalid file is a
// normal branch, not an error: the caller regenerates.
type LoadStatus int

const (
	StatusHit LoadStatus = iota
	StatusMiss
	StatusInvalid
)

func (s LoadStatus) String() string {
	switch s {
	case StatusHit:
		return "hit"
	case StatusMiss:
		return "miss"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Cache loads persisted vectors when they match the current corpus and
// regenerates them through the Provider when they don't.
type Cache struct {
	Path     string
	Provider Provider
	Logger   *slog.Logger
}

// Ensure returns one vector per corpus text, in corpus order. Unless
// forceRebuild is set it first tries the persisted file; any load problem
// falls through to regeneration. Regenerated vectors are persisted before
// they are returned.
func (c *Cache) Ensure(ctx context.Context, ids []int64, texts []string, forceRebuild bool) ([][]float32, error) {
	log := c.Logger
	if log == nil {
		log = slog.Default()
	}
	if len(ids) != len(texts) {
		return nil, fmt.Errorf("embed: %d ids vs %d texts", len(ids), len(texts))
	}

	if !forceRebuild {
		vecs, status, reason := c.load(ids)
		if status == StatusHit {
			log.Info("embeddings loaded from cache", "path", c.Path, "count", len(vecs))
			return vecs, nil
		}
		log.Info("embedding cache unusable, regenerating", "status", status.String(), "reason", reason)
	}

	log.Info("generating embeddings", "count", len(texts))
	vecs, err := c.Provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: generate: %w: %v", domain.ErrEmbedderUnavailable, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed: backend returned %d vectors for %d texts", len(vecs), len(texts))
	}
	dim := c.Provider.Dimension()
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("embed: vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}

	if err := c.save(ids, vecs); err != nil {
		return nil, fmt.Errorf("embed: persist: %w", err)
	}
	log.Info("embeddings persisted", "path", c.Path, "count", len(vecs))
	return vecs, nil
}

// load reads the persisted vectors and validates them against the current
// corpus ids and the provider dimension.
func (c *Cache) load(ids []int64) ([][]float32, LoadStatus, string) {
	f, err := os.Open(c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, StatusMiss, "file absent"
		}
		return nil, StatusInvalid, err.Error()
	}
	defer f.Close()

	var hdr struct {
		Magic [8]byte
		Dim   uint32
		Count uint32
	}
	if err := binary.Read(f, binary.LittleEndian, &hdr); err != nil {
		return nil, StatusInvalid, "short header"
	}
	if hdr.Magic != cacheMagic {
		return nil, StatusInvalid, "bad magic"
	}
	if int(hdr.Dim) != c.Provider.Dimension() {
		return nil, StatusInvalid, fmt.Sprintf("dimension %d, want %d", hdr.Dim, c.Provider.Dimension())
	}
	if int(hdr.Count) != len(ids) {
		return nil, StatusInvalid, fmt.Sprintf("row count %d, corpus size %d", hdr.Count, len(ids))
	}

	vecs := make([][]float32, hdr.Count)
	for i := range vecs {
		var id int64
		if err := binary.Read(f, binary.LittleEndian, &id); err != nil {
			return nil, StatusInvalid, "truncated rows"
		}
		if id != ids[i] {
			return nil, StatusInvalid, fmt.Sprintf("row %d holds id %d, corpus has %d", i, id, ids[i])
		}
		v := make([]float32, hdr.Dim)
		if err := binary.Read(f, binary.LittleEndian, v); err != nil {
			return nil, StatusInvalid, "truncated rows"
		}
		vecs[i] = v
	}
	if _, err := f.Read(make([]byte, 1)); err != io.EOF {
		return nil, StatusInvalid, "trailing data"
	}
	return vecs, StatusHit, ""
}

// save writes the (id, vector) rows atomically via a temp file rename.
func (c *Cache) save(ids []int64, vecs [][]float32) error {
	if dir := filepath.Dir(c.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.Path), ".anivec-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	hdr := struct {
		Magic [8]byte
		Dim   uint32
		Count uint32
	}{cacheMagic, uint32(c.Provider.Dimension()), uint32(len(vecs))}
	if err := binary.Write(tmp, binary.LittleEndian, hdr); err != nil {
		tmp.Close()
		return err
	}
	for i, v := range vecs {
		if err := binary.Write(tmp, binary.LittleEndian, ids[i]); err != nil {
			tmp.Close()
			return err
		}
		if err := binary.Write(tmp, binary.LittleEndian, v); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.Path)
}
