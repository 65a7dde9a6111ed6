package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-flow-graph/pkg/cfg"
)

// Snapshot is the cacheable form of one built graph: flattened records
// plus the function table, keyed by source content hash so any edit to
// the file invalidates it.
type Snapshot struct {
	Path      string                   `msgpack:"path"`
	Hash      string                   `msgpack:"hash"`
	BuiltAt   int64                    `msgpack:"built_at"`
	Start     int                      `msgpack:"start"`
	Stop      int                      `msgpack:"stop"`
	Records   []cfg.Record             `msgpack:"records"`
	Functions map[string]cfg.FuncEntry `msgpack:"functions"`
}

// NewSnapshot flattens a built graph for caching.
func NewSnapshot(path, hash string, g *cfg.Graph) *Snapshot {
	funcs := make(map[string]cfg.FuncEntry, len(g.Functions))
	for name, fe := range g.Functions {
		funcs[name] = fe
	}
	return &Snapshot{
		Path:      path,
		Hash:      hash,
		BuiltAt:   time.Now().Unix(),
		Start:     g.Start,
		Stop:      g.Stop,
		Records:   g.Records(true),
		Functions: funcs,
	}
}

// Encode writes the snapshot as msgpack.
func (s *Snapshot) Encode(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(s)
}

// DecodeSnapshot reads one msgpack snapshot.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &s, nil
}

// approxSize estimates held memory for byte-bounded eviction.
func (s *Snapshot) approxSize() int64 {
	size := int64(len(s.Path)+len(s.Hash)) + 64
	for i := range s.Records {
		r := &s.Records[i]
		size += int64(len(r.Text)+len(r.Func)) + 64
		size += int64(8 * (len(r.Parents) + len(r.Children)))
		for _, call := range r.Calls {
			size += int64(len(call)) + 16
		}
	}
	for name := range s.Functions {
		size += int64(len(name)) + 32
	}
	return size
}

// DiskStore is a content-addressed snapshot store: one msgpack file
// per source hash under a single directory.
type DiskStore struct {
	dir string
}

// NewDiskStore opens a store rooted at dir, creating it if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Get loads the snapshot for hash. A missing file is a miss, not an
// error.
func (d *DiskStore) Get(hash string) (*Snapshot, bool, error) {
	f, err := os.Open(d.file(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	s, err := DecodeSnapshot(f)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// Put writes the snapshot under its hash.
func (d *DiskStore) Put(s *Snapshot) error {
	// Write through a temp file so concurrent builders of identical
	// sources never see a half-written snapshot.
	tmp, err := os.CreateTemp(d.dir, s.Hash+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	if err := s.Encode(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.file(s.Hash)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storing snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot for hash if present.
func (d *DiskStore) Delete(hash string) error {
	err := os.Remove(d.file(hash))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *DiskStore) file(hash string) string {
	return filepath.Join(d.dir, hash+".gfgc")
}

// HashBytes returns the hex SHA256 of data, the cache key for source
// content.
func HashBytes(data []byte) string {
	h := sha256.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
