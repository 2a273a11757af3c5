package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cespare/xxhash/v2"

	"github.com/fireclub/semsearch/domain/product"
	"github.com/fireclub/semsearch/infrastructure/vector"
)

// File names within the snapshot directory. The previous generation is
// retained under the old suffix as best-effort rollback material.
const (
	TablesFile = "catalog.snap"
	VectorFile = "vectors.idx"

	tmpSuffix = ".tmp"
	oldSuffix = ".old"
)

const (
	tablesMagic   = 0x46534e50 // "FSNP"
	tablesVersion = 1
)

// tornRetryDelay is how long the reader waits before re-reading a pair
// that failed validation; concurrent writers finish renames well within it.
const tornRetryDelay = 250 * time.Millisecond

var (
	// ErrNotExist indicates no snapshot pair has been written yet.
	ErrNotExist = errors.New("snapshot does not exist")

	// ErrTorn indicates the file pair failed checksum or invariant
	// validation, typically because a reader raced the two renames.
	ErrTorn = errors.New("snapshot pair torn")
)

// tables is the gob payload of the tables file. The vector index lives
// in its own file with its own codec.
type tables struct {
	Products  map[int64]product.Product
	Corpus    map[int64]string
	IDToSlot  map[int64]int
	SlotToID  map[int]int64
	NextSlot  int
	Timestamp time.Time
}

// Store reads and writes snapshot pairs in a directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a snapshot store rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string { return s.dir }

// Save writes both files under temporary names, retains the current
// pair under the old suffix, then renames the new pair into place.
// The two final renames are not jointly atomic; Load tolerates the gap.
func (s *Store) Save(snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid snapshot: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tablesPath := filepath.Join(s.dir, TablesFile)
	vectorPath := filepath.Join(s.dir, VectorFile)

	if err := s.writeTables(tablesPath+tmpSuffix, snap); err != nil {
		return err
	}
	if err := s.writeVectors(vectorPath+tmpSuffix, snap.Index); err != nil {
		return err
	}

	for _, path := range []string{tablesPath, vectorPath} {
		if _, err := os.Stat(path); err == nil {
			if err := os.Rename(path, path+oldSuffix); err != nil {
				return fmt.Errorf("retain previous snapshot: %w", err)
			}
		}
	}

	if err := os.Rename(tablesPath+tmpSuffix, tablesPath); err != nil {
		return fmt.Errorf("activate tables file: %w", err)
	}
	if err := os.Rename(vectorPath+tmpSuffix, vectorPath); err != nil {
		return fmt.Errorf("activate vector file: %w", err)
	}

	s.logger.Info("snapshot saved",
		"dir", s.dir,
		"products", len(snap.Products),
		"timestamp", snap.Timestamp)
	return nil
}

// Load reads the current pair and validates it. A pair that fails
// validation is re-read once after a short delay, since a concurrent
// Save may be between its two renames; if it still fails, the torn
// error surfaces to the caller. A missing pair returns ErrNotExist
// without retrying.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(tornRetryDelay), 1), ctx)

	err := backoff.Retry(func() error {
		loaded, err := s.loadOnce()
		if err != nil {
			if errors.Is(err, ErrNotExist) {
				return backoff.Permanent(err)
			}
			s.logger.Warn("snapshot load failed, retrying", "error", err)
			return err
		}
		snap = loaded
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) loadOnce() (*Snapshot, error) {
	tbl, err := s.readTables(filepath.Join(s.dir, TablesFile))
	if err != nil {
		return nil, err
	}
	idx, err := s.readVectors(filepath.Join(s.dir, VectorFile))
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Products:  tbl.Products,
		Corpus:    tbl.Corpus,
		IDToSlot:  tbl.IDToSlot,
		SlotToID:  tbl.SlotToID,
		NextSlot:  tbl.NextSlot,
		Timestamp: tbl.Timestamp,
		Index:     idx,
	}
	if snap.Products == nil {
		snap.Products = map[int64]product.Product{}
	}
	if snap.Corpus == nil {
		snap.Corpus = map[int64]string{}
	}
	if snap.IDToSlot == nil {
		snap.IDToSlot = map[int64]int{}
	}
	if snap.SlotToID == nil {
		snap.SlotToID = map[int]int64{}
	}

	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTorn, err)
	}
	return snap, nil
}

// Tables file layout, little-endian: magic u32, version u32,
// payload length u64, gob payload, xxhash64 of payload.
func (s *Store) writeTables(path string, snap *Snapshot) error {
	var payload bytes.Buffer
	enc := gob.NewEncoder(&payload)
	if err := enc.Encode(tables{
		Products:  snap.Products,
		Corpus:    snap.Corpus,
		IDToSlot:  snap.IDToSlot,
		SlotToID:  snap.SlotToID,
		NextSlot:  snap.NextSlot,
		Timestamp: snap.Timestamp,
	}); err != nil {
		return fmt.Errorf("encode snapshot tables: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create tables file: %w", err)
	}
	defer f.Close()

	header := []any{
		uint32(tablesMagic),
		uint32(tablesVersion),
		uint64(payload.Len()),
	}
	for _, v := range header {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write tables header: %w", err)
		}
	}
	if _, err := f.Write(payload.Bytes()); err != nil {
		return fmt.Errorf("write tables payload: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, xxhash.Sum64(payload.Bytes())); err != nil {
		return fmt.Errorf("write tables checksum: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync tables file: %w", err)
	}
	return f.Close()
}

func (s *Store) readTables(path string) (tables, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tables{}, ErrNotExist
		}
		return tables{}, fmt.Errorf("open tables file: %w", err)
	}
	defer f.Close()

	var magic, version uint32
	var length uint64
	if err := binary.Read(f, binary.LittleEndian, &magic); err != nil {
		return tables{}, fmt.Errorf("%w: tables header: %v", ErrTorn, err)
	}
	if err := binary.Read(f, binary.LittleEndian, &version); err != nil {
		return tables{}, fmt.Errorf("%w: tables header: %v", ErrTorn, err)
	}
	if err := binary.Read(f, binary.LittleEndian, &length); err != nil {
		return tables{}, fmt.Errorf("%w: tables header: %v", ErrTorn, err)
	}
	if magic != tablesMagic {
		return tables{}, fmt.Errorf("%w: bad tables magic %#x", ErrTorn, magic)
	}
	if version != tablesVersion {
		return tables{}, fmt.Errorf("%w: unsupported tables version %d", ErrTorn, version)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(f, payload); err != nil {
		return tables{}, fmt.Errorf("%w: short tables payload: %v", ErrTorn, err)
	}
	var sum uint64
	if err := binary.Read(f, binary.LittleEndian, &sum); err != nil {
		return tables{}, fmt.Errorf("%w: missing tables checksum: %v", ErrTorn, err)
	}
	if sum != xxhash.Sum64(payload) {
		return tables{}, fmt.Errorf("%w: tables checksum mismatch", ErrTorn)
	}

	var tbl tables
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&tbl); err != nil {
		return tables{}, fmt.Errorf("%w: decode tables: %v", ErrTorn, err)
	}
	return tbl, nil
}

func (s *Store) writeVectors(path string, idx *vector.Index) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vector file: %w", err)
	}
	defer f.Close()

	if _, err := idx.WriteTo(f); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync vector file: %w", err)
	}
	return f.Close()
}

func (s *Store) readVectors(path string) (*vector.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("open vector file: %w", err)
	}
	defer f.Close()

	idx, err := vector.Read(f)
	if err != nil {
		if errors.Is(err, vector.ErrCorrupt) {
			return nil, fmt.Errorf("%w: %v", ErrTorn, err)
		}
		return nil, err
	}
	return idx, nil
}
