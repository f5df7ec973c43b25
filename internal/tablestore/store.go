// Package tablestore caches compiled decision tables behind TTL-bearing
// opaque handles, so an MCP tool call can load a table once and reference it
// by ID across a session instead of recompiling the grid on every call.
package tablestore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vinodismyname/decitable/config"
	"github.com/vinodismyname/decitable/internal/gridsource"
	"github.com/vinodismyname/decitable/pkg/decisiontable"
	"github.com/xuri/excelize/v2"
)

// Handle pairs a compiled Table with TTL-eviction bookkeeping. There is no
// read/write mutex here: a decisiontable.Table is immutable end to end, so
// concurrent Decide calls never contend.
type Handle struct {
	ID        string
	Table     *decisiontable.Table
	SourcePath string
	LoadedAt  time.Time
	ExpiresAt time.Time
}

// TableGate coordinates capacity for open table handles, backed by
// internal/runtime's semaphore-based Controller.
type TableGate interface {
	AcquireTable(ctx context.Context) error
	ReleaseTable()
}

// PathValidator abstracts filesystem path validation so tablestore never
// imports internal/security directly.
type PathValidator interface {
	ValidateOpenPath(path string) (string, error)
}

// Store is a TTL-cached collection of compiled tables, safe for concurrent
// use: a handle map with TTL refresh on access, a background eviction
// ticker, and gate-bounded Open. There is no write path since a compiled
// table has none.
type Store struct {
	mu           sync.RWMutex
	handles      map[string]*Handle
	ttl          time.Duration
	cleanupEvery time.Duration
	clock        func() time.Time
	gate         TableGate
	validator    PathValidator
	stopCh       chan struct{}
	cleanupWG    sync.WaitGroup
}

// ErrHandleNotFound indicates an unknown or expired handle ID.
var ErrHandleNotFound = errors.New("tablestore: handle not found")

// NewStore constructs a Store. ttl/cleanupEvery <= 0 fall back to
// config defaults; clock defaults to time.Now when nil.
func NewStore(ttl, cleanupEvery time.Duration, gate TableGate, validator PathValidator, clock func() time.Time) *Store {
	if ttl <= 0 {
		ttl = config.DefaultTableIdleTTL
	}
	if cleanupEvery <= 0 {
		cleanupEvery = config.DefaultTableCleanupPeriod
	}
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		handles:      make(map[string]*Handle),
		ttl:          ttl,
		cleanupEvery: cleanupEvery,
		clock:        clock,
		gate:         gate,
		validator:    validator,
		stopCh:       make(chan struct{}),
	}
}

// Start launches periodic eviction of expired handles.
func (s *Store) Start() {
	s.cleanupWG.Add(1)
	ticker := time.NewTicker(s.cleanupEvery)
	go func() {
		defer s.cleanupWG.Done()
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.EvictExpired()
			}
		}
	}()
}

// Close stops background cleanup; compiled tables hold no OS resources so
// there is nothing further to release per handle.
func (s *Store) Close(ctx context.Context) error {
	close(s.stopCh)
	done := make(chan struct{})
	go func() { s.cleanupWG.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.handles {
		delete(s.handles, id)
		s.release()
	}
	return nil
}

// Open loads and compiles a grid from path, registers a TTL-bearing handle,
// and returns its ID. sheet/cellRange are consulted only for .xlsx-family
// paths; when cellRange is empty for an Excel source, the sheet's highest-
// confidence auto-detected region is used.
func (s *Store) Open(ctx context.Context, path, sheet, cellRange string, opts decisiontable.Options) (string, error) {
	if err := s.acquire(ctx); err != nil {
		return "", err
	}

	if s.validator != nil {
		canonical, err := s.validator.ValidateOpenPath(path)
		if err != nil {
			s.release()
			return "", err
		}
		path = canonical
	}

	grid, err := loadGrid(path, sheet, cellRange)
	if err != nil {
		s.release()
		return "", err
	}

	tbl, err := decisiontable.Parse(grid, opts)
	if err != nil {
		s.release()
		return "", decisiontable.WrapFile(path, err)
	}

	id := uuid.NewString()
	loadedAt := s.clock()
	h := &Handle{ID: id, Table: tbl, SourcePath: path, LoadedAt: loadedAt, ExpiresAt: loadedAt.Add(s.ttl)}

	s.mu.Lock()
	s.handles[id] = h
	s.mu.Unlock()
	return id, nil
}

// Adopt registers an already-compiled table as a managed handle, bypassing
// grid loading entirely. Intended for tests and for callers that compile a
// table from an in-memory grid rather than a file.
func (s *Store) Adopt(ctx context.Context, tbl *decisiontable.Table) (string, error) {
	if tbl == nil {
		return "", fmt.Errorf("tablestore: nil table")
	}
	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	id := uuid.NewString()
	loadedAt := s.clock()
	h := &Handle{ID: id, Table: tbl, LoadedAt: loadedAt, ExpiresAt: loadedAt.Add(s.ttl)}
	s.mu.Lock()
	s.handles[id] = h
	s.mu.Unlock()
	return id, nil
}

func loadGrid(path, sheet, cellRange string) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return gridsource.FromCSVFile(path, ',')
	case ".tsv":
		return gridsource.FromCSVFile(path, '\t')
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, decisiontable.WrapFile(path, err)
		}
		defer f.Close()
		if strings.TrimSpace(cellRange) != "" {
			return gridsource.FromXLSXSheet(f, sheet, cellRange)
		}
		grid, _, err := gridsource.FromXLSXRegion(f, sheet)
		return grid, err
	default:
		return nil, fmt.Errorf("tablestore: unsupported format: %s", ext)
	}
}

// Get returns the handle when present and refreshes its TTL.
func (s *Store) Get(id string) (*Handle, bool) {
	s.mu.RLock()
	h, ok := s.handles[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	now := s.clock()
	s.mu.Lock()
	h.ExpiresAt = now.Add(s.ttl)
	s.mu.Unlock()
	return h, true
}

// WithTable looks up id and invokes fn with the compiled table. No locking
// is needed beyond the handle-map lookup: a decisiontable.Table has no
// mutable state for concurrent Decide calls to race on.
func (s *Store) WithTable(id string, fn func(*decisiontable.Table) error) error {
	h, ok := s.Get(id)
	if !ok {
		return ErrHandleNotFound
	}
	return fn(h.Table)
}

// CloseHandle removes a handle by ID, releasing capacity via the gate.
func (s *Store) CloseHandle(id string) error {
	s.mu.Lock()
	_, ok := s.handles[id]
	if ok {
		delete(s.handles, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrHandleNotFound
	}
	s.release()
	return nil
}

// EvictExpired removes handles past their TTL.
func (s *Store) EvictExpired() {
	now := s.clock()
	var expiredIDs []string

	s.mu.RLock()
	for id, h := range s.handles {
		if now.After(h.ExpiresAt) {
			expiredIDs = append(expiredIDs, id)
		}
	}
	s.mu.RUnlock()

	if len(expiredIDs) == 0 {
		return
	}
	s.mu.Lock()
	for _, id := range expiredIDs {
		delete(s.handles, id)
	}
	s.mu.Unlock()
	for range expiredIDs {
		s.release()
	}
}

// Count returns the current number of cached handles.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

func (s *Store) acquire(ctx context.Context) error {
	if s.gate == nil {
		return nil
	}
	return s.gate.AcquireTable(ctx)
}

func (s *Store) release() {
	if s.gate == nil {
		return
	}
	s.gate.ReleaseTable()
}
