package tablestore

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/decitable/pkg/decisiontable"
)

type fakeGate struct {
	acquireErr error
	acquires   atomic.Int64
	releases   atomic.Int64
}

func (g *fakeGate) AcquireTable(ctx context.Context) error {
	g.acquires.Add(1)
	return g.acquireErr
}
func (g *fakeGate) ReleaseTable() { g.releases.Add(1) }

func writeCSVTable(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.csv")
	require.NoError(t, os.WriteFile(path, []byte("in:x,out:y\n1,ok\n"), 0o644))
	return path
}

func TestOpenGetClose(t *testing.T) {
	gate := &fakeGate{}
	s := NewStore(2*time.Second, time.Second, gate, nil, time.Now)

	path := writeCSVTable(t)
	id, err := s.Open(context.Background(), path, "", "", decisiontable.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, int64(1), gate.acquires.Load())
	require.Equal(t, 1, s.Count())

	h, ok := s.Get(id)
	require.True(t, ok)
	require.Equal(t, id, h.ID)

	require.NoError(t, s.CloseHandle(id))
	require.Equal(t, 0, s.Count())
	require.Equal(t, int64(1), gate.releases.Load())
}

func TestWithTableDecides(t *testing.T) {
	s := NewStore(time.Minute, time.Minute, nil, nil, time.Now)
	path := writeCSVTable(t)
	id, err := s.Open(context.Background(), path, "", "", decisiontable.Options{})
	require.NoError(t, err)

	var out map[string]any
	err = s.WithTable(id, func(tbl *decisiontable.Table) error {
		var derr error
		out, derr = tbl.Decide(map[string]any{"x": "1"}, false)
		return derr
	})
	require.NoError(t, err)
	require.Equal(t, "ok", out["y"])
}

func TestTTLExpiryAndEviction(t *testing.T) {
	var now atomic.Int64
	now.Store(time.Now().UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()) }

	gate := &fakeGate{}
	s := NewStore(50*time.Millisecond, 5*time.Millisecond, gate, nil, clock)

	path := writeCSVTable(t)
	_, err := s.Open(context.Background(), path, "", "", decisiontable.Options{})
	require.NoError(t, err)

	now.Add(int64(100 * time.Millisecond))
	s.EvictExpired()
	require.Equal(t, 0, s.Count())
	require.Equal(t, int64(1), gate.releases.Load())
}

func TestGetUnknownHandle(t *testing.T) {
	s := NewStore(time.Minute, time.Minute, nil, nil, time.Now)
	_, ok := s.Get("missing")
	require.False(t, ok)
}
