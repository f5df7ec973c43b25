package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/decitable/internal/runtime"
	"github.com/vinodismyname/decitable/internal/tablestore"
	"github.com/vinodismyname/decitable/pkg/decisiontable"
)

func writeCSVTable(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.csv")
	require.NoError(t, os.WriteFile(path, []byte(rows), 0o644))
	return path
}

func TestRegisterTools_AllToolsDiscoverable(t *testing.T) {
	reg := New()
	store := tablestore.NewStore(time.Minute, time.Minute, nil, nil, time.Now)
	traces := decisiontable.NewTraceStore(10)
	srv := server.NewMCPServer("test", "0.0.0")

	RegisterTools(srv, reg, store, traces, runtime.NewLimits(1, 1))

	tools, err := reg.Tools(context.Background())
	require.NoError(t, err)

	names := make(map[string]bool, len(tools))
	for _, tl := range tools {
		names[tl.Name] = true
	}
	for _, want := range []string{
		"load_table", "decide", "profile_table", "funnel_table",
		"concentration_table", "advise_table", "trace_lookup",
	} {
		require.True(t, names[want], "expected %s to be registered", want)
	}
}

func TestMapOpenError_UnknownIsInternal(t *testing.T) {
	res := mapOpenError(errors.New("boom"))
	require.True(t, res.IsError)
}

func TestMapHandleError_HandleNotFound(t *testing.T) {
	res := mapHandleError(tablestore.ErrHandleNotFound, "DECIDE_FAILED")
	require.True(t, res.IsError)
}

func TestLoadAndDecide_EndToEnd(t *testing.T) {
	path := writeCSVTable(t, "in:x,out:y\n1,ok\n2,no\n")

	store := tablestore.NewStore(time.Minute, time.Minute, nil, nil, time.Now)
	id, err := store.Open(context.Background(), path, "", "", decisiontable.Options{})
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, store.WithTable(id, func(tbl *decisiontable.Table) error {
		var derr error
		result, derr = tbl.Decide(map[string]any{"x": "1"}, false)
		return derr
	}))
	require.Equal(t, "ok", result["y"])
}
