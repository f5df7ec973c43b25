package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/vinodismyname/decitable/internal/registry"
	"github.com/vinodismyname/decitable/internal/runtime"
	"github.com/vinodismyname/decitable/internal/security"
	"github.com/vinodismyname/decitable/internal/tablestore"
	"github.com/vinodismyname/decitable/internal/telemetry"
	"github.com/vinodismyname/decitable/pkg/decisiontable"
	"github.com/vinodismyname/decitable/pkg/version"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var (
		useStdio        bool
		shutdownTimeout time.Duration
	)

	flag.BoolVar(&useStdio, "stdio", false, "Run server over stdio transport")
	flag.DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "Graceful shutdown timeout")
	flag.Parse()

	logger := zlog.With().Str("service", "decitable-server").Logger()
	ctx := logger.WithContext(context.Background())

	// Security: validate allow-list directories on startup (fail-safe on error)
	secMgr, err := security.NewManagerFromEnv()
	if err != nil {
		logger.Error().Err(err).Msg("security: failed to initialize manager from env")
		fmt.Fprintln(os.Stderr, "invalid security configuration; set DECITABLE_ALLOWED_DIRS")
		os.Exit(1)
	}
	if err := secMgr.ValidateConfig(); err != nil {
		logger.Error().Err(err).Msg("security: invalid allow-list configuration")
		fmt.Fprintln(os.Stderr, "no allowed directories configured; set DECITABLE_ALLOWED_DIRS")
		os.Exit(1)
	}
	logger.Info().Strs("allowed_dirs", secMgr.AllowedDirectories()).Msg("security allow-list configured")

	limits := runtime.NewLimits(10, 4)
	runtimeController := runtime.NewController(limits)
	runtimeMW := runtime.NewMiddleware(runtimeController)

	tableStore := tablestore.NewStore(0, 0, runtimeController, secMgr, time.Now)
	tableStore.Start()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = tableStore.Close(closeCtx)
	}()

	traceStore := decisiontable.NewTraceStore(100)

	toolRegistry := registry.New()
	hooks := telemetry.NewHooks(logger)

	srv := server.NewMCPServer(
		"Decision Table Engine Server",
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithRecovery(),
		server.WithHooks(buildHooks(hooks)),
		server.WithToolHandlerMiddleware(runtimeMW.ToolMiddleware),
	)

	registry.RegisterTools(srv, toolRegistry, tableStore, traceStore, runtimeController.LimitsSnapshot())

	toolContextSize := toolRegistry.ModelContextSize("gpt-4o")

	logger.Info().
		Ctx(ctx).
		Str("version", version.Version()).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_open_tables", limits.MaxOpenTables).
		Int("model_context_size", toolContextSize).
		Bool("stdio", useStdio).
		Msg("server bootstrap configured")

	if useStdio {
		hooks.OnServerStart()
		if err := server.ServeStdio(srv); err != nil {
			// Use stderr for transport errors so clients don't misinterpret output
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		hooks.OnServerStop()
		return
	}

	// If no transport flags provided, print usage and exit non-zero
	fmt.Fprintln(os.Stderr, "no transport selected; use --stdio to run over stdio")
	os.Exit(2)
}

// buildHooks adapts telemetry.Hooks's session/tool-call/resource callbacks
// into mcp-go's *server.Hooks shape.
func buildHooks(h *telemetry.Hooks) *server.Hooks {
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		h.OnSessionStart(session.SessionID())
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		h.OnSessionEnd(session.SessionID())
	})

	hooks.AddAfterReadResource(func(ctx context.Context, id any, req *mcp.ReadResourceRequest, res *mcp.ReadResourceResult) {
		h.OnResourceRead("", req.Params.URI, 0, nil)
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, res *mcp.CallToolResult) {
		var toolErr error
		if res != nil && res.IsError {
			toolErr = fmt.Errorf("tool call returned an error result")
		}
		// mcp-go exposes no before-call hook, so per-call duration isn't
		// available here; OnToolCall still records outcome and session.
		h.OnToolCall("", req.Params.Name, 0, toolErr)
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		h.OnToolCall("", string(method), 0, err)
	})

	return hooks
}
