package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vinodismyname/decitable/internal/runtime"
	"github.com/vinodismyname/decitable/internal/security"
	"github.com/vinodismyname/decitable/internal/tablestore"
	"github.com/vinodismyname/decitable/pkg/decisiontable"
	"github.com/vinodismyname/decitable/pkg/mcperr"
	"github.com/vinodismyname/decitable/pkg/validation"
)

// --- Input / Output schemas (typed for discovery) ---

// LoadTableInput defines parameters for compiling and caching a decision
// table behind a handle.
type LoadTableInput struct {
	Path            string `json:"path" validate:"required,gridpath_ext" jsonschema_description:"Allowed path to a .csv, .tsv, or Excel grid file"`
	Sheet           string `json:"sheet,omitempty" jsonschema_description:"Sheet name; required for Excel sources"`
	Range           string `json:"range,omitempty" jsonschema_description:"A1-style range within the sheet; the highest-confidence auto-detected region is used when omitted"`
	Mode            string `json:"mode,omitempty" validate:"omitempty,oneof=first_match accumulate" jsonschema_description:"Row-collection mode: first_match (default) or accumulate"`
	DisableMatchers bool   `json:"disable_matchers,omitempty" jsonschema_description:"Compile every cell as a literal constant instead of dispatching matchers"`
	RegexpImplicit  bool   `json:"regexp_implicit,omitempty" jsonschema_description:"Treat bare constant cells containing regex metacharacters as implicit patterns"`
	TextOnly        bool   `json:"text_only,omitempty" jsonschema_description:"Disable matcher dispatch table-wide, equivalent to the grid's text_only option row"`
}

// ColumnSummary describes one compiled column for load_table's response.
type ColumnSummary struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Indexed bool   `json:"indexed"`
}

// LoadTableOutput reports the new handle and a column-dictionary summary.
type LoadTableOutput struct {
	HandleID string          `json:"handle_id"`
	RowCount int             `json:"row_count"`
	HasIndex bool            `json:"has_index"`
	HasPath  bool            `json:"has_path"`
	Columns  []ColumnSummary `json:"columns"`
}

// HandleInput is shared by every tool that operates on a cached handle only.
type HandleInput struct {
	HandleID string `json:"handle_id" validate:"required" jsonschema_description:"Handle returned by load_table"`
}

// DecideInput defines parameters for evaluating an input record.
type DecideInput struct {
	HandleID      string         `json:"handle_id" validate:"required" jsonschema_description:"Handle returned by load_table"`
	Input         map[string]any `json:"input" validate:"required" jsonschema_description:"Input record: field name to value"`
	SymbolizeKeys bool           `json:"symbolize_keys,omitempty" jsonschema_description:"Normalize returned field names the way header names are normalized (whitespace to underscore)"`
	Trace         bool           `json:"trace,omitempty" jsonschema_description:"Record a decision trace retrievable later via trace_lookup"`
}

// DecideOutput carries the resulting output record, or {} for no match.
type DecideOutput struct {
	Result  map[string]any `json:"result"`
	TraceID string         `json:"trace_id,omitempty"`
}

// ColumnProfile mirrors decisiontable.ColumnProfileEntry for the tool response.
type ColumnProfile struct {
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	EmptyFraction float64  `json:"empty_fraction"`
	ConstFraction float64  `json:"const_fraction"`
	ProcFraction  float64  `json:"proc_fraction"`
	Indexed       bool     `json:"indexed"`
	Warnings      []string `json:"warnings,omitempty"`
}

// ProfileTableOutput is the §15.1 column profile report.
type ProfileTableOutput struct {
	Columns  []ColumnProfile `json:"columns"`
	RowCount int             `json:"row_count"`
	HasIndex bool            `json:"has_index"`
	HasPath  bool            `json:"has_path"`
}

// FunnelTableInput defines parameters for the §15.2 match funnel.
type FunnelTableInput struct {
	HandleID      string         `json:"handle_id" validate:"required" jsonschema_description:"Handle returned by load_table"`
	Input         map[string]any `json:"input" validate:"required" jsonschema_description:"Input record to stage through the match algorithm"`
	SymbolizeKeys bool           `json:"symbolize_keys,omitempty" jsonschema_description:"Unused by the funnel; accepted for parity with decide's input shape"`
}

// FunnelStageOut mirrors decisiontable.FunnelStage.
type FunnelStageOut struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Conversion float64 `json:"conversion"`
}

// FunnelTableOutput is the §15.2 match funnel report.
type FunnelTableOutput struct {
	Stages     []FunnelStageOut `json:"stages"`
	Bottleneck string           `json:"bottleneck"`
}

// ConcentrationTableInput defines parameters for the §15.3 index concentration report.
type ConcentrationTableInput struct {
	HandleID string `json:"handle_id" validate:"required" jsonschema_description:"Handle returned by load_table"`
	TopN     int    `json:"top_n,omitempty" validate:"omitempty,min=1,max=10" jsonschema_description:"Number of top key groups to report (default 5, max 10)"`
}

// KeyShareOut mirrors decisiontable.KeyShare.
type KeyShareOut struct {
	Key   string  `json:"key"`
	Rows  int     `json:"rows"`
	Share float64 `json:"share"`
}

// ConcentrationTableOutput is the §15.3 index concentration report.
type ConcentrationTableOutput struct {
	TopN       int           `json:"top_n"`
	Groups     []KeyShareOut `json:"groups"`
	OtherShare float64       `json:"other_share"`
	HHI        float64       `json:"hhi"`
	Band       string        `json:"band"`
}

// RecommendationOut mirrors decisiontable.Recommendation.
type RecommendationOut struct {
	ToolName   string  `json:"tool_name"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
	Priority   int     `json:"priority"`
}

// AdviseTableOutput is the §15.4 recommendation advisor report.
type AdviseTableOutput struct {
	Recommendations []RecommendationOut `json:"recommendations"`
}

// TraceLookupInput defines parameters for fetching a recorded decision trace.
type TraceLookupInput struct {
	TraceID string `json:"trace_id" validate:"required" jsonschema_description:"Trace ID returned by decide with trace=true"`
}

// VisitOut mirrors decisiontable.Visit.
type VisitOut struct {
	RowIndex int    `json:"row_index"`
	Outcome  string `json:"outcome"`
}

// TraceLookupOutput is the §15.5 decision trace.
type TraceLookupOutput struct {
	TraceID   string         `json:"trace_id"`
	Result    map[string]any `json:"result"`
	Visits    []VisitOut     `json:"visits"`
	CreatedAt string         `json:"created_at"`
}

// RegisterTools wires the engine's operational surface: load_table, decide,
// profile_table, funnel_table, concentration_table, advise_table, and
// trace_lookup. There is no write-tool filter stage here (unlike a tool
// server that also mutates its backing store) because decisiontable.Table is
// immutable end to end -- nothing this registry exposes needs hiding from
// discovery.
func RegisterTools(s *server.MCPServer, reg *Registry, store *tablestore.Store, traces *decisiontable.TraceStore, limits runtime.Limits) {
	registerLoadTable(s, reg, store)
	registerDecide(s, reg, store, traces, limits)
	registerProfileTable(s, reg, store)
	registerFunnelTable(s, reg, store)
	registerConcentrationTable(s, reg, store)
	registerAdviseTable(s, reg, store)
	registerTraceLookup(s, reg, traces)
}

func registerLoadTable(s *server.MCPServer, reg *Registry, store *tablestore.Store) {
	tool := mcp.NewTool(
		"load_table",
		mcp.WithDescription("Load a tabular rule grid from a .csv/.tsv/Excel source, compile it into a decision table, and cache it behind an opaque handle. Returns the handle ID plus a column-dictionary summary (name, role, whether the column participates in the constant-key index). Path access is checked against the server's allow-listed directories and supported extensions; INVALID_HANDLE never applies here, but CELL_VALIDATION/TABLE_STRUCTURE/OPTION_VALIDATION/FILE_WRAPPED surface grid compilation failures."),
		mcp.WithInputSchema[LoadTableInput](),
		mcp.WithOutputSchema[LoadTableOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in LoadTableInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}

		opts := decisiontable.Options{
			RegexpImplicit: in.RegexpImplicit,
			TextOnly:       in.TextOnly,
		}
		if in.DisableMatchers {
			opts.MatchersKind = decisiontable.MatchersDisabled
		}
		if strings.EqualFold(in.Mode, "accumulate") {
			opts.Mode = decisiontable.Accumulate
		}

		id, err := store.Open(ctx, in.Path, in.Sheet, in.Range, opts)
		if err != nil {
			return mapOpenError(err), nil
		}

		h, ok := store.Get(id)
		if !ok {
			return mcperr.New(mcperr.Internal, "handle vanished immediately after open"), nil
		}
		profile := h.Table.Profile()

		out := LoadTableOutput{
			HandleID: id,
			RowCount: profile.RowCount,
			HasIndex: profile.HasIndex,
			HasPath:  profile.HasPath,
		}
		for _, c := range profile.Columns {
			out.Columns = append(out.Columns, ColumnSummary{Name: c.Name, Kind: c.Kind.String(), Indexed: c.Indexed})
		}

		summary := fmt.Sprintf("handle=%s rows=%d columns=%d indexed=%v path=%v", id, out.RowCount, len(out.Columns), out.HasIndex, out.HasPath)
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(tool)
}

func registerDecide(s *server.MCPServer, reg *Registry, store *tablestore.Store, traces *decisiontable.TraceStore, limits runtime.Limits) {
	tool := mcp.NewTool(
		"decide",
		mcp.WithDescription("Evaluate an input record against a cached decision table and return the matched row's output fields (or {} when nothing matches). Set trace=true to additionally record a decision trace retrievable via trace_lookup. Errors: INVALID_HANDLE when the handle is unknown or expired, LIMIT_EXCEEDED when the input record exceeds the configured payload size, DECIDE_FAILED for unexpected evaluation failures."),
		mcp.WithInputSchema[DecideInput](),
		mcp.WithOutputSchema[DecideOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in DecideInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		if limits.MaxPayloadBytes > 0 {
			if b, err := json.Marshal(in.Input); err == nil && len(b) > limits.MaxPayloadBytes {
				return mcperr.New(mcperr.LimitExceeded, fmt.Sprintf("input record is %d bytes, exceeds %d", len(b), limits.MaxPayloadBytes)), nil
			}
		}

		var out DecideOutput
		err := store.WithTable(in.HandleID, func(tbl *decisiontable.Table) error {
			if in.Trace {
				result, traceID, derr := tbl.DecideTraced(in.Input, in.SymbolizeKeys, traces)
				out.Result, out.TraceID = result, traceID
				return derr
			}
			result, derr := tbl.Decide(in.Input, in.SymbolizeKeys)
			out.Result = result
			return derr
		})
		if err != nil {
			return mapHandleError(err, mcperr.DecideFailed), nil
		}

		summary := fmt.Sprintf("fields=%d multi_result=%v", len(out.Result), out.Result["multi_result"])
		if out.TraceID != "" {
			summary += fmt.Sprintf(" trace_id=%s", out.TraceID)
		}
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(tool)
}

func registerProfileTable(s *server.MCPServer, reg *Registry, store *tablestore.Store) {
	tool := mcp.NewTool(
		"profile_table",
		mcp.WithDescription("Report each column's cell-kind distribution (empty/constant/proc fractions), whether it participates in the constant-key index, and any structural warnings. Read-only over a cached handle. Errors: INVALID_HANDLE."),
		mcp.WithInputSchema[HandleInput](),
		mcp.WithOutputSchema[ProfileTableOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in HandleInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		var out ProfileTableOutput
		err := store.WithTable(in.HandleID, func(tbl *decisiontable.Table) error {
			p := tbl.Profile()
			out.RowCount, out.HasIndex, out.HasPath = p.RowCount, p.HasIndex, p.HasPath
			for _, c := range p.Columns {
				out.Columns = append(out.Columns, ColumnProfile{
					Name: c.Name, Kind: c.Kind.String(),
					EmptyFraction: c.EmptyFraction, ConstFraction: c.ConstFraction, ProcFraction: c.ProcFraction,
					Indexed: c.Indexed, Warnings: c.Warnings,
				})
			}
			return nil
		})
		if err != nil {
			return mapHandleError(err, mcperr.Internal), nil
		}

		summary := fmt.Sprintf("columns=%d rows=%d indexed=%v", len(out.Columns), out.RowCount, out.HasIndex)
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(tool)
}

func registerFunnelTable(s *server.MCPServer, reg *Registry, store *tablestore.Store) {
	tool := mcp.NewTool(
		"funnel_table",
		mcp.WithDescription("Stage an input record through the match algorithm without accepting or rejecting it outright, reporting how many candidate rows survive each stage (candidates, constant_match, predicate_match, if_guard) and which stage eliminated the most rows. Useful for diagnosing why an expected row didn't match. Errors: INVALID_HANDLE."),
		mcp.WithInputSchema[FunnelTableInput](),
		mcp.WithOutputSchema[FunnelTableOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in FunnelTableInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		var out FunnelTableOutput
		err := store.WithTable(in.HandleID, func(tbl *decisiontable.Table) error {
			report, ferr := tbl.Funnel(in.Input, in.SymbolizeKeys)
			if ferr != nil {
				return ferr
			}
			out.Bottleneck = report.Bottleneck
			for _, st := range report.Stages {
				out.Stages = append(out.Stages, FunnelStageOut{Name: st.Name, Count: st.Count, Conversion: st.Conversion})
			}
			return nil
		})
		if err != nil {
			return mapHandleError(err, mcperr.Internal), nil
		}

		summary := fmt.Sprintf("stages=%d bottleneck=%s", len(out.Stages), out.Bottleneck)
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(tool)
}

func registerConcentrationTable(s *server.MCPServer, reg *Registry, store *tablestore.Store) {
	tool := mcp.NewTool(
		"concentration_table",
		mcp.WithDescription("Report Top-N row-share and the Herfindahl-Hirschman Index over the table's constant-key index, banded low/moderate/high. Only meaningful for tables with an index; returns TABLE_STRUCTURE when the table has none. Errors: INVALID_HANDLE."),
		mcp.WithInputSchema[ConcentrationTableInput](),
		mcp.WithOutputSchema[ConcentrationTableOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in ConcentrationTableInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		var out ConcentrationTableOutput
		err := store.WithTable(in.HandleID, func(tbl *decisiontable.Table) error {
			report, cerr := tbl.Concentration(in.TopN)
			if cerr != nil {
				return cerr
			}
			out.TopN, out.OtherShare, out.HHI, out.Band = report.TopN, report.OtherShare, report.HHI, report.Band
			for _, g := range report.Groups {
				out.Groups = append(out.Groups, KeyShareOut{Key: g.Key, Rows: g.Rows, Share: g.Share})
			}
			return nil
		})
		if err != nil {
			return mapHandleError(err, mcperr.Internal), nil
		}

		summary := fmt.Sprintf("top_n=%d hhi=%.3f band=%s groups=%d", out.TopN, out.HHI, out.Band, len(out.Groups))
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(tool)
}

func registerAdviseTable(s *server.MCPServer, reg *Registry, store *tablestore.Store) {
	tool := mcp.NewTool(
		"advise_table",
		mcp.WithDescription("Inspect a table's static shape (row count, index presence, predicate-valued outputs, profile warnings) and return a priority-ordered list of diagnostics likely worth running next. Purely static: no input record required. Errors: INVALID_HANDLE."),
		mcp.WithInputSchema[HandleInput](),
		mcp.WithOutputSchema[AdviseTableOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in HandleInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		var out AdviseTableOutput
		err := store.WithTable(in.HandleID, func(tbl *decisiontable.Table) error {
			for _, r := range decisiontable.Advise(tbl) {
				out.Recommendations = append(out.Recommendations, RecommendationOut{
					ToolName: r.ToolName, Confidence: r.Confidence, Rationale: r.Rationale, Priority: r.Priority,
				})
			}
			return nil
		})
		if err != nil {
			return mapHandleError(err, mcperr.Internal), nil
		}

		summary := fmt.Sprintf("recommendations=%d", len(out.Recommendations))
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(tool)
}

func registerTraceLookup(s *server.MCPServer, reg *Registry, traces *decisiontable.TraceStore) {
	tool := mcp.NewTool(
		"trace_lookup",
		mcp.WithDescription("Fetch a previously recorded decision trace by ID (see decide's trace=true), reporting the row-by-row visitation history: which rows were visited, in what order, and why each did or did not contribute to the result (constant_mismatch, predicate_rejected, if_guard_rejected, or accepted). Traces are process-local and bounded; an evicted or unknown ID returns INVALID_HANDLE."),
		mcp.WithInputSchema[TraceLookupInput](),
		mcp.WithOutputSchema[TraceLookupOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in TraceLookupInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		tr, ok := traces.Get(in.TraceID)
		if !ok {
			return mcperr.New(mcperr.InvalidHandle, "trace not found or evicted"), nil
		}

		out := TraceLookupOutput{
			TraceID:   tr.ID,
			Result:    tr.Result,
			CreatedAt: tr.CreatedAt.Format(time.RFC3339),
		}
		for _, v := range tr.Visits {
			out.Visits = append(out.Visits, VisitOut{RowIndex: v.RowIndex, Outcome: string(v.Outcome)})
		}

		summary := fmt.Sprintf("visits=%d result_fields=%d", len(out.Visits), len(out.Result))
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(tool)
}

// mapOpenError classifies a load_table failure: filesystem/security
// sentinel errors map to Validation, decisiontable compile errors map via
// mcperr.FromError, and anything else is Internal.
func mapOpenError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, security.ErrNotAllowed), errors.Is(err, security.ErrUnsupportedExtension), errors.Is(err, security.ErrNotFound):
		return mcperr.New(mcperr.Validation, err.Error())
	}
	var dte *decisiontable.Error
	if errors.As(err, &dte) {
		return mcperr.FromError(err)
	}
	return mcperr.New(mcperr.Internal, err.Error())
}

// mapHandleError classifies a failure surfaced while operating on a cached
// handle: an unknown/expired handle always maps to InvalidHandle, a
// decisiontable error maps via mcperr.FromError, and any other error falls
// back to the caller-supplied default code.
func mapHandleError(err error, fallback mcperr.Code) *mcp.CallToolResult {
	if errors.Is(err, tablestore.ErrHandleNotFound) {
		return mcperr.New(mcperr.InvalidHandle, "")
	}
	var dte *decisiontable.Error
	if errors.As(err, &dte) {
		return mcperr.FromError(err)
	}
	return mcperr.New(fallback, err.Error())
}
