package mcperr

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/vinodismyname/decitable/pkg/decisiontable"
)

// Code defines a canonical MCP error code used across tools.
type Code string

const (
	// Validation & Input
	Validation       Code = "VALIDATION"
	InvalidHandle    Code = "INVALID_HANDLE"
	CellValidation   Code = "CELL_VALIDATION"
	TableStructure   Code = "TABLE_STRUCTURE"
	OptionValidation Code = "OPTION_VALIDATION"

	// Resource & Limits
	BusyResource  Code = "BUSY_RESOURCE"
	Timeout       Code = "TIMEOUT"
	LimitExceeded Code = "LIMIT_EXCEEDED"

	// Loading & decision
	FileWrapped     Code = "FILE_WRAPPED"
	DecideFailed    Code = "DECIDE_FAILED"
	DetectionFailed Code = "DETECTION_FAILED"

	// Internal
	Internal Code = "INTERNAL"
)

// Entry documents a code's standard message, retry semantics, and next steps.
type Entry struct {
	Code      Code
	Message   string
	Retryable bool
	NextSteps []string
}

// catalog maps canonical codes to guidance. Messages can be overridden per error.
var catalog = map[Code]Entry{
	Validation:       {Code: Validation, Message: "invalid inputs", Retryable: true, NextSteps: []string{"Correct the inputs per schema and retry", "See examples in tool description"}},
	InvalidHandle:    {Code: InvalidHandle, Message: "table handle not found or expired", Retryable: true, NextSteps: []string{"Reopen the table via load_table and retry"}},
	CellValidation:   {Code: CellValidation, Message: "a cell in the grid failed to compile", Retryable: false, NextSteps: []string{"Inspect the reported row/column and fix the cell", "Check matcher syntax for the column's role"}},
	TableStructure:   {Code: TableStructure, Message: "the grid is not a valid decision table", Retryable: false, NextSteps: []string{"Ensure a header row with at least one in: and one out: column", "Remove stray blank leading rows"}},
	OptionValidation: {Code: OptionValidation, Message: "table options are invalid", Retryable: true, NextSteps: []string{"Check matchers/mode/regexp_implicit option values"}},

	BusyResource:  {Code: BusyResource, Message: "concurrent request limit reached", Retryable: true, NextSteps: []string{"Retry after a short delay"}},
	Timeout:       {Code: Timeout, Message: "operation exceeded configured time limit", Retryable: true, NextSteps: []string{"Retry or simplify the request"}},
	LimitExceeded: {Code: LimitExceeded, Message: "operation exceeded configured limits", Retryable: true, NextSteps: []string{"Reduce grid size or open fewer tables concurrently"}},

	FileWrapped:     {Code: FileWrapped, Message: "failed to load the grid from its source", Retryable: true, NextSteps: []string{"Verify path, sheet, range, and file format"}},
	DecideFailed:    {Code: DecideFailed, Message: "decision evaluation failed", Retryable: true, NextSteps: []string{"Verify the input record's field names and types"}},
	DetectionFailed: {Code: DetectionFailed, Message: "table region detection failed", Retryable: true, NextSteps: []string{"Specify sheet and range explicitly instead of auto-detection"}},

	Internal: {Code: Internal, Message: "internal error", Retryable: false, NextSteps: []string{"Retry; report if it persists"}},
}

// normalize builds a standard error string including next steps for MCP clients that
// surface only a message string. Format: "CODE: message" followed by a guidance tail.
func normalize(code Code, msg string) string {
	base := strings.TrimSpace(msg)
	e, ok := catalog[code]
	if !ok {
		// Unknown code; preserve as-is
		if base == "" {
			return string(code)
		}
		return fmt.Sprintf("%s: %s", string(code), base)
	}
	if base == "" {
		base = e.Message
	}
	// Append compact nextSteps guidance inline to aid clients lacking structured fields.
	guidance := ""
	if len(e.NextSteps) > 0 {
		guidance = " | nextSteps: " + strings.Join(e.NextSteps, "; ")
	}
	return fmt.Sprintf("%s: %s%s", e.Code, base, guidance)
}

// FromText parses a "CODE: message" string, enriches it with catalog guidance,
// and returns an MCP tool error result.
func FromText(text string) *mcp.CallToolResult {
	t := strings.TrimSpace(text)
	if t == "" {
		return mcp.NewToolResultError(normalize(Validation, ""))
	}
	parts := strings.SplitN(t, ":", 2)
	if len(parts) == 0 {
		return mcp.NewToolResultError(normalize(Validation, t))
	}
	code := Code(strings.TrimSpace(parts[0]))
	msg := ""
	if len(parts) > 1 {
		msg = strings.TrimSpace(parts[1])
	}
	return mcp.NewToolResultError(normalize(code, msg))
}

// New returns an MCP error result for a given code and optional message override.
func New(code Code, message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, message))
}

// Wrapf formats details and returns an MCP error result for the code.
func Wrapf(code Code, format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, fmt.Sprintf(format, args...)))
}

// FromError maps a decisiontable.Error's Kind to its matching catalog code,
// falling back to Internal for unrecognized or plain errors.
func FromError(err error) *mcp.CallToolResult {
	if err == nil {
		return New(Internal, "")
	}
	var dte *decisiontable.Error
	if !asDecisionTableError(err, &dte) {
		return New(Internal, err.Error())
	}
	switch dte.Kind {
	case decisiontable.CellValidation:
		return New(CellValidation, dte.Error())
	case decisiontable.TableStructure:
		return New(TableStructure, dte.Error())
	case decisiontable.OptionValidation:
		return New(OptionValidation, dte.Error())
	case decisiontable.FileWrapped:
		return New(FileWrapped, dte.Error())
	default:
		return New(Internal, dte.Error())
	}
}

func asDecisionTableError(err error, target **decisiontable.Error) bool {
	for err != nil {
		if dte, ok := err.(*decisiontable.Error); ok {
			*target = dte
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsHandleNotFound reports whether err indicates an unknown or expired
// table handle, letting callers map it to InvalidHandle without importing
// internal/tablestore's sentinel directly into every tool handler.
func IsHandleNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "handle not found")
}
