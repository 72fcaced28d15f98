// Package mcp exposes oracle as a Model Context Protocol server over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/spachava753/oracle/internal/classify"
	"github.com/spachava753/oracle/internal/dispatch"
	"github.com/spachava753/oracle/internal/storage"
	"github.com/spachava753/oracle/internal/version"
)

const (
	consultToolName  = "consult"
	sessionsToolName = "sessions"

	defaultSessionHours = 24
	defaultSessionLimit = 50
)

// ConsultInput is the argument schema of the consult tool.
type ConsultInput struct {
	Prompt string   `json:"prompt" jsonschema:"The question or task to send to the models"`
	Files  []string `json:"files,omitempty" jsonschema:"Optional file paths, relative to the server's working directory, attached to the prompt"`
	Model  string   `json:"model,omitempty" jsonschema:"Model name or alias; defaults to gpt-5-pro"`
	Engine string   `json:"engine,omitempty" jsonschema:"api or browser; resolved from the environment when empty"`
}

// SessionsInput is the argument schema of the sessions tool.
type SessionsInput struct {
	Hours float64 `json:"hours,omitempty" jsonschema:"Look-back window in hours (default 24)"`
	Limit int     `json:"limit,omitempty" jsonschema:"Maximum number of sessions to return (default 50)"`
}

// ConsultReport is what a consult produced.
type ConsultReport struct {
	SessionID string
	Summary   dispatch.Summary
}

// ServerOptions wires the tools to the command layer.
type ServerOptions struct {
	Consult  func(ctx context.Context, in ConsultInput) (ConsultReport, error)
	Sessions func(ctx context.Context, f storage.Filter) (storage.FilterResult, error)
	Logger   *slog.Logger
}

// Server wraps an MCP server with the consult and sessions tools.
type Server struct {
	opts      ServerOptions
	logger    *slog.Logger
	mcpServer *mcp.Server
}

// NewServer registers both tools. Both callbacks are required.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Consult == nil {
		return nil, errors.New("consult handler is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("sessions handler is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "oracle",
			Title:   "Oracle MCP Server",
			Version: version.Get(),
		},
		nil,
	)
	s := &Server{opts: opts, logger: logger, mcpServer: mcpServer}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        consultToolName,
		Description: "Send a prompt, with optional file attachments, to one model and wait for its answer. Every call is recorded as an oracle session.",
	}, s.handleConsult)
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        sessionsToolName,
		Description: "List recent oracle sessions, newest first.",
	}, s.handleSessions)
	return s, nil
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func (s *Server) handleConsult(ctx context.Context, req *mcp.CallToolRequest, in ConsultInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return errorResult("prompt is required"), nil, nil
	}
	report, err := s.opts.Consult(ctx, in)
	if err != nil && report.SessionID == "" {
		s.logger.Warn("consult failed", slog.String("error", err.Error()))
		return errorResult("consult failed: %v", err), nil, nil
	}

	text := FormatReport(report)
	if err != nil {
		return errorResult("%s\n%v", text, err), nil, nil
	}
	if report.Summary.AllRejected() {
		return errorResult("%s", text), nil, nil
	}
	return textResult(text), nil, nil
}

// FormatReport renders a consult as markdown: one section per model in
// requested order.
func FormatReport(r ConsultReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session %s\n", r.SessionID)
	for _, o := range r.Summary.Outcomes() {
		sb.WriteString(dispatch.Match(o,
			func(f dispatch.Fulfilled) string {
				return fmt.Sprintf("\n## %s\n\n%s\n", f.Model, strings.TrimRight(f.Answer, "\n"))
			},
			func(rj dispatch.Rejected) string {
				line := fmt.Sprintf("\n## %s\n\nfailed: %s\n", rj.Model, rj.Reason)
				if hint := classify.Hint(classify.Classify(rj.Reason)); hint != "" {
					line += fmt.Sprintf("hint: %s\n", hint)
				}
				return line
			},
		))
	}
	return sb.String()
}

func (s *Server) handleSessions(ctx context.Context, req *mcp.CallToolRequest, in SessionsInput) (*mcp.CallToolResult, any, error) {
	f := storage.Filter{Hours: in.Hours, Limit: in.Limit}
	if f.Hours <= 0 {
		f.Hours = defaultSessionHours
	}
	if f.Limit <= 0 {
		f.Limit = defaultSessionLimit
	}
	res, err := s.opts.Sessions(ctx, f)
	if err != nil {
		return errorResult("listing sessions: %v", err), nil, nil
	}
	if res.Total == 0 {
		return textResult(fmt.Sprintf("No sessions found in the last %g hours.", f.Hours)), nil, nil
	}

	var sb strings.Builder
	for _, m := range res.Entries {
		fmt.Fprintf(&sb, "%s\t%s\t%s\t%s\n", m.ID, m.Status, strings.Join(sessionModels(m), ","), m.CreatedAt.Format(time.RFC3339))
	}
	if res.Truncated {
		fmt.Fprintf(&sb, "Showing %d of %d sessions\n", len(res.Entries), res.Total)
	}
	return textResult(sb.String()), nil, nil
}

func sessionModels(m storage.SessionMeta) []string {
	if len(m.Models) == 0 {
		return []string{m.Model}
	}
	names := make([]string, len(m.Models))
	for i, r := range m.Models {
		names[i] = r.Model
	}
	return names
}

// Serve runs the server on stdio until ctx is cancelled or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
