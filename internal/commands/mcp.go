package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/spachava753/oracle/internal/config"
	mcpserver "github.com/spachava753/oracle/internal/mcp"
	"github.com/spachava753/oracle/internal/storage"
)

// ServeMCPOptions contains parameters for the MCP stdio server
type ServeMCPOptions struct {
	Config  *config.RawConfig
	Env     config.Env
	Backend Backend
	// Cwd resolves attachments named by the consult tool
	Cwd   string
	Files fs.FS
}

// ServeMCP serves the consult and sessions tools on stdio until ctx ends.
// Nothing else may write to stdout while it runs.
func ServeMCP(ctx context.Context, opts ServeMCPOptions) error {
	server, err := mcpserver.NewServer(mcpserver.ServerOptions{
		Consult: func(ctx context.Context, in mcpserver.ConsultInput) (mcpserver.ConsultReport, error) {
			return consultForMCP(ctx, opts, in)
		},
		Sessions: func(ctx context.Context, f storage.Filter) (storage.FilterResult, error) {
			metas, err := opts.Backend.Store.ListSessions(ctx)
			if err != nil {
				return storage.FilterResult{}, err
			}
			return storage.FilterSessions(metas, f, time.Now()), nil
		},
		Logger: opts.Backend.logger(),
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Serve(ctx)
}

func consultForMCP(ctx context.Context, opts ServeMCPOptions, in mcpserver.ConsultInput) (mcpserver.ConsultReport, error) {
	req, err := config.MapConsultToRunRequest(opts.Config, opts.Env, config.ConsultInput{
		Prompt: in.Prompt,
		Files:  in.Files,
		Model:  in.Model,
		Engine: in.Engine,
	})
	if err != nil {
		return mcpserver.ConsultReport{}, err
	}

	res, err := consult(ctx, ConsultOptions{
		Config:  opts.Config,
		Env:     opts.Env,
		Cwd:     opts.Cwd,
		Files:   opts.Files,
		Backend: opts.Backend,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}, req)
	if res == nil {
		return mcpserver.ConsultReport{}, err
	}
	// the report already marks an all-rejected run as a tool error
	var allRejected *AllRejectedError
	if errors.As(err, &allRejected) {
		err = nil
	}
	return mcpserver.ConsultReport{SessionID: res.SessionID, Summary: res.Summary}, err
}
