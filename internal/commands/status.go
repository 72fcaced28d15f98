package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/spachava753/oracle/internal/render"
	"github.com/spachava753/oracle/internal/storage"
)

const promptColumnWidth = 40

// StatusOptions contains parameters for listing sessions
type StatusOptions struct {
	Store      storage.SessionLister
	Hours      float64
	IncludeAll bool
	Limit      int
	// Now defaults to time.Now
	Now    func() time.Time
	Writer io.Writer
}

// ShowStatus prints recent sessions as a table, newest first.
func ShowStatus(ctx context.Context, opts StatusOptions) error {
	metas, err := opts.Store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	res := storage.FilterSessions(metas, storage.Filter{
		Hours:      opts.Hours,
		IncludeAll: opts.IncludeAll,
		Limit:      opts.Limit,
	}, now())

	w := opts.Writer
	if res.Total == 0 {
		fmt.Fprintln(w, "No sessions found.")
		fmt.Fprintln(w, `Tip: widen the window with --hours or --all; prune old runs with "oracle session --clear --hours 168".`)
		return nil
	}

	st := render.NewStyles(w)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.Muted).
		Headers("ID", "STATUS", "MODELS", "CREATED", "PROMPT").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.Header.PaddingRight(1)
			}
			return st.Cell
		})
	for _, m := range res.Entries {
		t.Row(
			m.ID,
			string(m.Status),
			strings.Join(sessionModels(m), ", "),
			m.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(firstLine(m.Options.Prompt), promptColumnWidth),
		)
	}
	fmt.Fprintln(w, t.Render())
	if res.Truncated {
		fmt.Fprintf(w, "Showing %d of %d sessions\n", len(res.Entries), res.Total)
	}
	return nil
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

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
