package modelcatalog

import (
	"log/slog"
	"os"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/spachava753/oracle/internal/tiktokenloader"
)

// HeuristicTokens approximates a token count as one token per four bytes.
func HeuristicTokens(text string) int {
	return (len(text) + 3) / 4
}

// NewTokenizer returns an o200k_base counter backed by BPE rank files in dir.
// The encoding is built on first use. When the rank file cannot be loaded the
// counter degrades to HeuristicTokens.
func NewTokenizer(dir string, logger *slog.Logger) TokenizerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	load := sync.OnceValue(func() *tiktoken.Tiktoken {
		if dir == "" {
			return nil
		}
		tiktoken.SetBpeLoader(tiktokenloader.NewDirLoader(os.DirFS(dir)))
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_O200K_BASE)
		if err != nil {
			logger.Debug("tiktoken unavailable, using heuristic token counts",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
			return nil
		}
		return enc
	})
	return func(text string) int {
		enc := load()
		if enc == nil {
			return HeuristicTokens(text)
		}
		return len(enc.Encode(text, []string{"all"}, nil))
	}
}
