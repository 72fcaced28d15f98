package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/chromedp/chromedp"
)

// DefaultChatURL is opened for every consultation.
const DefaultChatURL = "https://chatgpt.com/"

// LaunchOptions configures the Chrome instance behind a Tab.
type LaunchOptions struct {
	// ChromePath is the binary to execute. Ignored when RemoteURL is set.
	ChromePath string
	// RemoteURL attaches to an already running Chrome DevTools endpoint.
	RemoteURL string
	// UserDataDir keeps the logged-in profile between runs.
	UserDataDir string
	Headless    bool
	ChatURL     string
	Submit      SubmitOptions
	Wait        WaitOptions
	Logger      *slog.Logger
}

// WaitOptions bounds answer polling.
type WaitOptions struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// DefaultWaitOptions returns the polling bounds used when none are configured.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{PollInterval: 2 * time.Second, Timeout: 20 * time.Minute}
}

func (o WaitOptions) withDefaults() WaitOptions {
	d := DefaultWaitOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	return o
}

// Tab is one browser tab positioned on the chat UI. Consultations through
// the same Tab are serialized.
type Tab struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  func()
	ctrl    Controller
	chatURL string
	submit  SubmitOptions
	wait    WaitOptions
	logger  *slog.Logger
}

// Launch starts (or attaches to) Chrome and opens a tab.
func Launch(ctx context.Context, opts LaunchOptions) (*Tab, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		if opts.ChromePath == "" {
			return nil, ErrBrowserUnavailable
		}
		allocOpts := []chromedp.ExecAllocatorOption{
			chromedp.ExecPath(opts.ChromePath),
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
		}
		if opts.UserDataDir != "" {
			allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
		}
		if opts.Headless {
			allocOpts = append(allocOpts, chromedp.Headless)
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocOpts...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))
	// Run with no actions starts the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	t := newTab(tabCtx, CDPController{}, opts, logger)
	t.cancel = func() {
		tabCancel()
		allocCancel()
	}
	return t, nil
}

func newTab(ctx context.Context, ctrl Controller, opts LaunchOptions, logger *slog.Logger) *Tab {
	chatURL := opts.ChatURL
	if chatURL == "" {
		chatURL = DefaultChatURL
	}
	submit := opts.Submit
	submit.Logger = logger
	return &Tab{
		ctx:     ctx,
		cancel:  func() {},
		ctrl:    ctrl,
		chatURL: chatURL,
		submit:  submit,
		wait:    opts.Wait.withDefaults(),
		logger:  logger,
	}
}

// Close shuts the tab and, when Launch started it, the browser.
func (t *Tab) Close() error {
	t.cancel()
	return nil
}

// ModelURL returns the chat URL that preselects model.
func ModelURL(chatURL, model string) (string, error) {
	u, err := url.Parse(chatURL)
	if err != nil {
		return "", fmt.Errorf("parse chat url: %w", err)
	}
	if model != "" {
		q := u.Query()
		q.Set("model", model)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Consult opens a fresh conversation for model, submits prompt and waits for
// the completed answer. The tab is held for the whole exchange.
func (t *Tab) Consult(ctx context.Context, model, prompt string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	target, err := ModelURL(t.chatURL, model)
	if err != nil {
		return "", err
	}
	if err := chromedp.Run(runCtx, chromedp.Navigate(target), chromedp.WaitReady("body")); err != nil {
		return "", fmt.Errorf("open %s: %w", target, err)
	}
	return t.exchange(runCtx, prompt)
}

func (t *Tab) exchange(ctx context.Context, prompt string) (string, error) {
	var baseline int
	if err := t.ctrl.Evaluate(ctx, turnCountScript, &baseline); err != nil {
		return "", fmt.Errorf("count assistant turns: %w", err)
	}
	res, err := SubmitPrompt(ctx, t.ctrl, prompt, t.submit)
	if err != nil {
		return "", err
	}
	t.logger.Debug("prompt submitted",
		slog.String("method", string(res.Method)),
		slog.Int("verify_retries", res.VerifyRetries))
	return WaitForAnswer(ctx, t.ctrl, baseline, t.wait)
}

var errAnswerPending = errors.New("answer not complete")

type answerState struct {
	Count int    `json:"count"`
	Done  bool   `json:"done"`
	Text  string `json:"text"`
}

// WaitForAnswer polls the page until a new assistant turn (beyond baseline)
// has finished and its text is unchanged across two consecutive polls.
func WaitForAnswer(ctx context.Context, ctrl Controller, baseline int, opts WaitOptions) (string, error) {
	opts = opts.withDefaults()
	var last string
	text, err := backoff.Retry(ctx, func() (string, error) {
		var st answerState
		if err := ctrl.Evaluate(ctx, answerScript, &st); err != nil {
			return "", err
		}
		if st.Count <= baseline || !st.Done || st.Text == "" {
			return "", errAnswerPending
		}
		if st.Text != last {
			last = st.Text
			return "", errAnswerPending
		}
		return st.Text, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(opts.PollInterval)),
		backoff.WithMaxElapsedTime(opts.Timeout),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, errAnswerPending) {
			return "", fmt.Errorf("timed out after %s waiting for answer", opts.Timeout)
		}
		return "", fmt.Errorf("poll answer: %w", err)
	}
	return text, nil
}
