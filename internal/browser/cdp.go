package browser

import (
	"context"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// CDPController implements Controller over the Chrome DevTools Protocol.
// Every ctx passed to its methods must derive from a chromedp context.
type CDPController struct{}

func (CDPController) Evaluate(ctx context.Context, expr string, out any) error {
	return chromedp.Run(ctx, chromedp.Evaluate(expr, out))
}

func (CDPController) InsertText(ctx context.Context, text string) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.InsertText(text).Do(ctx)
	}))
}

func (CDPController) DispatchKeyEvent(ctx context.Context, ev KeyEvent) error {
	p := input.DispatchKeyEvent(input.KeyType(ev.Type)).
		WithKey(ev.Key).
		WithCode(ev.Code).
		WithWindowsVirtualKeyCode(int64(ev.WindowsVirtualKeyCode)).
		WithNativeVirtualKeyCode(int64(ev.NativeVirtualKeyCode))
	if ev.Text != "" {
		p = p.WithText(ev.Text)
	}
	if ev.UnmodifiedText != "" {
		p = p.WithUnmodifiedText(ev.UnmodifiedText)
	}
	return chromedp.Run(ctx, chromedp.ActionFunc(p.Do))
}

var _ Controller = CDPController{}
