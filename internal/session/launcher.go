package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xk9labs/pagepilot/internal/diagnostics"
)

// ChromedpLauncher returns the production LaunchFunc. It starts a Chrome
// process through an exec allocator, opens a single tab, primes it with a
// blank navigation so launch failures surface here rather than in the first
// tool call, and attaches the diagnostics listeners.
func ChromedpLauncher(diags *diagnostics.Buffer, logger *zap.Logger) LaunchFunc {
	return func(ctx context.Context, settings Settings) (*Session, error) {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", settings.Headless),
			chromedp.WindowSize(settings.ViewportWidth, settings.ViewportHeight),
			// Stability flags for containerized environments.
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if settings.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(settings.UserAgent))
		}
		if settings.ProxyURL != "" {
			opts = append(opts, chromedp.ProxyServer(settings.ProxyURL))
		}
		for _, arg := range settings.Args {
			opts = append(opts, chromedp.Flag(strings.TrimPrefix(arg, "--"), true))
		}

		// The allocator context lives as long as the browser process; it is
		// deliberately detached from the acquiring call's context so the
		// session outlives the call that created it.
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		tabCtx, tabCancel := chromedp.NewContext(allocCtx)

		s := New(settings, tabCtx, tabCancel, allocCancel, logger)
		attachListeners(tabCtx, diags)

		launchCtx, cancel := context.WithTimeout(tabCtx, settings.LaunchTimeout)
		defer cancel()
		if err := chromedp.Run(launchCtx,
			network.Enable(),
			chromedp.Navigate("about:blank"),
		); err != nil {
			tabCancel()
			allocCancel()
			return nil, fmt.Errorf("browser launch: %w", err)
		}
		return s, nil
	}
}

// attachListeners feeds console output, page exceptions, and failed network
// loads into the diagnostics buffer. The listener dies with the tab context.
func attachListeners(tabCtx context.Context, diags *diagnostics.Buffer) {
	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch e := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			diags.Record(diagnostics.Entry{
				Time:    e.Timestamp.Time(),
				Source:  diagnostics.SourceConsole,
				Message: fmt.Sprintf("%s: %s", e.Type, formatConsoleArgs(e.Args)),
			})
		case *runtime.EventExceptionThrown:
			if e.ExceptionDetails != nil {
				diags.Record(diagnostics.Entry{
					Time:    e.Timestamp.Time(),
					Source:  diagnostics.SourceException,
					Message: e.ExceptionDetails.Error(),
				})
			}
		case *network.EventLoadingFailed:
			diags.Recordf(diagnostics.SourceNetwork, "load failed (%s): %s", e.Type, e.ErrorText)
		}
	})
}

// formatConsoleArgs renders console call arguments the way devtools would:
// prefer the JSON value, fall back to the object description, then the type.
func formatConsoleArgs(args []*runtime.RemoteObject) string {
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteString(" ")
		}
		var val any
		if arg.Value != nil && json.Unmarshal(arg.Value, &val) == nil {
			fmt.Fprintf(&b, "%v", val)
		} else if arg.Description != "" {
			b.WriteString(arg.Description)
		} else {
			fmt.Fprintf(&b, "[%s]", arg.Type)
		}
	}
	return b.String()
}
