package diagram

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// DefaultMermaidURL is the mermaid bundle loaded into every page
const DefaultMermaidURL = "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"

// ChromeOptions configures the headless browser
type ChromeOptions struct {
	ExecPath    string
	MermaidURL  string
	SettleDelay time.Duration
	Timeout     time.Duration
}

// ChromeEngine renders mermaid in headless Chrome, one tab per diagram
type ChromeEngine struct {
	opts          ChromeOptions
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

// ChromeFactory returns an EngineFactory bound to opts
func ChromeFactory(opts ChromeOptions) EngineFactory {
	return func(ctx context.Context) (Engine, error) {
		return NewChromeEngine(ctx, opts)
	}
}

// NewChromeEngine launches the browser. Close must be called to stop it.
func NewChromeEngine(ctx context.Context, opts ChromeOptions) (*ChromeEngine, error) {
	if opts.MermaidURL == "" {
		opts.MermaidURL = DefaultMermaidURL
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 500 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.WindowSize(1600, 1200))
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// the first Run starts the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	return &ChromeEngine{
		opts:          opts,
		browserCtx:    browserCtx,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
	}, nil
}

// Render opens a fresh tab, renders source and screenshots the SVG
func (e *ChromeEngine) Render(ctx context.Context, source string) ([]byte, error) {
	if err := e.browserCtx.Err(); err != nil {
		return nil, fmt.Errorf("browser is gone: %w", err)
	}

	tabCtx, cancelTab := chromedp.NewContext(e.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, e.opts.Timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var (
		mu       sync.Mutex
		consoled []string
	)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		var msg string
		switch ev := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			if ev.Type != runtime.APITypeError {
				return
			}
			parts := make([]string, 0, len(ev.Args))
			for _, arg := range ev.Args {
				if arg.Description != "" {
					parts = append(parts, arg.Description)
				} else {
					parts = append(parts, strings.Trim(string(arg.Value), `"`))
				}
			}
			msg = strings.Join(parts, " ")
		case *runtime.EventExceptionThrown:
			msg = ev.ExceptionDetails.Text
			if ev.ExceptionDetails.Exception != nil && ev.ExceptionDetails.Exception.Description != "" {
				msg = ev.ExceptionDetails.Exception.Description
			}
		default:
			return
		}
		mu.Lock()
		consoled = append(consoled, msg)
		mu.Unlock()
	})

	page, err := renderPage(e.opts.MermaidURL, source)
	if err != nil {
		return nil, err
	}

	var state struct {
		Done        bool   `json:"done"`
		Error       string `json:"error"`
		EngineError string `json:"engineError"`
	}
	var done bool
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("data:text/html;base64,"+base64.StdEncoding.EncodeToString([]byte(page))),
		chromedp.Poll(`window.__autodoc && window.__autodoc.done === true`, &done, chromedp.WithPollingTimeout(e.opts.Timeout)),
		chromedp.Sleep(e.opts.SettleDelay),
		chromedp.Evaluate(`window.__autodoc`, &state),
	)
	if err != nil {
		return nil, e.pageFailure(ctx, err)
	}
	if state.EngineError != "" {
		return nil, fmt.Errorf("mermaid unavailable: %s", state.EngineError)
	}

	mu.Lock()
	captured := append([]string(nil), consoled...)
	mu.Unlock()
	if state.Error != "" {
		return nil, &SyntaxError{Message: state.Error}
	}
	if len(captured) > 0 {
		return nil, &SyntaxError{Message: strings.Join(captured, "\n")}
	}

	var img []byte
	if err := chromedp.Run(tabCtx, chromedp.Screenshot("#output svg", &img, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return nil, &SyntaxError{Message: fmt.Sprintf("no diagram was drawn: %v", err)}
	}
	return img, nil
}

// pageFailure classifies a failed page run. While the caller and the browser
// are alive the failure belongs to this diagram alone.
func (e *ChromeEngine) pageFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil || e.browserCtx.Err() != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return &SyntaxError{Message: fmt.Sprintf("page did not finish rendering: %v", err)}
}

// Close stops the browser
func (e *ChromeEngine) Close() error {
	e.cancelBrowser()
	e.cancelAlloc()
	return nil
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><style>body{margin:0;background:#fff}#output{display:inline-block;padding:16px}</style></head>
<body>
<div id="output"></div>
<script src="%s"></script>
<script>
window.__autodoc = {done: false, error: "", engineError: ""};
(async () => {
  if (typeof mermaid === "undefined") {
    window.__autodoc.engineError = "mermaid script did not load";
    window.__autodoc.done = true;
    return;
  }
  try {
    mermaid.initialize({startOnLoad: false, securityLevel: "strict"});
    const src = %s;
    await mermaid.parse(src);
    const { svg } = await mermaid.render("autodoc-diagram", src);
    document.getElementById("output").innerHTML = svg;
  } catch (e) {
    window.__autodoc.error = String((e && (e.message || e.str)) || e);
  } finally {
    window.__autodoc.done = true;
  }
})();
</script>
</body>
</html>`

func renderPage(mermaidURL, source string) (string, error) {
	src, err := json.Marshal(source)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(pageTemplate, html.EscapeString(mermaidURL), src), nil
}
