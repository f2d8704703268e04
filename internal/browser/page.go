package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"

	"github.com/ibeckermayer/portalpilot/internal/config"
	"github.com/ibeckermayer/portalpilot/internal/query"
)

// ActionTimeout bounds a single fill or click.
const ActionTimeout = 30 * time.Second

// ErrTextNotFound is returned by ClickText when no visible element contains the text.
var ErrTextNotFound = errors.New("no visible element contains text")

// Page is the browser surface the login sequence drives. One Page maps to
// one tab of one browser process.
type Page interface {
	query.Evaluator

	Navigate(ctx context.Context, url string) error
	// WaitIdle blocks until the document has loaded and network activity has
	// been quiet for the configured period.
	WaitIdle(ctx context.Context) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	ClickText(ctx context.Context, text string) error
	Location(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]*network.Cookie, error)
	// Close shuts the browser down.
	Close() error
}

// Launch starts the configured engine and opens its single page. The
// browser lives until Close is called or ctx is cancelled.
func Launch(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Page, error) {
	idle := idleSettings{
		quiet:   cfg.Timeouts.IdleQuiet.Duration,
		timeout: cfg.Timeouts.NetworkIdle.Duration,
	}

	logger.Info("Launching browser",
		zap.String("engine", cfg.Browser.Engine),
		zap.Bool("headless", cfg.Browser.Headless))

	switch cfg.Browser.Engine {
	case config.EngineChromedp:
		return launchChromedp(ctx, cfg.Browser, idle, logger)
	case config.EngineRod:
		return launchRod(ctx, cfg.Browser, idle, logger)
	default:
		return nil, fmt.Errorf("unknown browser engine: %s", cfg.Browser.Engine)
	}
}

var textRefs atomic.Int64

// nextTextRef returns a fresh ref value for elements located by text.
func nextTextRef() string {
	return "text-" + strconv.FormatInt(textRefs.Add(1), 10)
}

// clickTextTarget stamps the element containing text and returns its selector.
func clickTextTarget(ctx context.Context, ev query.Evaluator, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("%w: empty text", ErrTextNotFound)
	}
	ref := nextTextRef()
	expr, err := query.Call(query.ClickTextJS, text, query.RefAttr, ref)
	if err != nil {
		return "", err
	}
	var found bool
	if err := ev.Evaluate(ctx, expr, &found); err != nil {
		return "", fmt.Errorf("failed to locate text %q: %w", text, err)
	}
	if !found {
		return "", fmt.Errorf("%w: %q", ErrTextNotFound, text)
	}
	return query.RefSelector(ref), nil
}
