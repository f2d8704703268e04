package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"

	"github.com/ibeckermayer/portalpilot/internal/config"
)

type rodPage struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	idle     idleSettings
}

func launchRod(ctx context.Context, cfg config.BrowserConfig, idle idleSettings, logger *zap.Logger) (Page, error) {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	width, height := cfg.WindowWidth, cfg.WindowHeight
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("user-agent", userAgent).
		Set("window-size", fmt.Sprintf("%d,%d", width, height))
	if cfg.ExecPath != "" {
		l = l.Bin(cfg.ExecPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	logger.Debug("Rod browser launched", zap.String("control_url", controlURL))

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	var page *rod.Page
	if cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		b.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &rodPage{launcher: l, browser: b, page: page, idle: idle}, nil
}

func (p *rodPage) with(ctx context.Context, timeout time.Duration) *rod.Page {
	page := p.page.Context(ctx)
	if timeout > 0 {
		page = page.Timeout(timeout)
	}
	return page
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	if err := p.with(ctx, 0).Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) WaitIdle(ctx context.Context) error {
	return waitIdle(ctx, p, p.idle)
}

func (p *rodPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	el, err := p.with(ctx, timeout).Element(selector)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

func (p *rodPage) Evaluate(ctx context.Context, expression string, out any) error {
	res, err := p.with(ctx, 0).Eval("() => (" + expression + ")")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte(res.Value.JSON("", "")), out)
}

func (p *rodPage) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := p.with(ctx, ActionTimeout).Element(selector)
	if err != nil {
		return nil, err
	}
	if err := el.WaitVisible(); err != nil {
		return nil, err
	}
	return el, nil
}

func (p *rodPage) Fill(ctx context.Context, selector, value string) error {
	el, err := p.element(ctx, selector)
	if err == nil {
		err = el.SelectAllText()
	}
	if err == nil {
		err = el.Input(value)
	}
	if err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err == nil {
		err = el.Click(proto.InputMouseButtonLeft, 1)
	}
	if err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

func (p *rodPage) ClickText(ctx context.Context, text string) error {
	selector, err := clickTextTarget(ctx, p, text)
	if err != nil {
		return err
	}
	return p.Click(ctx, selector)
}

func (p *rodPage) Location(ctx context.Context) (string, error) {
	info, err := p.with(ctx, ActionTimeout).Info()
	if err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return info.URL, nil
}

func (p *rodPage) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	raw, err := p.with(ctx, ActionTimeout).Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get cookies: %w", err)
	}
	return convertCookies(raw), nil
}

// convertCookies maps rod's cookie type onto cdproto's so callers see one shape.
func convertCookies(raw []*proto.NetworkCookie) []*network.Cookie {
	cookies := make([]*network.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, &network.Cookie{
			Name:         c.Name,
			Value:        c.Value,
			Domain:       c.Domain,
			Path:         c.Path,
			Expires:      float64(c.Expires),
			Size:         int64(c.Size),
			HTTPOnly:     c.HTTPOnly,
			Secure:       c.Secure,
			Session:      c.Session,
			SameSite:     network.CookieSameSite(c.SameSite),
			Priority:     network.CookiePriority(c.Priority),
			SourceScheme: network.CookieSourceScheme(c.SourceScheme),
			SourcePort:   int64(c.SourcePort),
		})
	}
	return cookies
}

func (p *rodPage) Close() error {
	err := p.browser.Close()
	p.launcher.Kill()
	return err
}
