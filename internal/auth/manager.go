// Package auth runs the portal login against an open browser page.
package auth

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"

	"github.com/ibeckermayer/portalpilot/internal/credentials"
	"github.com/ibeckermayer/portalpilot/internal/login"
	"github.com/ibeckermayer/portalpilot/internal/query"
)

// Page is what the manager drives: the login surface plus cookie access.
type Page interface {
	login.Page
	Cookies(ctx context.Context) ([]*network.Cookie, error)
}

// Manager handles portal authentication
type Manager struct {
	resolver    query.Resolver
	settings    login.Settings
	cookieStore *CookieStore
	logger      *zap.Logger
}

// NewManager creates a new auth manager. cookieStore may be nil, in which
// case no session snapshot is taken.
func NewManager(resolver query.Resolver, settings login.Settings, cookieStore *CookieStore, logger *zap.Logger) *Manager {
	return &Manager{
		resolver:    resolver,
		settings:    settings,
		cookieStore: cookieStore,
		logger:      logger,
	}
}

// Login navigates page to the record's URL and runs the login sequence.
// The returned report always ends in Idle; a fatal failure is in Report.Err.
func (m *Manager) Login(ctx context.Context, page Page, rec credentials.Record, obs login.Observer) *login.Report {
	seq := login.New(page, m.resolver, m.settings, m.logger.Named("login"))
	if obs != nil {
		seq.SetObserver(obs)
	}

	report := seq.Run(ctx, login.Credentials{
		URL:      rec.URL,
		Username: rec.Username,
		Password: rec.Password,
	})

	if report.LoggedIn() && m.cookieStore != nil {
		if err := m.snapshot(ctx, page, rec.URL); err != nil {
			m.logger.Warn("Session snapshot failed", zap.Error(err))
		}
	}
	return report
}

// snapshot saves the cookies belonging to the login and portal hosts.
func (m *Manager) snapshot(ctx context.Context, page Page, loginURL string) error {
	cookies, err := page.Cookies(ctx)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}

	kept := FilterForURLs(cookies, loginURL, m.settings.SecondaryURL)
	if err := m.cookieStore.Save(kept); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	m.logger.Info("Session snapshot saved",
		zap.Int("cookies", len(kept)),
		zap.String("path", m.cookieStore.Path()))
	return nil
}

// HasSession reports whether an unexpired session snapshot exists
func (m *Manager) HasSession() bool {
	return m.cookieStore != nil && m.cookieStore.IsValid()
}
