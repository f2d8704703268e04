package auth

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/ibeckermayer/portalpilot/internal/config"
)

// CookieStore persists a snapshot of the portal session after a login
type CookieStore struct {
	path string
}

// SavedCookie is the persisted form of a browser cookie. It keeps only
// plain fields so a snapshot stays readable whatever protocol enums the
// engine reported.
type SavedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	Session  bool    `json:"session,omitempty"`
	SameSite string  `json:"same_site,omitempty"`
}

// StoredCookies represents the persisted cookie data
type StoredCookies struct {
	Cookies    []SavedCookie `json:"cookies"`
	CapturedAt time.Time     `json:"captured_at"`
	// ExpiresAt is the earliest expiry among persistent cookies; zero when
	// every cookie is a session cookie.
	ExpiresAt time.Time `json:"expires_at"`
}

// NewCookieStore creates a cookie store at the given path
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path}
}

// DefaultCookieStorePath returns the default path for cookie storage
func DefaultCookieStorePath() (string, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "session.json"), nil
}

// Path returns the snapshot location
func (cs *CookieStore) Path() string {
	return cs.path
}

// Save persists cookies to disk
func (cs *CookieStore) Save(cookies []*network.Cookie) error {
	dir := filepath.Dir(cs.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	saved := make([]SavedCookie, 0, len(cookies))
	var earliestExpiry time.Time
	for _, c := range cookies {
		saved = append(saved, SavedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			Session:  c.Session,
			SameSite: string(c.SameSite),
		})
		if c.Session || c.Expires <= 0 {
			continue
		}
		exp := time.Unix(int64(c.Expires), 0)
		if earliestExpiry.IsZero() || exp.Before(earliestExpiry) {
			earliestExpiry = exp
		}
	}

	stored := StoredCookies{
		Cookies:    saved,
		CapturedAt: time.Now(),
		ExpiresAt:  earliestExpiry,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cs.path, data, 0600)
}

// Load retrieves cookies from disk
func (cs *CookieStore) Load() (*StoredCookies, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// IsValid checks if a stored snapshot exists and has not expired
func (cs *CookieStore) IsValid() bool {
	stored, err := cs.Load()
	if err != nil {
		return false
	}
	if len(stored.Cookies) == 0 {
		return false
	}
	if !stored.ExpiresAt.IsZero() && time.Now().After(stored.ExpiresAt) {
		return false
	}
	return true
}

// Clear removes stored cookies
func (cs *CookieStore) Clear() error {
	return os.Remove(cs.path)
}

// FilterForURLs returns only the cookies that would be sent to one of the
// given URLs' hosts.
func FilterForURLs(cookies []*network.Cookie, urls ...string) []*network.Cookie {
	var hosts []string
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		hosts = append(hosts, strings.ToLower(u.Hostname()))
	}

	var kept []*network.Cookie
	for _, c := range cookies {
		for _, h := range hosts {
			if domainMatches(c.Domain, h) {
				kept = append(kept, c)
				break
			}
		}
	}
	return kept
}

func domainMatches(cookieDomain, host string) bool {
	d := strings.ToLower(strings.TrimPrefix(cookieDomain, "."))
	if d == "" {
		return false
	}
	return host == d || strings.HasSuffix(host, "."+d)
}
