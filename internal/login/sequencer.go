// Package login drives the portal's login form through a fixed, strictly
// linear sequence of steps.
//
// Steps that locate elements try a semantic query first and a literal
// selector second. Every step ends with a tagged Outcome; the first
// FailedFatal outcome ends the sequence and moves it straight to Idle.
package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/portalpilot/internal/config"
	"github.com/ibeckermayer/portalpilot/internal/query"
)

// ErrFormTimeout is returned when the login form never becomes visible.
var ErrFormTimeout = errors.New("login form not visible")

// State is a position in the login sequence.
type State string

const (
	Start        State = "Start"
	FormVisible  State = "FormVisible"
	Submitted    State = "Submitted"
	PopupHandled State = "PopupHandled"
	HubEntered   State = "HubEntered"
	FinalNav     State = "FinalNav"
	Idle         State = "Idle"
)

// Page is the browser surface the sequence needs.
type Page interface {
	query.Evaluator
	Navigate(ctx context.Context, url string) error
	WaitIdle(ctx context.Context) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	ClickText(ctx context.Context, text string) error
}

// Credentials are what the sequence types into the form.
type Credentials struct {
	URL      string
	Username string
	Password string
}

// StepResult is the outcome of one step. Step names the state the step
// establishes.
type StepResult struct {
	Step    State
	Outcome Outcome
	Err     error
	// Detail carries the recovered error or a note for steps that did nothing.
	Detail string
	At     time.Time
}

// Report is the full account of one run of the sequence.
type Report struct {
	States []State
	Steps  []StepResult
	Final  State
	Err    error
}

// LoggedIn reports whether the sequence reached FinalNav without a fatal error.
func (r *Report) LoggedIn() bool {
	return r.Err == nil && len(r.States) > 1 && r.States[len(r.States)-2] == FinalNav
}

func (r *Report) enter(s State) {
	if len(r.States) == 0 || r.States[len(r.States)-1] != s {
		r.States = append(r.States, s)
	}
}

// Observer is notified after every step.
type Observer interface {
	StepFinished(ctx context.Context, res StepResult)
}

// Settings controls timeouts, the literal fallback selectors and the final URL.
type Settings struct {
	SecondaryURL string
	FormTimeout  time.Duration

	FallbackUsername string
	FallbackPassword string
	FallbackSubmit   string
}

// SettingsFrom builds Settings from the loaded config.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		SecondaryURL:     cfg.Portal.SecondaryURL,
		FormTimeout:      cfg.Timeouts.FormVisible.Duration,
		FallbackUsername: cfg.Selectors.Username,
		FallbackPassword: cfg.Selectors.Password,
		FallbackSubmit:   cfg.Selectors.Submit,
	}
}

func (s Settings) withDefaults() Settings {
	if s.FormTimeout <= 0 {
		s.FormTimeout = 60 * time.Second
	}
	if s.FallbackUsername == "" {
		s.FallbackUsername = FallbackUsername
	}
	if s.FallbackPassword == "" {
		s.FallbackPassword = FallbackPassword
	}
	if s.FallbackSubmit == "" {
		s.FallbackSubmit = FallbackSubmit
	}
	return s
}

// Sequencer runs the login steps against one page.
type Sequencer struct {
	page     Page
	resolver query.Resolver
	settings Settings
	log      *zap.SugaredLogger
	observer Observer
	now      func() time.Time
}

// New creates a Sequencer.
func New(page Page, resolver query.Resolver, settings Settings, logger *zap.Logger) *Sequencer {
	return &Sequencer{
		page:     page,
		resolver: resolver,
		settings: settings.withDefaults(),
		log:      logger.Sugar(),
		now:      time.Now,
	}
}

// SetObserver registers o to be told about every finished step.
func (s *Sequencer) SetObserver(o Observer) {
	s.observer = o
}

type step struct {
	state State
	run   func(ctx context.Context, creds Credentials) StepResult
}

// Run executes the sequence. It never panics on a step failure and always
// ends in Idle; the fatal error, if any, is in Report.Err.
func (s *Sequencer) Run(ctx context.Context, creds Credentials) *Report {
	steps := []step{
		{Start, s.open},
		{FormVisible, s.waitForForm},
		{Submitted, s.submit},
		{PopupHandled, s.dismissPopup},
		{HubEntered, s.enterHub},
		{FinalNav, s.finalNav},
	}

	report := &Report{}
	report.enter(Start)
	for _, st := range steps {
		res := st.run(ctx, creds)
		res.Step = st.state
		res.At = s.now()
		report.Steps = append(report.Steps, res)
		if s.observer != nil {
			s.observer.StepFinished(ctx, res)
		}
		if res.Outcome == FailedFatal {
			report.Err = fmt.Errorf("%s: %w", st.state, res.Err)
			break
		}
		report.enter(st.state)
	}
	report.enter(Idle)
	report.Final = Idle
	return report
}

func fatal(err error) StepResult {
	return StepResult{Outcome: FailedFatal, Err: err}
}

func (s *Sequencer) open(ctx context.Context, creds Credentials) StepResult {
	s.log.Infof("Navigating directly to login page: %s", creds.URL)
	if err := s.page.Navigate(ctx, creds.URL); err != nil {
		return fatal(err)
	}

	s.log.Info("Waiting for page load")
	if err := s.page.WaitIdle(ctx); err != nil {
		return fatal(err)
	}
	return StepResult{Outcome: Succeeded}
}

func (s *Sequencer) waitForForm(ctx context.Context, _ Credentials) StepResult {
	s.log.Info("Waiting for login form elements")
	for _, sel := range []string{UsernameInput, PasswordInput} {
		if err := s.page.WaitVisible(ctx, sel, s.settings.FormTimeout); err != nil {
			return fatal(fmt.Errorf("%w: %s: %w", ErrFormTimeout, sel, err))
		}
	}
	s.log.Info("Login form elements visible")
	return StepResult{Outcome: Succeeded}
}

func (s *Sequencer) submit(ctx context.Context, creds Credentials) StepResult {
	s.log.Info("Attempting to interact with login form")

	primary := func(ctx context.Context) error {
		err := func() error {
			resp, err := s.resolver.Resolve(ctx, s.page, LoginFormQuery)
			if err != nil {
				return err
			}
			sels, err := resp.Require(PathUsername, PathPassword, PathLogin)
			if err != nil {
				return err
			}
			s.log.Info("Login form elements found")
			return s.fillAndSubmit(ctx, creds, sels[0], sels[1], sels[2])
		}()
		if err != nil {
			s.log.Warnf("Semantic query failed for login form: %v", err)
		}
		return err
	}

	fallback := func(ctx context.Context) error {
		s.log.Info("Attempting fallback with direct selectors")
		return s.fillAndSubmit(ctx, creds,
			s.settings.FallbackUsername, s.settings.FallbackPassword, s.settings.FallbackSubmit)
	}

	result := Attempt(ctx, primary, fallback)
	if err := result.Err(); err != nil {
		return fatal(err)
	}

	s.log.Info("Waiting for login submission to complete")
	if err := s.page.WaitIdle(ctx); err != nil {
		return fatal(err)
	}
	s.log.Info("Login process completed")

	res := StepResult{Outcome: result.Outcome}
	if result.Primary != nil {
		res.Detail = result.Primary.Error()
	}
	return res
}

func (s *Sequencer) fillAndSubmit(ctx context.Context, creds Credentials, user, pass, submit string) error {
	s.log.Infof("Filling username: %s", creds.Username)
	if err := s.page.Fill(ctx, user, creds.Username); err != nil {
		return err
	}

	s.log.Info("Filling password")
	if err := s.page.Fill(ctx, pass, creds.Password); err != nil {
		return err
	}

	s.log.Info("Clicking submit button")
	return s.page.Click(ctx, submit)
}

func (s *Sequencer) dismissPopup(ctx context.Context, _ Credentials) StepResult {
	s.log.Info("Checking for popup")

	err := func() error {
		resp, err := s.resolver.Resolve(ctx, s.page, PopupQuery)
		if err != nil {
			return err
		}
		sel, ok := resp.Element(PathPopupClose)
		if !ok {
			return nil
		}
		s.log.Info("Popup detected, attempting to close")
		if err := s.page.Click(ctx, sel); err != nil {
			return err
		}
		s.log.Info("Popup closed successfully")
		return nil
	}()
	if err != nil {
		s.log.Warnf("No popup found or error handling popup: %v", err)
		return StepResult{Outcome: Skipped, Err: err}
	}
	return StepResult{Outcome: Succeeded}
}

func (s *Sequencer) enterHub(ctx context.Context, _ Credentials) StepResult {
	s.log.Info("Looking for Exhibitor Hub login button")

	resp, err := s.resolver.Resolve(ctx, s.page, HubQuery)
	if err != nil {
		s.log.Errorf("Failed to find Exhibitor Hub button: %v", err)
		return StepResult{Outcome: Skipped, Err: err}
	}

	if sel, ok := resp.Element(PathHubButton); ok {
		s.log.Info("Exhibitor Hub button found, clicking...")
		if err := s.page.Click(ctx, sel); err != nil {
			s.log.Errorf("Failed to find Exhibitor Hub button: %v", err)
			return StepResult{Outcome: Skipped, Err: err}
		}
		s.log.Info("Exhibitor Hub button clicked successfully")
		return StepResult{Outcome: Succeeded}
	}

	// The structured button is absent, so only its label is left to go on.
	_, missing := resp.Require(PathHubButton)
	s.log.Info("Trying to find button by text...")
	if err := s.page.ClickText(ctx, resp.Text(PathHubText)); err != nil {
		s.log.Errorf("Failed to find Exhibitor Hub button: %v", err)
		return StepResult{Outcome: Skipped, Err: err}
	}
	s.log.Info("Exhibitor Hub button clicked successfully using text selector")
	return StepResult{Outcome: FailedRecovered, Detail: missing.Error()}
}

func (s *Sequencer) finalNav(ctx context.Context, _ Credentials) StepResult {
	s.log.Info("Navigating to search buyers page")
	if err := s.page.Navigate(ctx, s.settings.SecondaryURL); err != nil {
		return fatal(err)
	}
	if err := s.page.WaitIdle(ctx); err != nil {
		return fatal(err)
	}
	s.log.Info("Successfully navigated to search buyers page")
	return StepResult{Outcome: Succeeded}
}
