package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ibeckermayer/portalpilot/internal/auth"
	"github.com/ibeckermayer/portalpilot/internal/browser"
	"github.com/ibeckermayer/portalpilot/internal/config"
	"github.com/ibeckermayer/portalpilot/internal/credentials"
	"github.com/ibeckermayer/portalpilot/internal/login"
	"github.com/ibeckermayer/portalpilot/internal/query"
	"github.com/ibeckermayer/portalpilot/internal/scheduler"
	"github.com/ibeckermayer/portalpilot/internal/store"
)

// Launcher opens the browser page for a run.
type Launcher func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (browser.Page, error)

// App holds the application state for one login run.
type App struct {
	config      *config.Config
	authManager *auth.Manager
	logger      *zap.Logger

	// journal and reportsDir are optional; nil or empty disables them.
	journal    *store.Store
	reportsDir string

	launch Launcher
	now    func() time.Time
}

// New creates a new App instance.
func New(cfg *config.Config, authManager *auth.Manager, journal *store.Store, reportsDir string, logger *zap.Logger) *App {
	return &App{
		config:      cfg,
		authManager: authManager,
		logger:      logger,
		journal:     journal,
		reportsDir:  reportsDir,
		launch:      browser.Launch,
		now:         time.Now,
	}
}

// NewResolver builds the semantic query resolver the config asks for. The
// DOM resolver is always the first tier; the model only fills its gaps.
func NewResolver(cfg config.SemanticConfig, logger *zap.Logger) query.Resolver {
	dom := query.NewDOMResolver()
	if cfg.Provider != config.ProviderAnthropic || cfg.APIKey == "" {
		return dom
	}
	completer := query.NewAnthropicCompleter(cfg.APIKey, cfg.Model, logger.Named("llm"))
	return query.NewLLMResolver(dom, completer, logger.Named("query"))
}

// Run launches the browser, logs in with rec and then holds the browser open
// until ctx is cancelled. It returns the fatal login error, if any, after
// the hold ends. A launch failure returns immediately since there is
// nothing to hold open.
func (a *App) Run(ctx context.Context, rec credentials.Record) error {
	runID := uuid.NewString()
	logger := a.logger.With(zap.String("run", runID))

	logger.Info("Initializing browser")
	page, err := a.launch(ctx, a.config, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("Error during login process: %v", err))
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		page.Close()
		logger.Info("Script execution completed")
	}()

	if a.authManager.HasSession() {
		logger.Info("A previous session snapshot is still valid; logging in again anyway")
	}

	run := store.Run{
		ID:        runID,
		URL:       rec.URL,
		Username:  rec.Username,
		Engine:    a.config.Browser.Engine,
		StartedAt: a.now(),
	}
	var obs login.Observer
	if a.journal != nil {
		if err := a.journal.BeginRun(run); err != nil {
			logger.Warn("Run journal unavailable", zap.Error(err))
		} else {
			obs = &journalObserver{journal: a.journal, runID: runID, logger: logger}
		}
	}

	report := a.authManager.Login(ctx, page, rec, obs)

	if report.Err != nil {
		logger.Error(fmt.Sprintf("Error during login process: %v", report.Err))
		logger.Error(fmt.Sprintf("Error details: %s", errorKind(report.Err)))
	}
	a.record(run, report, obs != nil, logger)

	switch {
	case report.Err == nil:
		logger.Info("Browser will remain open. Press Ctrl+C to exit.")
	case a.config.Run.HoldOpenOnFailure:
		logger.Info("Browser will remain open despite error. Press Ctrl+C to exit.")
	default:
		return report.Err
	}

	a.Hold(ctx, page)
	return report.Err
}

// record finishes the journal entry and writes the JSON report.
func (a *App) record(run store.Run, report *login.Report, journaled bool, logger *zap.Logger) {
	run.FinishedAt = a.now()
	run.FinalState = string(report.Final)
	if report.Err != nil {
		run.Error = report.Err.Error()
	}

	if journaled {
		if err := a.journal.FinishRun(run.ID, run.FinalState, run.Error, run.FinishedAt); err != nil {
			logger.Warn("Failed to finish run in journal", zap.Error(err))
		}
	}

	if a.reportsDir == "" {
		return
	}
	out := store.Report{Run: run}
	for _, s := range report.States {
		out.States = append(out.States, string(s))
	}
	for i, s := range report.Steps {
		out.Steps = append(out.Steps, stepRecord(run.ID, i+1, s))
	}
	path, err := store.SaveReport(a.reportsDir, out)
	if err != nil {
		logger.Warn("Failed to save run report", zap.Error(err))
		return
	}
	logger.Info("Run report saved", zap.String("path", path))
}

// Location is the page capability the idle heartbeat needs.
type Location interface {
	Location(ctx context.Context) (string, error)
}

// Hold blocks until ctx is cancelled, keeping the browser open for manual
// inspection. A heartbeat job probes the page while holding.
func (a *App) Hold(ctx context.Context, page Location) {
	sched := scheduler.New(a.logger.Named("scheduler"))
	hb := &heartbeat{page: page, logger: a.logger}
	if err := sched.AddHeartbeat("heartbeat", a.config.Timeouts.Heartbeat.Duration, hb.probe); err != nil {
		a.logger.Warn("Heartbeat disabled", zap.Error(err))
	}
	// First probe before the scheduler starts so it never overlaps a tick.
	if err := sched.RunNow("heartbeat", hb.probe); err != nil {
		a.logger.Warn("Browser not reachable", zap.Error(err))
	}
	sched.Start(ctx)

	<-ctx.Done()

	for _, job := range sched.ListJobs() {
		a.logger.Debug("Stopping job", zap.String("job", job.Name), zap.Time("last_run", job.LastRun))
	}
	sched.RemoveJob("heartbeat")
	<-sched.Stop().Done()
	a.logger.Info("Interrupted, closing browser")
}

// heartbeat reports page changes and browser loss while holding. A
// repeated failure is only reported once.
type heartbeat struct {
	page    Location
	logger  *zap.Logger
	lastURL string
	lastErr string
}

func (h *heartbeat) probe(ctx context.Context) error {
	url, err := h.page.Location(ctx)
	if err != nil {
		if ctx.Err() != nil || err.Error() == h.lastErr {
			return nil
		}
		h.lastErr = err.Error()
		return fmt.Errorf("browser unreachable: %w", err)
	}
	if h.lastErr != "" {
		h.logger.Info("Browser reachable again")
		h.lastErr = ""
	}
	if url != h.lastURL {
		if h.lastURL != "" {
			h.logger.Info("Page changed", zap.String("url", url))
		}
		h.lastURL = url
	}
	h.logger.Debug("Browser heartbeat", zap.String("url", url))
	return nil
}

// journalObserver writes every finished step to the run journal.
type journalObserver struct {
	journal *store.Store
	runID   string
	seq     int
	logger  *zap.Logger
}

func (j *journalObserver) StepFinished(_ context.Context, res login.StepResult) {
	j.seq++
	if err := j.journal.RecordStep(stepRecord(j.runID, j.seq, res)); err != nil {
		j.logger.Warn("Failed to record step", zap.String("step", string(res.Step)), zap.Error(err))
	}
}

func stepRecord(runID string, seq int, res login.StepResult) store.StepRecord {
	detail := res.Detail
	if res.Err != nil {
		detail = res.Err.Error()
	}
	return store.StepRecord{
		RunID:   runID,
		Seq:     seq,
		Step:    string(res.Step),
		Outcome: string(res.Outcome),
		Detail:  detail,
		At:      res.At,
	}
}

// errorKind names the type of the innermost wrapped error.
func errorKind(err error) string {
	for {
		var next error
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			if errs := e.Unwrap(); len(errs) > 0 {
				next = errs[len(errs)-1]
			}
		default:
			next = errors.Unwrap(err)
		}
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}
