package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/portalpilot/internal/config"
	"github.com/ibeckermayer/portalpilot/internal/store"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestQueryCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.q")
	require.NoError(t, os.WriteFile(path, []byte(`{
		submit_btn "a[href='/exhibitor/challenge']"
		submit_btn_text "Log in to the Exhibitor Hub"
		popup { close_btn }
	}`), 0644))

	out, err := execute(t, "", "query", path)
	require.NoError(t, err)
	assert.Contains(t, out, "submit_btn")
	assert.Regexp(t, `popup\.close_btn\s+name`, out)
	assert.Regexp(t, `submit_btn_text\s+text\s+Log in to the Exhibitor Hub`, out)
	assert.Regexp(t, `submit_btn\s+selector\s+a\[href`, out)
}

func TestQueryCommand_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.q")
	require.NoError(t, os.WriteFile(path, []byte(`{ body { username_field `), 0644))

	_, err := execute(t, "", "query", path)
	assert.ErrorContains(t, err, "bad.q")
}

func TestHistoryCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	s, err := store.New(db)
	require.NoError(t, err)
	started := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.BeginRun(store.Run{ID: "run-1", URL: "https://example.test/login", Username: "u1", Engine: "chromedp", StartedAt: started}))
	require.NoError(t, s.RecordStep(store.StepRecord{RunID: "run-1", Step: "Submitted", Outcome: "failed_recovered", Detail: "query fields not found", At: started}))
	require.NoError(t, s.FinishRun("run-1", "Idle", "", started.Add(time.Minute)))
	require.NoError(t, s.Close())

	out, err := execute(t, "", "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "failed_recovered")

	out, err = execute(t, "", "history", "--db", db, "--json", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"final_state": "Idle"`)
	assert.Contains(t, out, `"detail": "query fields not found"`)
}

func TestHistoryCommand_Empty(t *testing.T) {
	out, err := execute(t, "", "history", "--db", filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestReportCommand(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "", "report", "--dir", dir)
	assert.Error(t, err)

	path, err := store.SaveReport(dir, store.Report{Run: store.Run{ID: "run-9"}, States: []string{"Start", "Idle"}})
	require.NoError(t, err)

	out, err := execute(t, "", "report", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.Contains(t, out, `"id": "run-9"`)
}

func writeConfig(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()
	cfg := config.Default()
	mutate(cfg)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, cfg.SaveFile(path))
	return path
}

func TestCredsCommand(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	cfgPath := writeConfig(t, func(c *config.Config) { c.Credentials.EnvPath = envPath })

	out, err := execute(t, "\nu1\np1\n", "--config", cfgPath, "creds")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved credentials to "+envPath)

	env, err := godotenv.Read(envPath)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Portal.DefaultURL, env["TARGET_URL"])
	assert.Equal(t, "u1", env["TARGET_USERNAME"])
	assert.Equal(t, "p1", env["TARGET_PASSWORD"])
}

func TestCredsCommand_Incomplete(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	cfgPath := writeConfig(t, func(c *config.Config) { c.Credentials.EnvPath = envPath })

	_, err := execute(t, "\nu1\n\n", "--config", cfgPath, "creds")
	assert.ErrorContains(t, err, "all credentials are required")
	assert.NoFileExists(t, envPath)
}

func TestResolveOpenTarget(t *testing.T) {
	logDir := t.TempDir()
	cfgPath := writeConfig(t, func(c *config.Config) {
		c.Log.Dir = logDir
		c.Credentials.EnvPath = filepath.Join(logDir, "portal.env")
	})
	root := &rootOptions{configPath: cfgPath}

	got, err := resolveOpenTarget(root, "config")
	require.NoError(t, err)
	assert.Equal(t, cfgPath, got)

	got, err = resolveOpenTarget(root, "logs")
	require.NoError(t, err)
	assert.Equal(t, logDir, got)

	got, err = resolveOpenTarget(root, "env")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(logDir, "portal.env"), got)

	_, err = resolveOpenTarget(root, "tray")
	assert.ErrorContains(t, err, "unknown target")
}

func TestRootOptionsLoad_MissingFileUsesDefaults(t *testing.T) {
	root := &rootOptions{configPath: filepath.Join(t.TempDir(), "missing.toml")}
	cfg, err := root.load()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestBotTest_RejectsUnknownEngine(t *testing.T) {
	cfgPath := writeConfig(t, func(*config.Config) {})
	_, err := execute(t, "", "--config", cfgPath, "bot-test", "--engine", "netscape")
	assert.ErrorContains(t, err, "unknown browser engine")
}
