package credentials

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testDefaultURL = "https://auth.example.test/login"

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTestResolver(path, input string) (*Resolver, *bytes.Buffer) {
	out := &bytes.Buffer{}
	logger := zap.NewNop()
	store := NewStore(path, logger)
	prompter := NewPrompter(strings.NewReader(input), out)
	return NewResolver(store, prompter, out, testDefaultURL, logger), out
}

func TestStoreLoad_MissingFileCreatesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	store := NewStore(path, zap.NewNop())

	rec, existed, err := store.Load()

	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, Record{}, rec)

	env, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeyURL: "", KeyUsername: "", KeyPassword: ""}, env)
}

func TestStoreSave_ThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	store := NewStore(path, zap.NewNop())
	want := Record{URL: "https://example.test/login", Username: "u1", Password: "p w=1"}

	require.NoError(t, store.Save(want))
	got, existed, err := store.Load()

	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, want, got)
}

func TestResolve_ReuseConfirmed(t *testing.T) {
	for _, answer := range []string{"\n", "y\n", "Y\n"} {
		path := writeEnv(t, "TARGET_URL=https://example.test/login\nTARGET_USERNAME=u1\nTARGET_PASSWORD=p1\n")
		r, out := newTestResolver(path, answer)

		rec, err := r.Resolve()

		require.NoError(t, err)
		assert.Equal(t, Record{URL: "https://example.test/login", Username: "u1", Password: "p1"}, rec)
		assert.Contains(t, out.String(), "Password: ********")
		assert.NotContains(t, out.String(), "p1")
		assert.NotContains(t, out.String(), "Enter Login ID")
	}
}

func TestResolve_ExportedVariablesWinOverFile(t *testing.T) {
	t.Setenv(KeyPassword, "from-env")
	t.Setenv(KeyUsername, "env-user")
	path := writeEnv(t, "TARGET_URL=https://example.test/login\nTARGET_USERNAME=u1\nTARGET_PASSWORD=\n")
	r, out := newTestResolver(path, "\n")

	rec, err := r.Resolve()

	require.NoError(t, err)
	assert.Equal(t, Record{URL: "https://example.test/login", Username: "env-user", Password: "from-env"}, rec)
	assert.NotContains(t, out.String(), "Credentials not found")
	assert.NotContains(t, out.String(), "Enter Password")
}

func TestStoreLoad_MissingFileStillReadsEnvironment(t *testing.T) {
	t.Setenv(KeyURL, "https://env.example.test/login")
	store := NewStore(filepath.Join(t.TempDir(), ".env"), zap.NewNop())

	rec, existed, err := store.Load()

	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, Record{URL: "https://env.example.test/login"}, rec)
}

func TestResolve_NoFileCreatesTemplateAndPrompts(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	r, out := newTestResolver(path, "https://example.test/login\nu1\np1\n")

	rec, err := r.Resolve()

	require.NoError(t, err)
	assert.Equal(t, Record{URL: "https://example.test/login", Username: "u1", Password: "p1"}, rec)
	assert.Contains(t, out.String(), "Credentials not found")
	assert.FileExists(t, path)
}

func TestResolve_MissingFieldOnlyPromptsForIt(t *testing.T) {
	path := writeEnv(t, "TARGET_URL=https://example.test/login\nTARGET_USERNAME=u1\nTARGET_PASSWORD=\n")
	r, out := newTestResolver(path, "p1\n")

	rec, err := r.Resolve()

	require.NoError(t, err)
	assert.Equal(t, Record{URL: "https://example.test/login", Username: "u1", Password: "p1"}, rec)
	assert.NotContains(t, out.String(), "Enter URL")
	assert.NotContains(t, out.String(), "Enter Login ID")
	assert.Contains(t, out.String(), "Enter Password")
}

func TestResolve_DeclineReusePromptsAll(t *testing.T) {
	path := writeEnv(t, "TARGET_URL=https://old.example.test\nTARGET_USERNAME=old\nTARGET_PASSWORD=oldpw\n")
	r, out := newTestResolver(path, "n\nhttps://new.example.test\nu2\np2\n")

	rec, err := r.Resolve()

	require.NoError(t, err)
	assert.Equal(t, Record{URL: "https://new.example.test", Username: "u2", Password: "p2"}, rec)
	assert.Contains(t, out.String(), "Enter URL")
	assert.Contains(t, out.String(), "Enter Login ID")
	assert.Contains(t, out.String(), "Enter Password")
}

func TestResolve_EmptyURLUsesDefault(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		input string
	}{
		{"missing url", "TARGET_URL=\nTARGET_USERNAME=u1\nTARGET_PASSWORD=p1\n", "\n"},
		{"declined reuse", "TARGET_URL=https://x.test\nTARGET_USERNAME=u1\nTARGET_PASSWORD=p1\n", "no\n\nu1\np1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResolver(writeEnv(t, tt.env), tt.input)

			rec, err := r.Resolve()

			require.NoError(t, err)
			assert.Equal(t, testDefaultURL, rec.URL)
			assert.Equal(t, "u1", rec.Username)
			assert.Equal(t, "p1", rec.Password)
		})
	}
}

func TestResolve_BlankAnswersLeaveRecordIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	r, _ := newTestResolver(path, "")

	rec, err := r.Resolve()

	require.NoError(t, err)
	assert.Equal(t, testDefaultURL, rec.URL)
	assert.False(t, rec.Complete())
	assert.ErrorIs(t, rec.Validate(), ErrIncomplete)
}
