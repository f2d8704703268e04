package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Keys in the credential file.
const (
	KeyURL      = "TARGET_URL"
	KeyUsername = "TARGET_USERNAME"
	KeyPassword = "TARGET_PASSWORD"
)

const envTemplate = KeyURL + "=\n" + KeyUsername + "=\n" + KeyPassword + "="

// ErrIncomplete is returned when a record is missing one of its fields.
var ErrIncomplete = errors.New("all credentials are required")

// Record is the credential triple used for one login run.
type Record struct {
	URL      string
	Username string
	Password string
}

// Complete reports whether all three fields are set.
func (r Record) Complete() bool {
	return r.URL != "" && r.Username != "" && r.Password != ""
}

// Validate returns ErrIncomplete unless the record is complete.
func (r Record) Validate() error {
	if !r.Complete() {
		return ErrIncomplete
	}
	return nil
}

// Store reads and writes the dotenv credential file.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore creates a store for the file at path.
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the credential file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored record. When the file does not exist a template
// with empty values is written and existed is false. Credential variables
// already exported in the process environment win over the file.
func (s *Store) Load() (rec Record, existed bool, err error) {
	env := map[string]string{}
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn(fmt.Sprintf("%s file not found. Creating template...", s.path))
		if err := os.WriteFile(s.path, []byte(envTemplate), 0600); err != nil {
			return Record{}, false, fmt.Errorf("failed to create credential template: %w", err)
		}
		s.logger.Info(fmt.Sprintf("Created %s template. Please fill in your credentials.", s.path))
	} else if err != nil {
		return Record{}, false, err
	} else {
		existed = true
		if env, err = godotenv.Read(s.path); err != nil {
			return Record{}, true, fmt.Errorf("failed to read credential file: %w", err)
		}
	}

	for _, key := range []string{KeyURL, KeyUsername, KeyPassword} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}

	return Record{
		URL:      env[KeyURL],
		Username: env[KeyUsername],
		Password: env[KeyPassword],
	}, existed, nil
}

// Save overwrites the credential file with rec.
func (s *Store) Save(rec Record) error {
	env := map[string]string{
		KeyURL:      rec.URL,
		KeyUsername: rec.Username,
		KeyPassword: rec.Password,
	}
	if err := godotenv.Write(env, s.path); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return os.Chmod(s.path, 0600)
}
