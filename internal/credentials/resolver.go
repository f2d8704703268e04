// Package credentials resolves the URL, username and password for a login
// run from the dotenv credential file, falling back to interactive prompts.
package credentials

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

const masked = "********"

// Resolver combines the credential file with interactive prompts.
type Resolver struct {
	store      *Store
	prompter   *Prompter
	out        io.Writer
	defaultURL string
	logger     *zap.Logger
}

// NewResolver creates a resolver. defaultURL is offered whenever the URL is
// prompted for and substituted when the answer is empty.
func NewResolver(store *Store, prompter *Prompter, out io.Writer, defaultURL string, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:      store,
		prompter:   prompter,
		out:        out,
		defaultURL: defaultURL,
		logger:     logger,
	}
}

// Resolve returns the credentials for this run.
//
// Missing fields (including all three when the file was just created) are
// prompted for individually. When every field is stored, the user is asked
// to confirm reuse; declining re-prompts all three with no pre-filled values.
// The returned record may still be incomplete if the user left answers blank.
func (r *Resolver) Resolve() (Record, error) {
	rec, _, err := r.store.Load()
	if err != nil {
		return Record{}, err
	}

	if !rec.Complete() {
		r.printMissingHelp()
		return r.promptMissing(rec)
	}

	fmt.Fprintln(r.out, "\nCredentials loaded from .env file.")
	fmt.Fprintf(r.out, "URL: %s\n", rec.URL)
	fmt.Fprintf(r.out, "Username: %s\n", rec.Username)
	fmt.Fprintf(r.out, "Password: %s\n", masked)

	answer, err := r.prompter.Ask("\nUse these credentials? (Y/n): ")
	if err != nil {
		return Record{}, err
	}
	if answer == "" || answer == "y" || answer == "Y" {
		return rec, nil
	}

	r.logger.Info("Stored credentials declined, prompting for new ones")
	return r.promptMissing(Record{})
}

func (r *Resolver) printMissingHelp() {
	fmt.Fprintln(r.out, "\nCredentials not found in .env file.")
	fmt.Fprintln(r.out, "Please enter your credentials or update the .env file with:")
	fmt.Fprintf(r.out, "%s=your_url\n", KeyURL)
	fmt.Fprintf(r.out, "%s=your_username\n", KeyUsername)
	fmt.Fprintf(r.out, "%s=your_password\n\n", KeyPassword)
}

// promptMissing asks only for the empty fields of rec.
func (r *Resolver) promptMissing(rec Record) (Record, error) {
	var err error

	if rec.URL == "" {
		rec.URL, err = r.prompter.Ask(fmt.Sprintf("Enter URL (press Enter for default: %s): ", r.defaultURL))
		if err != nil {
			return Record{}, err
		}
		if rec.URL == "" {
			rec.URL = r.defaultURL
		}
	}

	if rec.Username == "" {
		rec.Username, err = r.prompter.Ask("Enter Login ID: ")
		if err != nil {
			return Record{}, err
		}
	}

	if rec.Password == "" {
		rec.Password, err = r.prompter.AskSecret("Enter Password: ")
		if err != nil {
			return Record{}, err
		}
	}

	return rec, nil
}
