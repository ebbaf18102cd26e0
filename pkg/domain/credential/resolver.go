package credential

import (
	"context"
	"fmt"
	"log"
	"strings"

	xe "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/errors"
)

// Attempt describes one (candidate, user) probe which did not succeed.
//
// It intentionally holds no password, only its length and fingerprint.
type Attempt struct {
	Source      Source
	User        string
	PasswordLen int
	Fingerprint string

	// non-nil when the probe errored rather than got rejected.
	Err error
}

func (a Attempt) String() string {
	outcome := "rejected"
	if a.Err != nil {
		outcome = fmt.Sprintf("error: %s", a.Err)
	}
	return fmt.Sprintf(
		"source=%s user=%s len=%d fingerprint=%s: %s",
		a.Source, a.User, a.PasswordLen, a.Fingerprint, outcome,
	)
}

// ErrExhausted means no (candidate, user) pair passed the probe.
type ErrExhausted struct {
	Attempts []Attempt
}

func (e *ErrExhausted) Error() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "no database credential works (%d attempts)", len(e.Attempts))
	for _, a := range e.Attempts {
		fmt.Fprintf(b, "\n  - %s", a)
	}
	return b.String()
}

// Resolver finds the first working credential among candidates.
type Resolver struct {
	Probe  Probe
	Logger *log.Logger
}

// Resolve probes each candidate, in order, for each user in order
// (the app user first, then the admin fallback). The first acceptance
// wins.
//
// When everything is rejected it returns *ErrExhausted whose message
// carries per-attempt diagnostics without any raw password.
func (r Resolver) Resolve(
	ctx context.Context, candidates []Candidate, users []string,
) (Credential, error) {
	attempts := []Attempt{}

	for _, c := range candidates {
		for _, user := range users {
			if err := ctx.Err(); err != nil {
				return Credential{}, err
			}

			ok, err := r.Probe.Probe(ctx, user, c.Password)
			if ok {
				cred := Credential{User: user, Password: c.Password, Source: c.Source}
				r.Logger.Printf("database accepted %s", cred)
				return cred, nil
			}

			attempts = append(attempts, Attempt{
				Source:      c.Source,
				User:        user,
				PasswordLen: len(c.Password),
				Fingerprint: c.Fingerprint(),
				Err:         err,
			})
		}
	}

	return Credential{}, xe.Wrap(&ErrExhausted{Attempts: attempts})
}
