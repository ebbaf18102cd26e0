// Package credential recovers a working database credential from the
// places a previous deployment may have left one.
//
// Raw passwords stay inside this package; everything that leaves it for
// logs or errors is reduced to a length and a sha256 fingerprint.
package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Source tells where a candidate password was found.
//
// The declaration order is the trust order: a candidate from a
// source declared earlier is tried first.
type Source string

const (
	// the admin secret currently stored in the cluster.
	LiveSecret Source = "live-secret"

	// explicit override injected via the process environment.
	EnvVar Source = "env-var"

	// the DB_PASSWORD entry of the stored app secret.
	AppSecretLiteral Source = "app-secret-literal"

	// password segment extracted from the stored connection string.
	ConnStringFragment Source = "conn-string-fragment"
)

// Candidate is a password to be probed, with its provenance.
type Candidate struct {
	Source   Source
	Password string
}

// Fingerprint is a short sha256 digest of the password,
// safe to put in logs and error messages.
func (c Candidate) Fingerprint() string {
	sum := sha256.Sum256([]byte(c.Password))
	return hex.EncodeToString(sum[:])[:12]
}

// Credential is a (user, password) pair which has passed a probe.
type Credential struct {
	User     string
	Password string
	Source   Source
}

// URL renders the credential as a postgres connection string.
func (c Credential) URL(host string, port int32, dbname string) string {
	return postgresURL(c.User, c.Password, host, port, dbname)
}

// Fingerprint is a short sha256 digest of the password,
// safe to put in logs and error messages.
func (c Credential) Fingerprint() string {
	return Candidate{Password: c.Password}.Fingerprint()
}

// String never discloses the password.
func (c Credential) String() string {
	return fmt.Sprintf(
		"credential{user=%s source=%s fingerprint=%s}",
		c.User, c.Source, c.Fingerprint(),
	)
}
