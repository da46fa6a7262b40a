package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Step is one parameter in the inventory. EnvVar is both where the value is
// looked up before prompting and the variable the deployment resolves it
// into through EnvVar_SSM_PARAM.
type Step struct {
	EnvVar   string
	Key      string // category/key below /{env}/wellwatch/
	Label    string
	Secure   bool
	Optional bool
	// Generate, when set, fills a blank answer.
	Generate func() (string, error)
	Validate func(ctx context.Context, value string, conn DatabaseConnector) error
}

// BuildInventory lists the parameters a deployment needs, in prompt order.
func BuildInventory() []Step {
	return []Step{
		{
			EnvVar:   "DATABASE_URL",
			Key:      "database/url",
			Label:    "PostgreSQL connection string",
			Secure:   true,
			Validate: validateDatabaseURL,
		},
		{
			EnvVar:   "MQTT_PASSWORD",
			Key:      "mqtt/password",
			Label:    "MQTT broker password (blank generates one)",
			Secure:   true,
			Optional: true,
			Generate: GenerateSecureToken,
		},
		{
			EnvVar:   "SQS_STATUS_EVENTS",
			Key:      "queues/status_events",
			Label:    "SQS queue URL for status-change events",
			Optional: true,
			Validate: validateHTTPURL,
		},
		{
			EnvVar:   "IMPORT_BUCKET",
			Key:      "storage/import_bucket",
			Label:    "S3 bucket for bulk reading imports",
			Optional: true,
		},
	}
}

// tokenByteLength yields a 64-character hex token.
const tokenByteLength = 32

// GenerateSecureToken returns a random hex token from crypto/rand.
func GenerateSecureToken() (string, error) {
	buf := make([]byte, tokenByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating secure token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// DatabaseConnector verifies that a DSN accepts connections.
type DatabaseConnector interface {
	Connect(ctx context.Context, dsn string) error
}

// PgxConnector opens and immediately closes a pgx connection.
type PgxConnector struct{}

func (PgxConnector) Connect(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	return conn.Close(ctx)
}

func validateDatabaseURL(ctx context.Context, value string, conn DatabaseConnector) error {
	if _, err := pgx.ParseConfig(value); err != nil {
		return fmt.Errorf("invalid connection string: %w", err)
	}
	if conn == nil {
		return nil
	}
	if err := conn.Connect(ctx, value); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	return nil
}

func validateHTTPURL(_ context.Context, value string, _ DatabaseConnector) error {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("expected an http(s) URL, got %q", value)
	}
	return nil
}

// ExportPointers renders the *_SSM_PARAM dotenv lines for inv, sorted by
// variable name.
func ExportPointers(m *SSMManager, inv []Step) string {
	lines := make([]string, 0, len(inv))
	for _, s := range inv {
		lines = append(lines, fmt.Sprintf("%s_SSM_PARAM=%s", s.EnvVar, m.Path(s.Key)))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n") + "\n"
}
