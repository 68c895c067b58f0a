// Package config loads datepoll settings from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported collection backends. The in-process memory collection is not
// one of them: it would not outlive a single command.
const (
	BackendSQLite    = "sqlite"
	BackendWebDAV    = "webdav"
	BackendFirestore = "firestore"
)

// DefaultCalDAVEndpoint is the iCloud CalDAV endpoint.
const DefaultCalDAVEndpoint = "https://caldav.icloud.com/"

// SQLiteConfig locates the local database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// WebDAVConfig describes the WebDAV share holding event documents.
type WebDAVConfig struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Root is the directory, relative to Endpoint, holding the documents.
	Root string `yaml:"root"`
}

// FirestoreConfig selects the Firestore project and credentials.
type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
	ClientID        string `yaml:"client_id"`
	ClientSecret    string `yaml:"client_secret"`
	// Account names the saved user token, see the auth command.
	Account string `yaml:"account"`
}

// CalDAVConfig describes the calendar candidates are published to.
type CalDAVConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Calendar  string `yaml:"calendar"`
	StateFile string `yaml:"state_file"`
}

// Config is the top-level application configuration.
type Config struct {
	// Backend selects the collection implementation.
	Backend string `yaml:"backend"`
	// Timezone is the IANA zone dates are displayed and parsed in.
	Timezone string `yaml:"timezone"`
	LogLevel string `yaml:"log_level"`

	SQLite    SQLiteConfig    `yaml:"sqlite"`
	WebDAV    WebDAVConfig    `yaml:"webdav"`
	Firestore FirestoreConfig `yaml:"firestore"`
	CalDAV    CalDAVConfig    `yaml:"caldav"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Backend:  BackendSQLite,
		Timezone: "UTC",
		LogLevel: "info",
		SQLite:   SQLiteConfig{Path: "datepoll.db"},
		WebDAV:   WebDAVConfig{Root: "events"},
		CalDAV: CalDAVConfig{
			Endpoint:  DefaultCalDAVEndpoint,
			StateFile: "publish-state.json",
		},
	}
}

// LoadDotEnv loads a .env file into the environment if one exists.
func LoadDotEnv() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()
}

// Load builds the configuration: defaults, then the YAML file at path if
// it exists, then environment variables. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Environment only.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Backend, "DATEPOLL_BACKEND")
	setFromEnv(&c.Timezone, "DATEPOLL_TIMEZONE")
	setFromEnv(&c.LogLevel, "LOG_LEVEL")

	setFromEnv(&c.SQLite.Path, "SQLITE_PATH")

	setFromEnv(&c.WebDAV.Endpoint, "WEBDAV_ENDPOINT")
	setFromEnv(&c.WebDAV.Username, "WEBDAV_USERNAME")
	setFromEnv(&c.WebDAV.Password, "WEBDAV_PASSWORD")
	setFromEnv(&c.WebDAV.Root, "WEBDAV_ROOT")

	setFromEnv(&c.Firestore.ProjectID, "FIRESTORE_PROJECT_ID")
	setFromEnv(&c.Firestore.CredentialsFile, "FIRESTORE_CREDENTIALS_FILE")
	setFromEnv(&c.Firestore.Account, "FIRESTORE_ACCOUNT")
	setFromEnv(&c.Firestore.ClientID, "GOOGLE_CLIENT_ID")
	setFromEnv(&c.Firestore.ClientSecret, "GOOGLE_CLIENT_SECRET")

	setFromEnv(&c.CalDAV.Endpoint, "CALDAV_ENDPOINT")
	setFromEnv(&c.CalDAV.Username, "CALDAV_USERNAME")
	setFromEnv(&c.CalDAV.Password, "CALDAV_PASSWORD")
	setFromEnv(&c.CalDAV.Calendar, "CALDAV_CALENDAR_NAME")
	setFromEnv(&c.CalDAV.StateFile, "PUBLISH_STATE_FILE")
}

func setFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite backend requires SQLITE_PATH")
		}
	case BackendWebDAV:
		if c.WebDAV.Endpoint == "" {
			return errors.New("webdav backend requires WEBDAV_ENDPOINT")
		}
	case BackendFirestore:
		if c.Firestore.ProjectID == "" {
			return errors.New("firestore backend requires FIRESTORE_PROJECT_ID")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	return loc, nil
}
