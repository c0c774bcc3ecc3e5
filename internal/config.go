package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/take1/internal/revision"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage drivers.
const (
	StorageDriverSQLite = "sqlite"
	StorageDriverFS     = "fs"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Storage  StorageConfig     `yaml:"storage"`
	Editor   EditorConfig      `yaml:"editor"`
	Revision RevisionConfig    `yaml:"revision"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Editor.Validate(); err != nil {
		return err
	}
	if err := c.Revision.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects the persistence backend.
//
// Driver "sqlite" keeps every key in one database file at Path. Driver "fs"
// writes one JSON file per key under Dir and watches it for external edits.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	Dir    string `yaml:"dir"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(StorageDriverSQLite, StorageDriverFS)),
		validation.Field(&c.Path, validation.When(c.Driver == StorageDriverSQLite, validation.Required)),
		validation.Field(&c.Dir, validation.When(c.Driver == StorageDriverFS, validation.Required)),
	)
}

// EditorConfig tunes the editor session timers.
type EditorConfig struct {
	RevisionDebounce  time.Duration `yaml:"revision_debounce"`
	AutosaveDelay     time.Duration `yaml:"autosave_delay"`
	HighlightInterval time.Duration `yaml:"highlight_interval"`
	MinSpanLength     int           `yaml:"min_span_length"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RevisionDebounce, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&c.AutosaveDelay, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&c.HighlightInterval, validation.Required, validation.Min(50*time.Millisecond)),
		validation.Field(&c.MinSpanLength, validation.Required, validation.Min(1)),
	)
}

// RevisionConfig configures the completion service.
//
// DefaultAPIKey seeds the settings when no key has been stored yet; a key
// saved through the settings endpoint takes precedence.
type RevisionConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Model         string        `yaml:"model"`
	Temperature   float64       `yaml:"temperature"`
	MaxTokens     int           `yaml:"max_tokens"`
	Timeout       time.Duration `yaml:"timeout"`
	ContextChars  int           `yaml:"context_chars"`
	DefaultAPIKey string        `yaml:"default_api_key"`
}

// Validate validates the revision configuration.
func (c *RevisionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.Required),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.MaxTokens, validation.Required, validation.Min(1)),
		validation.Field(&c.Timeout, validation.Required),
		validation.Field(&c.ContextChars, validation.Min(0)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication, the daemon is local to one user.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Driver: StorageDriverSQLite,
			Path:   "./take1.db",
			Dir:    "./data",
		},
		Editor: EditorConfig{
			RevisionDebounce:  3 * time.Second,
			AutosaveDelay:     time.Second,
			HighlightInterval: 500 * time.Millisecond,
			MinSpanLength:     revision.DefaultMinSpanLength,
		},
		Revision: RevisionConfig{
			Endpoint:    revision.DefaultEndpoint,
			Model:       revision.DefaultModel,
			Temperature: revision.DefaultTemperature,
			MaxTokens:   revision.DefaultMaxTokens,
			Timeout:     revision.DefaultTimeout,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
