package pubsplice

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is looked up in the working directory when no config path
// is given.
const ConfigFileName = "pubsplice.toml"

// Paths locates the documents and directories of a workspace. Relative paths
// are resolved against the directory holding the config file.
type Paths struct {
	Template  string `toml:"template"`
	Index     string `toml:"index"`
	Feed      string `toml:"feed"`
	OutputDir string `toml:"output_dir"`
	DraftsDir string `toml:"drafts_dir"`
	ImagesDir string `toml:"images_dir"`
}

// Site holds the public address and default byline.
type Site struct {
	BaseURL string `toml:"base_url"`
	Author  string `toml:"author"`
}

// FeedSettings bounds the syndication feed.
type FeedSettings struct {
	Retention int `toml:"retention"`
}

// Prompts toggles optional interactive questions.
type Prompts struct {
	CoverImage bool `toml:"cover_image"`
}

// StoreSettings selects the entry list backend.
type StoreSettings struct {
	Driver string `toml:"driver"` // "json" or "sqlite"
	Path   string `toml:"path"`
}

// MarkdownSettings configures draft conversion.
type MarkdownSettings struct {
	Extensions []string `toml:"extensions"`
	HardWraps  bool     `toml:"hard_wraps"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is built once at startup and handed to every operation.
type Config struct {
	Paths    Paths            `toml:"paths"`
	Site     Site             `toml:"site"`
	Feed     FeedSettings     `toml:"feed"`
	Prompts  Prompts          `toml:"prompts"`
	Store    StoreSettings    `toml:"store"`
	Markdown MarkdownSettings `toml:"markdown"`
	Logging  Logging          `toml:"logging"`

	// Root is the workspace directory, the one holding the config file.
	Root string `toml:"-"`
}

// DefaultConfig returns the settings used for anything a config file leaves
// out.
func DefaultConfig() Config {
	return Config{
		Paths: Paths{
			Template:  "template.html",
			Index:     "index.html",
			Feed:      "feed.xml",
			OutputDir: ".",
			DraftsDir: "drafts",
			ImagesDir: "images",
		},
		Feed:    FeedSettings{Retention: 10},
		Store:   StoreSettings{Driver: "json", Path: "entries.json"},
		Logging: Logging{Level: "info", Format: "console"},
	}
}

// ErrNoConfig is returned by LoadConfig when no config file exists.
var ErrNoConfig = errors.New("no " + ConfigFileName + " found; run `pubsplice init` first")

// LoadConfig reads, normalizes and validates the config file at path, or
// ConfigFileName in the working directory when path is empty.
func LoadConfig(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = ConfigFileName
	}
	resolved, err := expandPath(path, "")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w (looked for %s)", ErrNoConfig, resolved)
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", resolved, err)
	}

	cfg.Root = filepath.Dir(resolved)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", resolved, err)
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Site.BaseURL = strings.TrimSpace(c.Site.BaseURL)

	for _, p := range []*string{
		&c.Paths.Template,
		&c.Paths.Index,
		&c.Paths.Feed,
		&c.Paths.OutputDir,
		&c.Paths.DraftsDir,
		&c.Paths.ImagesDir,
		&c.Store.Path,
	} {
		expanded, err := expandPath(*p, c.Root)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	return validation.Errors{
		"paths": validation.ValidateStruct(&c.Paths,
			validation.Field(&c.Paths.Template, validation.Required),
			validation.Field(&c.Paths.Index, validation.Required),
			validation.Field(&c.Paths.Feed, validation.Required),
			validation.Field(&c.Paths.OutputDir, validation.Required),
			validation.Field(&c.Paths.DraftsDir, validation.Required),
			validation.Field(&c.Paths.ImagesDir, validation.Required),
		),
		"site": validation.ValidateStruct(&c.Site,
			validation.Field(&c.Site.BaseURL, validation.Required, is.URL),
		),
		"feed": validation.ValidateStruct(&c.Feed,
			validation.Field(&c.Feed.Retention, validation.Required, validation.Min(1)),
		),
		"store": validation.ValidateStruct(&c.Store,
			validation.Field(&c.Store.Driver, validation.Required, validation.In("json", "sqlite")),
			validation.Field(&c.Store.Path, validation.Required),
		),
		"logging": validation.ValidateStruct(&c.Logging,
			validation.Field(&c.Logging.Level, validation.In("debug", "info", "warn", "error")),
			validation.Field(&c.Logging.Format, validation.In("console", "json")),
		),
	}.Filter()
}

// PagePath is where the standalone page of an entry is written.
func (c *Config) PagePath(id string) string {
	return filepath.Join(c.Paths.OutputDir, id+".html")
}

// EnsureDirectories creates the directories a workspace writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.DraftsDir, c.Paths.ImagesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// expandPath expands a leading ~ and makes p absolute, relative to base when
// base is set.
func expandPath(p, base string) (string, error) {
	if p == "" {
		return p, nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if p == "~" {
			p = home
		} else if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
			p = filepath.Join(home, p[2:])
		}
	}
	if !filepath.IsAbs(p) && base != "" {
		p = filepath.Join(base, p)
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}
