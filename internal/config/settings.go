package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Settings holds all configuration options.
type Settings struct {
	// MusicFolder is the root under which artifacts are saved.
	MusicFolder string `yaml:"music_folder"`

	// NoArtistSubfolder saves artifacts directly in MusicFolder instead of
	// one subfolder per publisher.
	NoArtistSubfolder bool `yaml:"no_artist_subfolder"`

	UserAgent       string   `yaml:"user_agent"`
	HTTPTimeout     Duration `yaml:"http_timeout"`
	RequestInterval Duration `yaml:"request_interval"`

	// FailFast aborts the batch on the first failing item.
	FailFast bool `yaml:"fail_fast"`

	// Cover art settings
	SaveCoverArt    bool `yaml:"save_cover_art"`
	CoverArtMaxSize int  `yaml:"cover_art_max_size"`

	Mailbox  Mailbox  `yaml:"mailbox"`
	Download Download `yaml:"download"`
	Log      Log      `yaml:"log"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	s := &Settings{
		HTTPTimeout:     Duration{60 * time.Second},
		RequestInterval: Duration{time.Second},
		CoverArtMaxSize: 1000,
		Mailbox: Mailbox{
			PollInterval: Duration{time.Second},
		},
		Download: Download{
			StatusCheckInterval: Duration{time.Second},
		},
	}
	s.setDefaults()
	return s
}

// Load reads settings from a YAML file.
//
// Keys missing from the file keep their default value. A missing file is
// not an error: the defaults are returned.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	settings.setDefaults()

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a YAML file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (s *Settings) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("music_folder", s.MusicFolder).
		Bool("no_artist_subfolder", s.NoArtistSubfolder).
		Str("user_agent", s.UserAgent).
		Str("http_timeout", s.HTTPTimeout.String()).
		Str("request_interval", s.RequestInterval.String()).
		Bool("fail_fast", s.FailFast).
		Bool("save_cover_art", s.SaveCoverArt).
		Int("cover_art_max_size", s.CoverArtMaxSize).
		Dict("mailbox", s.Mailbox.ToDict()).
		Dict("download", s.Download.ToDict()).
		Dict("log", s.Log.ToDict())
}

func (s *Settings) setDefaults() {
	if s.MusicFolder == "" {
		s.MusicFolder = "./music"
	}

	if s.UserAgent == "" {
		s.UserAgent = "BandcampDownloader"
	}

	s.Mailbox.setDefaults()
	s.Download.setDefaults()
	s.Log.setDefaults()
}

// Validate reports the first invalid option.
func (s *Settings) Validate() error {
	if s.HTTPTimeout.Duration < 0 {
		return errors.New("http_timeout must not be negative")
	}

	if s.RequestInterval.Duration < 0 {
		return errors.New("request_interval must not be negative")
	}

	if s.CoverArtMaxSize < 0 {
		return errors.New("cover_art_max_size must not be negative")
	}

	if err := s.Mailbox.validate(); err != nil {
		return fmt.Errorf("mailbox config validation failed: %v", err)
	}

	if err := s.Download.validate(); err != nil {
		return fmt.Errorf("download config validation failed: %v", err)
	}

	if err := s.Log.validate(); err != nil {
		return fmt.Errorf("log config validation failed: %v", err)
	}

	return nil
}

// Mailbox configures the disposable mailbox used for email-gated downloads.
type Mailbox struct {
	APIURL       string   `yaml:"api_url"`
	SenderDomain string   `yaml:"sender_domain"`
	PollInterval Duration `yaml:"poll_interval"`
	PollAttempts uint64   `yaml:"poll_attempts"`
}

func (c *Mailbox) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("api_url", c.APIURL).
		Str("sender_domain", c.SenderDomain).
		Str("poll_interval", c.PollInterval.String()).
		Uint64("poll_attempts", c.PollAttempts)
}

func (c *Mailbox) setDefaults() {
	if c.APIURL == "" {
		c.APIURL = "https://www.1secmail.com/api/v1/"
	}

	if c.SenderDomain == "" {
		c.SenderDomain = "bandcamp.com"
	}

	if c.PollAttempts == 0 {
		c.PollAttempts = 120
	}
}

func (c *Mailbox) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("api_url must be an absolute URL, got: %s", c.APIURL)
	}

	if c.PollInterval.Duration < 0 {
		return errors.New("poll_interval must not be negative")
	}

	return nil
}

// Download configures the status-check chain and the artifact streamer.
type Download struct {
	StatusCheckAttempts uint64   `yaml:"status_check_attempts"`
	StatusCheckInterval Duration `yaml:"status_check_interval"`
	QueueSize           int      `yaml:"queue_size"`
	ChunkSize           int      `yaml:"chunk_size"`
}

func (c *Download) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Uint64("status_check_attempts", c.StatusCheckAttempts).
		Str("status_check_interval", c.StatusCheckInterval.String()).
		Int("queue_size", c.QueueSize).
		Int("chunk_size", c.ChunkSize)
}

func (c *Download) setDefaults() {
	if c.StatusCheckAttempts == 0 {
		c.StatusCheckAttempts = 30
	}

	if c.QueueSize == 0 {
		c.QueueSize = 16
	}

	if c.ChunkSize == 0 {
		c.ChunkSize = 32 * 1024
	}
}

func (c *Download) validate() error {
	if c.StatusCheckInterval.Duration < 0 {
		return errors.New("status_check_interval must not be negative")
	}

	if c.QueueSize < 0 {
		return errors.New("queue_size must be greater than 0")
	}

	if c.ChunkSize < 0 {
		return errors.New("chunk_size must be greater than 0")
	}

	return nil
}

// Log configures the diagnostic logger. Format "auto" picks "pretty" when
// stderr is a terminal and "json" otherwise.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Log) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("level", c.Level).
		Str("format", c.Format)
}

func (c *Log) setDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}

	if c.Format == "" {
		c.Format = "auto"
	}
}

func (c *Log) validate() error {
	if !slices.Contains([]string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}, c.Level) {
		return fmt.Errorf(
			"level must be one of: trace, debug, info, warn, error, fatal, panic, got: %s",
			c.Level,
		)
	}

	if !slices.Contains([]string{"auto", "json", "pretty"}, c.Format) {
		return fmt.Errorf("format must be 'auto', 'json' or 'pretty', got: %s", c.Format)
	}

	return nil
}

// Duration is a time.Duration written as a string such as "1s" or "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("failed to parse duration: %v", err)
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("failed to parse duration: %v", err)
	}

	d.Duration = parsed

	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
