package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mkondo/battlewatch/domain/match"
)

// OBSSettings locate the obs-websocket endpoint and the video source to
// screenshot.
type OBSSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	Source   string `yaml:"source"`
}

// BattleSettings configure the battle monitor. Rects are screen coordinates
// of the 1920x1080 capture layout; overriding them here is how resolution
// changes are absorbed without logic edits.
type BattleSettings struct {
	MarkerThreshold float64       `yaml:"marker_threshold"`
	TagThreshold    float64       `yaml:"tag_threshold"`
	PollIntervalMS  int           `yaml:"poll_interval_ms"`
	CaptureRect     match.Rect    `yaml:"capture_rect"`
	MarkerRect      match.Rect    `yaml:"marker_rect"`
	RowRects        [6]match.Rect `yaml:"row_rects"`
}

// PollInterval returns the idle-cycle sleep between battle polls.
func (b BattleSettings) PollInterval() time.Duration {
	return time.Duration(b.PollIntervalMS) * time.Millisecond
}

// RecordingSettings configure the recording monitor.
type RecordingSettings struct {
	MatchThreshold  float64    `yaml:"match_threshold"`
	StartConfirmMS  int        `yaml:"start_confirm_ms"`
	GuardSeconds    int        `yaml:"guard_seconds"`
	PollIntervalMS  int        `yaml:"poll_interval_ms"`
	StartMarkerRect match.Rect `yaml:"start_marker_rect"`
	StopMarkerRect  match.Rect `yaml:"stop_marker_rect"`
}

// StartConfirmWindow returns the duration of one start-confirmation round.
func (r RecordingSettings) StartConfirmWindow() time.Duration {
	return time.Duration(r.StartConfirmMS) * time.Millisecond
}

// GuardPeriod returns the post-start cooldown during which no start/stop
// logic runs.
func (r RecordingSettings) GuardPeriod() time.Duration {
	return time.Duration(r.GuardSeconds) * time.Second
}

// PollInterval returns the optional end-of-cycle sleep.
func (r RecordingSettings) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalMS) * time.Millisecond
}

// ResultsSettings configure the win/lose/disconnect results monitor.
type ResultsSettings struct {
	MatchThreshold  float64    `yaml:"match_threshold"`
	CooldownSeconds int        `yaml:"cooldown_seconds"`
	PollIntervalMS  int        `yaml:"poll_interval_ms"`
	TextSource      string     `yaml:"text_source"`
	WinRect         match.Rect `yaml:"win_rect"`
	LoseRect        match.Rect `yaml:"lose_rect"`
	DisconnectRect  match.Rect `yaml:"disconnect_rect"`
}

// Cooldown returns how long a detected result suppresses further counting.
func (r ResultsSettings) Cooldown() time.Duration {
	return time.Duration(r.CooldownSeconds) * time.Second
}

// PollInterval returns the sleep between result polls with no detection.
func (r ResultsSettings) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalMS) * time.Millisecond
}

// Config holds runtime configuration. Fields may be loaded from a YAML file;
// construct through DefaultConfig or Load so defaults apply.
type Config struct {
	Debug bool `yaml:"debug"`

	// BaseDir roots the working layout: work/ for scenes, crops and
	// templates, broadcast/ for the overwritten outputs, archive/ for the
	// timestamped captures.
	BaseDir string `yaml:"base_dir"`

	// OutputFormat selects the archive/broadcast image extension (png|jpg).
	OutputFormat string `yaml:"output_format"`

	// ScreenshotSource picks where scene snapshots come from: "obs" asks the
	// websocket for a source screenshot, "display" grabs the local screen.
	ScreenshotSource string `yaml:"screenshot_source"`

	OBS        OBSSettings       `yaml:"obs"`
	Battle     BattleSettings    `yaml:"battle"`
	Recording  RecordingSettings `yaml:"recording"`
	Results    ResultsSettings   `yaml:"results"`
	WebhookURL string            `yaml:"webhook_url"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:            false,
		BaseDir:          ".",
		OutputFormat:     "png",
		ScreenshotSource: "obs",
		OBS:              OBSSettings{Host: "localhost", Port: 4455, Source: "Capture1"},
		Battle: BattleSettings{
			MarkerThreshold: 0.4,
			TagThreshold:    0.4,
			PollIntervalMS:  2000,
			CaptureRect:     match.NewRect(1221, 150, 1655, 850),
			MarkerRect:      match.NewRect(1541, 229, 1651, 843),
			RowRects: [6]match.Rect{
				match.NewRect(146, 138, 933, 255),
				match.NewRect(146, 255, 933, 372),
				match.NewRect(146, 372, 933, 489),
				match.NewRect(146, 489, 933, 606),
				match.NewRect(146, 606, 933, 723),
				match.NewRect(146, 723, 933, 840),
			},
		},
		Recording: RecordingSettings{
			MatchThreshold:  0.4,
			StartConfirmMS:  2000,
			GuardSeconds:    140,
			PollIntervalMS:  0,
			StartMarkerRect: match.NewRect(1541, 229, 1651, 843),
			StopMarkerRect:  match.NewRect(0, 0, 96, 72),
		},
		Results: ResultsSettings{
			MatchThreshold:  0.2,
			CooldownSeconds: 10,
			PollIntervalMS:  500,
			TextSource:      "sensekiText1",
			WinRect:         match.NewRect(450, 990, 696, 1020),
			LoseRect:        match.NewRect(480, 960, 730, 1045),
			DisconnectRect:  match.NewRect(372, 654, 1548, 774),
		},
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.BaseDir == "" {
		c.BaseDir = "."
	}
	switch strings.ToLower(c.OutputFormat) {
	case "jpg", "jpeg":
		c.OutputFormat = "jpg"
	default:
		c.OutputFormat = "png"
	}
	if c.ScreenshotSource != "display" {
		c.ScreenshotSource = "obs"
	}
	if c.OBS.Host == "" {
		c.OBS.Host = "localhost"
	}
	if c.OBS.Port <= 0 {
		c.OBS.Port = 4455
	}
	if c.OBS.Source == "" {
		c.OBS.Source = "Capture1"
	}
	if c.Battle.MarkerThreshold <= 0 || c.Battle.MarkerThreshold > 1 {
		c.Battle.MarkerThreshold = 0.4
	}
	if c.Battle.TagThreshold <= 0 || c.Battle.TagThreshold > 1 {
		c.Battle.TagThreshold = 0.4
	}
	if c.Battle.PollIntervalMS < 0 {
		c.Battle.PollIntervalMS = 0
	}
	if c.Recording.MatchThreshold <= 0 || c.Recording.MatchThreshold > 1 {
		c.Recording.MatchThreshold = 0.4
	}
	if c.Recording.StartConfirmMS <= 0 {
		c.Recording.StartConfirmMS = 2000
	}
	if c.Recording.GuardSeconds <= 0 {
		c.Recording.GuardSeconds = 140
	}
	if c.Recording.PollIntervalMS < 0 {
		c.Recording.PollIntervalMS = 0
	}
	if c.Results.MatchThreshold <= 0 || c.Results.MatchThreshold > 1 {
		c.Results.MatchThreshold = 0.2
	}
	if c.Results.CooldownSeconds <= 0 {
		c.Results.CooldownSeconds = 10
	}
	if c.Results.PollIntervalMS < 0 {
		c.Results.PollIntervalMS = 500
	}
	if c.Results.TextSource == "" {
		c.Results.TextSource = "sensekiText1"
	}
	return nil
}

// Load reads configuration from the given YAML file path. If the file does
// not exist it returns DefaultConfig().
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in YAML format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
