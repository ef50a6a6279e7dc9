package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Working-directory layout under BaseDir. The work directory carries scene
// snapshots, debug crops and the reference templates the user drops in; the
// broadcast directory holds the overwritten outputs a streaming overlay reads;
// the archive directory collects timestamped detections.

func (c *Config) WorkDir() string      { return filepath.Join(c.BaseDir, "work") }
func (c *Config) BroadcastDir() string { return filepath.Join(c.BaseDir, "broadcast") }
func (c *Config) ArchiveDir() string   { return filepath.Join(c.BaseDir, "archive") }

// Battle monitor artifacts.

func (c *Config) ScenePath() string      { return filepath.Join(c.WorkDir(), "scene.png") }
func (c *Config) CapturePath() string    { return filepath.Join(c.WorkDir(), "capture.png") }
func (c *Config) MarkerTplPath() string  { return filepath.Join(c.WorkDir(), "marker.png") }
func (c *Config) MarkerCropPath() string { return filepath.Join(c.WorkDir(), "marker_area.png") }

// TagTplPath returns the path of the n-th (1-based) ordered tag template.
func (c *Config) TagTplPath(n int) string {
	return filepath.Join(c.WorkDir(), fmt.Sprintf("tag%d.jpg", n))
}

// BroadcastPath is overwritten on every marker detection.
func (c *Config) BroadcastPath() string {
	return filepath.Join(c.BroadcastDir(), "latest."+c.OutputFormat)
}

// ComposedPath receives the vertically concatenated tag rows.
func (c *Config) ComposedPath() string {
	return filepath.Join(c.BroadcastDir(), "tags.png")
}

// Recording monitor artifacts. The recording monitor uses its own scene file
// so the two monitors never race on a shared snapshot.

func (c *Config) RecScenePath() string  { return filepath.Join(c.WorkDir(), "scene2.png") }
func (c *Config) StartTplPath() string  { return filepath.Join(c.WorkDir(), "start_marker.png") }
func (c *Config) StopTplPath() string   { return filepath.Join(c.WorkDir(), "stop_marker.png") }
func (c *Config) StartCropPath() string { return filepath.Join(c.WorkDir(), "start_area.png") }
func (c *Config) StopCropPath() string  { return filepath.Join(c.WorkDir(), "stop_area.png") }

// Results monitor artifacts. Templates carry the win/lose/disconnect overlay
// snippets the user drops in.

func (c *Config) ResultScenePath() string   { return filepath.Join(c.WorkDir(), "scene3.png") }
func (c *Config) WinTplPath() string        { return filepath.Join(c.WorkDir(), "win.png") }
func (c *Config) LoseTplPath() string       { return filepath.Join(c.WorkDir(), "lose.png") }
func (c *Config) DisconnectTplPath() string { return filepath.Join(c.WorkDir(), "disconnect.png") }

// EnsureDirs creates the working layout on disk.
func (c *Config) EnsureDirs() error {
	for _, d := range []string{c.WorkDir(), c.BroadcastDir(), c.ArchiveDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}
