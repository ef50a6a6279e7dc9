package monitor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkondo/battlewatch/config"
	"github.com/mkondo/battlewatch/domain/match"
)

const (
	// resultDecodeBackoff is the retry wait after a scene decode failure.
	resultDecodeBackoff = 500 * time.Millisecond
	// resultCooldownBackoff paces re-checks while a detection overlay is
	// still within its cooldown.
	resultCooldownBackoff = 500 * time.Millisecond
)

// resultTally counts detected match outcomes for the current run.
type resultTally struct {
	Win        int
	Lose       int
	Disconnect int
}

func (t resultTally) Text() string {
	return fmt.Sprintf("Win: %d - Lose: %d - DC: %d", t.Win, t.Lose, t.Disconnect)
}

// resultState is the monitor's running tally plus the last emit time used
// for cooldown suppression. Owned by the loop goroutine.
type resultState struct {
	tally    resultTally
	lastEmit time.Time
}

// ResultsMonitor polls the scene for the win, lose and disconnect overlays,
// counts each detection once per cooldown window, and pushes the running
// tally to a text source on the output scene. Lose and disconnect take
// priority over win when overlays coincide.
type ResultsMonitor struct {
	cfg    *config.Config
	shots  ScreenshotTaker
	codec  Codec
	text   TextUpdater
	logger *slog.Logger
}

// NewResultsMonitor wires the monitor; collaborators stay injectable for
// testing with fakes.
func NewResultsMonitor(cfg *config.Config, shots ScreenshotTaker, codec Codec, text TextUpdater, logger *slog.Logger) *ResultsMonitor {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultsMonitor{cfg: cfg, shots: shots, codec: codec, text: text, logger: logger}
}

// Start launches the polling loop and returns its session handle.
func (m *ResultsMonitor) Start() (*Session, error) {
	if m.shots == nil || m.codec == nil || m.text == nil {
		return nil, errors.New("results monitor: missing collaborator")
	}
	s := newSession()
	go m.loop(s)
	return s, nil
}

func (m *ResultsMonitor) loop(s *Session) {
	defer close(s.done)
	m.logger.Info("results monitor started", "session", s.ID)
	var st resultState
	for !s.Stopped() {
		m.cycle(s, &st)
	}
	m.logger.Info("results monitor stopped", "session", s.ID,
		"win", st.tally.Win, "lose", st.tally.Lose, "disconnect", st.tally.Disconnect)
}

// cycle runs one poll: screenshot, score the three overlay regions against
// their templates, and on a detection outside the cooldown window bump the
// tally and rewrite the text source. A missing template just skips its
// label; the remaining labels stay live.
func (m *ResultsMonitor) cycle(s *Session, st *resultState) {
	r := m.cfg.Results
	if err := m.shots.TakeScreenshot(m.cfg.OBS.Source, m.cfg.ResultScenePath()); err != nil {
		m.logger.Warn("screenshot failed", "source", m.cfg.OBS.Source, "error", err)
	}
	scene, err := m.codec.Decode(m.cfg.ResultScenePath())
	if err != nil {
		s.sleep(resultDecodeBackoff)
		return
	}

	labels := []struct {
		name string
		rect match.Rect
		tpl  string
	}{
		{"lose", r.LoseRect, m.cfg.LoseTplPath()},
		{"disconnect", r.DisconnectRect, m.cfg.DisconnectTplPath()},
		{"win", r.WinRect, m.cfg.WinTplPath()},
	}

	detected := ""
	for _, l := range labels {
		tpl, err := m.codec.Decode(l.tpl)
		if err != nil {
			if m.cfg.Debug {
				m.logger.Debug("result template unavailable", "label", l.name, "path", l.tpl)
			}
			continue
		}
		crop := match.CropRGBA(scene, l.rect)
		score := match.MaxNCC(match.NewGray(crop), match.NewGray(tpl))
		if m.cfg.Debug {
			m.logger.Debug("result score", "label", l.name, "score", score, "threshold", r.MatchThreshold)
		}
		if score >= r.MatchThreshold {
			detected = l.name
			break
		}
	}

	if detected == "" {
		s.sleep(r.PollInterval())
		return
	}

	now := time.Now()
	if now.Sub(st.lastEmit) < r.Cooldown() {
		// Overlay persists across polls; count it once per cooldown.
		s.sleep(resultCooldownBackoff)
		return
	}
	st.lastEmit = now

	switch detected {
	case "win":
		st.tally.Win++
	case "lose":
		st.tally.Lose++
	case "disconnect":
		st.tally.Disconnect++
	}
	text := st.tally.Text()
	m.logger.Info("result detected", "result", detected, "tally", text)
	if err := m.text.UpdateText(r.TextSource, text); err != nil {
		m.logger.Warn("update text source", "source", r.TextSource, "error", err)
	}

	s.sleep(r.Cooldown())
}
