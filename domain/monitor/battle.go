package monitor

import (
	"errors"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mkondo/battlewatch/config"
	"github.com/mkondo/battlewatch/domain/match"
)

const (
	// battleDecodeBackoff is the retry wait after a scene decode failure in
	// the idle state.
	battleDecodeBackoff = 200 * time.Millisecond
	// innerRetryWait paces the marker-present inner loop.
	innerRetryWait = time.Second
	// archiveTimeFormat names timestamped archive files in local time.
	archiveTimeFormat = "2006-01-02_15-04-05"
)

// BattleMonitor polls a video source for the battle board marker, and while
// the marker stays visible extracts the four ordered tag rows into a composed
// broadcast image.
//
// Idle state: screenshot, crop, marker NCC; on a score at or above the marker
// threshold the capture crop is written to the broadcast path and archived
// under a local-time filename, then the monitor enters the marker-present
// inner loop until the marker disappears.
type BattleMonitor struct {
	cfg    *config.Config
	shots  ScreenshotTaker
	codec  Codec
	logger *slog.Logger
}

// NewBattleMonitor wires the monitor; collaborators stay injectable for
// testing with fakes.
func NewBattleMonitor(cfg *config.Config, shots ScreenshotTaker, codec Codec, logger *slog.Logger) *BattleMonitor {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BattleMonitor{cfg: cfg, shots: shots, codec: codec, logger: logger}
}

// Start launches the polling loop and returns its session handle. It fails
// only when a collaborator is missing; everything after startup is absorbed,
// logged and retried inside the loop.
func (m *BattleMonitor) Start() (*Session, error) {
	if m.shots == nil || m.codec == nil {
		return nil, errors.New("battle monitor: missing screenshot or codec collaborator")
	}
	s := newSession()
	go m.loop(s)
	return s, nil
}

func (m *BattleMonitor) loop(s *Session) {
	defer close(s.done)
	m.logger.Info("battle monitor started", "session", s.ID)
	for !s.Stopped() {
		m.cycle(s)
	}
	m.logger.Info("battle monitor stopped", "session", s.ID)
}

// cycle runs one idle-state poll, including the marker-present inner loop
// when the marker is detected. All waits are cancellation-responsive.
func (m *BattleMonitor) cycle(s *Session) {
	b := m.cfg.Battle
	if err := m.shots.TakeScreenshot(m.cfg.OBS.Source, m.cfg.ScenePath()); err != nil {
		m.logger.Warn("screenshot failed", "source", m.cfg.OBS.Source, "error", err)
	}
	scene, err := m.codec.Decode(m.cfg.ScenePath())
	if err != nil {
		s.sleep(battleDecodeBackoff)
		return
	}

	capture := match.CropRGBA(scene, b.CaptureRect)
	if err := m.codec.Encode(capture, m.cfg.CapturePath()); err != nil {
		m.logger.Warn("write capture crop", "error", err)
	}
	markerCrop := match.CropRGBA(scene, b.MarkerRect)
	if err := m.codec.Encode(markerCrop, m.cfg.MarkerCropPath()); err != nil {
		m.logger.Warn("write marker crop", "error", err)
	}

	tpl, err := m.codec.Decode(m.cfg.MarkerTplPath())
	if err != nil {
		m.logger.Warn("marker template unavailable", "path", m.cfg.MarkerTplPath(), "error", err)
		s.sleep(b.PollInterval())
		return
	}
	tplGray := match.NewGray(tpl)

	score := match.MaxNCC(match.NewGray(markerCrop), tplGray)
	if m.cfg.Debug {
		m.logger.Debug("marker score", "score", score, "threshold", b.MarkerThreshold)
	}
	if score < b.MarkerThreshold {
		s.sleep(b.PollInterval())
		return
	}

	m.logger.Info("marker detected", "score", score)
	// Both destinations always exist here: the config derives the broadcast
	// and archive paths from BaseDir, so neither write is conditional.
	if err := m.codec.Encode(capture, m.cfg.BroadcastPath()); err != nil {
		m.logger.Warn("write broadcast image", "error", err)
	}
	name := time.Now().Format(archiveTimeFormat) + "." + m.cfg.OutputFormat
	dst := filepath.Join(m.cfg.ArchiveDir(), name)
	if err := m.codec.Encode(capture, dst); err != nil {
		m.logger.Warn("write archive image", "path", dst, "error", err)
	} else {
		m.logger.Info("archived capture", "path", dst)
	}

	m.markerPresent(s, tplGray)
	s.sleep(b.PollInterval())
}

// markerPresent runs while the marker keeps matching. A scene decode failure
// exits back to idle; a missing tag template or a sub-threshold tag score
// retries the same inner cycle after a short wait instead.
func (m *BattleMonitor) markerPresent(s *Session, markerTpl *match.Gray) {
	b := m.cfg.Battle
	for !s.Stopped() {
		if err := m.shots.TakeScreenshot(m.cfg.OBS.Source, m.cfg.ScenePath()); err != nil {
			m.logger.Warn("screenshot failed", "source", m.cfg.OBS.Source, "error", err)
		}
		scene, err := m.codec.Decode(m.cfg.ScenePath())
		if err != nil {
			return
		}
		markerCrop := match.CropRGBA(scene, b.MarkerRect)
		if err := m.codec.Encode(markerCrop, m.cfg.MarkerCropPath()); err != nil {
			m.logger.Warn("write marker crop", "error", err)
		}
		score := match.MaxNCC(match.NewGray(markerCrop), markerTpl)
		if m.cfg.Debug {
			m.logger.Debug("marker score", "score", score, "threshold", b.MarkerThreshold)
		}
		if score < b.MarkerThreshold {
			return
		}

		rows := make([]*image.RGBA, len(b.RowRects))
		rowGrays := make([]*match.Gray, len(b.RowRects))
		for i, r := range b.RowRects {
			rows[i] = match.CropRGBA(scene, r)
			rowGrays[i] = match.NewGray(rows[i])
		}

		tags, err := m.loadTagTemplates()
		if err != nil {
			m.logger.Warn("tag templates unavailable", "error", err)
			if s.sleep(innerRetryWait) {
				return
			}
			continue
		}

		order, ok := assignTags(rowGrays, tags, b.TagThreshold)
		if !ok {
			if m.cfg.Debug {
				m.logger.Debug("tag assignment incomplete")
			}
			if s.sleep(innerRetryWait) {
				return
			}
			continue
		}

		ordered := make([]*image.RGBA, len(order))
		for i, slot := range order {
			ordered[i] = rows[slot]
		}
		if sheet, err := match.VConcat(ordered); err != nil {
			m.logger.Warn("compose tag sheet", "error", err)
		} else if err := m.codec.Encode(sheet, m.cfg.ComposedPath()); err != nil {
			m.logger.Warn("write composed image", "path", m.cfg.ComposedPath(), "error", err)
		} else {
			m.logger.Info("composed tag sheet written", "path", m.cfg.ComposedPath(), "slots", order)
		}

		if s.sleep(innerRetryWait) {
			return
		}
	}
}

func (m *BattleMonitor) loadTagTemplates() ([]*match.Gray, error) {
	tags := make([]*match.Gray, 4)
	for i := range tags {
		img, err := m.codec.Decode(m.cfg.TagTplPath(i + 1))
		if err != nil {
			return nil, err
		}
		tags[i] = match.NewGray(img)
	}
	return tags, nil
}

// assignTags assigns each tag template, in order, to its best scoring unused
// row slot. Ties resolve to the lowest slot index (strict > comparison during
// the linear scan). Returns false when any tag's best score falls below
// threshold; partial assignments are discarded.
func assignTags(rows, tags []*match.Gray, threshold float64) ([]int, bool) {
	used := make([]bool, len(rows))
	order := make([]int, 0, len(tags))
	for _, tag := range tags {
		best := -2.0
		bestIdx := -1
		for i, row := range rows {
			if used[i] {
				continue
			}
			if sc := match.MaxNCC(row, tag); sc > best {
				best, bestIdx = sc, i
			}
		}
		if bestIdx < 0 || best < threshold {
			return nil, false
		}
		used[bestIdx] = true
		order = append(order, bestIdx)
	}
	return order, true
}
