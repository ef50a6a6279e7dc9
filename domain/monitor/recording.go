package monitor

import (
	"errors"
	"log/slog"
	"time"

	"github.com/mkondo/battlewatch/config"
	"github.com/mkondo/battlewatch/domain/match"
)

const (
	// recDecodeBackoff is the retry wait after a scene decode failure.
	recDecodeBackoff = 100 * time.Millisecond
	// recTemplateWait is the retry wait when a marker template is missing.
	recTemplateWait = time.Second
	// confirmInterval spaces the recording-status confirmation polls.
	confirmInterval = 200 * time.Millisecond
	// stopConfirmPolls is the number of status polls per stop-confirmation round.
	stopConfirmPolls = 10
	// unknownFloor is the minimum number of "unknown" status answers before
	// an unconfirmed start is assumed successful. With the default 2s window
	// the two rounds yield at most 20 polls; a floor of 16 means nearly every
	// answer was "unknown", i.e. the controller cannot be queried at all.
	unknownFloor = 16
	// guardSlice bounds cancellation latency inside the guard period.
	guardSlice = 100 * time.Millisecond
)

// recState is the monitor's believed recorder state: whether a recording is
// thought to be running and when it started. Owned by the loop goroutine; it
// may diverge from the controller under ambiguous status answers.
type recState struct {
	recording bool
	startedAt time.Time
}

// RecordingMonitor watches for the start and stop markers and drives an
// external Recorder through a confirmed start/stop protocol. The believed
// recording state lives in the loop goroutine only and may diverge from the
// controller under ambiguous status answers.
type RecordingMonitor struct {
	cfg    *config.Config
	shots  ScreenshotTaker
	codec  Codec
	rec    Recorder
	events EventSink
	logger *slog.Logger
}

// NewRecordingMonitor wires the monitor; a nil events sink is replaced with a
// no-op so callers that only want recording control need not provide one.
func NewRecordingMonitor(cfg *config.Config, shots ScreenshotTaker, codec Codec, rec Recorder, events EventSink, logger *slog.Logger) *RecordingMonitor {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if events == nil {
		events = EventFunc(func(EventKind, time.Time) {})
	}
	return &RecordingMonitor{cfg: cfg, shots: shots, codec: codec, rec: rec, events: events, logger: logger}
}

// Start launches the polling loop and returns its session handle.
func (m *RecordingMonitor) Start() (*Session, error) {
	if m.shots == nil || m.codec == nil || m.rec == nil {
		return nil, errors.New("recording monitor: missing collaborator")
	}
	s := newSession()
	go m.loop(s)
	return s, nil
}

func (m *RecordingMonitor) loop(s *Session) {
	defer close(s.done)
	m.logger.Info("recording monitor started", "session", s.ID)

	var st recState
	for !s.Stopped() {
		m.cycle(s, &st)
		if s.sleep(m.cfg.Recording.PollInterval()) {
			break
		}
	}

	if st.recording {
		// Best-effort, not re-confirmed.
		m.logger.Info("stopping recording on exit", "started_at", st.startedAt)
		if err := m.rec.StopRecording(); err != nil {
			m.logger.Warn("stop recording on exit", "error", err)
		}
		m.events.Emit(EventStoppedOnExit, time.Now())
	}
	m.logger.Info("recording monitor stopped", "session", s.ID)
}

func (m *RecordingMonitor) cycle(s *Session, st *recState) {
	r := m.cfg.Recording
	if err := m.shots.TakeScreenshot(m.cfg.OBS.Source, m.cfg.RecScenePath()); err != nil {
		m.logger.Warn("screenshot failed", "source", m.cfg.OBS.Source, "error", err)
	}
	scene, err := m.codec.Decode(m.cfg.RecScenePath())
	if err != nil {
		s.sleep(recDecodeBackoff)
		return
	}

	startCrop := match.CropRGBA(scene, r.StartMarkerRect)
	stopCrop := match.CropRGBA(scene, r.StopMarkerRect)
	if err := m.codec.Encode(startCrop, m.cfg.StartCropPath()); err != nil {
		m.logger.Warn("write start crop", "error", err)
	}
	if err := m.codec.Encode(stopCrop, m.cfg.StopCropPath()); err != nil {
		m.logger.Warn("write stop crop", "error", err)
	}

	startTpl, err := m.codec.Decode(m.cfg.StartTplPath())
	if err != nil {
		m.logger.Warn("start template unavailable", "path", m.cfg.StartTplPath(), "error", err)
		s.sleep(recTemplateWait)
		return
	}
	stopTpl, err := m.codec.Decode(m.cfg.StopTplPath())
	if err != nil {
		m.logger.Warn("stop template unavailable", "path", m.cfg.StopTplPath(), "error", err)
		s.sleep(recTemplateWait)
		return
	}

	startScore := match.MaxNCC(match.NewGray(startCrop), match.NewGray(startTpl))
	stopScore := match.MaxNCC(match.NewGray(stopCrop), match.NewGray(stopTpl))
	if m.cfg.Debug {
		m.logger.Debug("marker scores", "start", startScore, "stop", stopScore, "threshold", r.MatchThreshold)
	}

	if !st.recording && startScore >= r.MatchThreshold {
		m.logger.Info("start marker detected", "score", startScore)
		m.handleStart(s, st)
		return
	}

	if st.recording && stopScore >= r.MatchThreshold {
		m.logger.Info("stop marker detected", "score", stopScore)
		m.handleStop(s, st)
	}
}

// handleStart requests a recording start and polls for confirmation, with
// one retry round. When both rounds stay unconfirmed but a start request
// succeeded and nearly all status answers were "unknown", the start is
// assumed to have worked (controllers without a status query). A confirmed
// or assumed start emits the started event and holds the guard period.
func (m *RecordingMonitor) handleStart(s *Session, st *recState) {
	r := m.cfg.Recording

	unknowns := 0
	firstErr := m.rec.StartRecording()
	if firstErr != nil {
		m.logger.Warn("start recording request", "error", firstErr)
	}
	confirmed := m.pollForStatus(s, StatusRecording, r.StartConfirmWindow(), &unknowns)
	requestOK := firstErr == nil
	if !confirmed {
		secondErr := m.rec.StartRecording()
		if secondErr != nil {
			m.logger.Warn("start recording retry", "error", secondErr)
		}
		requestOK = requestOK || secondErr == nil
		confirmed = m.pollForStatus(s, StatusRecording, r.StartConfirmWindow(), &unknowns)
	}

	if !confirmed && requestOK && unknowns >= unknownFloor {
		m.logger.Info("recording status unqueryable, assuming started", "unknown_answers", unknowns)
		confirmed = true
	}

	if !confirmed {
		m.logger.Warn("recording did not start")
		s.sleep(time.Second)
		return
	}

	now := time.Now()
	st.recording = true
	st.startedAt = now
	m.events.Emit(EventStarted, now)
	m.logger.Info("recording started", "at", now)

	// Guard period: suppress all start/stop checks so the same marker does
	// not immediately re-trigger.
	s.sleepSliced(r.GuardPeriod(), guardSlice)
}

// handleStop requests a stop and polls for a negative confirmation, with one
// retry round. Unconfirmed stops leave the believed state as still-recording,
// so stop attempts recur on subsequent cycles while the stop marker matches.
// There is no assume-stopped analogue of the start heuristic.
func (m *RecordingMonitor) handleStop(s *Session, st *recState) {
	m.events.Emit(EventStopRequested, time.Now())
	if err := m.rec.StopRecording(); err != nil {
		m.logger.Warn("stop recording request", "error", err)
	}
	window := time.Duration(stopConfirmPolls) * confirmInterval
	stopped := m.pollForStatus(s, StatusStopped, window, nil)
	if !stopped {
		if err := m.rec.StopRecording(); err != nil {
			m.logger.Warn("stop recording retry", "error", err)
		}
		stopped = m.pollForStatus(s, StatusStopped, window, nil)
	}
	if stopped {
		m.logger.Info("recording stopped", "duration", time.Since(st.startedAt))
		st.recording = false
		st.startedAt = time.Time{}
	} else {
		m.logger.Warn("recording stop unconfirmed, keeping state")
	}
}

// pollForStatus queries the recorder every confirmInterval until want is
// observed, the window elapses, or the session stops. Unknown answers are
// tallied into unknowns when non-nil.
func (m *RecordingMonitor) pollForStatus(s *Session, want RecStatus, window time.Duration, unknowns *int) bool {
	polls := int(window / confirmInterval)
	for i := 0; i < polls; i++ {
		if s.Stopped() {
			return false
		}
		st := m.rec.Status()
		if st == want {
			return true
		}
		if st == StatusUnknown && unknowns != nil {
			*unknowns++
		}
		if s.sleep(confirmInterval) {
			return false
		}
	}
	return false
}
