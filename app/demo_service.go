package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"phackdemo/adapters/rng"
	"phackdemo/domain/core"
	"phackdemo/domain/demo"
	"phackdemo/domain/run"
	"phackdemo/domain/trial"
	"phackdemo/internal"
	"phackdemo/internal/narrative"
	"phackdemo/ports"
)

// DemoSettings are the sizes and pacing every session is created with
type DemoSettings struct {
	BatchSize     int
	SampleSize    int
	TrialCap      int
	Seed          int64 // 0 draws a fresh seed per session
	TrialInterval time.Duration
	RevealDelay   time.Duration
	CodeVersion   string
	SessionTTL    time.Duration // idle sessions older than this are dropped; 0 uses DefaultSessionTTL
}

// DefaultSessionTTL is how long an untouched session is kept
const DefaultSessionTTL = 30 * time.Minute

// DemoService runs the demonstration wizard for any number of independent
// sessions: intro, ready, running, reality check, explanation, reset.
type DemoService struct {
	generator ports.BatchGeneratorPort
	rngPort   ports.RNGPort
	simulator *Simulator
	driver    *PacedDriver
	ledger    ports.RunLedgerWriterPort
	publisher ports.UpdatePublisher
	settings  DemoSettings
	logger    *internal.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.RWMutex
	sessions map[core.SessionID]*session
	now      func() time.Time
}

type session struct {
	mu         sync.Mutex
	id         core.SessionID
	phase      demo.Phase
	seed       int64
	generation int
	batch      trial.Batch
	run        *Run
	runID      core.RunID
	startedAt  time.Time
	cancel     context.CancelFunc
	done       chan struct{}
	lastSeen   time.Time
}

// DemoDeps groups the collaborators of a DemoService. Ledger and Publisher are optional.
type DemoDeps struct {
	Generator ports.BatchGeneratorPort
	RNG       ports.RNGPort
	Ledger    ports.RunLedgerWriterPort
	Publisher ports.UpdatePublisher
	Logger    *internal.Logger
}

// NewDemoService creates a demo service
func NewDemoService(deps DemoDeps, settings DemoSettings) (*DemoService, error) {
	if settings.BatchSize <= 0 {
		return nil, core.NewConfigurationError("batch size", settings.BatchSize)
	}
	if settings.SampleSize <= 0 {
		return nil, core.NewConfigurationError("sample size", settings.SampleSize)
	}
	if settings.TrialCap <= 0 {
		return nil, core.NewConfigurationError("trial cap", settings.TrialCap)
	}
	if settings.SessionTTL <= 0 {
		settings.SessionTTL = DefaultSessionTTL
	}
	logger := deps.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}

	baseCtx, stop := context.WithCancel(context.Background())
	return &DemoService{
		generator: deps.Generator,
		rngPort:   deps.RNG,
		simulator: NewSimulator(logger),
		driver:    NewPacedDriver(settings.TrialInterval, settings.RevealDelay, logger),
		ledger:    deps.Ledger,
		publisher: deps.Publisher,
		settings:  settings,
		logger:    logger.With("DemoService"),
		baseCtx:   baseCtx,
		stop:      stop,
		sessions:  make(map[core.SessionID]*session),
		now:       time.Now,
	}, nil
}

// NewSession generates the first batch and opens a session at the intro.
// A zero seed falls back to the configured seed, then to a fresh one.
func (s *DemoService) NewSession(ctx context.Context, seed int64) (demo.View, error) {
	if seed == 0 {
		seed = s.settings.Seed
	}
	if seed == 0 {
		seed = rng.NewSeed()
	}

	s.expireIdle()

	sess := &session{
		id:       core.NewSessionID(),
		phase:    demo.PhaseIntro,
		seed:     seed,
		lastSeen: s.now(),
	}
	batch, err := s.generateBatch(ctx, sess.seed, sess.generation)
	if err != nil {
		return demo.View{}, err
	}
	sess.batch = batch

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("session %s opened (seed %d, batch %s)", sess.id, seed, batch.Fingerprint().Short())
	return s.view(sess), nil
}

// View returns a snapshot of the session
func (s *DemoService) View(id core.SessionID) (demo.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return demo.View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.view(sess), nil
}

// Batch returns the comparisons the session's runs draw from
func (s *DemoService) Batch(id core.SessionID) (trial.Batch, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return trial.Batch{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.batch, nil
}

// Begin moves a session from the intro to the ready phase
func (s *DemoService) Begin(id core.SessionID) (demo.View, error) {
	return s.transition(id, "begin", demo.PhaseIntro, demo.PhaseReady)
}

// ShowExplanation moves a session from the reality check to the explanation
func (s *DemoService) ShowExplanation(id core.SessionID) (demo.View, error) {
	return s.transition(id, "show explanation", demo.PhaseRealityCheck, demo.PhaseExplanation)
}

func (s *DemoService) transition(id core.SessionID, op string, from, to demo.Phase) (demo.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return demo.View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.phase != from {
		return demo.View{}, core.NewPhaseError(op, sess.phase)
	}
	sess.phase = to
	s.publish(sess, demo.EventPhase, nil, nil)
	return s.view(sess), nil
}

// StartRun begins a paced run over the session's batch. Trial updates are
// published as they happen; the reality check follows once the run completes.
func (s *DemoService) StartRun(ctx context.Context, id core.SessionID) (demo.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return demo.View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch sess.phase {
	case demo.PhaseReady:
	case demo.PhaseRunning:
		return demo.View{}, core.ErrRunInProgress
	default:
		return demo.View{}, core.NewPhaseError("run analysis", sess.phase)
	}

	draws, err := s.rngPort.Stream(ctx, "", fmt.Sprintf("draws-%d", sess.generation), sess.seed)
	if err != nil {
		return demo.View{}, err
	}

	sink := ports.SinkFuncs{
		Trial: func(ev trial.Event) {
			s.publish(sess, demo.EventTrial, &ev, nil)
		},
		Complete: func(summary trial.Summary) {
			s.publish(sess, demo.EventComplete, nil, &summary)
		},
	}
	r, err := s.simulator.Start(sess.batch, s.settings.TrialCap, draws, sink)
	if err != nil {
		return demo.View{}, err
	}

	runCtx, cancel := context.WithCancel(s.baseCtx)
	sess.run = r
	sess.runID = core.NewRunID()
	sess.startedAt = time.Now()
	sess.cancel = cancel
	sess.done = make(chan struct{})
	sess.phase = demo.PhaseRunning

	s.logger.Info("session %s run %s started", sess.id, sess.runID)
	s.publish(sess, demo.EventPhase, nil, nil)

	s.wg.Add(1)
	go s.drive(runCtx, cancel, sess, r, sess.runID, sess.batch, sess.startedAt, sess.done)

	return s.view(sess), nil
}

func (s *DemoService) drive(ctx context.Context, cancel context.CancelFunc, sess *session, r *Run, runID core.RunID, batch trial.Batch, startedAt time.Time, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)
	defer cancel()

	summary, err := s.driver.Drive(ctx, lockedRun{sess: sess, run: r})
	s.record(sess.seed, runID, batch, summary, startedAt)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.cancel = nil

	if sess.runID != runID {
		return
	}
	if err != nil || !summary.Complete() {
		s.logger.Warn("session %s run %s stopped after %d trials: %v", sess.id, runID, summary.TrialsCompleted, err)
		s.publish(sess, demo.EventAborted, nil, &summary)
		return
	}

	sess.phase = demo.PhaseRealityCheck
	s.publish(sess, demo.EventRealityCheck, nil, &summary)
}

func (s *DemoService) record(seed int64, runID core.RunID, batch trial.Batch, summary trial.Summary, startedAt time.Time) {
	if s.ledger == nil {
		return
	}
	fp := run.NewFingerprint(seed, batch.Fingerprint(), summary.Cap, s.settings.CodeVersion)
	rec := run.NewRecord(runID, fp, batch, summary, startedAt, time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.ledger.RecordRun(ctx, rec); err != nil {
		s.logger.Error("failed to record run %s: %v", runID, err)
	}
}

// Wait blocks until the session's current run has finished, if any
func (s *DemoService) Wait(ctx context.Context, id core.SessionID) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	done := sess.done
	sess.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset aborts any run, discards the batch, generates a new one and returns
// the session to the intro
func (s *DemoService) Reset(ctx context.Context, id core.SessionID) (demo.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return demo.View{}, err
	}

	sess.mu.Lock()
	cancel, done := sess.cancel, sess.done
	sess.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return demo.View{}, ctx.Err()
		}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	batch, err := s.generateBatch(ctx, sess.seed, sess.generation+1)
	if err != nil {
		return demo.View{}, err
	}
	sess.generation++
	sess.batch = batch
	sess.run = nil
	sess.runID = ""
	sess.done = nil
	sess.phase = demo.PhaseIntro

	s.logger.Info("session %s reset (generation %d, batch %s)", sess.id, sess.generation, batch.Fingerprint().Short())
	s.publish(sess, demo.EventReset, nil, nil)
	return s.view(sess), nil
}

// Close aborts every run and waits for the drivers to record them
func (s *DemoService) Close() {
	s.stop()
	s.wg.Wait()
}

func (s *DemoService) generateBatch(ctx context.Context, seed int64, generation int) (trial.Batch, error) {
	stream, err := s.rngPort.Stream(ctx, "", fmt.Sprintf("batch-%d", generation), seed)
	if err != nil {
		return trial.Batch{}, err
	}
	return s.generator.GenerateBatch(ctx, stream, s.settings.BatchSize, s.settings.SampleSize)
}

func (s *DemoService) lookup(id core.SessionID) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	sess.mu.Lock()
	sess.lastSeen = s.now()
	sess.mu.Unlock()
	return sess, nil
}

// Sessions reports how many sessions are open
func (s *DemoService) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// expireIdle drops sessions untouched for longer than SessionTTL. Sessions
// with a run in progress are kept.
func (s *DemoService) expireIdle() {
	cutoff := s.now().Add(-s.settings.SessionTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.phase != demo.PhaseRunning && sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			s.logger.Debug("session %s expired", id)
		}
	}
}

// summary must be called with sess.mu held
func (s *DemoService) summary(sess *session) trial.Summary {
	if sess.run == nil {
		return trial.Summary{Cap: s.settings.TrialCap}
	}
	return sess.run.Summary()
}

// view must be called with sess.mu held
func (s *DemoService) view(sess *session) demo.View {
	summary := s.summary(sess)
	v := demo.View{
		ID:               sess.id,
		Phase:            sess.phase,
		Seed:             sess.seed,
		Generation:       sess.generation,
		BatchFingerprint: sess.batch.Fingerprint(),
		BatchSize:        sess.batch.Len(),
		SampleSize:       sess.batch.SampleSize(),
		TrialCap:         summary.Cap,
		TrialsCompleted:  summary.TrialsCompleted,
		SignificantCount: summary.SignificantCount,
		RunID:            sess.runID,
		Message:          narrative.PhaseMessage(sess.phase, summary),
	}
	if sess.run != nil {
		v.Current = sess.run.State().Current
	}
	return v
}

// publish must be called with sess.mu held
func (s *DemoService) publish(sess *session, eventType demo.EventType, ev *trial.Event, summary *trial.Summary) {
	if s.publisher == nil {
		return
	}
	v := s.view(sess)
	update := demo.Update{
		SessionID: sess.id,
		EventType: eventType,
		Phase:     sess.phase,
		Progress:  v.Progress(),
		Trial:     ev,
		Summary:   summary,
		Data:      map[string]interface{}{"message": v.Message},
		Timestamp: core.Now(),
	}
	s.publisher.Publish(update)
}

// lockedRun serializes driver steps against readers of the session
type lockedRun struct {
	sess *session
	run  *Run
}

func (l lockedRun) Step() (trial.Event, error) {
	l.sess.mu.Lock()
	defer l.sess.mu.Unlock()
	return l.run.Step()
}

func (l lockedRun) Done() bool {
	l.sess.mu.Lock()
	defer l.sess.mu.Unlock()
	return l.run.Done()
}

func (l lockedRun) Summary() trial.Summary {
	l.sess.mu.Lock()
	defer l.sess.mu.Unlock()
	return l.run.Summary()
}
