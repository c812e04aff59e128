package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/botlens/botlens/internal/account"
	"github.com/botlens/botlens/internal/config"
	"github.com/botlens/botlens/internal/db"
	"github.com/botlens/botlens/internal/logger"
	"github.com/botlens/botlens/internal/models"
)

// State of the snapshot scheduler.
type State string

const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
	StatePaused    State = "paused"
)

// ErrCaptureInProgress is returned when a manual trigger overlaps a
// running capture.
var ErrCaptureInProgress = errors.New("capture already in progress")

// BotSource lists the user's tracked bots.
type BotSource interface {
	TrackedBots(ctx context.Context) ([]models.TrackedBot, error)
}

// Ranker produces the merged trending set for a base filter.
type Ranker interface {
	Aggregate(ctx context.Context, baseFilter string) (*models.TrendingSet, error)
}

// AuthSignal reports credential health. Events fires when a re-auth
// succeeded and a paused scheduler should try again immediately.
type AuthSignal interface {
	IsValid(ctx context.Context) bool
	Events() <-chan struct{}
}

// Scheduler runs the daily snapshot capture: tracked bots are joined
// against the full trending set and one record group per calendar date is
// written to the store. At most one capture runs at a time; while paused
// on bad credentials the cron ticks are skipped until a re-auth event.
type Scheduler struct {
	store      db.HistoryStore
	bots       BotSource
	ranker     Ranker
	authSignal AuthSignal
	cfg        config.SnapshotConfig
	baseFilter string

	cron    *cron.Cron
	running bool
	state   State
	mu      sync.Mutex

	stopWatch chan struct{}
}

// New creates a new scheduler.
func New(store db.HistoryStore, bots BotSource, ranker Ranker, authSignal AuthSignal, cfg config.SnapshotConfig, baseFilter string) *Scheduler {
	return &Scheduler{
		store:      store,
		bots:       bots,
		ranker:     ranker,
		authSignal: authSignal,
		cfg:        cfg,
		baseFilter: baseFilter,
		cron:       cron.New(),
		state:      StateIdle,
	}
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start registers the cron tick and, unless suppressed, runs an initial
// capture right away.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}

	// register the cron entry before flipping running so a failed Start
	// can be retried
	if _, err := s.cron.AddFunc(s.cfg.CronExpr, func() {
		s.tick(context.Background())
	}); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.running = true
	s.stopWatch = make(chan struct{})
	s.mu.Unlock()

	go s.watchAuth()

	s.cron.Start()
	logger.Info("Scheduler started with cron expression: %s", s.cfg.CronExpr)

	if !s.cfg.SuppressInitial {
		s.tick(ctx)
	}

	return nil
}

// Stop stops the scheduler. A capture already in flight finishes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cron.Stop()
	close(s.stopWatch)
	s.running = false

	logger.Info("Scheduler stopped")
}

// watchAuth retries a paused scheduler as soon as credentials come back.
func (s *Scheduler) watchAuth() {
	events := s.authSignal.Events()
	for {
		select {
		case <-s.stopWatch:
			return
		case <-events:
			if s.State() != StatePaused {
				continue
			}
			logger.Info("Re-auth event received, resuming snapshot capture")
			s.tick(context.Background())
		}
	}
}

// tick is one scheduled attempt. A paused scheduler probes credentials
// first and stays paused when they are still bad.
func (s *Scheduler) tick(ctx context.Context) {
	if s.State() == StatePaused {
		if !s.authSignal.IsValid(ctx) {
			logger.Warning("Credentials still invalid, staying paused")
			return
		}
		s.setState(StateIdle)
	}

	if _, err := s.CaptureNow(ctx); err != nil {
		if errors.Is(err, ErrCaptureInProgress) {
			logger.Warning("Skipping tick, capture already in progress")
			return
		}
		logger.Error("Snapshot capture failed: %v", err)
	}
}

// CaptureNow runs one capture immediately. It is the manual trigger as
// well as the body of every cron tick.
func (s *Scheduler) CaptureNow(ctx context.Context) (*models.CaptureResult, error) {
	s.mu.Lock()
	if s.state == StateCapturing {
		s.mu.Unlock()
		return nil, ErrCaptureInProgress
	}
	s.state = StateCapturing
	s.mu.Unlock()

	result, err := s.capture(ctx)
	if err != nil {
		if errors.Is(err, account.ErrUnauthorized) {
			s.setState(StatePaused)
			logger.Warning("Credentials rejected, scheduler paused until re-auth")
		} else {
			s.setState(StateIdle)
		}
		return nil, err
	}

	s.setState(StateIdle)
	return result, nil
}

func (s *Scheduler) capture(ctx context.Context) (*models.CaptureResult, error) {
	runID := uuid.New().String()
	started := time.Now()
	date := started.UTC().Format(models.DateFormat)

	logger.Info("Starting snapshot capture %s for %s", runID, date)

	bots, err := s.bots.TrackedBots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked bots: %w", err)
	}
	logger.Info("Capture %s: %d tracked bots", runID, len(bots))

	set, err := s.ranker.Aggregate(ctx, s.baseFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate trending set: %w", err)
	}
	logger.Info("Capture %s: trending set holds %d entries", runID, set.Size())

	if err := s.store.RecordSnapshot(ctx, date, bots, set); err != nil {
		return nil, fmt.Errorf("failed to record snapshot: %w", err)
	}

	ranked := 0
	for _, bot := range bots {
		if set.RankOf(bot.ID) > 0 {
			ranked++
		}
	}

	result := &models.CaptureResult{
		RunID:       runID,
		Date:        date,
		TrackedBots: len(bots),
		Ranked:      ranked,
		SetSize:     set.Size(),
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}

	logger.Info("Completed snapshot capture %s: %d/%d bots ranked", runID, ranked, len(bots))
	return result, nil
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
