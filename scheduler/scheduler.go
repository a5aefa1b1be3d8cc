package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"boat_radar/config"
	"boat_radar/models"
)

var ErrRunInProgress = errors.New("a run is already in progress")

// Runner executes one pipeline pass.
type Runner interface {
	Run(ctx context.Context) (*models.RunSummary, error)
}

// CommandSource is the queue of operator commands, normally the SQLite store.
type CommandSource interface {
	GetPendingCommands() ([]models.Command, error)
	MarkCommandProcessed(id int64) error
}

type Scheduler struct {
	cfg          config.SchedulerConfig
	runner       Runner
	commands     CommandSource
	cron         *cron.Cron
	ticker       *time.Ticker
	stopCh       chan struct{}
	stopOnce     sync.Once
	pollInterval time.Duration

	running atomic.Bool
	paused  atomic.Bool
	wg      sync.WaitGroup
}

func New(cfg config.SchedulerConfig, runner Runner, commands CommandSource) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		runner:       runner,
		commands:     commands,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
		pollInterval: 2 * time.Second,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.commands != nil {
		go s.pollCommands(ctx)
	}

	if s.cfg.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Cron)
		_, err := s.cron.AddFunc(s.cfg.Cron, func() { s.scheduledRun(ctx) })
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Interval)
		s.ticker = time.NewTicker(s.cfg.Interval)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.scheduledRun(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, daemon will only respond to commands and HTTP triggers")
	}

	return nil
}

// Stop halts triggers and waits for runs the scheduler started to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// RunNow runs the pipeline unless another run is in flight.
func (s *Scheduler) RunNow(ctx context.Context) (*models.RunSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	return s.runner.Run(ctx)
}

func (s *Scheduler) scheduledRun(ctx context.Context) {
	if s.paused.Load() {
		log.Println("Scheduler is paused, skipping run")
		return
	}
	s.trigger(ctx)
}

func (s *Scheduler) trigger(ctx context.Context) {
	summary, err := s.RunNow(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		log.Println("Previous run still in progress, skipping")
	case err != nil:
		log.Printf("Scheduled run error: %v", err)
	default:
		log.Printf("Run %s complete: %d new, %d notified, %d failures",
			summary.RunID, summary.TotalNew(), len(summary.NotifiedTitles()), summary.Failures)
	}
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processCommands(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) processCommands(ctx context.Context) {
	cmds, err := s.commands.GetPendingCommands()
	if err != nil {
		log.Printf("Error getting commands: %v", err)
		return
	}

	for _, cmd := range cmds {
		log.Printf("Processing command: %s", cmd.Command)
		// Mark first so a long run_now is not picked up again by the next poll.
		if err := s.commands.MarkCommandProcessed(cmd.ID); err != nil {
			log.Printf("Error marking command processed: %v", err)
		}
		if err := s.handleCommand(ctx, &cmd); err != nil {
			log.Printf("Command error: %v", err)
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdPause:
		s.paused.Store(true)
		log.Println("Scheduler paused via command")
	case models.CmdResume:
		s.paused.Store(false)
		log.Println("Scheduler resumed via command")
	case models.CmdRunNow:
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.trigger(ctx)
		}()
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
	return nil
}
