package services

import (
	"context"
	"time"

	"ze-club/models"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Scheduler runs the periodic housekeeping jobs.
type Scheduler struct {
	DB       *gorm.DB
	Log      *zap.Logger
	Interval time.Duration

	sched gocron.Scheduler
	now   func() time.Time
}

func NewScheduler(db *gorm.DB, log *zap.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{DB: db, Log: log, Interval: interval, now: time.Now}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.Interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.Interval)
			defer cancel()
			s.RunOnce(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	sched.Start()
	s.sched = sched
	return nil
}

func (s *Scheduler) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}

// RunOnce performs one pass of every job. Failures are logged, never fatal.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.now()
	db := s.DB.WithContext(ctx)

	if n, err := expireMissions(db, now); err != nil {
		s.Log.Error("[Scheduler] expire missions failed", zap.Error(err))
	} else if n > 0 {
		s.Log.Info("[Scheduler] missions expired", zap.Int64("count", n))
	}

	if n, err := publishDue(db, &models.Event{}, now); err != nil {
		s.Log.Error("[Scheduler] publish events failed", zap.Error(err))
	} else if n > 0 {
		s.Log.Info("[Scheduler] events published", zap.Int64("count", n))
	}

	if n, err := publishDue(db, &models.Announcement{}, now); err != nil {
		s.Log.Error("[Scheduler] publish announcements failed", zap.Error(err))
	} else if n > 0 {
		s.Log.Info("[Scheduler] announcements published", zap.Int64("count", n))
	}
}

// expireMissions deactivates time-limited missions whose window has closed.
func expireMissions(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Model(&models.Mission{}).
		Where("active = ? AND is_time_limited = ? AND end_date IS NOT NULL AND end_date < ?", true, true, now).
		Update("active", false)
	return res.RowsAffected, res.Error
}

func publishDue(db *gorm.DB, model interface{}, now time.Time) (int64, error) {
	res := db.Model(model).
		Where("status = ? AND publish_at <= ?", models.PublishScheduled, now).
		Updates(map[string]interface{}{"status": models.PublishPublished, "publish_at": nil})
	return res.RowsAffected, res.Error
}
