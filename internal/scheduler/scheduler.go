// Package scheduler 周期任务调度；多实例部署时通过 Redis 锁保证同一时刻只有一个实例执行
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
)

// DefaultTimeout 单次执行默认超时
const DefaultTimeout = 5 * time.Minute

// Locker 跨实例互斥
type Locker interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// Task 周期任务
type Task struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Handler  func(ctx context.Context) error
}

// Option 调度器选项
type Option func(*Scheduler)

// WithLocker 启用跨实例互斥，未拿到锁的实例跳过本轮
func WithLocker(l Locker) Option {
	return func(s *Scheduler) {
		s.locker = l
	}
}

// Scheduler 定时任务调度器
type Scheduler struct {
	tasks  []*Task
	locker Locker
	token  string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler 创建调度器
func NewScheduler(opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		token:  uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTask 添加任务，timeout 为 0 时使用默认超时
func (s *Scheduler) AddTask(name string, interval, timeout time.Duration, handler func(ctx context.Context) error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s.tasks = append(s.tasks, &Task{Name: name, Interval: interval, Timeout: timeout, Handler: handler})
}

// Start 每个任务一个 goroutine，启动时立即执行一次
func (s *Scheduler) Start() {
	logger.Info("scheduler starting", logger.Int("tasks", len(s.tasks)), logger.Bool("locking", s.locker != nil))
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(task)
	}
}

// Stop 停止调度器，等待执行中的任务退出
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(task *Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.run(task)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.run(task)
		}
	}
}

func (s *Scheduler) run(task *Task) {
	ctx, cancel := context.WithTimeout(s.ctx, task.Timeout)
	defer cancel()
	log := logger.Ctx(ctx).With(logger.Module("scheduler"), logger.String("task", task.Name))

	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx, task.Name, s.token, task.Timeout)
		if err != nil {
			log.Warn("task lock failed", logger.Err(err))
			return
		}
		if !ok {
			log.Debug("task skipped, held by another instance")
			return
		}
		defer func() {
			if err := s.locker.Unlock(context.Background(), task.Name, s.token); err != nil {
				log.Warn("task unlock failed", logger.Err(err))
			}
		}()
	}

	start := time.Now()
	if err := task.Handler(ctx); err != nil {
		log.Error("task failed", logger.Err(err), logger.Latency(time.Since(start)))
		return
	}
	log.Debug("task completed", logger.Latency(time.Since(start)))
}
