package npc

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/wfunc/feudal-economy/internal/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Loop 周期执行的循环
type Loop interface {
	Name() string
	Pass(ctx context.Context) error
}

type scheduled struct {
	loop     Loop
	interval time.Duration
}

// Scheduler 为每个循环启动独立的定时器，同一循环的两轮不会重叠
type Scheduler struct {
	tracer trace.Tracer
	log    *zap.Logger
	loops  []scheduled
	wg     sync.WaitGroup
}

// NewScheduler 创建调度器
func NewScheduler(tracer trace.Tracer, log *zap.Logger) *Scheduler {
	return &Scheduler{tracer: tracer, log: log}
}

// Register 注册循环，需在Start之前调用
func (s *Scheduler) Register(loop Loop, interval time.Duration) {
	s.loops = append(s.loops, scheduled{loop: loop, interval: interval})
}

// Start 启动全部循环，ctx取消后停止
func (s *Scheduler) Start(ctx context.Context) {
	for _, sc := range s.loops {
		s.wg.Add(1)
		go s.run(ctx, sc)
	}
	s.log.Info("[Scheduler] 调度器已启动", zap.Int("loops", len(s.loops)))
}

// Wait 等待全部循环退出
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// run 单个循环的主循环
func (s *Scheduler) run(ctx context.Context, sc scheduled) {
	defer s.wg.Done()

	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("[Scheduler] 循环已停止", zap.String("loop", sc.loop.Name()))
			return
		case <-ticker.C:
			s.RunOnce(ctx, sc.loop)
		}
	}
}

// RunOnce 执行一轮，记录span并恢复panic
func (s *Scheduler) RunOnce(ctx context.Context, loop Loop) {
	ctx, span := s.tracer.Start(ctx, "npc."+loop.Name()+".pass",
		trace.WithAttributes(attribute.String("npc.loop", loop.Name())))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.LogPanic("scheduler."+loop.Name(), r, debug.Stack())
		}
	}()

	start := time.Now()
	if err := loop.Pass(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() == nil {
			s.log.Warn("[Scheduler] 循环执行失败", zap.String("loop", loop.Name()), zap.Error(err))
		}
		return
	}

	if elapsed := time.Since(start); elapsed > time.Second {
		s.log.Warn("[Scheduler] 循环耗时过长", zap.String("loop", loop.Name()), zap.Duration("elapsed", elapsed))
	}
}
