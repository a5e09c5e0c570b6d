package npc

import (
	"context"
	"fmt"

	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/host"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/service"
	"github.com/wfunc/feudal-economy/internal/utils"
	"go.uber.org/zap"
)

// SerfTaxLoop 农奴定期计税循环，玩家与NPC农奴都会推进
type SerfTaxLoop struct {
	membership service.MembershipService
	tax        service.TaxService
	notifier   host.Notifier
	clock      utils.Clock
	log        *zap.Logger
}

// NewSerfTaxLoop 创建农奴计税循环
func NewSerfTaxLoop(
	membership service.MembershipService,
	tax service.TaxService,
	notifier host.Notifier,
	clock utils.Clock,
	log *zap.Logger,
) *SerfTaxLoop {
	return &SerfTaxLoop{
		membership: membership,
		tax:        tax,
		notifier:   notifier,
		clock:      clock,
		log:        log,
	}
}

// Name 循环名称
func (l *SerfTaxLoop) Name() string { return "serf_tax" }

// Pass 对每个农奴推进一次缴税周期，单个农奴失败不影响其他农奴
func (l *SerfTaxLoop) Pass(ctx context.Context) error {
	now := l.clock.NowMs()

	serfs, err := l.membership.Serfs(ctx)
	if err != nil {
		return err
	}

	for _, sub := range serfs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := guarded(func() error { return l.tick(ctx, sub, now) }); err != nil {
			l.log.Warn("[SerfTax] 计税失败",
				zap.String("subject", sub.Key()),
				zap.String("category", string(apperrors.CategoryOf(err))),
				zap.Error(err),
			)
		}
	}
	return nil
}

// tick 一个农奴的一次计税与欠税提醒
func (l *SerfTaxLoop) tick(ctx context.Context, sub models.Subject, now int64) error {
	charged, err := l.tax.Tick(ctx, sub, now)
	if err != nil {
		return err
	}

	key := sub.Key()
	due, err := l.tax.Due(ctx, key)
	if err != nil {
		return err
	}
	if due <= 0 {
		return nil
	}

	warn, err := l.tax.CanWarn(ctx, sub, now)
	if err != nil || !warn {
		return err
	}

	if charged > 0 {
		l.notifier.Notify(key, fmt.Sprintf("[税收] 本期农奴税: %d / 累计欠税: %d", charged, due))
		return nil
	}
	l.notifier.Notify(key, fmt.Sprintf("[税收] 仍有欠税: %d，请尽快缴纳", due))
	return nil
}
