package npc

import (
	"context"
	"fmt"

	"github.com/wfunc/feudal-economy/internal/config"
	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/host"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/repository"
	"github.com/wfunc/feudal-economy/internal/service"
	"github.com/wfunc/feudal-economy/internal/utils"
	"go.uber.org/zap"
)

// CollectorLoop 征税官循环：按周期给家族成员计税并从在线成员背包自动征收
type CollectorLoop struct {
	traits     repository.NPCTraitRepository
	membership service.MembershipService
	tax        service.TaxService
	world      host.World
	notifier   host.Notifier
	clock      utils.Clock
	cfg        config.CollectorConfig
	log        *zap.Logger
}

// NewCollectorLoop 创建征税官循环
func NewCollectorLoop(
	traits repository.NPCTraitRepository,
	membership service.MembershipService,
	tax service.TaxService,
	world host.World,
	notifier host.Notifier,
	clock utils.Clock,
	cfg config.CollectorConfig,
	log *zap.Logger,
) *CollectorLoop {
	return &CollectorLoop{
		traits:     traits,
		membership: membership,
		tax:        tax,
		world:      world,
		notifier:   notifier,
		clock:      clock,
		cfg:        cfg,
		log:        log,
	}
}

// Name 循环名称
func (l *CollectorLoop) Name() string { return "collector" }

// Pass 执行一轮征收，单个征税官失败不影响其他征税官
func (l *CollectorLoop) Pass(ctx context.Context) error {
	now := l.clock.NowMs()

	collectors, err := l.traits.ListByRole(ctx, models.RoleTaxCollector)
	if err != nil {
		return err
	}

	for _, trait := range collectors {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !trait.HasFamily() || trait.TaxAmount <= 0 {
			continue
		}
		if _, ok := l.world.NPC(trait.NPCID); !ok {
			continue
		}

		interval := intervalOr(trait.TaxIntervalMs, l.cfg.DefaultInterval)

		// 首次观察到时只设置下次征收时间
		if trait.NextCollectAtMs <= 0 {
			l.schedule(ctx, trait.NPCID, now+interval)
			continue
		}
		if now < trait.NextCollectAtMs {
			continue
		}

		if err := guarded(func() error { return l.collect(ctx, trait, now) }); err != nil {
			l.log.Warn("[Collector] 征收失败",
				zap.Int64("npc_id", trait.NPCID),
				zap.String("category", string(apperrors.CategoryOf(err))),
				zap.Bool("retryable", apperrors.IsRetryable(err)),
				zap.Error(err),
			)
			l.schedule(ctx, trait.NPCID, now+l.cfg.FailureBackoff.Milliseconds())
			continue
		}
		l.schedule(ctx, trait.NPCID, now+interval)
	}
	return nil
}

// schedule 写入下次征收时间
func (l *CollectorLoop) schedule(ctx context.Context, npcID int64, at int64) {
	if err := l.traits.UpdateFields(ctx, npcID, map[string]interface{}{"next_collect_at_ms": at}); err != nil {
		l.log.Error("[Collector] 更新征收时间失败", zap.Int64("npc_id", npcID), zap.Error(err))
	}
}

// collect 一个征税官的一次征收
func (l *CollectorLoop) collect(ctx context.Context, trait *models.NPCTrait, now int64) error {
	fid := *trait.FamilyID
	amount := trait.TaxAmount

	members, err := l.membership.MembersOf(ctx, fid)
	if err != nil {
		return err
	}

	for _, sub := range members {
		key := sub.Key()
		if err := l.tax.AddDue(ctx, key, amount); err != nil {
			return err
		}

		entity, ok := l.world.Lookup(sub)
		if !ok || !entity.Online() {
			continue
		}

		due, err := l.tax.Due(ctx, key)
		if err != nil {
			return err
		}
		if due <= 0 {
			continue
		}

		inv := entity.Inventory()
		pay := min(inv.Count(l.cfg.CurrencyItem), due)
		if pay > 0 {
			pay = inv.Remove(l.cfg.CurrencyItem, pay)
		}
		if pay > 0 {
			if err := l.tax.Settle(ctx, fid, trait.NPCID, sub, pay, now); err != nil {
				// 入账失败时退回已扣除的货币
				host.GiveOrDrop(l.world, entity, host.ItemStack{Type: l.cfg.CurrencyItem, Amount: pay})
				return err
			}
			left, err := l.tax.Due(ctx, key)
			if err != nil {
				return err
			}
			l.notifier.Notify(key, fmt.Sprintf("[税收] 自动征收完成: %d (%s) / 未缴: %d", pay, l.cfg.CurrencyItem, left))
		}

		left, err := l.tax.Due(ctx, key)
		if err != nil {
			return err
		}
		if left > 0 {
			l.notifier.Notify(key, fmt.Sprintf("[税收] 仍有欠税: %d (%s不足)", left, l.cfg.CurrencyItem))
		}
	}

	l.log.Debug("[Collector] 征收完成",
		zap.Int64("npc_id", trait.NPCID),
		zap.Uint("family_id", fid),
		zap.Int("members", len(members)),
	)
	return nil
}
