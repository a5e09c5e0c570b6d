package npc

import (
	"context"
	"math"
	"sync"

	"github.com/wfunc/feudal-economy/internal/config"
	"github.com/wfunc/feudal-economy/internal/host"
	"github.com/wfunc/feudal-economy/internal/logger"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/repository"
	"github.com/wfunc/feudal-economy/internal/service"
	"github.com/wfunc/feudal-economy/internal/utils"
	"go.uber.org/zap"
)

// 守卫对入侵者的警告
const guardWarning = "[警告] 这里是家族领地，请立即离开！(3秒后攻击)"

// weaponBase 近战武器基础伤害
var weaponBase = map[string]float64{
	"WOODEN_SWORD":    4,
	"GOLDEN_SWORD":    4,
	"STONE_SWORD":     5,
	"IRON_SWORD":      6,
	"DIAMOND_SWORD":   7,
	"NETHERITE_SWORD": 8,
	"WOODEN_AXE":      7,
	"GOLDEN_AXE":      7,
	"STONE_AXE":       9,
	"IRON_AXE":        9,
	"DIAMOND_AXE":     9,
	"NETHERITE_AXE":   10,
	"TRIDENT":         8,
}

// WeaponBase 武器基础伤害，空手为1，未列出的物品为2
func WeaponBase(item string) float64 {
	if item == "" || item == host.ItemAir {
		return 1
	}
	if v, ok := weaponBase[item]; ok {
		return v
	}
	return 2
}

// IsRangedWeapon 是否为弓或弩
func IsRangedWeapon(item string) bool {
	return item == host.ItemBow || item == host.ItemCrossbow
}

// MeleeDamage 近战伤害
func MeleeDamage(item string, attr float64, hasAttr bool, factor float64) float64 {
	bonus := 0.0
	if hasAttr {
		bonus = math.Max(0, attr-1)
	}
	return math.Max(1, WeaponBase(item)+bonus*factor)
}

// GuardLoop 守卫循环：驱逐并攻击领地内的外来玩家
type GuardLoop struct {
	traits     repository.NPCTraitRepository
	membership service.MembershipService
	territory  service.TerritoryService
	world      host.World
	notifier   host.Notifier
	clock      utils.Clock
	cfg        config.GuardConfig
	log        *zap.Logger

	mu           sync.Mutex
	lastAttackAt map[int64]int64  // 守卫 -> 上次近战
	lastRangedAt map[int64]int64  // 守卫 -> 上次射击
	lastWarnAt   map[string]int64 // 入侵者 -> 上次警告
	warnedUntil  map[string]int64 // 入侵者 -> 宽限期结束
}

// NewGuardLoop 创建守卫循环
func NewGuardLoop(
	traits repository.NPCTraitRepository,
	membership service.MembershipService,
	territory service.TerritoryService,
	world host.World,
	notifier host.Notifier,
	clock utils.Clock,
	cfg config.GuardConfig,
	log *zap.Logger,
) *GuardLoop {
	return &GuardLoop{
		traits:       traits,
		membership:   membership,
		territory:    territory,
		world:        world,
		notifier:     notifier,
		clock:        clock,
		cfg:          cfg,
		log:          log,
		lastAttackAt: make(map[int64]int64),
		lastRangedAt: make(map[int64]int64),
		lastWarnAt:   make(map[string]int64),
		warnedUntil:  make(map[string]int64),
	}
}

// Name 循环名称
func (l *GuardLoop) Name() string { return "guard" }

// Pass 执行一轮巡逻
func (l *GuardLoop) Pass(ctx context.Context) error {
	now := l.clock.NowMs()

	guards, err := l.traits.ListByRole(ctx, models.RoleGuard)
	if err != nil {
		return err
	}

	for _, trait := range guards {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		entity, ok := l.world.NPC(trait.NPCID)
		if !ok || !entity.Alive() {
			continue
		}
		if err := guarded(func() error { return l.patrol(ctx, trait.NPCID, entity, now) }); err != nil {
			l.log.Warn("[Guard] 巡逻失败", zap.Int64("npc_id", trait.NPCID), zap.Error(err))
		}
	}
	return nil
}

// patrol 单个守卫的一次巡逻
func (l *GuardLoop) patrol(ctx context.Context, npcID int64, guard host.Entity, now int64) error {
	fid, ok, err := l.membership.FamilyOf(ctx, models.NPCSubject(npcID))
	if err != nil || !ok {
		return err
	}

	land, ok, err := l.territory.LandOf(ctx, fid)
	if err != nil || !ok || !land.Enabled {
		return err
	}

	at := guard.Location()
	if !land.Contains(at.World, at.X, at.Z) {
		return nil
	}

	target := l.nearestIntruder(ctx, at, land, fid)
	if target == nil {
		return nil
	}

	guard.SetNavigationTarget(target)

	key := target.Subject().Key()
	if !l.passWarning(key, now) {
		return nil
	}

	distSq := at.DistanceSquared(target.Location())
	weapon := guard.MainHand()

	if IsRangedWeapon(weapon) {
		if distSq <= l.cfg.RangedMax*l.cfg.RangedMax && l.cooldownReady(l.lastRangedAt, npcID, now, l.cfg.RangedCooldown.Milliseconds()) {
			l.shoot(guard, target)
			logger.LogGuardEvent("shoot", npcID, key)
		}
		return nil
	}

	if distSq <= l.cfg.MeleeRange*l.cfg.MeleeRange && l.cooldownReady(l.lastAttackAt, npcID, now, l.cfg.MeleeCooldown.Milliseconds()) {
		attr, hasAttr := guard.AttackAttribute()
		dmg := MeleeDamage(weapon, attr, hasAttr, l.cfg.AttackAttrFactor)
		l.world.Damage(target, dmg, guard)
		logger.LogGuardEvent("melee", npcID, key, zap.Float64("damage", dmg))
	}
	return nil
}

// passWarning 处理警告与宽限期，返回true表示可以攻击
func (l *GuardLoop) passWarning(key string, now int64) bool {
	l.mu.Lock()
	if now < l.warnedUntil[key] {
		l.mu.Unlock()
		return false
	}
	if now-l.lastWarnAt[key] >= l.cfg.WarnCooldown.Milliseconds() {
		l.lastWarnAt[key] = now
		l.warnedUntil[key] = now + l.cfg.Grace.Milliseconds()
		l.mu.Unlock()

		l.notifier.Notify(key, guardWarning)
		return false
	}
	l.mu.Unlock()
	return true
}

// cooldownReady 冷却结束时记录本次攻击时间
func (l *GuardLoop) cooldownReady(stamps map[int64]int64, npcID int64, now int64, cooldown int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now-stamps[npcID] < cooldown {
		return false
	}
	stamps[npcID] = now
	return true
}

// shoot 从守卫眼睛位置向目标胸口发射
func (l *GuardLoop) shoot(guard, target host.Entity) {
	from := guard.EyeLocation()
	to := target.Location().Add(0, 1.1, 0)

	dir := host.Vector{X: to.X - from.X, Y: to.Y - from.Y, Z: to.Z - from.Z}
	length := dir.Length()
	if length*length < 0.0001 {
		return
	}

	scale := l.cfg.ArrowSpeed / length
	l.world.LaunchProjectile(guard, host.Vector{X: dir.X * scale, Y: dir.Y * scale, Z: dir.Z * scale})
}

// nearestIntruder 领地内最近的非本家族玩家
func (l *GuardLoop) nearestIntruder(ctx context.Context, at host.Location, land *models.FamilyLand, fid uint) host.Entity {
	var best host.Entity
	bestDist := math.MaxFloat64
	aggro := l.cfg.AggroRadius * l.cfg.AggroRadius

	for _, p := range l.world.Players(at.World) {
		if !p.Online() || !p.Alive() || p.Privileged() {
			continue
		}
		loc := p.Location()
		if !land.Contains(loc.World, loc.X, loc.Z) {
			continue
		}

		pf, ok, err := l.membership.FamilyOf(ctx, p.Subject())
		if err != nil || (ok && pf == fid) {
			continue
		}

		d := at.DistanceSquared(loc)
		if d <= aggro && d < bestDist {
			bestDist = d
			best = p
		}
	}
	return best
}
