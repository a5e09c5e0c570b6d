// Package npc 实现NPC角色配置与征税、守卫、农夫三个循环
package npc

import (
	"context"
	"time"

	"github.com/wfunc/feudal-economy/internal/config"
	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/host"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/repository"
	"github.com/wfunc/feudal-economy/internal/service"
	"github.com/wfunc/feudal-economy/internal/utils"
	"go.uber.org/zap"
)

// Info NPC概况
type Info struct {
	NPCID           int64          `json:"npc_id"`
	Role            models.NPCRole `json:"role"`
	FamilyID        *uint          `json:"family_id,omitempty"`
	FamilyName      string         `json:"family_name,omitempty"`
	Serf            bool           `json:"serf"`
	Job             models.Job     `json:"job"`
	TaxFamilyID     *uint          `json:"tax_family_id,omitempty"`
	TaxAmount       int            `json:"tax_amount"`
	TaxIntervalMs   int64          `json:"tax_interval_ms"`
	NextCollectAtMs int64          `json:"next_collect_at_ms"`
	FarmIntervalMs  int64          `json:"farm_interval_ms"`
}

// TraitService NPC角色配置
type TraitService struct {
	traits     repository.NPCTraitRepository
	membership service.MembershipService
	world      host.World
	clock      utils.Clock
	collector  config.CollectorConfig
	farm       config.FarmConfig
	log        *zap.Logger
}

// NewTraitService 创建NPC角色配置服务
func NewTraitService(
	traits repository.NPCTraitRepository,
	membership service.MembershipService,
	world host.World,
	clock utils.Clock,
	cfg config.FeudalConfig,
	log *zap.Logger,
) *TraitService {
	return &TraitService{
		traits:     traits,
		membership: membership,
		world:      world,
		clock:      clock,
		collector:  cfg.Collector,
		farm:       cfg.Farm,
		log:        log,
	}
}

// requireNPC NPC必须存在于宿主世界
func (s *TraitService) requireNPC(npcID int64) error {
	if _, ok := s.world.NPC(npcID); !ok {
		return apperrors.Newf(apperrors.ErrEntityNotFound, "NPC不存在: %d", npcID)
	}
	return nil
}

// SetRole 设置NPC角色
func (s *TraitService) SetRole(ctx context.Context, npcID int64, role models.NPCRole) (*models.NPCTrait, error) {
	if _, err := models.ParseNPCRole(string(role)); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidParam)
	}
	if err := s.requireNPC(npcID); err != nil {
		return nil, err
	}

	trait, err := s.traits.Get(ctx, npcID)
	if err != nil {
		return nil, err
	}
	trait.Role = role
	if err := s.traits.Save(ctx, trait); err != nil {
		return nil, err
	}

	s.log.Info("[NPC] 角色已设置", zap.Int64("npc_id", npcID), zap.String("role", string(role)))
	return trait, nil
}

// SetTax 配置征税官：征收家族、每次金额与周期，下次征收时间从现在起算
func (s *TraitService) SetTax(ctx context.Context, npcID int64, familyID uint, amount int, interval time.Duration) (*models.NPCTrait, error) {
	if amount <= 0 {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "金额必须大于0")
	}
	if interval < s.collector.MinInterval {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "周期不能小于%s", s.collector.MinInterval)
	}
	if err := s.requireNPC(npcID); err != nil {
		return nil, err
	}

	trait, err := s.traits.Get(ctx, npcID)
	if err != nil {
		return nil, err
	}
	if trait.Role != models.RoleTaxCollector {
		s.log.Warn("[NPC] 配置征税参数的NPC不是征税官", zap.Int64("npc_id", npcID), zap.String("role", string(trait.Role)))
	}

	fid := familyID
	trait.FamilyID = &fid
	trait.TaxAmount = amount
	trait.TaxIntervalMs = interval.Milliseconds()
	trait.NextCollectAtMs = s.clock.NowMs() + trait.TaxIntervalMs
	if err := s.traits.Save(ctx, trait); err != nil {
		return nil, err
	}

	s.log.Info("[NPC] 征税官已配置",
		zap.Int64("npc_id", npcID),
		zap.Uint("family_id", familyID),
		zap.Int("amount", amount),
		zap.Duration("interval", interval),
	)
	return trait, nil
}

// SetFamily KING把NPC归入自己的家族
func (s *TraitService) SetFamily(ctx context.Context, actor models.Subject, npcID int64, familyID uint) error {
	fid, err := s.membership.RequireKing(ctx, actor)
	if err != nil {
		return err
	}
	if fid != familyID {
		return apperrors.New(apperrors.ErrRankAuthority, "只能归入自己的家族")
	}
	if err := s.requireNPC(npcID); err != nil {
		return err
	}

	if err := s.membership.SetMember(ctx, models.NPCSubject(npcID), &fid, models.RankPeasant); err != nil {
		return err
	}
	s.log.Info("[NPC] 已归入家族", zap.Int64("npc_id", npcID), zap.Uint("family_id", fid))
	return nil
}

// SetSerf KING设置NPC农奴，设为农奴时职业改为FARMER
func (s *TraitService) SetSerf(ctx context.Context, actor models.Subject, npcID int64, on bool) error {
	if err := s.requireNPC(npcID); err != nil {
		return err
	}
	sub := models.NPCSubject(npcID)
	if err := s.membership.AssignSerf(ctx, actor, sub, on); err != nil {
		return err
	}
	if on {
		return s.membership.SetJob(ctx, sub, models.JobFarmer)
	}
	return nil
}

// SetJob KING设置NPC职业
func (s *TraitService) SetJob(ctx context.Context, actor models.Subject, npcID int64, job models.Job) error {
	if err := s.requireNPC(npcID); err != nil {
		return err
	}
	return s.membership.AssignJob(ctx, actor, models.NPCSubject(npcID), job)
}

// Info NPC概况
func (s *TraitService) Info(ctx context.Context, npcID int64) (*Info, error) {
	if err := s.requireNPC(npcID); err != nil {
		return nil, err
	}

	trait, err := s.traits.Get(ctx, npcID)
	if err != nil {
		return nil, err
	}
	member, err := s.membership.Member(ctx, models.NPCSubject(npcID))
	if err != nil {
		return nil, err
	}

	info := &Info{
		NPCID:           npcID,
		Role:            trait.Role,
		Job:             models.JobNone,
		TaxFamilyID:     trait.FamilyID,
		TaxAmount:       trait.TaxAmount,
		TaxIntervalMs:   s.taxInterval(trait),
		NextCollectAtMs: trait.NextCollectAtMs,
		FarmIntervalMs:  s.farmInterval(trait),
	}
	if member != nil {
		info.FamilyID = member.FamilyID
		info.Serf = member.Serf
		info.Job = member.Job
		if member.FamilyID != nil {
			family, err := s.membership.FamilyInfo(ctx, *member.FamilyID)
			if err != nil {
				return nil, err
			}
			info.FamilyName = family.Name
		}
	}
	return info, nil
}

// taxInterval 征收周期，未配置使用默认值
func (s *TraitService) taxInterval(t *models.NPCTrait) int64 {
	return intervalOr(t.TaxIntervalMs, s.collector.DefaultInterval)
}

// farmInterval 耕作周期，未配置使用默认值
func (s *TraitService) farmInterval(t *models.NPCTrait) int64 {
	return intervalOr(t.FarmIntervalMs, s.farm.DefaultInterval)
}

func intervalOr(ms int64, def time.Duration) int64 {
	if ms > 0 {
		return ms
	}
	return def.Milliseconds()
}

// Membership 成员关系服务
func (s *TraitService) Membership() service.MembershipService {
	return s.membership
}
