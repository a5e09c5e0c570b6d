package service

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/repository"
	"github.com/wfunc/feudal-economy/internal/utils"
	"go.uber.org/zap"
)

// inviteService 家族邀请服务实现，邀请只保存在内存中
type inviteService struct {
	mu         sync.Mutex
	pending    map[string]*Invitation
	membership MembershipService
	families   repository.FamilyRepository
	clock      utils.Clock
	ttl        time.Duration
	log        *zap.Logger
}

// NewInviteService 创建邀请服务
func NewInviteService(
	membership MembershipService,
	families repository.FamilyRepository,
	clock utils.Clock,
	ttl time.Duration,
	log *zap.Logger,
) InviteService {
	return &inviteService{
		pending:    make(map[string]*Invitation),
		membership: membership,
		families:   families,
		clock:      clock,
		ttl:        ttl,
		log:        log,
	}
}

// Invite KING邀请未加入家族的身份，同一目标只保留最新一份邀请
func (s *inviteService) Invite(ctx context.Context, king, target models.Subject) (*Invitation, error) {
	fid, err := s.membership.RequireKing(ctx, king)
	if err != nil {
		return nil, err
	}

	if _, ok, err := s.membership.FamilyOf(ctx, target); err != nil {
		return nil, err
	} else if ok {
		return nil, apperrors.New(apperrors.ErrAlreadyInFamily, "对方已有家族")
	}

	family, err := s.families.FindByID(ctx, fid)
	if err != nil {
		return nil, err
	}

	inv := &Invitation{
		FamilyID:    fid,
		FamilyName:  family.Name,
		InvitedBy:   king,
		Target:      target,
		ExpiresAtMs: s.clock.NowMs() + s.ttl.Milliseconds(),
	}

	s.mu.Lock()
	s.pending[target.Key()] = inv
	s.mu.Unlock()

	s.log.Info("发出家族邀请",
		zap.String("king", king.Key()),
		zap.String("target", target.Key()),
		zap.Uint("family_id", fid),
	)
	return inv, nil
}

// Accept 接受邀请，以PEASANT/NONE/非农奴身份加入
func (s *inviteService) Accept(ctx context.Context, target models.Subject) (*Invitation, error) {
	inv, ok := s.take(target)
	if !ok {
		return nil, apperrors.New(apperrors.ErrInviteNotFound)
	}

	fid := inv.FamilyID
	if err := s.membership.SetMember(ctx, target, &fid, models.RankPeasant); err != nil {
		return nil, err
	}
	if err := s.membership.SetSerf(ctx, target, false); err != nil {
		return nil, err
	}
	if err := s.membership.SetJob(ctx, target, models.JobNone); err != nil {
		return nil, err
	}

	s.log.Info("接受家族邀请", zap.String("target", target.Key()), zap.Uint("family_id", fid))
	return inv, nil
}

// Pending 查看未过期的邀请
func (s *inviteService) Pending(target models.Subject) (*Invitation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.pending[target.Key()]
	if !ok {
		return nil, false
	}
	if s.clock.NowMs() > inv.ExpiresAtMs {
		delete(s.pending, target.Key())
		return nil, false
	}
	return inv, true
}

// take 取出并删除邀请，过期视为不存在
func (s *inviteService) take(target models.Subject) (*Invitation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.pending[target.Key()]
	if !ok {
		return nil, false
	}
	delete(s.pending, target.Key())
	if s.clock.NowMs() > inv.ExpiresAtMs {
		return nil, false
	}
	return inv, true
}

// CleanupExpired 清理过期邀请
func (s *inviteService) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.NowMs()
	removed := 0
	for key, inv := range s.pending {
		if now > inv.ExpiresAtMs {
			delete(s.pending, key)
			removed++
		}
	}
	return removed
}

// StartCleanupTask 启动过期邀请清理任务
func (s *inviteService) StartCleanupTask(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Info("停止邀请清理任务")
				return
			case <-ticker.C:
				if n := s.CleanupExpired(); n > 0 {
					s.log.Debug("清理过期邀请", zap.Int("count", n))
				}
			}
		}
	}()
}
