package service

import (
	"context"
	"strings"

	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/repository"
	"go.uber.org/zap"
)

// DefaultClaimRadius 圈地未指定半径时的默认值
const DefaultClaimRadius = 30

// territoryService 领地服务实现
type territoryService struct {
	lands      repository.LandRepository
	membership MembershipService
	log        *zap.Logger
}

// NewTerritoryService 创建领地服务
func NewTerritoryService(lands repository.LandRepository, membership MembershipService, log *zap.Logger) TerritoryService {
	return &territoryService{lands: lands, membership: membership, log: log}
}

// LandOf 家族领地，没有时ok为false
func (s *territoryService) LandOf(ctx context.Context, familyID uint) (*models.FamilyLand, bool, error) {
	land, err := s.lands.FindByFamily(ctx, familyID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return land, true, nil
}

// Upsert 创建或覆盖领地
func (s *territoryService) Upsert(ctx context.Context, land *models.FamilyLand) error {
	if land.Radius < 0 {
		return apperrors.New(apperrors.ErrInvalidParam, "半径不能为负数")
	}
	if strings.TrimSpace(land.World) == "" {
		return apperrors.New(apperrors.ErrInvalidParam, "世界名不能为空")
	}
	return s.lands.Upsert(ctx, land)
}

// SetRadius 修改半径
func (s *territoryService) SetRadius(ctx context.Context, familyID uint, radius int) error {
	if radius < 0 {
		return apperrors.New(apperrors.ErrInvalidParam, "半径不能为负数")
	}
	return s.lands.UpdateRadius(ctx, familyID, radius)
}

// SetEnabled 开关领地保护
func (s *territoryService) SetEnabled(ctx context.Context, familyID uint, enabled bool) error {
	return s.lands.UpdateEnabled(ctx, familyID, enabled)
}

// ListEnabled 全部已启用领地
func (s *territoryService) ListEnabled(ctx context.Context) ([]*models.FamilyLand, error) {
	return s.lands.ListEnabled(ctx)
}

// Contains 坐标是否在领地内
func (s *territoryService) Contains(land *models.FamilyLand, world string, x, z float64) bool {
	return land.Contains(world, x, z)
}

// ClaimLand KING以指定坐标为中心圈地并启用
func (s *territoryService) ClaimLand(ctx context.Context, actor models.Subject, world string, x, y, z int, radius int) (*models.FamilyLand, error) {
	fid, err := s.membership.RequireKing(ctx, actor)
	if err != nil {
		return nil, err
	}

	land := &models.FamilyLand{
		FamilyID: fid,
		World:    world,
		X:        x,
		Y:        y,
		Z:        z,
		Radius:   radius,
		Enabled:  true,
	}
	if err := s.Upsert(ctx, land); err != nil {
		return nil, err
	}

	s.log.Info("领地已设置",
		zap.Uint("family_id", fid),
		zap.String("world", world),
		zap.Int("x", x), zap.Int("y", y), zap.Int("z", z),
		zap.Int("radius", radius),
	)
	return land, nil
}

// ResizeLand KING修改领地半径
func (s *territoryService) ResizeLand(ctx context.Context, actor models.Subject, radius int) error {
	fid, err := s.membership.RequireKing(ctx, actor)
	if err != nil {
		return err
	}
	return s.SetRadius(ctx, fid, radius)
}

// ToggleLand KING开关领地保护
func (s *territoryService) ToggleLand(ctx context.Context, actor models.Subject, enabled bool) error {
	fid, err := s.membership.RequireKing(ctx, actor)
	if err != nil {
		return err
	}
	return s.SetEnabled(ctx, fid, enabled)
}

// CanBuild 建造保护：已启用领地内只允许本家族成员
func (s *territoryService) CanBuild(ctx context.Context, sub models.Subject, privileged bool, world string, x, z float64) (bool, error) {
	if privileged {
		return true, nil
	}

	fid, ok, err := s.membership.FamilyOf(ctx, sub)
	if err != nil {
		return false, err
	}
	// 无家族者不受领地限制
	if !ok {
		return true, nil
	}

	lands, err := s.lands.ListEnabled(ctx)
	if err != nil {
		return false, err
	}
	for _, land := range lands {
		if land.Contains(world, x, z) {
			return land.FamilyID == fid, nil
		}
	}
	return true, nil
}
