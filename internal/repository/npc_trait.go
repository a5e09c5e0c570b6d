package repository

import (
	"context"

	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/models"
	"gorm.io/gorm"
)

// NPCTraitRepository NPC特征仓储接口
type NPCTraitRepository interface {
	BaseRepository
	Get(ctx context.Context, npcID int64) (*models.NPCTrait, error)
	Save(ctx context.Context, trait *models.NPCTrait) error
	UpdateFields(ctx context.Context, npcID int64, fields map[string]interface{}) error
	ListByRole(ctx context.Context, role models.NPCRole) ([]*models.NPCTrait, error)
}

// npcTraitRepo NPC特征仓储实现
type npcTraitRepo struct {
	*BaseRepo
}

// NewNPCTraitRepository 创建NPC特征仓储
func NewNPCTraitRepository(db *gorm.DB) NPCTraitRepository {
	return &npcTraitRepo{BaseRepo: &BaseRepo{db: db}}
}

// Get 获取NPC特征，不存在时以NONE角色创建
func (r *npcTraitRepo) Get(ctx context.Context, npcID int64) (*models.NPCTrait, error) {
	var trait models.NPCTrait
	err := r.db.WithContext(ctx).
		Where("npc_id = ?", npcID).
		Attrs(models.NPCTrait{NPCID: npcID, Role: models.RoleNone}).
		FirstOrCreate(&trait).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "获取NPC特征失败")
	}
	return &trait, nil
}

// Save 保存NPC特征
func (r *npcTraitRepo) Save(ctx context.Context, trait *models.NPCTrait) error {
	if err := r.db.WithContext(ctx).Save(trait).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "保存NPC特征失败")
	}
	return nil
}

// UpdateFields 更新指定字段
func (r *npcTraitRepo) UpdateFields(ctx context.Context, npcID int64, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.NPCTrait{}).
		Where("npc_id = ?", npcID).
		Updates(fields)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound, "NPC特征不存在")
	}
	return nil
}

// ListByRole 列出指定角色的NPC
func (r *npcTraitRepo) ListByRole(ctx context.Context, role models.NPCRole) ([]*models.NPCTrait, error) {
	var traits []*models.NPCTrait
	if err := r.db.WithContext(ctx).Where("role = ?", role).Order("npc_id ASC").Find(&traits).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询NPC特征失败")
	}
	return traits, nil
}
