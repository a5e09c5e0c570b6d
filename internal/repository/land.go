package repository

import (
	"context"

	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/models"
	"gorm.io/gorm"
)

// LandRepository 领地仓储接口
type LandRepository interface {
	BaseRepository
	FindByFamily(ctx context.Context, familyID uint) (*models.FamilyLand, error)
	Upsert(ctx context.Context, land *models.FamilyLand) error
	UpdateRadius(ctx context.Context, familyID uint, radius int) error
	UpdateEnabled(ctx context.Context, familyID uint, enabled bool) error
	ListEnabled(ctx context.Context) ([]*models.FamilyLand, error)
}

// landRepo 领地仓储实现
type landRepo struct {
	*BaseRepo
}

// NewLandRepository 创建领地仓储
func NewLandRepository(db *gorm.DB) LandRepository {
	return &landRepo{BaseRepo: &BaseRepo{db: db}}
}

// FindByFamily 查找家族领地
func (r *landRepo) FindByFamily(ctx context.Context, familyID uint) (*models.FamilyLand, error) {
	var land models.FamilyLand
	if err := r.db.WithContext(ctx).Where("family_id = ?", familyID).First(&land).Error; err != nil {
		return nil, wrapQuery(err, "领地")
	}
	return &land, nil
}

// Upsert 创建或整体覆盖家族领地
func (r *landRepo) Upsert(ctx context.Context, land *models.FamilyLand) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.FamilyLand
		err := tx.Where("family_id = ?", land.FamilyID).First(&existing).Error
		switch {
		case err == nil:
			land.ID = existing.ID
			land.CreatedAt = existing.CreatedAt
			if err := tx.Save(land).Error; err != nil {
				return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "更新领地失败")
			}
			return nil
		case IsNotFound(err):
			if err := tx.Create(land).Error; err != nil {
				return apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "创建领地失败")
			}
			return nil
		default:
			return apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
		}
	})
}

// UpdateRadius 更新领地半径
func (r *landRepo) UpdateRadius(ctx context.Context, familyID uint, radius int) error {
	return r.updateField(ctx, familyID, "radius", radius)
}

// UpdateEnabled 开关领地保护
func (r *landRepo) UpdateEnabled(ctx context.Context, familyID uint, enabled bool) error {
	return r.updateField(ctx, familyID, "enabled", enabled)
}

// updateField 先确认领地存在再更新，值未变化时MySQL的影响行数为0
func (r *landRepo) updateField(ctx context.Context, familyID uint, column string, value interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.FamilyLand{}).Where("family_id = ?", familyID).Count(&count).Error; err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
		}
		if count == 0 {
			return apperrors.New(apperrors.ErrLandNotConfigured)
		}
		err := tx.Model(&models.FamilyLand{}).
			Where("family_id = ?", familyID).
			Update(column, value).Error
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
		}
		return nil
	})
}

// ListEnabled 列出全部已启用领地
func (r *landRepo) ListEnabled(ctx context.Context) ([]*models.FamilyLand, error) {
	var lands []*models.FamilyLand
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("family_id ASC").Find(&lands).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询领地失败")
	}
	return lands, nil
}
