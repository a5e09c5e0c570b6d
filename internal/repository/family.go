package repository

import (
	"context"

	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/models"
	"gorm.io/gorm"
)

// FamilyRepository 家族仓储接口
type FamilyRepository interface {
	BaseRepository
	Create(ctx context.Context, family *models.Family) error
	FindByID(ctx context.Context, id uint) (*models.Family, error)
	FindByName(ctx context.Context, name string) (*models.Family, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	WithTx(tx *gorm.DB) FamilyRepository
}

// familyRepo 家族仓储实现
type familyRepo struct {
	*BaseRepo
}

// NewFamilyRepository 创建家族仓储
func NewFamilyRepository(db *gorm.DB) FamilyRepository {
	return &familyRepo{BaseRepo: &BaseRepo{db: db}}
}

// WithTx 使用事务
func (r *familyRepo) WithTx(tx *gorm.DB) FamilyRepository {
	return &familyRepo{BaseRepo: &BaseRepo{db: tx}}
}

// Create 创建家族
func (r *familyRepo) Create(ctx context.Context, family *models.Family) error {
	if err := r.db.WithContext(ctx).Create(family).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "创建家族失败")
	}
	return nil
}

// FindByID 根据ID查找家族
func (r *familyRepo) FindByID(ctx context.Context, id uint) (*models.Family, error) {
	var family models.Family
	if err := r.db.WithContext(ctx).First(&family, id).Error; err != nil {
		return nil, wrapQuery(err, "家族")
	}
	return &family, nil
}

// FindByName 根据名称查找家族
func (r *familyRepo) FindByName(ctx context.Context, name string) (*models.Family, error) {
	var family models.Family
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&family).Error; err != nil {
		return nil, wrapQuery(err, "家族")
	}
	return &family, nil
}

// ExistsByName 名称是否已被使用
func (r *familyRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Family{}).Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return count > 0, nil
}
