package repository

import (
	"context"

	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/models"
	"gorm.io/gorm"
)

// DueRepository 欠税仓储接口
type DueRepository interface {
	BaseRepository
	Get(ctx context.Context, key string) (int, error)
	Add(ctx context.Context, key string, amount int) error
	Pay(ctx context.Context, key string, amount int) error
	WithTx(tx *gorm.DB) DueRepository
}

// dueRepo 欠税仓储实现
type dueRepo struct {
	*BaseRepo
}

// NewDueRepository 创建欠税仓储
func NewDueRepository(db *gorm.DB) DueRepository {
	return &dueRepo{BaseRepo: &BaseRepo{db: db}}
}

// WithTx 使用事务
func (r *dueRepo) WithTx(tx *gorm.DB) DueRepository {
	return &dueRepo{BaseRepo: &BaseRepo{db: tx}}
}

// Get 查询欠税，无记录为0
func (r *dueRepo) Get(ctx context.Context, key string) (int, error) {
	var due models.TaxDue
	err := r.db.WithContext(ctx).Where("subject_key = ?", key).First(&due).Error
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return due.Amount, nil
}

// Add 增加欠税
func (r *dueRepo) Add(ctx context.Context, key string, amount int) error {
	var due models.TaxDue
	if err := r.db.WithContext(ctx).Where(models.TaxDue{Key: key}).FirstOrCreate(&due).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "获取欠税失败")
	}
	err := r.db.WithContext(ctx).
		Model(&models.TaxDue{}).
		Where("subject_key = ?", key).
		Update("amount", gorm.Expr("amount + ?", amount)).Error
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "增加欠税失败")
	}
	return nil
}

// Pay 减少欠税，最低为0
func (r *dueRepo) Pay(ctx context.Context, key string, amount int) error {
	err := r.db.WithContext(ctx).
		Model(&models.TaxDue{}).
		Where("subject_key = ?", key).
		Update("amount", gorm.Expr("CASE WHEN amount > ? THEN amount - ? ELSE 0 END", amount, amount)).Error
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "减少欠税失败")
	}
	return nil
}
