package repository

import (
	"context"

	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/models"
	"gorm.io/gorm"
)

// LedgerRepository 金库流水仓储接口
type LedgerRepository interface {
	BaseRepository
	Append(ctx context.Context, entry *models.TaxLedger) error
	ListByFamily(ctx context.Context, familyID uint, p *Pagination) ([]*models.TaxLedger, error)
	WithTx(tx *gorm.DB) LedgerRepository
}

// ledgerRepo 流水仓储实现
type ledgerRepo struct {
	*BaseRepo
}

// NewLedgerRepository 创建流水仓储
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepo{BaseRepo: &BaseRepo{db: db}}
}

// WithTx 使用事务
func (r *ledgerRepo) WithTx(tx *gorm.DB) LedgerRepository {
	return &ledgerRepo{BaseRepo: &BaseRepo{db: tx}}
}

// Append 追加一条流水
func (r *ledgerRepo) Append(ctx context.Context, entry *models.TaxLedger) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "写入流水失败")
	}
	return nil
}

// ListByFamily 按时间倒序分页列出家族流水
func (r *ledgerRepo) ListByFamily(ctx context.Context, familyID uint, p *Pagination) ([]*models.TaxLedger, error) {
	query := r.db.WithContext(ctx).Model(&models.TaxLedger{}).Where("family_id = ?", familyID)
	if err := query.Count(&p.Total).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	var entries []*models.TaxLedger
	err := query.Order("created_at_ms DESC").Order("id DESC").Scopes(Paginate(p)).Find(&entries).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询流水失败")
	}
	return entries, nil
}
