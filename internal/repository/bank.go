package repository

import (
	"context"

	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/models"
	"gorm.io/gorm"
)

// BankRepository 家族金库仓储接口
type BankRepository interface {
	BaseRepository
	Ensure(ctx context.Context, familyID uint) (*models.FamilyBank, error)
	Balance(ctx context.Context, familyID uint) (int, error)
	AddBalance(ctx context.Context, familyID uint, amount int) error
	DeductBalance(ctx context.Context, familyID uint, amount int) error
	WithTx(tx *gorm.DB) BankRepository
}

// bankRepo 金库仓储实现
type bankRepo struct {
	*BaseRepo
}

// NewBankRepository 创建金库仓储
func NewBankRepository(db *gorm.DB) BankRepository {
	return &bankRepo{BaseRepo: &BaseRepo{db: db}}
}

// WithTx 使用事务
func (r *bankRepo) WithTx(tx *gorm.DB) BankRepository {
	return &bankRepo{BaseRepo: &BaseRepo{db: tx}}
}

// Ensure 获取金库，不存在时以0余额创建
func (r *bankRepo) Ensure(ctx context.Context, familyID uint) (*models.FamilyBank, error) {
	var bank models.FamilyBank
	err := r.db.WithContext(ctx).
		Where(models.FamilyBank{FamilyID: familyID}).
		FirstOrCreate(&bank).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "获取金库失败")
	}
	return &bank, nil
}

// Balance 查询余额，没有金库时为0
func (r *bankRepo) Balance(ctx context.Context, familyID uint) (int, error) {
	var bank models.FamilyBank
	err := r.db.WithContext(ctx).Where("family_id = ?", familyID).First(&bank).Error
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return bank.Balance, nil
}

// AddBalance 增加余额
func (r *bankRepo) AddBalance(ctx context.Context, familyID uint, amount int) error {
	if _, err := r.Ensure(ctx, familyID); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).
		Model(&models.FamilyBank{}).
		Where("family_id = ?", familyID).
		Update("balance", gorm.Expr("balance + ?", amount)).Error
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "存入金库失败")
	}
	return nil
}

// DeductBalance 扣减余额，余额不足时不做任何修改
func (r *bankRepo) DeductBalance(ctx context.Context, familyID uint, amount int) error {
	result := r.db.WithContext(ctx).
		Model(&models.FamilyBank{}).
		Where("family_id = ? AND balance >= ?", familyID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))

	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate, "扣减金库失败")
	}

	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrInsufficientFunds, "金库余额不足")
	}

	return nil
}
