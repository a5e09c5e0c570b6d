package repository

import (
	"context"
	"time"

	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/models"
	"gorm.io/gorm"
)

// MemberRepository 成员仓储接口，玩家表与NPC表共用
type MemberRepository interface {
	BaseRepository
	Find(ctx context.Context, subjectID string) (*models.Member, error)
	Create(ctx context.Context, member *models.Member) error
	Save(ctx context.Context, member *models.Member) error
	UpdateFields(ctx context.Context, subjectID string, fields map[string]interface{}) error
	ListByFamily(ctx context.Context, familyID uint) ([]*models.Member, error)
	CountByFamily(ctx context.Context, familyID uint) (int64, error)
	ListSerfs(ctx context.Context) ([]*models.Member, error)
	Table() string
	WithTx(tx *gorm.DB) MemberRepository
}

// memberRepo 成员仓储实现
type memberRepo struct {
	*BaseRepo
	table string
}

// NewMemberRepository 创建玩家成员仓储
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepo{BaseRepo: &BaseRepo{db: db}, table: models.Member{}.TableName()}
}

// NewNPCMemberRepository 创建NPC成员仓储
func NewNPCMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepo{BaseRepo: &BaseRepo{db: db}, table: models.NPCMember{}.TableName()}
}

// WithTx 使用事务
func (r *memberRepo) WithTx(tx *gorm.DB) MemberRepository {
	return &memberRepo{BaseRepo: &BaseRepo{db: tx}, table: r.table}
}

// Table 表名
func (r *memberRepo) Table() string {
	return r.table
}

func (r *memberRepo) scoped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

// Find 根据身份查找成员
func (r *memberRepo) Find(ctx context.Context, subjectID string) (*models.Member, error) {
	var member models.Member
	if err := r.scoped(ctx).Where("subject_id = ?", subjectID).First(&member).Error; err != nil {
		return nil, wrapQuery(err, "成员")
	}
	return &member, nil
}

// Create 创建成员
func (r *memberRepo) Create(ctx context.Context, member *models.Member) error {
	if err := r.scoped(ctx).Create(member).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "创建成员失败")
	}
	return nil
}

// Save 保存成员全部字段
func (r *memberRepo) Save(ctx context.Context, member *models.Member) error {
	if err := r.scoped(ctx).Save(member).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "保存成员失败")
	}
	return nil
}

// UpdateFields 更新指定字段
func (r *memberRepo) UpdateFields(ctx context.Context, subjectID string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	result := r.scoped(ctx).Where("subject_id = ?", subjectID).Updates(fields)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate, "更新成员失败")
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound, "成员不存在")
	}
	return nil
}

// ListByFamily 列出家族成员
func (r *memberRepo) ListByFamily(ctx context.Context, familyID uint) ([]*models.Member, error) {
	var members []*models.Member
	err := r.scoped(ctx).Where("family_id = ?", familyID).Order("id ASC").Find(&members).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询家族成员失败")
	}
	return members, nil
}

// CountByFamily 统计家族成员数
func (r *memberRepo) CountByFamily(ctx context.Context, familyID uint) (int64, error) {
	var count int64
	err := r.scoped(ctx).Where("family_id = ?", familyID).Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return count, nil
}

// ListSerfs 列出全部农奴
func (r *memberRepo) ListSerfs(ctx context.Context) ([]*models.Member, error) {
	var members []*models.Member
	err := r.scoped(ctx).Where("serf = ?", true).Order("id ASC").Find(&members).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询农奴失败")
	}
	return members, nil
}
