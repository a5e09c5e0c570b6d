package service

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 家族名称最大长度
const maxFamilyNameLen = 32

// memberStore 按身份类型选择成员表
type memberStore struct {
	players repository.MemberRepository
	npcs    repository.MemberRepository
}

func (m memberStore) repo(sub models.Subject) repository.MemberRepository {
	if sub.IsNPC() {
		return m.npcs
	}
	return m.players
}

func (m memberStore) withTx(tx *gorm.DB) memberStore {
	return memberStore{players: m.players.WithTx(tx), npcs: m.npcs.WithTx(tx)}
}

// find 查找成员，不存在时返回nil
func (m memberStore) find(ctx context.Context, sub models.Subject) (*models.Member, error) {
	member, err := m.repo(sub).Find(ctx, sub.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return member, nil
}

// ensure 查找成员，不存在时创建未加入家族的默认行
func (m memberStore) ensure(ctx context.Context, sub models.Subject) (*models.Member, error) {
	member, err := m.find(ctx, sub)
	if err != nil || member != nil {
		return member, err
	}
	member = &models.Member{SubjectID: sub.ID, Rank: models.RankPeasant, Job: models.JobNone}
	if err := m.repo(sub).Create(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// membershipService 成员关系服务实现
type membershipService struct {
	db       *gorm.DB
	families repository.FamilyRepository
	members  memberStore
	log      *zap.Logger
}

// NewMembershipService 创建成员关系服务
func NewMembershipService(
	db *gorm.DB,
	families repository.FamilyRepository,
	players repository.MemberRepository,
	npcs repository.MemberRepository,
	log *zap.Logger,
) MembershipService {
	return &membershipService{
		db:       db,
		families: families,
		members:  memberStore{players: players, npcs: npcs},
		log:      log,
	}
}

// FamilyOf 所属家族
func (s *membershipService) FamilyOf(ctx context.Context, sub models.Subject) (uint, bool, error) {
	m, err := s.members.find(ctx, sub)
	if err != nil {
		return 0, false, err
	}
	if m == nil || m.FamilyID == nil {
		return 0, false, nil
	}
	return *m.FamilyID, true, nil
}

// RankOf 爵位，默认PEASANT
func (s *membershipService) RankOf(ctx context.Context, sub models.Subject) (models.Rank, error) {
	m, err := s.members.find(ctx, sub)
	if err != nil {
		return "", err
	}
	if m == nil || !m.Rank.Valid() {
		return models.RankPeasant, nil
	}
	return m.Rank, nil
}

// JobOf 职业，默认NONE
func (s *membershipService) JobOf(ctx context.Context, sub models.Subject) (models.Job, error) {
	m, err := s.members.find(ctx, sub)
	if err != nil {
		return "", err
	}
	if m == nil || !m.Job.Valid() {
		return models.JobNone, nil
	}
	return m.Job, nil
}

// IsSerf 是否为农奴
func (s *membershipService) IsSerf(ctx context.Context, sub models.Subject) (bool, error) {
	m, err := s.members.find(ctx, sub)
	if err != nil {
		return false, err
	}
	return m != nil && m.Serf, nil
}

// Member 成员完整记录，不存在时返回nil
func (s *membershipService) Member(ctx context.Context, sub models.Subject) (*models.Member, error) {
	return s.members.find(ctx, sub)
}

// SetMember 设置家族与爵位；只有新建成员时才重置职业和农奴标记
func (s *membershipService) SetMember(ctx context.Context, sub models.Subject, familyID *uint, rank models.Rank) error {
	if !rank.Valid() {
		return apperrors.Newf(apperrors.ErrInvalidParam, "未知爵位: %s", rank)
	}
	return setMember(ctx, s.members, sub, familyID, rank)
}

func setMember(ctx context.Context, members memberStore, sub models.Subject, familyID *uint, rank models.Rank) error {
	existing, err := members.find(ctx, sub)
	if err != nil {
		return err
	}
	if existing == nil {
		return members.repo(sub).Create(ctx, &models.Member{
			SubjectID: sub.ID,
			FamilyID:  familyID,
			Rank:      rank,
			Job:       models.JobNone,
		})
	}

	var family interface{}
	if familyID != nil {
		family = *familyID
	}
	return members.repo(sub).UpdateFields(ctx, sub.ID, map[string]interface{}{
		"family_id": family,
		"rank":      rank,
	})
}

// CreateFamily 创建家族，创建者成为KING
func (s *membershipService) CreateFamily(ctx context.Context, name string, founder models.Subject) (*models.Family, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxFamilyNameLen {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "家族名称长度需在1-%d之间", maxFamilyNameLen)
	}

	if _, ok, err := s.FamilyOf(ctx, founder); err != nil {
		return nil, err
	} else if ok {
		return nil, apperrors.New(apperrors.ErrAlreadyInFamily)
	}

	exists, err := s.families.ExistsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.Newf(apperrors.ErrAlreadyExists, "家族名称已存在: %s", name)
	}

	family := &models.Family{Name: name, OwnerID: founder.Key()}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.families.WithTx(tx).Create(ctx, family); err != nil {
			return err
		}
		fid := family.ID
		return setMember(ctx, s.members.withTx(tx), founder, &fid, models.RankKing)
	})
	if err != nil {
		s.log.Error("创建家族失败", zap.Error(err), zap.String("name", name))
		return nil, err
	}

	s.log.Info("家族已创建",
		zap.Uint("family_id", family.ID),
		zap.String("name", name),
		zap.String("founder", founder.Key()),
	)
	return family, nil
}

// SetJob 设置职业，农奴只能从事受限职业
func (s *membershipService) SetJob(ctx context.Context, sub models.Subject, job models.Job) error {
	if !job.Valid() {
		return apperrors.Newf(apperrors.ErrInvalidParam, "未知职业: %s", job)
	}

	m, err := s.members.ensure(ctx, sub)
	if err != nil {
		return err
	}
	if m.Serf && !job.AllowedForSerf() {
		return apperrors.Newf(apperrors.ErrSerfJobRestricted, "%s 不能从事 %s", sub.Key(), job)
	}

	return s.members.repo(sub).UpdateFields(ctx, sub.ID, map[string]interface{}{"job": job})
}

// SetSerf 设置农奴标记，设为农奴时职业同时重置为NONE
func (s *membershipService) SetSerf(ctx context.Context, sub models.Subject, on bool) error {
	if _, err := s.members.ensure(ctx, sub); err != nil {
		return err
	}

	fields := map[string]interface{}{"serf": on}
	if on {
		fields["job"] = models.JobNone
	}
	return s.members.repo(sub).UpdateFields(ctx, sub.ID, fields)
}

// FamilyInfo 家族概况
func (s *membershipService) FamilyInfo(ctx context.Context, familyID uint) (*FamilyInfo, error) {
	family, err := s.families.FindByID(ctx, familyID)
	if err != nil {
		return nil, err
	}
	players, err := s.members.players.CountByFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	npcs, err := s.members.npcs.CountByFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	return &FamilyInfo{
		ID:          family.ID,
		Name:        family.Name,
		OwnerID:     family.OwnerID,
		Players:     players,
		NPCs:        npcs,
		MemberCount: players + npcs,
	}, nil
}

// MembersOf 家族全部成员身份，玩家在前
func (s *membershipService) MembersOf(ctx context.Context, familyID uint) ([]models.Subject, error) {
	players, err := s.members.players.ListByFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	npcs, err := s.members.npcs.ListByFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	return s.subjects(players, npcs), nil
}

// Serfs 全部农奴身份，玩家在前
func (s *membershipService) Serfs(ctx context.Context) ([]models.Subject, error) {
	players, err := s.members.players.ListSerfs(ctx)
	if err != nil {
		return nil, err
	}
	npcs, err := s.members.npcs.ListSerfs(ctx)
	if err != nil {
		return nil, err
	}
	return s.subjects(players, npcs), nil
}

// subjects 成员行转换为身份，跳过无效的NPC编号
func (s *membershipService) subjects(players, npcs []*models.Member) []models.Subject {
	subjects := make([]models.Subject, 0, len(players)+len(npcs))
	for _, m := range players {
		subjects = append(subjects, models.PlayerSubject(m.SubjectID))
	}
	for _, m := range npcs {
		id, err := strconv.ParseInt(m.SubjectID, 10, 64)
		if err != nil {
			s.log.Warn("忽略无效的NPC成员", zap.String("subject_id", m.SubjectID))
			continue
		}
		subjects = append(subjects, models.NPCSubject(id))
	}
	return subjects
}

// PromoteMember 晋升同家族成员
func (s *membershipService) PromoteMember(ctx context.Context, actor models.Subject, privileged bool, target models.Subject) (*RankChange, error) {
	return s.changeRank(ctx, actor, privileged, target, models.Rank.Promote)
}

// DemoteMember 降级同家族成员
func (s *membershipService) DemoteMember(ctx context.Context, actor models.Subject, privileged bool, target models.Subject) (*RankChange, error) {
	return s.changeRank(ctx, actor, privileged, target, models.Rank.Demote)
}

func (s *membershipService) changeRank(
	ctx context.Context,
	actor models.Subject,
	privileged bool,
	target models.Subject,
	step func(models.Rank) (models.Rank, bool),
) (*RankChange, error) {
	if !privileged {
		return nil, apperrors.New(apperrors.ErrPermissionDenied, "需要管理权限")
	}

	fid, err := s.sameFamily(ctx, actor, target)
	if err != nil {
		return nil, err
	}

	cur, err := s.RankOf(ctx, target)
	if err != nil {
		return nil, err
	}
	next, changed := step(cur)
	if !changed {
		return nil, apperrors.Newf(apperrors.ErrRankUnchanged, "当前爵位: %s", cur)
	}

	if err := setMember(ctx, s.members, target, &fid, next); err != nil {
		return nil, err
	}

	s.log.Info("爵位变更",
		zap.String("actor", actor.Key()),
		zap.String("target", target.Key()),
		zap.String("from", cur.String()),
		zap.String("to", next.String()),
	)
	return &RankChange{Target: target, From: cur, To: next}, nil
}

// sameFamily 确认两个身份属于同一家族
func (s *membershipService) sameFamily(ctx context.Context, a, b models.Subject) (uint, error) {
	af, aok, err := s.FamilyOf(ctx, a)
	if err != nil {
		return 0, err
	}
	bf, bok, err := s.FamilyOf(ctx, b)
	if err != nil {
		return 0, err
	}
	if !aok || !bok || af != bf {
		return 0, apperrors.New(apperrors.ErrNotSameFamily)
	}
	return af, nil
}

// RequireKing 确认操作者是所在家族的KING，返回家族ID
func (s *membershipService) RequireKing(ctx context.Context, actor models.Subject) (uint, error) {
	m, err := s.members.find(ctx, actor)
	if err != nil {
		return 0, err
	}
	if m == nil || m.FamilyID == nil {
		return 0, apperrors.New(apperrors.ErrNoFamily)
	}
	if m.Rank != models.RankKing {
		return 0, apperrors.New(apperrors.ErrRankAuthority, "仅KING可以执行")
	}
	return *m.FamilyID, nil
}

// AssignSerf KING设置本家族成员的农奴标记
func (s *membershipService) AssignSerf(ctx context.Context, actor, target models.Subject, on bool) error {
	fid, err := s.RequireKing(ctx, actor)
	if err != nil {
		return err
	}

	tf, ok, err := s.FamilyOf(ctx, target)
	if err != nil {
		return err
	}
	if !ok && target.IsNPC() && on {
		return apperrors.New(apperrors.ErrSerfNeedsFamily)
	}
	if !ok || tf != fid {
		return apperrors.New(apperrors.ErrNotSameFamily)
	}

	if err := s.SetSerf(ctx, target, on); err != nil {
		return err
	}
	s.log.Info("农奴状态变更", zap.String("actor", actor.Key()), zap.String("target", target.Key()), zap.Bool("serf", on))
	return nil
}

// AssignJob KING设置本家族成员的职业
func (s *membershipService) AssignJob(ctx context.Context, actor, target models.Subject, job models.Job) error {
	fid, err := s.RequireKing(ctx, actor)
	if err != nil {
		return err
	}
	tf, ok, err := s.FamilyOf(ctx, target)
	if err != nil {
		return err
	}
	if !ok || tf != fid {
		return apperrors.New(apperrors.ErrNotSameFamily)
	}
	return s.SetJob(ctx, target, job)
}
