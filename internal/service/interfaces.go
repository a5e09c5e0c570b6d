package service

import (
	"context"
	"time"

	"github.com/wfunc/feudal-economy/internal/models"
)

// MembershipService 成员关系服务接口
type MembershipService interface {
	// 查询，未加入家族的身份返回默认值
	FamilyOf(ctx context.Context, sub models.Subject) (uint, bool, error)
	RankOf(ctx context.Context, sub models.Subject) (models.Rank, error)
	JobOf(ctx context.Context, sub models.Subject) (models.Job, error)
	IsSerf(ctx context.Context, sub models.Subject) (bool, error)
	Member(ctx context.Context, sub models.Subject) (*models.Member, error)

	// 基础变更
	SetMember(ctx context.Context, sub models.Subject, familyID *uint, rank models.Rank) error
	CreateFamily(ctx context.Context, name string, founder models.Subject) (*models.Family, error)
	SetJob(ctx context.Context, sub models.Subject, job models.Job) error
	SetSerf(ctx context.Context, sub models.Subject, on bool) error

	// 家族
	FamilyInfo(ctx context.Context, familyID uint) (*FamilyInfo, error)
	MembersOf(ctx context.Context, familyID uint) ([]models.Subject, error)
	Serfs(ctx context.Context) ([]models.Subject, error)

	// 带权限校验的操作
	PromoteMember(ctx context.Context, actor models.Subject, privileged bool, target models.Subject) (*RankChange, error)
	DemoteMember(ctx context.Context, actor models.Subject, privileged bool, target models.Subject) (*RankChange, error)
	AssignSerf(ctx context.Context, actor, target models.Subject, on bool) error
	AssignJob(ctx context.Context, actor, target models.Subject, job models.Job) error
	RequireKing(ctx context.Context, actor models.Subject) (uint, error)
}

// InviteService 家族邀请服务接口
type InviteService interface {
	Invite(ctx context.Context, king, target models.Subject) (*Invitation, error)
	Accept(ctx context.Context, target models.Subject) (*Invitation, error)
	Pending(target models.Subject) (*Invitation, bool)
	CleanupExpired() int
	StartCleanupTask(ctx context.Context, interval time.Duration)
}

// TerritoryService 领地服务接口
type TerritoryService interface {
	LandOf(ctx context.Context, familyID uint) (*models.FamilyLand, bool, error)
	Upsert(ctx context.Context, land *models.FamilyLand) error
	SetRadius(ctx context.Context, familyID uint, radius int) error
	SetEnabled(ctx context.Context, familyID uint, enabled bool) error
	ListEnabled(ctx context.Context) ([]*models.FamilyLand, error)
	Contains(land *models.FamilyLand, world string, x, z float64) bool

	// KING操作
	ClaimLand(ctx context.Context, actor models.Subject, world string, x, y, z int, radius int) (*models.FamilyLand, error)
	ResizeLand(ctx context.Context, actor models.Subject, radius int) error
	ToggleLand(ctx context.Context, actor models.Subject, enabled bool) error

	CanBuild(ctx context.Context, sub models.Subject, privileged bool, world string, x, z float64) (bool, error)
}

// TaxService 税收与金库服务接口
type TaxService interface {
	// 农奴状态机
	Tick(ctx context.Context, sub models.Subject, nowMs int64) (int, error)
	AddDeliverPoints(ctx context.Context, sub models.Subject, points int, nowMs int64) (int, error)
	CanWarn(ctx context.Context, sub models.Subject, nowMs int64) (bool, error)
	BaseTax(job models.Job) int
	SerfStatus(ctx context.Context, sub models.Subject) (*SerfStatus, error)

	// 欠税
	Due(ctx context.Context, key string) (int, error)
	AddDue(ctx context.Context, key string, amount int) error
	PayDue(ctx context.Context, key string, amount int) error

	// 金库
	Deposit(ctx context.Context, familyID uint, amount int) error
	Withdraw(ctx context.Context, familyID uint, amount int) (bool, error)
	Balance(ctx context.Context, familyID uint) (int, error)
	RecordLedger(ctx context.Context, entry *models.TaxLedger) error
	Ledger(ctx context.Context, familyID uint, page, pageSize int) ([]*models.TaxLedger, int64, error)

	// Settle 自动征收：减少欠税、存入金库并记流水
	Settle(ctx context.Context, familyID uint, collectorID int64, sub models.Subject, amount int, nowMs int64) error
	// WithdrawToHost KING从金库取出货币到背包
	WithdrawToHost(ctx context.Context, actor models.Subject, amount int) (int, error)
}

// LedgerSink 流水归档
type LedgerSink interface {
	Write(entry *models.TaxLedger) error
}

// FamilyInfo 家族概况
type FamilyInfo struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	OwnerID     string `json:"owner_id"`
	Players     int64  `json:"players"`
	NPCs        int64  `json:"npcs"`
	MemberCount int64  `json:"member_count"`
}

// RankChange 爵位变更结果
type RankChange struct {
	Target models.Subject `json:"target"`
	From   models.Rank    `json:"from"`
	To     models.Rank    `json:"to"`
}

// Invitation 待处理的家族邀请
type Invitation struct {
	FamilyID    uint           `json:"family_id"`
	FamilyName  string         `json:"family_name"`
	InvitedBy   models.Subject `json:"invited_by"`
	Target      models.Subject `json:"target"`
	ExpiresAtMs int64          `json:"expires_at_ms"`
}

// SerfStatus 农奴状态
type SerfStatus struct {
	Subject            models.Subject `json:"subject"`
	Serf               bool           `json:"serf"`
	Job                models.Job     `json:"job"`
	Due                int            `json:"due"`
	BaseTax            int            `json:"base_tax"`
	MissCount          int            `json:"miss_count"`
	DeliverPoints      int            `json:"deliver_points"`
	NextDueAtMs        int64          `json:"next_due_at_ms"`
	TaxDiscountUntilMs int64          `json:"tax_discount_until_ms"`
}
