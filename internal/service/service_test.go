package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/feudal-economy/internal/config"
	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/host"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/repository"
	"github.com/wfunc/feudal-economy/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recordingSink 记录归档的流水
type recordingSink struct {
	entries []*models.TaxLedger
}

func (s *recordingSink) Write(entry *models.TaxLedger) error {
	s.entries = append(s.entries, entry)
	return nil
}

// ServiceTestSuite 服务层测试套件
type ServiceTestSuite struct {
	suite.Suite
	db    *gorm.DB
	ctx   context.Context
	cfg   *config.Config
	clock *utils.ManualClock
	world *host.MemoryWorld
	sink  *recordingSink
	svc   *Services

	king  models.Subject
	serf  models.Subject
	house *models.Family
}

func (suite *ServiceTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.ctx = context.Background()
	suite.cfg = config.Default()
	suite.cfg.Security.JWT.Secret = "test-secret"
	suite.clock = utils.NewManualClock(1_700_000_000_000)
	suite.world = host.NewMemoryWorld()
	suite.sink = &recordingSink{}
	suite.svc = NewServices(suite.db, suite.cfg, Options{
		World: suite.world,
		Clock: suite.clock,
		Sink:  suite.sink,
	}, zap.NewNop())

	suite.king = models.PlayerSubject(uuid.NewString())
	suite.serf = models.PlayerSubject(uuid.NewString())

	family, err := suite.svc.Membership.CreateFamily(suite.ctx, "Stark", suite.king)
	suite.Require().NoError(err)
	suite.house = family

	fid := family.ID
	suite.Require().NoError(suite.svc.Membership.SetMember(suite.ctx, suite.serf, &fid, models.RankPeasant))
}

func (suite *ServiceTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// makeFarmerSerf 把serf设为农奴农夫
func (suite *ServiceTestSuite) makeFarmerSerf() {
	suite.Require().NoError(suite.svc.Membership.SetSerf(suite.ctx, suite.serf, true))
	suite.Require().NoError(suite.svc.Membership.SetJob(suite.ctx, suite.serf, models.JobFarmer))
}

// 测试创建家族
func (suite *ServiceTestSuite) TestCreateFamily() {
	rank, err := suite.svc.Membership.RankOf(suite.ctx, suite.king)
	suite.NoError(err)
	suite.Equal(models.RankKing, rank)

	fid, ok, err := suite.svc.Membership.FamilyOf(suite.ctx, suite.king)
	suite.NoError(err)
	suite.True(ok)
	suite.Equal(suite.house.ID, fid)

	// 名称重复
	other := models.PlayerSubject(uuid.NewString())
	_, err = suite.svc.Membership.CreateFamily(suite.ctx, "Stark", other)
	suite.True(apperrors.Is(err, apperrors.ErrAlreadyExists))
	_, ok, err = suite.svc.Membership.FamilyOf(suite.ctx, other)
	suite.NoError(err)
	suite.False(ok)

	// 已有家族
	_, err = suite.svc.Membership.CreateFamily(suite.ctx, "Lannister", suite.king)
	suite.True(apperrors.Is(err, apperrors.ErrAlreadyInFamily))

	_, err = suite.svc.Membership.CreateFamily(suite.ctx, "   ", other)
	suite.True(apperrors.Is(err, apperrors.ErrInvalidParam))

	info, err := suite.svc.Membership.FamilyInfo(suite.ctx, suite.house.ID)
	suite.NoError(err)
	suite.Equal("Stark", info.Name)
	suite.Equal(int64(2), info.Players)
	suite.Equal(int64(0), info.NPCs)
	suite.Equal(int64(2), info.MemberCount)
}

// 测试未加入家族的默认值
func (suite *ServiceTestSuite) TestDefaultsForUnknown() {
	stranger := models.PlayerSubject(uuid.NewString())

	_, ok, err := suite.svc.Membership.FamilyOf(suite.ctx, stranger)
	suite.NoError(err)
	suite.False(ok)

	rank, err := suite.svc.Membership.RankOf(suite.ctx, stranger)
	suite.NoError(err)
	suite.Equal(models.RankPeasant, rank)

	job, err := suite.svc.Membership.JobOf(suite.ctx, stranger)
	suite.NoError(err)
	suite.Equal(models.JobNone, job)

	serf, err := suite.svc.Membership.IsSerf(suite.ctx, stranger)
	suite.NoError(err)
	suite.False(serf)
}

// 测试农奴职业限制
func (suite *ServiceTestSuite) TestSerfJobRestriction() {
	suite.Require().NoError(suite.svc.Membership.SetJob(suite.ctx, suite.serf, models.JobMerchant))
	suite.Require().NoError(suite.svc.Membership.SetSerf(suite.ctx, suite.serf, true))

	// 设为农奴时职业重置
	job, err := suite.svc.Membership.JobOf(suite.ctx, suite.serf)
	suite.NoError(err)
	suite.Equal(models.JobNone, job)

	err = suite.svc.Membership.SetJob(suite.ctx, suite.serf, models.JobMerchant)
	suite.True(apperrors.Is(err, apperrors.ErrSerfJobRestricted))
	err = suite.svc.Membership.SetJob(suite.ctx, suite.serf, models.JobTaxCollector)
	suite.True(apperrors.Is(err, apperrors.ErrSerfJobRestricted))

	for _, j := range []models.Job{models.JobFarmer, models.JobMiner, models.JobGuard, models.JobNone} {
		suite.NoError(suite.svc.Membership.SetJob(suite.ctx, suite.serf, j))
	}

	// 解除农奴后不再受限
	suite.Require().NoError(suite.svc.Membership.SetSerf(suite.ctx, suite.serf, false))
	suite.NoError(suite.svc.Membership.SetJob(suite.ctx, suite.serf, models.JobBuilder))
}

// 测试晋升与降级
func (suite *ServiceTestSuite) TestPromoteDemote() {
	_, err := suite.svc.Membership.PromoteMember(suite.ctx, suite.king, false, suite.serf)
	suite.True(apperrors.Is(err, apperrors.ErrPermissionDenied))

	change, err := suite.svc.Membership.PromoteMember(suite.ctx, suite.king, true, suite.serf)
	suite.Require().NoError(err)
	suite.Equal(models.RankPeasant, change.From)
	suite.Equal(models.RankKnight, change.To)

	change, err = suite.svc.Membership.DemoteMember(suite.ctx, suite.king, true, suite.serf)
	suite.Require().NoError(err)
	suite.Equal(models.RankPeasant, change.To)

	_, err = suite.svc.Membership.DemoteMember(suite.ctx, suite.king, true, suite.serf)
	suite.True(apperrors.Is(err, apperrors.ErrRankUnchanged))

	_, err = suite.svc.Membership.PromoteMember(suite.ctx, suite.king, true, suite.king)
	suite.True(apperrors.Is(err, apperrors.ErrRankUnchanged))

	outsider := models.PlayerSubject(uuid.NewString())
	_, err = suite.svc.Membership.PromoteMember(suite.ctx, suite.king, true, outsider)
	suite.True(apperrors.Is(err, apperrors.ErrNotSameFamily))
}

// 测试KING分配农奴与职业
func (suite *ServiceTestSuite) TestAssignSerfAndJob() {
	err := suite.svc.Membership.AssignSerf(suite.ctx, suite.serf, suite.king, true)
	suite.True(apperrors.Is(err, apperrors.ErrRankAuthority))

	suite.Require().NoError(suite.svc.Membership.AssignSerf(suite.ctx, suite.king, suite.serf, true))
	serf, err := suite.svc.Membership.IsSerf(suite.ctx, suite.serf)
	suite.NoError(err)
	suite.True(serf)

	suite.NoError(suite.svc.Membership.AssignJob(suite.ctx, suite.king, suite.serf, models.JobMiner))
	err = suite.svc.Membership.AssignJob(suite.ctx, suite.king, suite.serf, models.JobMerchant)
	suite.True(apperrors.Is(err, apperrors.ErrSerfJobRestricted))

	// 无家族的NPC不能成为农奴
	err = suite.svc.Membership.AssignSerf(suite.ctx, suite.king, models.NPCSubject(9), true)
	suite.True(apperrors.Is(err, apperrors.ErrSerfNeedsFamily))

	err = suite.svc.Membership.AssignSerf(suite.ctx, suite.king, models.PlayerSubject(uuid.NewString()), true)
	suite.True(apperrors.Is(err, apperrors.ErrNotSameFamily))
}

// 测试NPC成员与玩家分表
func (suite *ServiceTestSuite) TestMembersOf() {
	fid := suite.house.ID
	npc := models.NPCSubject(3)
	suite.Require().NoError(suite.svc.Membership.SetMember(suite.ctx, npc, &fid, models.RankPeasant))

	subjects, err := suite.svc.Membership.MembersOf(suite.ctx, fid)
	suite.NoError(err)
	suite.Len(subjects, 3)
	suite.False(subjects[0].IsNPC())
	suite.False(subjects[1].IsNPC())
	suite.Equal(npc, subjects[2])

	// 同一编号的玩家与NPC互不影响
	_, ok, err := suite.svc.Membership.FamilyOf(suite.ctx, models.PlayerSubject("3"))
	suite.NoError(err)
	suite.False(ok)
}

// 测试邀请
func (suite *ServiceTestSuite) TestInvite() {
	guest := models.PlayerSubject(uuid.NewString())

	_, err := suite.svc.Invite.Invite(suite.ctx, suite.serf, guest)
	suite.True(apperrors.Is(err, apperrors.ErrRankAuthority))

	_, err = suite.svc.Invite.Invite(suite.ctx, suite.king, suite.serf)
	suite.True(apperrors.Is(err, apperrors.ErrAlreadyInFamily))

	inv, err := suite.svc.Invite.Invite(suite.ctx, suite.king, guest)
	suite.Require().NoError(err)
	suite.Equal("Stark", inv.FamilyName)
	suite.Equal(suite.clock.NowMs()+5*time.Minute.Milliseconds(), inv.ExpiresAtMs)

	pending, ok := suite.svc.Invite.Pending(guest)
	suite.True(ok)
	suite.Equal(suite.house.ID, pending.FamilyID)

	_, err = suite.svc.Invite.Accept(suite.ctx, guest)
	suite.Require().NoError(err)

	fid, ok, err := suite.svc.Membership.FamilyOf(suite.ctx, guest)
	suite.NoError(err)
	suite.True(ok)
	suite.Equal(suite.house.ID, fid)
	rank, _ := suite.svc.Membership.RankOf(suite.ctx, guest)
	suite.Equal(models.RankPeasant, rank)

	// 邀请只能接受一次
	_, err = suite.svc.Invite.Accept(suite.ctx, guest)
	suite.True(apperrors.Is(err, apperrors.ErrInviteNotFound))
}

// 测试邀请过期
func (suite *ServiceTestSuite) TestInviteExpires() {
	guest := models.PlayerSubject(uuid.NewString())
	late := models.PlayerSubject(uuid.NewString())

	_, err := suite.svc.Invite.Invite(suite.ctx, suite.king, guest)
	suite.Require().NoError(err)
	_, err = suite.svc.Invite.Invite(suite.ctx, suite.king, late)
	suite.Require().NoError(err)

	suite.clock.Advance(5*time.Minute + time.Millisecond)

	_, err = suite.svc.Invite.Accept(suite.ctx, guest)
	suite.True(apperrors.Is(err, apperrors.ErrInviteNotFound))
	_, ok := suite.svc.Invite.Pending(guest)
	suite.False(ok)

	suite.Equal(1, suite.svc.Invite.CleanupExpired())
	_, ok = suite.svc.Invite.Pending(late)
	suite.False(ok)
}

// 测试领地与建造保护
func (suite *ServiceTestSuite) TestTerritory() {
	_, err := suite.svc.Territory.ClaimLand(suite.ctx, suite.serf, "world", 0, 64, 0, 10)
	suite.True(apperrors.Is(err, apperrors.ErrRankAuthority))

	land, err := suite.svc.Territory.ClaimLand(suite.ctx, suite.king, "world", 0, 64, 0, 10)
	suite.Require().NoError(err)
	suite.True(land.Enabled)

	got, ok, err := suite.svc.Territory.LandOf(suite.ctx, suite.house.ID)
	suite.NoError(err)
	suite.True(ok)
	suite.Equal(10, got.Radius)

	// 其他家族成员不能在领地内建造
	rival := models.PlayerSubject(uuid.NewString())
	_, err = suite.svc.Membership.CreateFamily(suite.ctx, "Bolton", rival)
	suite.Require().NoError(err)

	can, err := suite.svc.Territory.CanBuild(suite.ctx, rival, false, "world", 3, 4)
	suite.NoError(err)
	suite.False(can)
	can, err = suite.svc.Territory.CanBuild(suite.ctx, rival, true, "world", 3, 4)
	suite.NoError(err)
	suite.True(can)
	can, err = suite.svc.Territory.CanBuild(suite.ctx, suite.serf, false, "world", 3, 4)
	suite.NoError(err)
	suite.True(can)
	can, err = suite.svc.Territory.CanBuild(suite.ctx, rival, false, "world", 30, 4)
	suite.NoError(err)
	suite.True(can)
	can, err = suite.svc.Territory.CanBuild(suite.ctx, rival, false, "nether", 3, 4)
	suite.NoError(err)
	suite.True(can)

	// 无家族者不受限制
	can, err = suite.svc.Territory.CanBuild(suite.ctx, models.PlayerSubject(uuid.NewString()), false, "world", 3, 4)
	suite.NoError(err)
	suite.True(can)

	// 关闭后不再保护
	suite.Require().NoError(suite.svc.Territory.ToggleLand(suite.ctx, suite.king, false))
	can, err = suite.svc.Territory.CanBuild(suite.ctx, rival, false, "world", 3, 4)
	suite.NoError(err)
	suite.True(can)

	suite.NoError(suite.svc.Territory.ResizeLand(suite.ctx, suite.king, 20))
	err = suite.svc.Territory.ResizeLand(suite.ctx, suite.king, -1)
	suite.True(apperrors.Is(err, apperrors.ErrInvalidParam))

	err = suite.svc.Territory.ToggleLand(suite.ctx, rival, true)
	suite.True(apperrors.Is(err, apperrors.ErrLandNotConfigured))
}

// 测试首次Tick只设置计时器且同一时刻重复调用无副作用
func (suite *ServiceTestSuite) TestTickArmsAndIsIdempotent() {
	suite.makeFarmerSerf()
	now := suite.clock.NowMs()

	charged, err := suite.svc.Tax.Tick(suite.ctx, suite.serf, now)
	suite.NoError(err)
	suite.Equal(0, charged)

	charged, err = suite.svc.Tax.Tick(suite.ctx, suite.serf, now)
	suite.NoError(err)
	suite.Equal(0, charged)

	status, err := suite.svc.Tax.SerfStatus(suite.ctx, suite.serf)
	suite.NoError(err)
	suite.Equal(now+10*time.Minute.Milliseconds(), status.NextDueAtMs)
	suite.Equal(0, status.Due)

	// 非农奴不计税
	charged, err = suite.svc.Tax.Tick(suite.ctx, suite.king, now+time.Hour.Milliseconds())
	suite.NoError(err)
	suite.Equal(0, charged)
}

// 测试连续欠税后加倍
func (suite *ServiceTestSuite) TestTickPunishment() {
	suite.makeFarmerSerf()
	start := suite.clock.NowMs()
	interval := 10 * time.Minute.Milliseconds()

	_, err := suite.svc.Tax.Tick(suite.ctx, suite.serf, start)
	suite.Require().NoError(err)

	var charges []int
	for i := int64(1); i <= 4; i++ {
		charged, err := suite.svc.Tax.Tick(suite.ctx, suite.serf, start+i*interval)
		suite.Require().NoError(err)
		charges = append(charges, charged)
	}
	suite.Equal([]int{4, 4, 4, 8}, charges)

	due, err := suite.svc.Tax.Due(suite.ctx, suite.serf.Key())
	suite.NoError(err)
	suite.Equal(20, due)

	status, err := suite.svc.Tax.SerfStatus(suite.ctx, suite.serf)
	suite.NoError(err)
	suite.Equal(3, status.MissCount)
	suite.Equal(4, status.BaseTax)
}

// 测试上缴积分奖励
func (suite *ServiceTestSuite) TestDeliverPoints() {
	suite.makeFarmerSerf()
	now := suite.clock.NowMs()
	discount := 10 * time.Minute.Milliseconds()

	suite.Require().NoError(suite.svc.Tax.AddDue(suite.ctx, suite.serf.Key(), 30))

	rewards, err := suite.svc.Tax.AddDeliverPoints(suite.ctx, suite.serf, 250, now)
	suite.NoError(err)
	suite.Equal(2, rewards)

	status, err := suite.svc.Tax.SerfStatus(suite.ctx, suite.serf)
	suite.NoError(err)
	suite.Equal(50, status.DeliverPoints)
	suite.Equal(10, status.Due)
	suite.Equal(now+2*discount, status.TaxDiscountUntilMs)

	// 折扣在现有截止时间上累加
	rewards, err = suite.svc.Tax.AddDeliverPoints(suite.ctx, suite.serf, 50, now+1000)
	suite.NoError(err)
	suite.Equal(1, rewards)
	status, _ = suite.svc.Tax.SerfStatus(suite.ctx, suite.serf)
	suite.Equal(0, status.DeliverPoints)
	suite.Equal(0, status.Due)
	suite.Equal(now+3*discount, status.TaxDiscountUntilMs)

	rewards, err = suite.svc.Tax.AddDeliverPoints(suite.ctx, suite.serf, 0, now)
	suite.NoError(err)
	suite.Equal(0, rewards)

	_, err = suite.svc.Tax.AddDeliverPoints(suite.ctx, models.PlayerSubject(uuid.NewString()), 10, now)
	suite.True(apperrors.Is(err, apperrors.ErrNotFound))
}

// 测试折扣期间税额减半
func (suite *ServiceTestSuite) TestTickWithDiscount() {
	suite.makeFarmerSerf()
	start := suite.clock.NowMs()
	interval := 10 * time.Minute.Milliseconds()

	_, err := suite.svc.Tax.Tick(suite.ctx, suite.serf, start)
	suite.Require().NoError(err)
	_, err = suite.svc.Tax.AddDeliverPoints(suite.ctx, suite.serf, 200, start)
	suite.Require().NoError(err)

	charged, err := suite.svc.Tax.Tick(suite.ctx, suite.serf, start+interval)
	suite.NoError(err)
	suite.Equal(2, charged)

	// 折扣到期
	charged, err = suite.svc.Tax.Tick(suite.ctx, suite.serf, start+3*interval)
	suite.NoError(err)
	suite.Equal(4, charged)
}

// 测试提醒冷却
func (suite *ServiceTestSuite) TestCanWarn() {
	now := suite.clock.NowMs()

	ok, err := suite.svc.Tax.CanWarn(suite.ctx, models.PlayerSubject(uuid.NewString()), now)
	suite.NoError(err)
	suite.False(ok)

	ok, err = suite.svc.Tax.CanWarn(suite.ctx, suite.serf, now)
	suite.NoError(err)
	suite.True(ok)

	ok, _ = suite.svc.Tax.CanWarn(suite.ctx, suite.serf, now+59_999)
	suite.False(ok)
	ok, _ = suite.svc.Tax.CanWarn(suite.ctx, suite.serf, now+60_000)
	suite.True(ok)
}

// 测试金库存取
func (suite *ServiceTestSuite) TestBank() {
	fid := suite.house.ID

	// 首次查询即创建金库
	var count int64
	suite.Require().NoError(suite.db.Model(&models.FamilyBank{}).Where("family_id = ?", fid).Count(&count).Error)
	suite.Equal(int64(0), count)
	balance, err := suite.svc.Tax.Balance(suite.ctx, fid)
	suite.NoError(err)
	suite.Equal(0, balance)
	suite.Require().NoError(suite.db.Model(&models.FamilyBank{}).Where("family_id = ?", fid).Count(&count).Error)
	suite.Equal(int64(1), count)

	suite.True(apperrors.Is(suite.svc.Tax.Deposit(suite.ctx, fid, 0), apperrors.ErrInvalidParam))
	suite.Require().NoError(suite.svc.Tax.Deposit(suite.ctx, fid, 10))

	ok, err := suite.svc.Tax.Withdraw(suite.ctx, fid, 11)
	suite.NoError(err)
	suite.False(ok)
	ok, err = suite.svc.Tax.Withdraw(suite.ctx, fid, -1)
	suite.NoError(err)
	suite.False(ok)

	balance, _ = suite.svc.Tax.Balance(suite.ctx, fid)
	suite.Equal(10, balance)

	ok, err = suite.svc.Tax.Withdraw(suite.ctx, fid, 10)
	suite.NoError(err)
	suite.True(ok)
	balance, _ = suite.svc.Tax.Balance(suite.ctx, fid)
	suite.Equal(0, balance)

	suite.True(apperrors.Is(suite.svc.Tax.AddDue(suite.ctx, "k", 0), apperrors.ErrInvalidParam))
	suite.True(apperrors.Is(suite.svc.Tax.PayDue(suite.ctx, "k", -1), apperrors.ErrInvalidParam))
}

// 测试自动征收入账
func (suite *ServiceTestSuite) TestSettle() {
	fid := suite.house.ID
	now := suite.clock.NowMs()
	suite.Require().NoError(suite.svc.Tax.AddDue(suite.ctx, suite.serf.Key(), 7))

	suite.Require().NoError(suite.svc.Tax.Settle(suite.ctx, fid, 42, suite.serf, 5, now))

	due, _ := suite.svc.Tax.Due(suite.ctx, suite.serf.Key())
	suite.Equal(2, due)
	balance, _ := suite.svc.Tax.Balance(suite.ctx, fid)
	suite.Equal(5, balance)

	entries, total, err := suite.svc.Tax.Ledger(suite.ctx, fid, 1, 20)
	suite.NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(models.LedgerReasonAutoTax, entries[0].Reason)
	suite.Equal(int64(42), entries[0].SourceAgentID)
	suite.Equal(now, entries[0].CreatedAtMs)

	suite.Len(suite.sink.entries, 1)
}

// 测试KING取款到背包
func (suite *ServiceTestSuite) TestWithdrawToHost() {
	fid := suite.house.ID
	suite.Require().NoError(suite.svc.Tax.Deposit(suite.ctx, fid, 100))

	// 不在线
	_, err := suite.svc.Tax.WithdrawToHost(suite.ctx, suite.king, 10)
	suite.True(apperrors.Is(err, apperrors.ErrEntityOffline))
	balance, _ := suite.svc.Tax.Balance(suite.ctx, fid)
	suite.Equal(100, balance)

	king := suite.world.SpawnPlayer(suite.king.ID, host.Location{World: "world", Y: 64})

	_, err = suite.svc.Tax.WithdrawToHost(suite.ctx, suite.serf, 10)
	suite.True(apperrors.Is(err, apperrors.ErrRankAuthority))

	_, err = suite.svc.Tax.WithdrawToHost(suite.ctx, suite.king, 101)
	suite.True(apperrors.Is(err, apperrors.ErrInsufficientFunds))

	left, err := suite.svc.Tax.WithdrawToHost(suite.ctx, suite.king, 70)
	suite.Require().NoError(err)
	suite.Equal(30, left)
	suite.Equal(70, king.Inventory().Count(host.ItemEmerald))

	entries, _, err := suite.svc.Tax.Ledger(suite.ctx, fid, 1, 20)
	suite.NoError(err)
	suite.Len(entries, 1)
	suite.Equal(models.LedgerReasonWithdraw, entries[0].Reason)
	suite.Equal(-70, entries[0].Amount)
}

// 测试签发与校验令牌
func (suite *ServiceTestSuite) TestAuth() {
	hash, err := utils.HashHostKey("host-secret")
	suite.Require().NoError(err)
	auth := NewAuthService(hash, suite.svc.JWT, zap.NewNop())

	_, err = auth.IssueToken(suite.ctx, "wrong", suite.king, false)
	suite.True(apperrors.Is(err, apperrors.ErrAuthentication))
	_, err = auth.IssueToken(suite.ctx, "", suite.king, false)
	suite.True(apperrors.Is(err, apperrors.ErrAuthentication))

	info, err := auth.IssueToken(suite.ctx, "host-secret", suite.king, true)
	suite.Require().NoError(err)
	suite.Equal("Bearer", info.TokenType)
	suite.Equal(int64(24*3600), info.ExpiresIn)

	claims, err := auth.ValidateToken(suite.ctx, info.AccessToken)
	suite.Require().NoError(err)
	suite.Equal(suite.king.Key(), claims.Identity)
	suite.True(claims.Admin)

	_, err = auth.ValidateToken(suite.ctx, "garbage")
	suite.True(apperrors.Is(err, apperrors.ErrTokenInvalid))

	// 未配置密钥时拒绝签发
	_, err = suite.svc.Auth.IssueToken(suite.ctx, "host-secret", suite.king, false)
	suite.True(apperrors.Is(err, apperrors.ErrAuthentication))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
