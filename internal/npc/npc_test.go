package npc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/feudal-economy/internal/config"
	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/host"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/repository"
	"github.com/wfunc/feudal-economy/internal/service"
	"github.com/wfunc/feudal-economy/internal/utils"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fixedRand 固定返回值的随机源
type fixedRand struct{ n int }

func (r fixedRand) IntN(n int) int {
	if r.n >= n {
		return n - 1
	}
	return r.n
}

// failingTax 指定欠税键写入失败
type failingTax struct {
	service.TaxService
	failKey string
}

func (t *failingTax) AddDue(ctx context.Context, key string, amount int) error {
	if key == t.failKey {
		return errors.New("写入失败")
	}
	return t.TaxService.AddDue(ctx, key, amount)
}

func (t *failingTax) Tick(ctx context.Context, sub models.Subject, nowMs int64) (int, error) {
	if sub.Key() == t.failKey {
		return 0, errors.New("计税失败")
	}
	return t.TaxService.Tick(ctx, sub, nowMs)
}

// NPCTestSuite NPC循环测试套件
type NPCTestSuite struct {
	suite.Suite
	db       *gorm.DB
	ctx      context.Context
	cfg      *config.Config
	clock    *utils.ManualClock
	world    *host.MemoryWorld
	notifier *host.MemoryNotifier
	svc      *service.Services
	traits   *TraitService

	king   models.Subject
	serf   models.Subject
	family uint
}

func (suite *NPCTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.ctx = context.Background()
	suite.cfg = config.Default()
	suite.clock = utils.NewManualClock(1_700_000_000_000)
	suite.world = host.NewMemoryWorld()
	suite.notifier = host.NewMemoryNotifier()
	suite.svc = service.NewServices(suite.db, suite.cfg, service.Options{World: suite.world, Clock: suite.clock}, zap.NewNop())
	suite.traits = NewTraitService(suite.svc.Traits, suite.svc.Membership, suite.world, suite.clock, suite.cfg.Feudal, zap.NewNop())

	suite.king = models.PlayerSubject(uuid.NewString())
	suite.serf = models.PlayerSubject(uuid.NewString())
	family, err := suite.svc.Membership.CreateFamily(suite.ctx, "Stark", suite.king)
	suite.Require().NoError(err)
	suite.family = family.ID
	fid := family.ID
	suite.Require().NoError(suite.svc.Membership.SetMember(suite.ctx, suite.serf, &fid, models.RankPeasant))
}

func (suite *NPCTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

func (suite *NPCTestSuite) collector(tax service.TaxService) *CollectorLoop {
	return NewCollectorLoop(suite.svc.Traits, suite.svc.Membership, tax, suite.world, suite.notifier, suite.clock, suite.cfg.Feudal.Collector, zap.NewNop())
}

func (suite *NPCTestSuite) guard() *GuardLoop {
	return NewGuardLoop(suite.svc.Traits, suite.svc.Membership, suite.svc.Territory, suite.world, suite.notifier, suite.clock, suite.cfg.Feudal.Guard, zap.NewNop())
}

func (suite *NPCTestSuite) serfTax(tax service.TaxService) *SerfTaxLoop {
	return NewSerfTaxLoop(suite.svc.Membership, tax, suite.notifier, suite.clock, zap.NewNop())
}

func (suite *NPCTestSuite) farmer(r Rand) *FarmerLoop {
	return NewFarmerLoop(suite.svc.Traits, suite.svc.Membership, suite.world, suite.clock, r, suite.cfg.Feudal.Farm, zap.NewNop())
}

// 测试角色配置
func (suite *NPCTestSuite) TestTraitConfiguration() {
	_, err := suite.traits.SetRole(suite.ctx, 1, models.RoleGuard)
	suite.True(apperrors.Is(err, apperrors.ErrEntityNotFound))

	suite.world.SpawnNPC(1, host.Location{World: "world"})
	trait, err := suite.traits.SetRole(suite.ctx, 1, models.RoleTaxCollector)
	suite.Require().NoError(err)
	suite.Equal(models.RoleTaxCollector, trait.Role)

	_, err = suite.traits.SetTax(suite.ctx, 1, suite.family, 0, time.Minute)
	suite.True(apperrors.Is(err, apperrors.ErrInvalidParam))
	_, err = suite.traits.SetTax(suite.ctx, 1, suite.family, 5, 4*time.Second)
	suite.True(apperrors.Is(err, apperrors.ErrInvalidParam))

	trait, err = suite.traits.SetTax(suite.ctx, 1, suite.family, 5, 5*time.Second)
	suite.Require().NoError(err)
	suite.Equal(suite.clock.NowMs()+5000, trait.NextCollectAtMs)

	// 只有KING能归入本家族
	err = suite.traits.SetFamily(suite.ctx, suite.serf, 1, suite.family)
	suite.True(apperrors.Is(err, apperrors.ErrRankAuthority))
	err = suite.traits.SetFamily(suite.ctx, suite.king, 1, suite.family+1)
	suite.True(apperrors.Is(err, apperrors.ErrRankAuthority))

	// 无家族的NPC不能成为农奴
	err = suite.traits.SetSerf(suite.ctx, suite.king, 1, true)
	suite.True(apperrors.Is(err, apperrors.ErrSerfNeedsFamily))

	suite.Require().NoError(suite.traits.SetFamily(suite.ctx, suite.king, 1, suite.family))
	suite.Require().NoError(suite.traits.SetSerf(suite.ctx, suite.king, 1, true))

	err = suite.traits.SetJob(suite.ctx, suite.king, 1, models.JobMerchant)
	suite.True(apperrors.Is(err, apperrors.ErrSerfJobRestricted))
	suite.NoError(suite.traits.SetJob(suite.ctx, suite.king, 1, models.JobGuard))

	info, err := suite.traits.Info(suite.ctx, 1)
	suite.Require().NoError(err)
	suite.Equal(models.RoleTaxCollector, info.Role)
	suite.Equal("Stark", info.FamilyName)
	suite.True(info.Serf)
	suite.Equal(models.JobGuard, info.Job)
	suite.Equal(5, info.TaxAmount)
	suite.Equal(int64(5000), info.FarmIntervalMs)
}

// 测试自动征收
func (suite *NPCTestSuite) TestCollectorSettles() {
	suite.world.SpawnNPC(1, host.Location{World: "world"})
	_, err := suite.traits.SetRole(suite.ctx, 1, models.RoleTaxCollector)
	suite.Require().NoError(err)
	_, err = suite.traits.SetTax(suite.ctx, 1, suite.family, 5, 5*time.Second)
	suite.Require().NoError(err)

	serf := suite.world.SpawnPlayer(suite.serf.ID, host.Location{World: "world"})
	serf.Inventory().Add(host.ItemStack{Type: host.ItemEmerald, Amount: 3})

	loop := suite.collector(suite.svc.Tax)

	// 未到时间
	suite.NoError(loop.Pass(suite.ctx))
	due, _ := suite.svc.Tax.Due(suite.ctx, suite.serf.Key())
	suite.Equal(0, due)

	suite.clock.Advance(5 * time.Second)
	suite.NoError(loop.Pass(suite.ctx))

	// 在线成员按持有量缴纳，离线的KING只计欠税
	due, _ = suite.svc.Tax.Due(suite.ctx, suite.serf.Key())
	suite.Equal(2, due)
	suite.Equal(0, serf.Inventory().Count(host.ItemEmerald))
	due, _ = suite.svc.Tax.Due(suite.ctx, suite.king.Key())
	suite.Equal(5, due)

	balance, _ := suite.svc.Tax.Balance(suite.ctx, suite.family)
	suite.Equal(3, balance)

	entries, _, err := suite.svc.Tax.Ledger(suite.ctx, suite.family, 1, 20)
	suite.Require().NoError(err)
	suite.Len(entries, 1)
	suite.Equal(models.LedgerReasonAutoTax, entries[0].Reason)
	suite.Equal(int64(1), entries[0].SourceAgentID)

	msgs := suite.notifier.Messages(suite.serf.Key())
	suite.Len(msgs, 2)
	suite.Empty(suite.notifier.Messages(suite.king.Key()))

	trait, _ := suite.svc.Traits.Get(suite.ctx, 1)
	suite.Equal(suite.clock.NowMs()+5000, trait.NextCollectAtMs)
}

// 测试首次观察时只设置计时器
func (suite *NPCTestSuite) TestCollectorLazyArm() {
	suite.world.SpawnNPC(1, host.Location{World: "world"})
	fid := suite.family
	suite.Require().NoError(suite.svc.Traits.Save(suite.ctx, &models.NPCTrait{
		NPCID:     1,
		Role:      models.RoleTaxCollector,
		FamilyID:  &fid,
		TaxAmount: 2,
	}))

	suite.NoError(suite.collector(suite.svc.Tax).Pass(suite.ctx))

	trait, _ := suite.svc.Traits.Get(suite.ctx, 1)
	suite.Equal(suite.clock.NowMs()+300_000, trait.NextCollectAtMs)
	due, _ := suite.svc.Tax.Due(suite.ctx, suite.serf.Key())
	suite.Equal(0, due)
}

// 测试单个征税官失败不影响其他征税官
func (suite *NPCTestSuite) TestCollectorFailureIsolation() {
	other := models.PlayerSubject(uuid.NewString())
	rival, err := suite.svc.Membership.CreateFamily(suite.ctx, "Bolton", other)
	suite.Require().NoError(err)

	for id, fid := range map[int64]uint{1: rival.ID, 2: suite.family} {
		suite.world.SpawnNPC(id, host.Location{World: "world"})
		_, err := suite.traits.SetRole(suite.ctx, id, models.RoleTaxCollector)
		suite.Require().NoError(err)
		_, err = suite.traits.SetTax(suite.ctx, id, fid, 4, 5*time.Second)
		suite.Require().NoError(err)
	}

	suite.clock.Advance(5 * time.Second)
	loop := suite.collector(&failingTax{TaxService: suite.svc.Tax, failKey: other.Key()})
	suite.NoError(loop.Pass(suite.ctx))

	failed, _ := suite.svc.Traits.Get(suite.ctx, 1)
	suite.Equal(suite.clock.NowMs()+10_000, failed.NextCollectAtMs)

	ok, _ := suite.svc.Traits.Get(suite.ctx, 2)
	suite.Equal(suite.clock.NowMs()+5000, ok.NextCollectAtMs)
	due, _ := suite.svc.Tax.Due(suite.ctx, suite.serf.Key())
	suite.Equal(4, due)
}

// 测试农奴计税循环跨多个缴税周期
func (suite *NPCTestSuite) TestSerfTaxAcrossPeriods() {
	suite.Require().NoError(suite.svc.Membership.SetSerf(suite.ctx, suite.serf, true))
	suite.Require().NoError(suite.svc.Membership.SetJob(suite.ctx, suite.serf, models.JobFarmer))

	loop := suite.serfTax(suite.svc.Tax)
	period := suite.cfg.Feudal.Tax.SerfDueInterval
	key := suite.serf.Key()

	// 首次只设置计时器
	suite.NoError(loop.Pass(suite.ctx))
	m, err := suite.svc.Membership.Member(suite.ctx, suite.serf)
	suite.Require().NoError(err)
	suite.Equal(suite.clock.NowMs()+period.Milliseconds(), m.NextDueAtMs)
	due, _ := suite.svc.Tax.Due(suite.ctx, key)
	suite.Equal(0, due)
	suite.Empty(suite.notifier.Messages(key))

	// 第一期无欠税，之后每期累计欠税，第三次未缴起税额翻倍
	for _, want := range []int{4, 8, 12, 20} {
		suite.clock.Advance(period)
		suite.NoError(loop.Pass(suite.ctx))
		due, _ = suite.svc.Tax.Due(suite.ctx, key)
		suite.Equal(want, due)
	}

	m, _ = suite.svc.Membership.Member(suite.ctx, suite.serf)
	suite.Equal(3, m.MissCount)
	suite.Len(suite.notifier.Messages(key), 4)

	// 冷却内不重复提醒
	suite.clock.Advance(time.Second)
	suite.NoError(loop.Pass(suite.ctx))
	suite.Len(suite.notifier.Messages(key), 4)
	due, _ = suite.svc.Tax.Due(suite.ctx, key)
	suite.Equal(20, due)

	// 非农奴不计税
	suite.Empty(suite.notifier.Messages(suite.king.Key()))
	due, _ = suite.svc.Tax.Due(suite.ctx, suite.king.Key())
	suite.Equal(0, due)
}

// 测试单个农奴计税失败不影响NPC农奴
func (suite *NPCTestSuite) TestSerfTaxFailureIsolation() {
	npcSerf := models.NPCSubject(7)
	fid := suite.family
	suite.Require().NoError(suite.svc.Membership.SetMember(suite.ctx, npcSerf, &fid, models.RankPeasant))
	suite.Require().NoError(suite.svc.Membership.SetSerf(suite.ctx, npcSerf, true))
	suite.Require().NoError(suite.svc.Membership.SetSerf(suite.ctx, suite.serf, true))

	serfs, err := suite.svc.Membership.Serfs(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal([]models.Subject{suite.serf, npcSerf}, serfs)

	loop := suite.serfTax(&failingTax{TaxService: suite.svc.Tax, failKey: suite.serf.Key()})
	suite.NoError(loop.Pass(suite.ctx))
	suite.clock.Advance(suite.cfg.Feudal.Tax.SerfDueInterval)
	suite.NoError(loop.Pass(suite.ctx))

	due, _ := suite.svc.Tax.Due(suite.ctx, npcSerf.Key())
	suite.Equal(suite.cfg.Feudal.Tax.DefaultBaseTax, due)
	due, _ = suite.svc.Tax.Due(suite.ctx, suite.serf.Key())
	suite.Equal(0, due)
	suite.Len(suite.notifier.Messages(npcSerf.Key()), 1)
}

// setupGuard 在领地中心放置持有武器的守卫
func (suite *NPCTestSuite) setupGuard(weapon string) *host.MemoryEntity {
	_, err := suite.svc.Territory.ClaimLand(suite.ctx, suite.king, "world", 0, 64, 0, 30)
	suite.Require().NoError(err)

	guard := suite.world.SpawnNPC(7, host.Location{World: "world", Y: 64}).SetMainHand(weapon)
	_, err = suite.traits.SetRole(suite.ctx, 7, models.RoleGuard)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.traits.SetFamily(suite.ctx, suite.king, 7, suite.family))
	return guard
}

// 测试警告宽限期内不攻击
func (suite *NPCTestSuite) TestGuardWarnsThenAttacks() {
	guard := suite.setupGuard("IRON_SWORD")
	intruder := models.PlayerSubject(uuid.NewString())
	suite.world.SpawnPlayer(intruder.ID, host.Location{World: "world", X: 2, Y: 64})

	loop := suite.guard()
	suite.NoError(loop.Pass(suite.ctx))

	suite.Equal(intruder.Key(), guard.NavigationTarget())
	suite.Len(suite.notifier.Messages(intruder.Key()), 1)
	suite.Empty(suite.world.Damages())

	// 宽限期内
	suite.clock.Advance(2 * time.Second)
	suite.NoError(loop.Pass(suite.ctx))
	suite.Empty(suite.world.Damages())

	suite.clock.Advance(1 * time.Second)
	suite.NoError(loop.Pass(suite.ctx))
	damages := suite.world.Damages()
	suite.Require().Len(damages, 1)
	suite.Equal(intruder.Key(), damages[0].Target)
	suite.InDelta(6.0, damages[0].Amount, 1e-9)

	// 近战冷却
	suite.clock.Advance(500 * time.Millisecond)
	suite.NoError(loop.Pass(suite.ctx))
	suite.Len(suite.world.Damages(), 1)

	suite.clock.Advance(700 * time.Millisecond)
	suite.NoError(loop.Pass(suite.ctx))
	suite.Len(suite.world.Damages(), 2)
}

// 测试不攻击本家族成员、管理员与领地外玩家
func (suite *NPCTestSuite) TestGuardIgnoresFriendlies() {
	suite.setupGuard("")
	suite.world.SpawnPlayer(suite.serf.ID, host.Location{World: "world", X: 1, Y: 64})
	suite.world.SpawnPlayer(uuid.NewString(), host.Location{World: "world", X: 1, Y: 64}).SetPrivileged(true)
	suite.world.SpawnPlayer(uuid.NewString(), host.Location{World: "world", X: 40, Y: 64})
	suite.world.SpawnPlayer(uuid.NewString(), host.Location{World: "world", X: 20, Y: 64})

	loop := suite.guard()
	for i := 0; i < 5; i++ {
		suite.NoError(loop.Pass(suite.ctx))
		suite.clock.Advance(4 * time.Second)
	}
	suite.Empty(suite.world.Damages())
}

// 测试领地关闭或守卫离开领地时不工作
func (suite *NPCTestSuite) TestGuardOutsideLand() {
	guard := suite.setupGuard("")
	intruder := models.PlayerSubject(uuid.NewString())
	suite.world.SpawnPlayer(intruder.ID, host.Location{World: "world", X: 1, Y: 64})

	guard.MoveTo(host.Location{World: "world", X: 100, Y: 64})
	loop := suite.guard()
	suite.NoError(loop.Pass(suite.ctx))
	suite.Empty(suite.notifier.Messages(intruder.Key()))

	guard.MoveTo(host.Location{World: "world", Y: 64})
	suite.Require().NoError(suite.svc.Territory.ToggleLand(suite.ctx, suite.king, false))
	suite.NoError(loop.Pass(suite.ctx))
	suite.Empty(suite.notifier.Messages(intruder.Key()))
}

// 测试弓箭守卫远程射击
func (suite *NPCTestSuite) TestGuardRanged() {
	suite.setupGuard(host.ItemBow)
	intruder := models.PlayerSubject(uuid.NewString())
	suite.world.SpawnPlayer(intruder.ID, host.Location{World: "world", X: 10, Y: 64})

	loop := suite.guard()
	suite.NoError(loop.Pass(suite.ctx))
	suite.clock.Advance(3 * time.Second)
	suite.NoError(loop.Pass(suite.ctx))

	shots := suite.world.Projectiles()
	suite.Require().Len(shots, 1)
	suite.InDelta(1.6, shots[0].Velocity.Length(), 1e-9)
	suite.Greater(shots[0].Velocity.X, 0.0)
	suite.Empty(suite.world.Damages())

	// 射击冷却
	suite.clock.Advance(time.Second)
	suite.NoError(loop.Pass(suite.ctx))
	suite.Len(suite.world.Projectiles(), 1)
}

// 测试武器伤害表
func (suite *NPCTestSuite) TestMeleeDamage() {
	suite.Equal(1.0, WeaponBase(""))
	suite.Equal(4.0, WeaponBase("GOLDEN_SWORD"))
	suite.Equal(10.0, WeaponBase("NETHERITE_AXE"))
	suite.Equal(8.0, WeaponBase("TRIDENT"))
	suite.Equal(2.0, WeaponBase("STICK"))

	suite.InDelta(6.0, MeleeDamage("IRON_SWORD", 0, false, 0.25), 1e-9)
	suite.InDelta(7.0, MeleeDamage("IRON_SWORD", 5, true, 0.25), 1e-9)
	suite.InDelta(1.0, MeleeDamage("", 0.5, true, 0.25), 1e-9)
	suite.True(IsRangedWeapon(host.ItemCrossbow))
	suite.False(IsRangedWeapon("IRON_SWORD"))
}

// setupFarmer 放置农奴农夫
func (suite *NPCTestSuite) setupFarmer() *host.MemoryEntity {
	farmer := suite.world.SpawnNPC(3, host.Location{World: "world", X: 0.5, Y: 65, Z: 0.5})
	_, err := suite.traits.SetRole(suite.ctx, 3, models.RoleFarmer)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.traits.SetFamily(suite.ctx, suite.king, 3, suite.family))
	suite.Require().NoError(suite.traits.SetSerf(suite.ctx, suite.king, 3, true))
	return farmer
}

// 测试收割与补种
func (suite *NPCTestSuite) TestFarmerHarvestAndReplant() {
	farmer := suite.setupFarmer()

	// 下方一格是耕地，作物在NPC脚下一层
	suite.world.SetBlock("world", 1, 64, 0, host.Block{Type: host.BlockFarmland})
	suite.world.SetBlock("world", 1, 65, 0, host.Block{Type: host.BlockWheat, Age: 7, MaxAge: 7})
	// 当前层即耕地，作物在上一层
	suite.world.SetBlock("world", 2, 65, 0, host.Block{Type: host.BlockFarmland})
	suite.world.SetBlock("world", 2, 66, 0, host.Block{Type: host.BlockCarrots, Age: 3, MaxAge: 7})
	// 空耕地
	suite.world.SetBlock("world", 3, 64, 0, host.Block{Type: host.BlockFarmland})

	loop := suite.farmer(fixedRand{n: 2})
	suite.NoError(loop.Pass(suite.ctx))

	inv := farmer.Inventory()
	suite.Equal(1, inv.Count(host.ItemWheat))
	// 收获2颗种子，补种与空地各用掉1颗
	suite.Equal(0, inv.Count(host.ItemWheatSeeds))

	replanted := suite.world.BlockAt("world", 1, 65, 0)
	suite.Equal(host.BlockWheat, replanted.Type)
	suite.Equal(0, replanted.Age)
	planted := suite.world.BlockAt("world", 3, 65, 0)
	suite.Equal(host.BlockWheat, planted.Type)

	// 未成熟作物保持不动
	suite.Equal(3, suite.world.BlockAt("world", 2, 66, 0).Age)

	trait, _ := suite.svc.Traits.Get(suite.ctx, 3)
	suite.Equal(suite.clock.NowMs()+5000, trait.NextFarmAtMs)
}

// 测试未到周期不耕作且无种子时不补种
func (suite *NPCTestSuite) TestFarmerWithoutSeeds() {
	farmer := suite.setupFarmer()
	suite.world.SetBlock("world", 1, 64, 0, host.Block{Type: host.BlockFarmland})
	suite.world.SetBlock("world", 1, 65, 0, host.Block{Type: host.BlockPotatoes, Age: 7, MaxAge: 7})

	loop := suite.farmer(fixedRand{n: 0})
	suite.NoError(loop.Pass(suite.ctx))

	inv := farmer.Inventory()
	// 收获1个土豆并有毒土豆，补种消耗1个土豆
	suite.Equal(0, inv.Count(host.ItemPotato))
	suite.Equal(1, inv.Count(host.ItemPoisonousPotato))
	suite.Equal(host.BlockPotatoes, suite.world.BlockAt("world", 1, 65, 0).Type)

	// 小麦不产种子时无法补种
	suite.world.SetBlock("world", 1, 65, 0, host.Block{Type: host.BlockWheat, Age: 7, MaxAge: 7})
	suite.clock.Advance(time.Second)
	suite.NoError(loop.Pass(suite.ctx))
	suite.Equal(0, inv.Count(host.ItemWheat))

	suite.clock.Advance(4 * time.Second)
	suite.NoError(loop.Pass(suite.ctx))
	suite.Equal(1, inv.Count(host.ItemWheat))
	suite.Equal(host.BlockAir, suite.world.BlockAt("world", 1, 65, 0).Type)
}

// 测试非农奴NPC不耕作
func (suite *NPCTestSuite) TestFarmerRequiresSerf() {
	farmer := suite.world.SpawnNPC(4, host.Location{World: "world", Y: 65})
	_, err := suite.traits.SetRole(suite.ctx, 4, models.RoleFarmer)
	suite.Require().NoError(err)
	farmer.Inventory().Add(host.ItemStack{Type: host.ItemWheatSeeds, Amount: 5})
	suite.world.SetBlock("world", 1, 64, 0, host.Block{Type: host.BlockFarmland})

	suite.NoError(suite.farmer(fixedRand{}).Pass(suite.ctx))
	suite.Equal(host.BlockAir, suite.world.BlockAt("world", 1, 65, 0).Type)
	suite.Equal(5, farmer.Inventory().Count(host.ItemWheatSeeds))
}

// 测试产量表
func (suite *NPCTestSuite) TestHarvestYield() {
	out := HarvestYield(host.BlockBeetroots, fixedRand{n: 0})
	suite.Equal([]host.ItemStack{{Type: host.ItemBeetroot, Amount: 1}}, out)

	out = HarvestYield(host.BlockCarrots, fixedRand{n: 5})
	suite.Equal([]host.ItemStack{{Type: host.ItemCarrot, Amount: 3}}, out)

	suite.Empty(HarvestYield("MELON", fixedRand{}))

	seed, ok := SeedOf(host.BlockPotatoes)
	suite.True(ok)
	suite.Equal(host.ItemPotato, seed)
}

// panicLoop 每次执行都panic
type panicLoop struct{ runs int }

func (l *panicLoop) Name() string { return "panic" }
func (l *panicLoop) Pass(ctx context.Context) error {
	l.runs++
	panic("boom")
}

// countLoop 记录执行次数
type countLoop struct{ runs chan struct{} }

func (l *countLoop) Name() string { return "count" }
func (l *countLoop) Pass(ctx context.Context) error {
	select {
	case l.runs <- struct{}{}:
	default:
	}
	return nil
}

// 测试调度器恢复panic并响应取消
func (suite *NPCTestSuite) TestScheduler() {
	s := NewScheduler(noop.NewTracerProvider().Tracer("test"), zap.NewNop())

	p := &panicLoop{}
	suite.NotPanics(func() { s.RunOnce(suite.ctx, p) })
	suite.Equal(1, p.runs)

	c := &countLoop{runs: make(chan struct{}, 1)}
	s.Register(c, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(suite.ctx)
	s.Start(ctx)

	select {
	case <-c.runs:
	case <-time.After(2 * time.Second):
		suite.Fail("循环未执行")
	}
	cancel()
	s.Wait()
}

// 测试单个处理panic转换为错误
func (suite *NPCTestSuite) TestGuardedRecoversPanic() {
	err := guarded(func() error { panic("boom") })
	suite.Require().Error(err)
	suite.Equal("panic: boom", err.Error())

	suite.NoError(guarded(func() error { return nil }))
}

func TestNPCSuite(t *testing.T) {
	suite.Run(t, new(NPCTestSuite))
}
