package npc

import (
	"context"
	"math/rand/v2"

	"github.com/wfunc/feudal-economy/internal/config"
	"github.com/wfunc/feudal-economy/internal/host"
	"github.com/wfunc/feudal-economy/internal/models"
	"github.com/wfunc/feudal-economy/internal/repository"
	"github.com/wfunc/feudal-economy/internal/service"
	"github.com/wfunc/feudal-economy/internal/utils"
	"go.uber.org/zap"
)

// Rand 随机数来源
type Rand interface {
	// IntN 返回[0,n)内的随机数
	IntN(n int) int
}

// crop 作物定义
type crop struct {
	seed   string
	maxAge int
}

var crops = map[string]crop{
	host.BlockWheat:     {seed: host.ItemWheatSeeds, maxAge: 7},
	host.BlockCarrots:   {seed: host.ItemCarrot, maxAge: 7},
	host.BlockPotatoes:  {seed: host.ItemPotato, maxAge: 7},
	host.BlockBeetroots: {seed: host.ItemBeetrootSeeds, maxAge: 3},
}

// SeedOf 作物对应的种子物品
func SeedOf(cropType string) (string, bool) {
	c, ok := crops[cropType]
	return c.seed, ok
}

// HarvestYield 按作物产出收获物
func HarvestYield(cropType string, r Rand) []host.ItemStack {
	var out []host.ItemStack
	add := func(item string, n int) {
		if n > 0 {
			out = append(out, host.ItemStack{Type: item, Amount: n})
		}
	}

	switch cropType {
	case host.BlockWheat:
		add(host.ItemWheat, 1)
		add(host.ItemWheatSeeds, r.IntN(3))
	case host.BlockCarrots:
		add(host.ItemCarrot, 1+r.IntN(3))
	case host.BlockPotatoes:
		add(host.ItemPotato, 1+r.IntN(3))
		if r.IntN(20) == 0 {
			add(host.ItemPoisonousPotato, 1)
		}
	case host.BlockBeetroots:
		add(host.ItemBeetroot, 1)
		add(host.ItemBeetrootSeeds, r.IntN(3))
	}
	return out
}

// FarmerLoop 农夫循环：农奴NPC收割周围成熟作物并补种
type FarmerLoop struct {
	traits     repository.NPCTraitRepository
	membership service.MembershipService
	world      host.World
	clock      utils.Clock
	rand       Rand
	cfg        config.FarmConfig
	log        *zap.Logger
}

// NewFarmerLoop 创建农夫循环，r为nil时使用默认随机源
func NewFarmerLoop(
	traits repository.NPCTraitRepository,
	membership service.MembershipService,
	world host.World,
	clock utils.Clock,
	r Rand,
	cfg config.FarmConfig,
	log *zap.Logger,
) *FarmerLoop {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &FarmerLoop{
		traits:     traits,
		membership: membership,
		world:      world,
		clock:      clock,
		rand:       r,
		cfg:        cfg,
		log:        log,
	}
}

// Name 循环名称
func (l *FarmerLoop) Name() string { return "farmer" }

// Pass 执行一轮耕作检查
func (l *FarmerLoop) Pass(ctx context.Context) error {
	now := l.clock.NowMs()

	farmers, err := l.traits.ListByRole(ctx, models.RoleFarmer)
	if err != nil {
		return err
	}

	for _, trait := range farmers {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		entity, ok := l.world.NPC(trait.NPCID)
		if !ok {
			continue
		}

		serf, err := l.membership.IsSerf(ctx, models.NPCSubject(trait.NPCID))
		if err != nil || !serf {
			continue
		}

		// 首次观察到时立即耕作
		next := trait.NextFarmAtMs
		if next <= 0 {
			next = now
		}
		if now < next {
			continue
		}

		if err := guarded(func() error { return l.farmAround(entity) }); err != nil {
			l.log.Warn("[Farmer] 耕作失败", zap.Int64("npc_id", trait.NPCID), zap.Error(err))
		}

		interval := intervalOr(trait.FarmIntervalMs, l.cfg.DefaultInterval)
		if err := l.traits.UpdateFields(ctx, trait.NPCID, map[string]interface{}{"next_farm_at_ms": now + interval}); err != nil {
			l.log.Error("[Farmer] 更新耕作时间失败", zap.Int64("npc_id", trait.NPCID), zap.Error(err))
		}
	}
	return nil
}

// farmAround 扫描以NPC为中心的方形区域
func (l *FarmerLoop) farmAround(farmer host.Entity) error {
	at := farmer.Location()
	world := at.World
	cx, cy, cz := at.BlockX(), at.BlockY(), at.BlockZ()
	r := l.cfg.Radius

	for dx := -r; dx <= r; dx++ {
		for dz := -r; dz <= r; dz++ {
			x, z := cx+dx, cz+dz

			// 耕地在当前格或下方一格
			cropY := cy
			if l.world.BlockAt(world, x, cy, z).Type == host.BlockFarmland {
				cropY = cy + 1
			} else if l.world.BlockAt(world, x, cy-1, z).Type != host.BlockFarmland {
				continue
			}

			block := l.world.BlockAt(world, x, cropY, z)
			if _, ok := crops[block.Type]; ok {
				if block.Age >= block.MaxAge {
					l.harvest(farmer, world, x, cropY, z, block.Type)
				}
				continue
			}
			if block.Type == host.BlockAir || block.Type == "" {
				l.plant(farmer, world, x, cropY, z, host.BlockWheat)
			}
		}
	}
	return nil
}

// harvest 收割并尝试补种同一作物
func (l *FarmerLoop) harvest(farmer host.Entity, world string, x, y, z int, cropType string) {
	for _, stack := range HarvestYield(cropType, l.rand) {
		host.GiveOrDrop(l.world, farmer, stack)
	}
	l.world.SetBlock(world, x, y, z, host.Block{Type: host.BlockAir})
	l.plant(farmer, world, x, y, z, cropType)
}

// plant 消耗一个种子种下作物，没有种子时不种
func (l *FarmerLoop) plant(farmer host.Entity, world string, x, y, z int, cropType string) {
	c, ok := crops[cropType]
	if !ok {
		return
	}
	if farmer.Inventory().Remove(c.seed, 1) != 1 {
		return
	}
	l.world.SetBlock(world, x, y, z, host.Block{Type: cropType, Age: 0, MaxAge: c.maxAge})
}
