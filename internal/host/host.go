// Package host 定义引擎依赖的宿主世界能力
package host

import (
	"math"

	"github.com/wfunc/feudal-economy/internal/models"
)

// 常用物品与方块
const (
	ItemAir             = "AIR"
	ItemEmerald         = "EMERALD"
	ItemBow             = "BOW"
	ItemCrossbow        = "CROSSBOW"
	ItemWheat           = "WHEAT"
	ItemWheatSeeds      = "WHEAT_SEEDS"
	ItemCarrot          = "CARROT"
	ItemPotato          = "POTATO"
	ItemPoisonousPotato = "POISONOUS_POTATO"
	ItemBeetroot        = "BEETROOT"
	ItemBeetrootSeeds   = "BEETROOT_SEEDS"

	BlockAir       = "AIR"
	BlockFarmland  = "FARMLAND"
	BlockWheat     = "WHEAT"
	BlockCarrots   = "CARROTS"
	BlockPotatoes  = "POTATOES"
	BlockBeetroots = "BEETROOTS"
)

// Location 世界坐标
type Location struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// BlockX 所在方块X
func (l Location) BlockX() int { return int(math.Floor(l.X)) }

// BlockY 所在方块Y
func (l Location) BlockY() int { return int(math.Floor(l.Y)) }

// BlockZ 所在方块Z
func (l Location) BlockZ() int { return int(math.Floor(l.Z)) }

// DistanceSquared 三维距离平方
func (l Location) DistanceSquared(o Location) float64 {
	dx, dy, dz := l.X-o.X, l.Y-o.Y, l.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// Add 偏移
func (l Location) Add(dx, dy, dz float64) Location {
	return Location{World: l.World, X: l.X + dx, Y: l.Y + dy, Z: l.Z + dz}
}

// Vector 速度向量
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Length 长度
func (v Vector) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// ItemStack 物品堆
type ItemStack struct {
	Type   string `json:"type" yaml:"type"`
	Amount int    `json:"amount" yaml:"amount"`
}

// Block 方块状态，作物用Age/MaxAge表示成熟度
type Block struct {
	Type   string `json:"type"`
	Age    int    `json:"age"`
	MaxAge int    `json:"max_age"`
}

// Inventory 实体背包
type Inventory interface {
	// Count 统计物品数量
	Count(item string) int
	// Add 放入物品，返回放不下的部分
	Add(stack ItemStack) []ItemStack
	// Remove 取出至多amount个物品，返回实际取出数量
	Remove(item string, amount int) int
}

// Entity 宿主中的实体（玩家或NPC）
type Entity interface {
	Subject() models.Subject
	Location() Location
	EyeLocation() Location
	Alive() bool
	Online() bool
	// Privileged 是否拥有管理豁免
	Privileged() bool
	Inventory() Inventory
	// MainHand 主手物品类型，空手为空字符串
	MainHand() string
	// AttackAttribute 攻击力属性，不存在时返回false
	AttackAttribute() (float64, bool)
	SetNavigationTarget(target Entity)
}

// World 宿主世界
type World interface {
	// Players 指定世界内的在线玩家
	Players(world string) []Entity
	// Player 按UUID查找在线玩家
	Player(id string) (Entity, bool)
	// NPC 按编号查找已生成的NPC
	NPC(id int64) (Entity, bool)
	// Lookup 按身份查找在线实体
	Lookup(subject models.Subject) (Entity, bool)

	BlockAt(world string, x, y, z int) Block
	SetBlock(world string, x, y, z int, block Block)

	DropItem(at Location, stack ItemStack)
	LaunchProjectile(shooter Entity, velocity Vector)
	Damage(target Entity, amount float64, source Entity)
}

// Notifier 向身份发送文本消息，不可达时静默忽略
type Notifier interface {
	Notify(identity string, message string)
}

// NotifierFunc 函数适配
type NotifierFunc func(identity, message string)

// Notify 实现Notifier
func (f NotifierFunc) Notify(identity, message string) { f(identity, message) }

// GiveOrDrop 放入背包，溢出部分掉落在实体脚下
func GiveOrDrop(w World, e Entity, stack ItemStack) {
	if stack.Amount <= 0 || stack.Type == "" || stack.Type == ItemAir {
		return
	}
	for _, left := range e.Inventory().Add(stack) {
		if left.Amount > 0 {
			w.DropItem(e.Location(), left)
		}
	}
}
