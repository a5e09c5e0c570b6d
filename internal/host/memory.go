package host

import (
	"fmt"
	"sync"

	"github.com/wfunc/feudal-economy/internal/models"
)

// 背包默认容量
const (
	DefaultInventorySlots = 36
	DefaultMaxStack       = 64
)

// MemoryInventory 内存背包
type MemoryInventory struct {
	mu       sync.Mutex
	slots    []ItemStack
	maxStack int
}

// NewMemoryInventory 创建内存背包
func NewMemoryInventory(slots int) *MemoryInventory {
	if slots <= 0 {
		slots = DefaultInventorySlots
	}
	return &MemoryInventory{slots: make([]ItemStack, slots), maxStack: DefaultMaxStack}
}

// Count 统计物品数量
func (inv *MemoryInventory) Count(item string) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	total := 0
	for _, s := range inv.slots {
		if s.Type == item {
			total += s.Amount
		}
	}
	return total
}

// Add 放入物品，先叠加已有堆再占用空位
func (inv *MemoryInventory) Add(stack ItemStack) []ItemStack {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	left := stack.Amount
	for i := range inv.slots {
		if left == 0 {
			break
		}
		s := &inv.slots[i]
		if s.Type == stack.Type && s.Amount < inv.maxStack {
			n := min(inv.maxStack-s.Amount, left)
			s.Amount += n
			left -= n
		}
	}
	for i := range inv.slots {
		if left == 0 {
			break
		}
		s := &inv.slots[i]
		if s.Amount == 0 {
			n := min(inv.maxStack, left)
			*s = ItemStack{Type: stack.Type, Amount: n}
			left -= n
		}
	}

	if left > 0 {
		return []ItemStack{{Type: stack.Type, Amount: left}}
	}
	return nil
}

// Remove 取出物品
func (inv *MemoryInventory) Remove(item string, amount int) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	taken := 0
	for i := range inv.slots {
		if taken >= amount {
			break
		}
		s := &inv.slots[i]
		if s.Type != item {
			continue
		}
		n := min(s.Amount, amount-taken)
		s.Amount -= n
		taken += n
		if s.Amount == 0 {
			*s = ItemStack{}
		}
	}
	return taken
}

// MemoryEntity 内存实体
type MemoryEntity struct {
	mu         sync.RWMutex
	subject    models.Subject
	location   Location
	alive      bool
	online     bool
	privileged bool
	mainHand   string
	attack     *float64
	inventory  *MemoryInventory
	navTarget  string
}

// NewMemoryEntity 创建在线且存活的实体
func NewMemoryEntity(subject models.Subject, at Location) *MemoryEntity {
	return &MemoryEntity{
		subject:   subject,
		location:  at,
		alive:     true,
		online:    true,
		inventory: NewMemoryInventory(DefaultInventorySlots),
	}
}

// Subject 身份
func (e *MemoryEntity) Subject() models.Subject { return e.subject }

// Location 位置
func (e *MemoryEntity) Location() Location {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.location
}

// EyeLocation 眼睛位置
func (e *MemoryEntity) EyeLocation() Location {
	return e.Location().Add(0, 1.62, 0)
}

// Alive 是否存活
func (e *MemoryEntity) Alive() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.alive
}

// Online 是否在线
func (e *MemoryEntity) Online() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.online
}

// Privileged 是否拥有管理豁免
func (e *MemoryEntity) Privileged() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.privileged
}

// Inventory 背包
func (e *MemoryEntity) Inventory() Inventory { return e.inventory }

// MainHand 主手物品
func (e *MemoryEntity) MainHand() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mainHand
}

// AttackAttribute 攻击力属性
func (e *MemoryEntity) AttackAttribute() (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.attack == nil {
		return 0, false
	}
	return *e.attack, true
}

// SetNavigationTarget 设置寻路目标
func (e *MemoryEntity) SetNavigationTarget(target Entity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if target == nil {
		e.navTarget = ""
		return
	}
	e.navTarget = target.Subject().Key()
}

// NavigationTarget 当前寻路目标身份键
func (e *MemoryEntity) NavigationTarget() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.navTarget
}

// MoveTo 移动
func (e *MemoryEntity) MoveTo(at Location) *MemoryEntity {
	e.mu.Lock()
	e.location = at
	e.mu.Unlock()
	return e
}

// SetAlive 设置存活
func (e *MemoryEntity) SetAlive(alive bool) *MemoryEntity {
	e.mu.Lock()
	e.alive = alive
	e.mu.Unlock()
	return e
}

// SetOnline 设置在线
func (e *MemoryEntity) SetOnline(online bool) *MemoryEntity {
	e.mu.Lock()
	e.online = online
	e.mu.Unlock()
	return e
}

// SetPrivileged 设置管理豁免
func (e *MemoryEntity) SetPrivileged(privileged bool) *MemoryEntity {
	e.mu.Lock()
	e.privileged = privileged
	e.mu.Unlock()
	return e
}

// SetMainHand 设置主手物品
func (e *MemoryEntity) SetMainHand(item string) *MemoryEntity {
	e.mu.Lock()
	e.mainHand = item
	e.mu.Unlock()
	return e
}

// SetAttackAttribute 设置攻击力属性
func (e *MemoryEntity) SetAttackAttribute(v float64) *MemoryEntity {
	e.mu.Lock()
	e.attack = &v
	e.mu.Unlock()
	return e
}

// DamageEvent 伤害记录
type DamageEvent struct {
	Target string
	Source string
	Amount float64
}

// ProjectileEvent 弹射物记录
type ProjectileEvent struct {
	Shooter  string
	From     Location
	Velocity Vector
}

// DropEvent 掉落记录
type DropEvent struct {
	At    Location
	Stack ItemStack
}

type blockKey struct {
	world   string
	x, y, z int
}

// MemoryWorld 并发安全的内存宿主世界
type MemoryWorld struct {
	mu          sync.RWMutex
	players     map[string]*MemoryEntity
	npcs        map[int64]*MemoryEntity
	blocks      map[blockKey]Block
	damages     []DamageEvent
	projectiles []ProjectileEvent
	drops       []DropEvent
}

// NewMemoryWorld 创建内存世界
func NewMemoryWorld() *MemoryWorld {
	return &MemoryWorld{
		players: make(map[string]*MemoryEntity),
		npcs:    make(map[int64]*MemoryEntity),
		blocks:  make(map[blockKey]Block),
	}
}

// Spawn 放入实体，同一身份会被覆盖
func (w *MemoryWorld) Spawn(e *MemoryEntity) *MemoryEntity {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e.subject.IsNPC() {
		w.npcs[e.subject.NPCID()] = e
	} else {
		w.players[e.subject.ID] = e
	}
	return e
}

// SpawnPlayer 放入玩家
func (w *MemoryWorld) SpawnPlayer(id string, at Location) *MemoryEntity {
	return w.Spawn(NewMemoryEntity(models.PlayerSubject(id), at))
}

// SpawnNPC 放入NPC
func (w *MemoryWorld) SpawnNPC(id int64, at Location) *MemoryEntity {
	return w.Spawn(NewMemoryEntity(models.NPCSubject(id), at))
}

// Despawn 移除实体
func (w *MemoryWorld) Despawn(subject models.Subject) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if subject.IsNPC() {
		delete(w.npcs, subject.NPCID())
	} else {
		delete(w.players, subject.ID)
	}
}

// Players 指定世界内的在线玩家
func (w *MemoryWorld) Players(world string) []Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []Entity
	for _, p := range w.players {
		if p.Online() && p.Location().World == world {
			out = append(out, p)
		}
	}
	return out
}

// Player 按UUID查找在线玩家
func (w *MemoryWorld) Player(id string) (Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.players[id]
	if !ok || !p.Online() {
		return nil, false
	}
	return p, true
}

// NPC 按编号查找NPC
func (w *MemoryWorld) NPC(id int64) (Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n, ok := w.npcs[id]
	if !ok {
		return nil, false
	}
	return n, true
}

// Lookup 按身份查找在线实体
func (w *MemoryWorld) Lookup(subject models.Subject) (Entity, bool) {
	if subject.IsNPC() {
		return w.NPC(subject.NPCID())
	}
	return w.Player(subject.ID)
}

// BlockAt 读取方块，未设置为空气
func (w *MemoryWorld) BlockAt(world string, x, y, z int) Block {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if b, ok := w.blocks[blockKey{world, x, y, z}]; ok {
		return b
	}
	return Block{Type: BlockAir}
}

// SetBlock 写入方块
func (w *MemoryWorld) SetBlock(world string, x, y, z int, block Block) {
	w.mu.Lock()
	defer w.mu.Unlock()
	k := blockKey{world, x, y, z}
	if block.Type == "" || block.Type == BlockAir {
		delete(w.blocks, k)
		return
	}
	w.blocks[k] = block
}

// DropItem 掉落物品
func (w *MemoryWorld) DropItem(at Location, stack ItemStack) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drops = append(w.drops, DropEvent{At: at, Stack: stack})
}

// LaunchProjectile 发射弹射物
func (w *MemoryWorld) LaunchProjectile(shooter Entity, velocity Vector) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.projectiles = append(w.projectiles, ProjectileEvent{
		Shooter:  shooter.Subject().Key(),
		From:     shooter.EyeLocation(),
		Velocity: velocity,
	})
}

// Damage 造成伤害
func (w *MemoryWorld) Damage(target Entity, amount float64, source Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ev := DamageEvent{Target: target.Subject().Key(), Amount: amount}
	if source != nil {
		ev.Source = source.Subject().Key()
	}
	w.damages = append(w.damages, ev)
}

// Damages 伤害记录
func (w *MemoryWorld) Damages() []DamageEvent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]DamageEvent(nil), w.damages...)
}

// Projectiles 弹射物记录
func (w *MemoryWorld) Projectiles() []ProjectileEvent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]ProjectileEvent(nil), w.projectiles...)
}

// Drops 掉落记录
func (w *MemoryWorld) Drops() []DropEvent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]DropEvent(nil), w.drops...)
}

// String 调试输出
func (w *MemoryWorld) String() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return fmt.Sprintf("MemoryWorld{players=%d npcs=%d blocks=%d}", len(w.players), len(w.npcs), len(w.blocks))
}

// MemoryNotifier 记录消息的通知器
type MemoryNotifier struct {
	mu       sync.Mutex
	messages map[string][]string
}

// NewMemoryNotifier 创建记录型通知器
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{messages: make(map[string][]string)}
}

// Notify 记录消息
func (n *MemoryNotifier) Notify(identity, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages[identity] = append(n.messages[identity], message)
}

// Messages 某身份收到的消息
func (n *MemoryNotifier) Messages(identity string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages[identity]...)
}
