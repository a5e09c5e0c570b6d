package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/feudal-economy/internal/models"
)

func TestMemoryInventory(t *testing.T) {
	inv := NewMemoryInventory(2)

	assert.Empty(t, inv.Add(ItemStack{Type: ItemEmerald, Amount: 70}))
	assert.Equal(t, 70, inv.Count(ItemEmerald))

	// 两格背包已满，剩余部分溢出
	over := inv.Add(ItemStack{Type: ItemEmerald, Amount: 60})
	require.Len(t, over, 1)
	assert.Equal(t, 2, over[0].Amount)
	assert.Equal(t, 128, inv.Count(ItemEmerald))

	over = inv.Add(ItemStack{Type: ItemWheat, Amount: 1})
	require.Len(t, over, 1)
	assert.Equal(t, 1, over[0].Amount)

	assert.Equal(t, 100, inv.Remove(ItemEmerald, 100))
	assert.Equal(t, 28, inv.Count(ItemEmerald))
	assert.Equal(t, 28, inv.Remove(ItemEmerald, 100))
	assert.Equal(t, 0, inv.Count(ItemEmerald))
}

func TestMemoryWorldLookup(t *testing.T) {
	w := NewMemoryWorld()
	at := Location{World: "world"}

	p := w.SpawnPlayer("p1", at)
	w.SpawnNPC(3, at)
	w.SpawnPlayer("p2", Location{World: "nether"})

	_, ok := w.Player("p1")
	assert.True(t, ok)
	_, ok = w.Lookup(models.NPCSubject(3))
	assert.True(t, ok)
	assert.Len(t, w.Players("world"), 1)

	p.SetOnline(false)
	_, ok = w.Player("p1")
	assert.False(t, ok)
	assert.Empty(t, w.Players("world"))

	w.Despawn(models.NPCSubject(3))
	_, ok = w.NPC(3)
	assert.False(t, ok)
}

func TestMemoryWorldBlocksAndEvents(t *testing.T) {
	w := NewMemoryWorld()
	assert.Equal(t, BlockAir, w.BlockAt("world", 1, 2, 3).Type)

	w.SetBlock("world", 1, 2, 3, Block{Type: BlockWheat, Age: 7, MaxAge: 7})
	assert.Equal(t, 7, w.BlockAt("world", 1, 2, 3).Age)
	w.SetBlock("world", 1, 2, 3, Block{Type: BlockAir})
	assert.Equal(t, BlockAir, w.BlockAt("world", 1, 2, 3).Type)

	guard := w.SpawnNPC(1, Location{World: "world"})
	target := w.SpawnPlayer("p1", Location{World: "world", X: 1})
	w.Damage(target, 4.5, guard)
	require.Len(t, w.Damages(), 1)
	assert.Equal(t, "npc:1", w.Damages()[0].Source)
	assert.Equal(t, "p1", w.Damages()[0].Target)

	inv := NewMemoryInventory(1)
	full := NewMemoryEntity(models.PlayerSubject("p3"), Location{World: "world"})
	full.inventory = inv
	GiveOrDrop(w, full, ItemStack{Type: ItemWheat, Amount: 65})
	require.Len(t, w.Drops(), 1)
	assert.Equal(t, 1, w.Drops()[0].Stack.Amount)
}

func TestMemoryNotifier(t *testing.T) {
	n := NewMemoryNotifier()
	var notifier Notifier = n
	notifier.Notify("p1", "hello")
	assert.Equal(t, []string{"hello"}, n.Messages("p1"))
	assert.Empty(t, n.Messages("p2"))
}
