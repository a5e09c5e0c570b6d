// Package merchant 商人NPC的商店目录与购买
package merchant

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/wfunc/feudal-economy/internal/host"
	"gopkg.in/yaml.v3"
)

//go:embed shops.schema.json
var shopsSchema string

// 商店格数范围
const (
	MinShopSize = 9
	MaxShopSize = 54
)

// Item 商品
type Item struct {
	Slot  int            `yaml:"slot" json:"slot"`
	Price int            `yaml:"price" json:"price"`
	Item  host.ItemStack `yaml:"item" json:"item"`
}

// Shop 商店
type Shop struct {
	NPCID int64  `yaml:"-" json:"npc_id"`
	Title string `yaml:"title" json:"title"`
	Size  int    `yaml:"size" json:"size"`
	Items []Item `yaml:"items" json:"items"`
}

// Find 按格子查找商品
func (s *Shop) Find(slot int) (Item, bool) {
	for _, it := range s.Items {
		if it.Slot == slot {
			return it, true
		}
	}
	return Item{}, false
}

// NormalizeSize 限制在9到54之间并取9的倍数
func NormalizeSize(size int) int {
	size = max(MinShopSize, min(MaxShopSize, size))
	return (size + 8) / 9 * 9
}

// validItem 格子越界、价格非正或空物品的商品会被忽略
func validItem(it Item) bool {
	if it.Slot < 0 || it.Slot >= MaxShopSize {
		return false
	}
	if it.Price <= 0 {
		return false
	}
	return it.Item.Type != "" && it.Item.Type != host.ItemAir
}

func shopKey(npcID int64) string {
	return "npc-" + strconv.FormatInt(npcID, 10)
}

// Catalog 商店目录，从YAML文件加载
type Catalog struct {
	mu     sync.RWMutex
	path   string
	shops  map[string]*Shop
	schema *jsonschema.Schema
}

// NewCatalog 创建目录并加载文件，文件不存在时为空目录
func NewCatalog(path string) (*Catalog, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("shops.schema.json", strings.NewReader(shopsSchema)); err != nil {
		return nil, fmt.Errorf("加载商店schema失败: %w", err)
	}
	schema, err := compiler.Compile("shops.schema.json")
	if err != nil {
		return nil, fmt.Errorf("编译商店schema失败: %w", err)
	}

	c := &Catalog{path: path, shops: make(map[string]*Shop), schema: schema}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload 重新读取文件
func (c *Catalog) Reload() error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.mu.Lock()
			c.shops = make(map[string]*Shop)
			c.mu.Unlock()
			return nil
		}
		return fmt.Errorf("读取商店文件失败: %w", err)
	}

	shops, err := c.parse(raw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.shops = shops
	c.mu.Unlock()
	return nil
}

// parse 校验并解析YAML文档
func (c *Catalog) parse(raw []byte) (map[string]*Shop, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("shops.yaml: %w", err)
	}
	if doc == nil {
		return make(map[string]*Shop), nil
	}

	// 转成JSON值后再按schema校验
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("shops.yaml: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("shops.yaml: %w", err)
	}
	if err := c.schema.Validate(value); err != nil {
		return nil, fmt.Errorf("shops.yaml 校验失败: %w", err)
	}

	var parsed map[string]*Shop
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("shops.yaml: %w", err)
	}

	shops := make(map[string]*Shop, len(parsed))
	for key, shop := range parsed {
		if shop == nil {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(key, "npc-"), 10, 64)
		if err != nil {
			continue
		}
		shop.NPCID = id
		shops[key] = shop
	}
	return shops, nil
}

// Shop 商店视图：已修正格数并过滤无效商品
func (c *Catalog) Shop(npcID int64) *Shop {
	c.mu.RLock()
	stored := c.shops[shopKey(npcID)]
	c.mu.RUnlock()

	view := &Shop{NPCID: npcID, Title: fmt.Sprintf("商人 #%d", npcID), Size: MaxShopSize}
	if stored == nil {
		return view
	}
	if stored.Title != "" {
		view.Title = stored.Title
	}
	if stored.Size != 0 {
		view.Size = NormalizeSize(stored.Size)
	}

	bySlot := make(map[int]Item)
	for _, it := range stored.Items {
		if !validItem(it) {
			continue
		}
		if it.Item.Amount <= 0 {
			it.Item.Amount = 1
		}
		bySlot[it.Slot] = it
	}
	for _, it := range bySlot {
		view.Items = append(view.Items, it)
	}
	sort.Slice(view.Items, func(i, j int) bool { return view.Items[i].Slot < view.Items[j].Slot })
	return view
}

// Save 覆盖一个商店并写回文件，只保存格数范围内的有效商品
func (c *Catalog) Save(shop *Shop) error {
	size := NormalizeSize(shop.Size)
	saved := &Shop{NPCID: shop.NPCID, Title: shop.Title, Size: size}
	for _, it := range shop.Items {
		if validItem(it) && it.Slot < size {
			saved.Items = append(saved.Items, it)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string]*Shop, len(c.shops)+1)
	for k, v := range c.shops {
		next[k] = v
	}
	next[shopKey(shop.NPCID)] = saved

	out, err := yaml.Marshal(next)
	if err != nil {
		return fmt.Errorf("序列化商店失败: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建商店目录失败: %w", err)
		}
	}
	if err := os.WriteFile(c.path, out, 0o644); err != nil {
		return fmt.Errorf("写入商店文件失败: %w", err)
	}

	c.shops = next
	return nil
}
