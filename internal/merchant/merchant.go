package merchant

import (
	"fmt"

	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/host"
	"github.com/wfunc/feudal-economy/internal/models"
	"go.uber.org/zap"
)

// Receipt 购买结果
type Receipt struct {
	NPCID    int64          `json:"npc_id"`
	Slot     int            `json:"slot"`
	Price    int            `json:"price"`
	Currency string         `json:"currency"`
	Item     host.ItemStack `json:"item"`
}

// Service 商人服务
type Service struct {
	catalog  *Catalog
	world    host.World
	notifier host.Notifier
	currency string
	log      *zap.Logger
}

// NewService 创建商人服务，currency为空时使用绿宝石
func NewService(catalog *Catalog, world host.World, notifier host.Notifier, currency string, log *zap.Logger) *Service {
	if currency == "" {
		currency = host.ItemEmerald
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{catalog: catalog, world: world, notifier: notifier, currency: currency, log: log}
}

// Catalog 商店目录
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Shop 商店视图
func (s *Service) Shop(npcID int64) *Shop {
	return s.catalog.Shop(npcID)
}

// Purchase 购买商品：先扣货币再发放物品，背包放不下的部分掉落
func (s *Service) Purchase(buyer models.Subject, npcID int64, slot int) (*Receipt, error) {
	item, ok := s.catalog.Shop(npcID).Find(slot)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "商人 #%d 的格子 %d 没有商品", npcID, slot)
	}

	e, ok := s.world.Lookup(buyer)
	if !ok || !e.Online() {
		return nil, apperrors.New(apperrors.ErrEntityOffline, buyer.Key())
	}

	inv := e.Inventory()
	if inv.Count(s.currency) < item.Price {
		s.notify(buyer, fmt.Sprintf("%s不足！需要: %d", s.currency, item.Price))
		return nil, apperrors.Newf(apperrors.ErrInsufficientFunds, "需要 %d %s", item.Price, s.currency)
	}

	if taken := inv.Remove(s.currency, item.Price); taken < item.Price {
		// 并发变化导致扣款不足，退回已扣部分
		host.GiveOrDrop(s.world, e, host.ItemStack{Type: s.currency, Amount: taken})
		return nil, apperrors.Newf(apperrors.ErrInsufficientFunds, "需要 %d %s", item.Price, s.currency)
	}
	host.GiveOrDrop(s.world, e, item.Item)

	s.notify(buyer, fmt.Sprintf("购买成功！花费 %d %s", item.Price, s.currency))
	s.log.Info("[Merchant] 购买完成",
		zap.String("buyer", buyer.Key()),
		zap.Int64("npc_id", npcID),
		zap.Int("slot", slot),
		zap.String("item", item.Item.Type),
		zap.Int("amount", item.Item.Amount),
		zap.Int("price", item.Price),
	)

	return &Receipt{NPCID: npcID, Slot: slot, Price: item.Price, Currency: s.currency, Item: item.Item}, nil
}

func (s *Service) notify(sub models.Subject, msg string) {
	if s.notifier != nil {
		s.notifier.Notify(sub.Key(), msg)
	}
}
