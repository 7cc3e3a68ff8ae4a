package service

import (
	"time"

	"readsy_backend/internal/model"
	"readsy_backend/pkg/logger"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

const (
	shopItemsKey = "shop:items"
	shopItemsTTL = 5 * time.Minute
)

type PurchaseResult struct {
	Inventory *model.UserInventory `json:"inventory"`
	CoinsLeft int64                `json:"coinsLeft"`
}

// ShopService 商品目录变化很少，进程内缓存
type ShopService struct {
	Store ShopStore
	cache *ristretto.Cache
}

func NewShopService(store ShopStore) (*ShopService, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &ShopService{Store: store, cache: cache}, nil
}

func (s *ShopService) Items() ([]model.ShopItem, error) {
	if v, ok := s.cache.Get(shopItemsKey); ok {
		if items, ok := v.([]model.ShopItem); ok {
			return items, nil
		}
	}

	items, err := s.Store.ListItems()
	if err != nil {
		return nil, err
	}
	if !s.cache.SetWithTTL(shopItemsKey, items, 1, shopItemsTTL) {
		logger.Log.Debug("shop items not admitted to cache")
	}
	s.cache.Wait()
	return items, nil
}

func (s *ShopService) InvalidateItems() {
	s.cache.Del(shopItemsKey)
}

func (s *ShopService) Purchase(userID, itemID uint) (*PurchaseResult, error) {
	inv, left, err := s.Store.Purchase(userID, itemID)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("shop purchase",
		zap.Uint("userID", userID),
		zap.Uint("itemID", itemID),
		zap.Int64("coinsLeft", left),
	)
	return &PurchaseResult{Inventory: inv, CoinsLeft: left}, nil
}

func (s *ShopService) Inventory(userID uint) ([]model.UserInventory, error) {
	return s.Store.Inventory(userID)
}

func (s *ShopService) Close() {
	s.cache.Close()
}
