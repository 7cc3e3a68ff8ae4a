package model

type ShopItemType string

const (
	ShopItemAvatar     ShopItemType = "avatar"
	ShopItemFrame      ShopItemType = "frame"
	ShopItemBackground ShopItemType = "background"
	ShopItemPowerup    ShopItemType = "powerup"
	ShopItemCoupon     ShopItemType = "coupon"
)

// StreakFreezeItem 漏打卡一天时自动消耗以保留连续天数
const StreakFreezeItem = "Streak Freeze"

// swagger:model ShopItem
type ShopItem struct {
	BaseModel
	Name        string       `gorm:"size:100;unique;not null" json:"name"`
	Type        ShopItemType `gorm:"size:16;not null" json:"type"`
	Price       int64        `gorm:"not null" json:"price"`
	Description string       `gorm:"size:255" json:"description"`
	PremiumOnly bool         `gorm:"default:false" json:"premiumOnly"`
}

func (ShopItem) TableName() string {
	return "shop_items"
}

// UserInventory 用户已购买的商品
type UserInventory struct {
	BaseModel
	UserID     uint     `gorm:"uniqueIndex:idx_user_item;not null" json:"userId"`
	ShopItemID uint     `gorm:"uniqueIndex:idx_user_item;not null" json:"shopItemId"`
	ShopItem   ShopItem `gorm:"foreignKey:ShopItemID;constraint:false" json:"item"`
	Quantity   int      `gorm:"default:1" json:"quantity"`
}

func (UserInventory) TableName() string {
	return "user_inventories"
}
