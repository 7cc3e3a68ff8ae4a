// Package memrepo 提供内存版的存储实现，供服务层和接口层的测试使用
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"readsy_backend/internal/model"
	"readsy_backend/internal/repository"
	"readsy_backend/internal/util"
)

type Users struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*model.User
}

func NewUsers() *Users {
	return &Users{byID: map[uint]*model.User{}}
}

func (s *Users) Create(user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now()
	cp := *user
	s.byID[user.ID] = &cp
	return nil
}

// Put 直接写入，测试中用来构造数据
func (s *Users) Put(user model.User) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		s.nextID++
		user.ID = s.nextID
	} else if user.ID > s.nextID {
		s.nextID = user.ID
	}
	s.byID[user.ID] = &user
	cp := user
	return &cp
}

func (s *Users) FindByID(id uint) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, util.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Users) FindByEmail(email string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Email == email })
}

func (s *Users) FindByUsername(username string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Username == username })
}

func (s *Users) find(match func(*model.User) bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, util.ErrUserNotFound
}

func (s *Users) FindByIDs(ids []uint) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.byID[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *Users) FindTopByXP(limit int) ([]model.User, error) {
	s.mu.Lock()
	out := make([]model.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, *u)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].XP != out[j].XP {
			return out[i].XP > out[j].XP
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Users) UpdateLastLogin(id uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		u.LastLogin = at
	}
	return nil
}

func (s *Users) UpdateLastSeen(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		u.LastSeen = time.Now()
	}
	return nil
}

// update 在锁内修改用户，供 XP 与商店共用
func (s *Users) update(id uint, fn func(u *model.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return util.ErrUserNotFound
	}
	return fn(u)
}

type RefreshTokens struct {
	mu   sync.Mutex
	byID map[string]*model.RefreshToken
}

func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{byID: map[string]*model.RefreshToken{}}
}

func (s *RefreshTokens) Create(token *model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.byID[token.ID] = &cp
	return nil
}

func (s *RefreshTokens) FindByID(id string) (*model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, util.ErrInvalidRefreshToken
	}
	cp := *t
	return &cp, nil
}

func (s *RefreshTokens) Rotate(oldID string, next *model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[oldID]
	if !ok || old.RevokedAt != nil {
		return util.ErrRefreshTokenReused
	}
	now := time.Now()
	old.RevokedAt = &now
	old.ReplacedBy = next.ID
	cp := *next
	s.byID[next.ID] = &cp
	return nil
}

func (s *RefreshTokens) RevokeFamily(family string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, t := range s.byID {
		if t.Family == family && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (s *RefreshTokens) DeleteExpired(before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.byID {
		if t.ExpiresAt.Before(before) {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

func (s *RefreshTokens) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Checkins 连签道具从 Shop 中扣除，Shop 为 nil 时视为没有道具
type Checkins struct {
	Users *Users
	Shop  *Shop
	Err   error // CreateWithStreak 写入前返回该错误

	mu     sync.Mutex
	nextID uint
	rows   []model.Checkin
}

func NewCheckins(users *Users, shop *Shop) *Checkins {
	return &Checkins{Users: users, Shop: shop}
}

// CreateWithStreak 整个过程持有锁，写入失败时退回已扣除的道具
func (s *Checkins) CreateWithStreak(userID uint, build repository.StreakBuilder) (*model.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Users != nil {
		if _, err := s.Users.FindByID(userID); err != nil {
			return nil, err
		}
	}

	consumed := false
	consume := func() (bool, error) {
		if s.Shop == nil {
			return false, nil
		}
		used, err := s.Shop.ConsumeItem(userID, model.StreakFreezeItem)
		consumed = consumed || used
		return used, err
	}

	c, err := build(s.latest(userID), consume)
	if err == nil {
		err = s.Err
	}
	if err != nil {
		if consumed {
			s.Shop.refund(userID, model.StreakFreezeItem)
		}
		return nil, err
	}

	s.nextID++
	c.ID = s.nextID
	c.UserID = userID
	s.rows = append(s.rows, *c)
	return c, nil
}

func (s *Checkins) UpdateXPAwarded(id uint, xp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].XPAwarded = xp
		}
	}
	return nil
}

func (s *Checkins) FindLatestByUser(userID uint) (*model.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest(userID), nil
}

func (s *Checkins) latest(userID uint) *model.Checkin {
	var latest *model.Checkin
	for i := range s.rows {
		c := &s.rows[i]
		if c.UserID != userID {
			continue
		}
		if latest == nil || !c.CheckinAt.Before(latest.CheckinAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil
	}
	cp := *latest
	return &cp
}

func (s *Checkins) ListByUser(userID, bookID uint, page, limit int) ([]model.Checkin, int64, error) {
	s.mu.Lock()
	var all []model.Checkin
	for i := len(s.rows) - 1; i >= 0; i-- {
		c := s.rows[i]
		if c.UserID == userID && (bookID == 0 || c.BookID == bookID) {
			all = append(all, c)
		}
	}
	s.mu.Unlock()

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []model.Checkin{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// Put 写入一条历史打卡
func (s *Checkins) Put(c model.Checkin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	s.rows = append(s.rows, c)
}

func (s *Checkins) All() []model.Checkin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Checkin(nil), s.rows...)
}

type Books map[uint]bool

func (b Books) Exists(id uint) (bool, error) {
	return b[id], nil
}

// XP 与 Users 共享用户数据
type XP struct {
	Users *Users
	Err   error

	mu     sync.Mutex
	nextID uint
	events []model.XPEvent
}

func NewXP(users *Users) *XP {
	return &XP{Users: users}
}

func (s *XP) Grant(g repository.XPGrant) (*model.XPEvent, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	var event *model.XPEvent
	err := s.Users.update(g.UserID, func(u *model.User) error {
		after := u.XP + g.Amount
		from, to := g.LevelFor(u.XP), g.LevelFor(after)
		var coins int64
		if to > from {
			coins = int64(to-from) * g.CoinsPerLevel
		}
		u.XP = after
		u.Coins += coins
		event = &model.XPEvent{
			UserID:       g.UserID,
			Amount:       g.Amount,
			Reason:       g.Reason,
			Source:       g.Source,
			XPAfter:      after,
			LevelFrom:    from,
			LevelTo:      to,
			CoinsAwarded: coins,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.nextID++
	event.ID = s.nextID
	event.CreatedAt = time.Now()
	s.events = append(s.events, *event)
	s.mu.Unlock()
	return event, nil
}

func (s *XP) ListEvents(userID uint, page, limit int) ([]model.XPEvent, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.XPEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].UserID == userID {
			all = append(all, s.events[i])
		}
	}
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []model.XPEvent{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// Scores 内存排行榜，Err 非空时模拟 Redis 不可用
type Scores struct {
	Err error

	mu        sync.Mutex
	live      map[string]map[uint]int64
	snapshots map[string][]model.LeaderboardEntry
}

func NewScores() *Scores {
	return &Scores{
		live:      map[string]map[uint]int64{},
		snapshots: map[string][]model.LeaderboardEntry{},
	}
}

func (s *Scores) Incr(ctx context.Context, season string, userID uint, amount int64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live[season] == nil {
		s.live[season] = map[uint]int64{}
	}
	s.live[season][userID] += amount
	return nil
}

func (s *Scores) ranked(season string) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, 0, len(s.live[season]))
	for id, score := range s.live[season] {
		entries = append(entries, model.LeaderboardEntry{Season: season, UserID: id, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID > entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func (s *Scores) Top(ctx context.Context, season string, limit int) ([]model.LeaderboardEntry, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.ranked(season)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Scores) Rank(ctx context.Context, season string, userID uint) (*model.LeaderboardEntry, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.ranked(season) {
		if e.UserID == userID {
			cp := e
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Scores) SaveSnapshot(season string, entries []model.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[season] = append([]model.LeaderboardEntry(nil), entries...)
	return nil
}

func (s *Scores) FindSnapshot(season string, limit int) ([]model.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := append([]model.LeaderboardEntry(nil), s.snapshots[season]...)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Scores) FindSnapshotEntry(season string, userID uint) (*model.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.snapshots[season] {
		if e.UserID == userID {
			cp := e
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Scores) HasSnapshot(season string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots[season]) > 0, nil
}

// Shop 与 Users 共享金币余额
type Shop struct {
	Users     *Users
	ListCalls int

	mu        sync.Mutex
	items     []model.ShopItem
	inventory map[uint]map[uint]int
}

func NewShop(users *Users, items ...model.ShopItem) *Shop {
	for i := range items {
		if items[i].ID == 0 {
			items[i].ID = uint(i + 1)
		}
	}
	return &Shop{Users: users, items: items, inventory: map[uint]map[uint]int{}}
}

func (s *Shop) ListItems() ([]model.ShopItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListCalls++
	return append([]model.ShopItem(nil), s.items...), nil
}

func (s *Shop) FindItem(id uint) (*model.ShopItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findItem(id)
}

func (s *Shop) findItem(id uint) (*model.ShopItem, error) {
	for i := range s.items {
		if s.items[i].ID == id {
			cp := s.items[i]
			return &cp, nil
		}
	}
	return nil, util.ErrShopItemNotFound
}

func (s *Shop) Purchase(userID, itemID uint) (*model.UserInventory, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.findItem(itemID)
	if err != nil {
		return nil, 0, err
	}

	var left int64
	err = s.Users.update(userID, func(u *model.User) error {
		if item.PremiumOnly && !u.IsPremium {
			return util.ErrPremiumOnly
		}
		if u.Coins < item.Price {
			return util.ErrNotEnoughCoins
		}
		u.Coins -= item.Price
		left = u.Coins
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	if s.inventory[userID] == nil {
		s.inventory[userID] = map[uint]int{}
	}
	s.inventory[userID][itemID]++
	return &model.UserInventory{
		UserID:     userID,
		ShopItemID: itemID,
		ShopItem:   *item,
		Quantity:   s.inventory[userID][itemID],
	}, left, nil
}

func (s *Shop) Inventory(userID uint) ([]model.UserInventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.UserInventory{}
	for itemID, qty := range s.inventory[userID] {
		if qty <= 0 {
			continue
		}
		item, _ := s.findItem(itemID)
		out = append(out, model.UserInventory{UserID: userID, ShopItemID: itemID, ShopItem: *item, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShopItemID < out[j].ShopItemID })
	return out, nil
}

func (s *Shop) ConsumeItem(userID uint, itemName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for itemID, qty := range s.inventory[userID] {
		item, err := s.findItem(itemID)
		if err != nil || item.Name != itemName || qty <= 0 {
			continue
		}
		s.inventory[userID][itemID]--
		return true, nil
	}
	return false, nil
}

func (s *Shop) refund(userID uint, itemName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].Name == itemName {
			if s.inventory[userID] == nil {
				s.inventory[userID] = map[uint]int{}
			}
			s.inventory[userID][s.items[i].ID]++
			return
		}
	}
}

// Give 直接放入背包
func (s *Shop) Give(userID, itemID uint, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inventory[userID] == nil {
		s.inventory[userID] = map[uint]int{}
	}
	s.inventory[userID][itemID] += qty
}

// Publisher 记录发布的事件
type Publisher struct {
	mu       sync.Mutex
	Keys     []string
	Payloads []interface{}
	Err      error
}

func (p *Publisher) PublishJSON(ctx context.Context, key string, v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Keys = append(p.Keys, key)
	p.Payloads = append(p.Payloads, v)
	return nil
}

func (p *Publisher) Close() error { return nil }
