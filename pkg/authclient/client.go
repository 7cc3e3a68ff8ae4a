package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// expectedEmpty 这些接口在未登录或尚无数据时返回 401/404 属于正常情况
var expectedEmpty = []string{
	"/api/v1/leaderboard/me",
	"/api/v1/shop/inventory",
	"/api/v1/checkins",
	"/api/v1/gamification/xp-events",
}

// IsExpectedEmpty 判断某接口的错误状态是否应当视为空结果，只适用于 GET 读取
func IsExpectedEmpty(method, path string, status int) bool {
	if method != http.MethodGet {
		return false
	}
	if status != http.StatusUnauthorized && status != http.StatusNotFound {
		return false
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for _, p := range expectedEmpty {
		if path == p {
			return true
		}
	}
	return false
}

type Progress struct {
	TotalXP       int64   `json:"totalXp"`
	Level         int     `json:"level"`
	MaxLevel      int     `json:"maxLevel"`
	LevelStartXP  int64   `json:"levelStartXp"`
	NextLevelXP   int64   `json:"nextLevelXp"`
	XPIntoLevel   int64   `json:"xpIntoLevel"`
	XPToNextLevel int64   `json:"xpToNextLevel"`
	Progress      float64 `json:"progress"`
	IsMaxLevel    bool    `json:"isMaxLevel"`
}

type Profile struct {
	ID             uint     `json:"id"`
	Email          string   `json:"email"`
	Username       string   `json:"username"`
	DisplayName    string   `json:"displayName"`
	Avatar         string   `json:"avatar"`
	Language       string   `json:"language"`
	Role           string   `json:"role"`
	IsPremium      bool     `json:"isPremium"`
	XP             int64    `json:"xp"`
	Coins          int64    `json:"coins"`
	Progress       Progress `json:"progress"`
	Streak         int      `json:"streak"`
	CheckedInToday bool     `json:"checkedInToday"`
}

type CheckinRequest struct {
	BookID               uint    `json:"bookId"`
	PagesRead            int     `json:"pagesRead"`
	CurrentPage          int     `json:"currentPage"`
	MinutesSpent         int     `json:"minutesSpent"`
	AudioNoteURL         string  `json:"audioNoteUrl,omitempty"`
	AudioDurationSeconds float64 `json:"audioDurationSeconds,omitempty"`
}

type Checkin struct {
	ID           uint      `json:"id"`
	BookID       uint      `json:"bookId"`
	PagesRead    int       `json:"pagesRead"`
	CurrentPage  int       `json:"currentPage"`
	MinutesSpent int       `json:"minutesSpent"`
	StreakDays   int       `json:"streakDays"`
	XPAwarded    int64     `json:"xpAwarded"`
	CheckinAt    time.Time `json:"checkinAt"`
}

type XPAward struct {
	Progress  Progress `json:"progress"`
	LeveledUp bool     `json:"leveledUp"`
}

type CheckinResult struct {
	Checkin          Checkin  `json:"checkin"`
	XP               *XPAward `json:"xp,omitempty"`
	StreakFreezeUsed bool     `json:"streakFreezeUsed"`
}

type LeaderboardEntry struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Score    int64  `json:"score"`
	Rank     int    `json:"rank"`
}

type Leaderboard struct {
	Season  string             `json:"season"`
	Source  string             `json:"source"`
	Entries []LeaderboardEntry `json:"entries"`
}

type ShopItem struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	PremiumOnly bool   `json:"premiumOnly"`
}

type InventoryItem struct {
	ShopItemID uint     `json:"shopItemId"`
	Item       ShopItem `json:"item"`
	Quantity   int      `json:"quantity"`
}

type PurchaseResult struct {
	Inventory InventoryItem `json:"inventory"`
	CoinsLeft int64         `json:"coinsLeft"`
}

// Client Readsy API 客户端。认证类接口走 raw，其余接口经过 Transport
type Client struct {
	BaseURL string
	Session *Session

	http *http.Client
	raw  *http.Client
}

func NewClient(baseURL string, session *Session) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: baseURL,
		Session: session,
		http: &http.Client{
			Transport: NewTransport(http.DefaultTransport, session),
			Timeout:   30 * time.Second,
		},
		raw: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	var pair TokenPair
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, c.raw, http.MethodPost, "/api/v1/auth/login", body, &pair); err != nil {
		return nil, errors.Wrap(err, "login")
	}
	if err := c.Session.SetTokens(ctx, pair); err != nil {
		return nil, errors.Wrap(err, "save tokens")
	}
	return &pair, nil
}

// Logout 服务端吊销失败也会清除本地令牌
func (c *Client) Logout(ctx context.Context) error {
	pair, err := c.Session.Tokens(ctx)
	if err != nil {
		return err
	}

	var remoteErr error
	if pair.RefreshToken != "" {
		body := map[string]string{"refreshToken": pair.RefreshToken}
		remoteErr = c.send(ctx, c.raw, http.MethodPost, "/api/v1/auth/logout", body, nil)
	}
	if err := c.Session.Clear(ctx); err != nil {
		return err
	}
	return errors.Wrap(remoteErr, "logout")
}

func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.send(ctx, c.http, http.MethodGet, "/api/v1/users/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Progress(ctx context.Context) (*Progress, error) {
	var p Progress
	if err := c.send(ctx, c.http, http.MethodGet, "/api/v1/gamification/progress", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Checkin(ctx context.Context, in CheckinRequest) (*CheckinResult, error) {
	var res CheckinResult
	if err := c.send(ctx, c.http, http.MethodPost, "/api/v1/checkins", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Leaderboard(ctx context.Context, season string, limit int) (*Leaderboard, error) {
	q := url.Values{}
	if season != "" {
		q.Set("season", season)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/leaderboard"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var lb Leaderboard
	if err := c.send(ctx, c.http, http.MethodGet, path, nil, &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

// LeaderboardMe 未登录或未上榜时返回 nil, nil
func (c *Client) LeaderboardMe(ctx context.Context, season string) (*LeaderboardEntry, error) {
	path := "/api/v1/leaderboard/me"
	if season != "" {
		path += "?season=" + url.QueryEscape(season)
	}

	var entry LeaderboardEntry
	err := c.send(ctx, c.http, http.MethodGet, path, nil, &entry)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Client) ShopItems(ctx context.Context) ([]ShopItem, error) {
	var items []ShopItem
	if err := c.send(ctx, c.http, http.MethodGet, "/api/v1/shop/items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) Purchase(ctx context.Context, itemID uint) (*PurchaseResult, error) {
	var res PurchaseResult
	path := fmt.Sprintf("/api/v1/shop/items/%d/purchase", itemID)
	if err := c.send(ctx, c.http, http.MethodPost, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Inventory(ctx context.Context) ([]InventoryItem, error) {
	var items []InventoryItem
	err := c.send(ctx, c.http, http.MethodGet, "/api/v1/shop/inventory", nil, &items)
	if errors.Is(err, ErrNotFound) {
		return []InventoryItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, in, out interface{}) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(b)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	}
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return ErrSessionExpired
		}
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	err = decodeEnvelope(resp, out)
	if IsExpectedEmpty(method, path, StatusCode(err)) {
		return ErrNotFound
	}
	return err
}
