package authclient

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Session 一个登录会话：令牌存储、刷新器与失败回调
type Session struct {
	store     TokenStore
	refresher Refresher
	group     singleflight.Group

	onAuthFailure func(err error)
}

type Option func(*Session)

// WithAuthFailureHook 刷新失败时调用，通常用来引导用户重新登录
func WithAuthFailureHook(fn func(err error)) Option {
	return func(s *Session) {
		s.onAuthFailure = fn
	}
}

func NewSession(store TokenStore, refresher Refresher, opts ...Option) *Session {
	if store == nil {
		store = NewMemoryStore(TokenPair{})
	}
	s := &Session{store: store, refresher: refresher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Tokens(ctx context.Context) (TokenPair, error) {
	return s.store.Load(ctx)
}

func (s *Session) SetTokens(ctx context.Context, pair TokenPair) error {
	return s.store.Save(ctx, pair)
}

func (s *Session) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// refresh 处理一次 401。staleAccess 是该请求发出时携带的访问令牌。
// 同一刷新令牌的并发刷新合并为一次，晚到的请求直接拿到当前令牌。
func (s *Session) refresh(ctx context.Context, staleAccess string) (TokenPair, error) {
	current, err := s.store.Load(ctx)
	if err != nil {
		return TokenPair{}, err
	}
	if current.AccessToken != "" && current.AccessToken != staleAccess {
		return current, nil
	}
	if current.RefreshToken == "" || s.refresher == nil {
		return TokenPair{}, ErrSessionExpired
	}

	key := current.RefreshToken
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// 上一轮刷新可能刚结束
		latest, err := s.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		if latest.RefreshToken != key {
			if latest.AccessToken == "" {
				return nil, ErrSessionExpired
			}
			return latest, nil
		}

		pair, err := s.refresher.Refresh(context.WithoutCancel(ctx), key)
		if err != nil {
			s.fail(ctx, err)
			return nil, ErrSessionExpired
		}
		if err := s.store.Save(ctx, pair); err != nil {
			return nil, errors.Wrap(err, "save refreshed tokens")
		}
		return pair, nil
	})
	if err != nil {
		return TokenPair{}, err
	}
	return v.(TokenPair), nil
}

func (s *Session) fail(ctx context.Context, cause error) {
	_ = s.store.Clear(ctx)

	if s.onAuthFailure != nil {
		s.onAuthFailure(cause)
	}
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}
