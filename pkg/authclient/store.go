package authclient

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// TokenStore 持久化令牌，Load 在没有令牌时返回空值而不是错误
type TokenStore interface {
	Load(ctx context.Context) (TokenPair, error)
	Save(ctx context.Context, pair TokenPair) error
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu   sync.RWMutex
	pair TokenPair
}

func NewMemoryStore(pair TokenPair) *MemoryStore {
	return &MemoryStore{pair: pair}
}

func (s *MemoryStore) Load(ctx context.Context) (TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

func (s *MemoryStore) Save(ctx context.Context, pair TokenPair) error {
	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	return s.Save(ctx, TokenPair{})
}

// FileStore 以 0600 权限保存在本地 JSON 文件中，供命令行使用
type FileStore struct {
	Path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load(ctx context.Context) (TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pair TokenPair
	b, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return pair, nil
	}
	if err != nil {
		return pair, errors.Wrap(err, "read token file")
	}
	if err := json.Unmarshal(b, &pair); err != nil {
		return TokenPair{}, errors.Wrap(err, "decode token file")
	}
	return pair, nil
}

func (s *FileStore) Save(ctx context.Context, pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(pair)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return errors.Wrap(err, "create token dir")
	}

	// 先写临时文件再改名，避免中途失败留下半个文件
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return errors.Wrap(err, "write token file")
	}
	return errors.Wrap(os.Rename(tmp, s.Path), "replace token file")
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove token file")
	}
	return nil
}
