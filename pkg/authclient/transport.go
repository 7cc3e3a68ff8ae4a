package authclient

import (
	"bytes"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// Transport 为请求附加访问令牌，遇到 401 时刷新并重放一次
type Transport struct {
	Base    http.RoundTripper
	Session *Session
}

func NewTransport(base http.RoundTripper, s *Session) *Transport {
	return &Transport{Base: base, Session: s}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) session(req *http.Request) *Session {
	if t.Session != nil {
		return t.Session
	}
	return SessionFromContext(req.Context())
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	s := t.session(req)
	if s == nil {
		return t.base().RoundTrip(req)
	}

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	pair, err := s.store.Load(req.Context())
	if err != nil {
		return nil, errors.Wrap(err, "load tokens")
	}

	first, err := withToken(req, pair.AccessToken, getBody)
	if err != nil {
		return nil, err
	}
	resp, err := t.base().RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// 丢弃 401 响应体以便复用连接
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	fresh, err := s.refresh(req.Context(), pair.AccessToken)
	if err != nil {
		return nil, err
	}

	retry, err := withToken(req, fresh.AccessToken, getBody)
	if err != nil {
		return nil, err
	}
	return t.base().RoundTrip(retry)
}

// replayableBody 缓存请求体，重放时重新读取
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		// 重放都从 GetBody 取新的 body，原 body 不再读取
		req.Body.Close()
		return req.GetBody, nil
	}

	b, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, errors.Wrap(err, "buffer request body")
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}, nil
}

func withToken(req *http.Request, token string, getBody func() (io.ReadCloser, error)) (*http.Request, error) {
	out := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
		out.GetBody = getBody
	}
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	} else {
		out.Header.Del("Authorization")
	}
	return out, nil
}
