package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/akinalp/memesync/pkg"
)

const (
	defaultHTTPTimeout        = 15 * time.Second
	defaultHTTPConnectTimeout = 5 * time.Second
	defaultHTTPTLSTimeout     = 5 * time.Second

	// maxErrorBody, hata mesajı için okunacak en fazla byte.
	maxErrorBody = 4 << 10
)

// TokenSource, istek başına bearer token verir. Boş token = anonim istek.
type TokenSource interface {
	Token() string
}

// APIClient, REST collaborator'a giden tüm isteklerin ortak yolu.
//
// Her istek: base URL + path, opsiyonel query, JSON body, Authorization header.
// Transport hataları pkg.ErrNetwork, 2xx dışı cevaplar pkg.StatusToError ile
// sentinel error'a çevrilir; çağıran taraf errors.Is ile ayırt eder.
type APIClient struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
}

// NewAPIClient, yeni bir APIClient oluşturur. timeout <= 0 ise 15s kullanılır.
func NewAPIClient(baseURL string, timeout time.Duration, tokens TokenSource) *APIClient {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	dialer := &net.Dialer{Timeout: defaultHTTPConnectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHTTPTLSTimeout,
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Transport: transport, Timeout: timeout},
		tokens:  tokens,
	}
}

func (c *APIClient) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *APIClient) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *APIClient) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// do, isteği gönderir ve 2xx cevabı out'a decode eder. out nil ise body atılır.
func (c *APIClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request body: %v", pkg.ErrBadRequest, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", pkg.ErrBadRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", pkg.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if statusErr := pkg.StatusToError(resp.StatusCode); statusErr != nil {
		msg := readErrorMessage(resp.Body)
		glog.V(2).Infof("[api] %s %s -> %d %s", method, path, resp.StatusCode, msg)
		if msg == "" {
			return fmt.Errorf("%w: %s %s", statusErr, method, path)
		}
		return fmt.Errorf("%w: %s", statusErr, msg)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: decode %s %s: %v", pkg.ErrNetwork, method, path, err)
	}
	return nil
}

// readErrorMessage, hata body'sinden okunabilir mesajı çıkarır.
// Sunucu {"message": "..."} veya {"error": "..."} ya da düz metin dönebilir.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
