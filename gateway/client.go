package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Client 后端 REST 客户端；默认不发起真实网络调用，HTTPClient 可注入 httptest。
type Client struct {
	BaseURL string

	mu         sync.Mutex
	httpClient *http.Client
}

// ErrMalformedResponse 响应缺少必需字段或字段取值非法。
var ErrMalformedResponse = errors.New("malformed response from backend")

// Asset 是 /config/assets 返回的单个资产参数。
type Asset struct {
	Symbol          string  `json:"symbol"`
	MarkPrice       float64 `json:"mark_price"`
	ContractValue   float64 `json:"contract_value"`
	AllowedLeverage []int   `json:"allowed_leverage"`
}

type assetsResp struct {
	Assets []Asset `json:"assets"`
}

// ValidateRequest 是 POST /margin/validate 的请求体。
type ValidateRequest struct {
	Asset        string  `json:"asset"`
	OrderSize    float64 `json:"order_size"`
	Side         string  `json:"side"`
	Leverage     int     `json:"leverage"`
	MarginClient float64 `json:"margin_client"`
}

// ValidateResponse 后端给出的权威校验结果。
type ValidateResponse struct {
	Status         string  `json:"status"`
	Message        string  `json:"message,omitempty"`
	MarginRequired float64 `json:"margin_required"`
}

// validateRespWire 用指针字段区分「缺字段」与「零值」；多余字段直接忽略。
type validateRespWire struct {
	Status         *string  `json:"status"`
	Message        string   `json:"message"`
	MarginRequired *float64 `json:"margin_required"`
}

// NewClient 构造带默认超时的客户端。
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient 注入自定义 http.Client（单测用 httptest.Server.Client()）。
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpClient = hc
}

// SetTimeout 热更新请求超时；替换整个 http.Client 避免并发改写 Timeout 字段。
func (c *Client) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpClient = &http.Client{Timeout: d}
}

func (c *Client) client() (*http.Client, error) {
	if c == nil {
		return nil, fmt.Errorf("http client not set")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.httpClient == nil {
		return nil, fmt.Errorf("http client not set")
	}
	return c.httpClient, nil
}

// FetchAssets 调用 GET /config/assets 拉取资产参数列表。
// 列表为空不算错误，由调用方按自身契约处理。
func (c *Client) FetchAssets(ctx context.Context) ([]Asset, error) {
	hc, err := c.client()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/config/assets", nil)
	if err != nil {
		return nil, fmt.Errorf("build assets request: %w", err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch assets: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch assets status %d", resp.StatusCode)
	}
	var ar assetsResp
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("decode assets: %w", err)
	}
	return ar.Assets, nil
}

// ValidateMargin 调用 POST /margin/validate 做权威保证金校验。
// status=error 也是一次成功的协议交换，照常返回；传输失败或缺字段才报错。
func (c *Client) ValidateMargin(ctx context.Context, vr ValidateRequest) (ValidateResponse, error) {
	var out ValidateResponse
	hc, err := c.client()
	if err != nil {
		return out, err
	}
	body, err := json.Marshal(vr)
	if err != nil {
		return out, fmt.Errorf("encode validate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/margin/validate", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return out, fmt.Errorf("validate margin: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, fmt.Errorf("validate margin status %d", resp.StatusCode)
	}
	var wire validateRespWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return out, fmt.Errorf("decode validate response: %w", err)
	}
	if wire.Status == nil || wire.MarginRequired == nil {
		return out, fmt.Errorf("%w: missing status or margin_required", ErrMalformedResponse)
	}
	if *wire.Status != "ok" && *wire.Status != "error" {
		return out, fmt.Errorf("%w: unknown status %q", ErrMalformedResponse, *wire.Status)
	}
	out.Status = *wire.Status
	out.Message = wire.Message
	out.MarginRequired = *wire.MarginRequired
	return out, nil
}
