package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"seckill-client/internal/engine"
	"seckill-client/internal/models"
	"seckill-client/internal/util"
)

// Client is the HTTP adapter behind the engine's collaborator contracts. It
// speaks the backend's {code, message, data} envelope and translates business
// codes into the engine's error taxonomy.
type Client struct {
	base   string
	http   *http.Client
	token  func() string
	logger *zap.Logger
}

// NewClient creates a client for the backend at baseURL. token is read per
// request so a re-login takes effect without rebuilding the client.
func NewClient(baseURL string, timeout time.Duration, token func() string) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:   baseURL,
		http:   &http.Client{Timeout: timeout},
		token:  token,
		logger: util.GetLogger(),
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if t := c.token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if env.Code != models.CodeSuccess {
		return codeError(env.Code, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode payload: %w", err)
		}
	}
	return nil
}

// codeError maps a wire business code to the engine's error contract.
func codeError(code int, message string) error {
	var sentinel error
	switch code {
	case models.CodeUnauthorized, models.CodeTokenInvalid:
		sentinel = engine.ErrUnauthenticated
	case models.CodeRepeatOrder:
		sentinel = engine.ErrAlreadyAttempted
	case models.CodeStockNotEnough:
		sentinel = engine.ErrOutOfStock
	case models.CodeActivityNotStarted, models.CodeActivityEnded, models.CodeGoodsOffShelf:
		sentinel = engine.ErrNotLive
	case models.CodeRateLimit:
		sentinel = engine.ErrRateLimited
	case models.CodeOrderNotExist, models.CodeNotFound:
		sentinel = engine.ErrOrderNotReady
	default:
		return fmt.Errorf("backend error %d: %s", code, message)
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Login authenticates and returns the user plus a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	var out loginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", loginRequest{Username: username, Password: password}, &out)
	if err != nil {
		return nil, "", err
	}
	return out.User, out.Token, nil
}

// GetGoodsList fetches all offers.
func (c *Client) GetGoodsList(ctx context.Context) ([]models.Goods, error) {
	var out []models.Goods
	if err := c.do(ctx, http.MethodGet, "/api/goods", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetGoods fetches one offer.
func (c *Client) GetGoods(ctx context.Context, id int64) (*models.Goods, error) {
	var out models.Goods
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/goods/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitPurchase sends one purchase attempt.
func (c *Client) SubmitPurchase(ctx context.Context, req engine.SubmitRequest) (*engine.SubmitResult, error) {
	ctx, span := util.StartSpan(ctx, "remote.SubmitPurchase")
	defer span.End()

	var out engine.SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/seckill/do", req, &out); err != nil {
		return nil, err
	}
	c.logger.Info("Purchase submitted",
		zap.Int64("goods_id", req.GoodsID),
		zap.Int64("order_no", out.OrderNo))
	return &out, nil
}

// FetchOrderByNo looks up an order by reference.
func (c *Client) FetchOrderByNo(ctx context.Context, orderNo int64) (*models.Order, error) {
	var out models.Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/order/no/%d", orderNo), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckPriorAttempt asks whether the user already holds an order for the
// offer.
func (c *Client) CheckPriorAttempt(ctx context.Context, userID, goodsID int64) (bool, error) {
	var out bool
	path := fmt.Sprintf("/api/seckill/check?userId=%d&goodsId=%d", userID, goodsID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out, nil
}
