package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Message Expo push API 请求体
type Message struct {
	To    string         `json:"to"`
	Sound string         `json:"sound"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

// ticketResponse Expo 返回的单条投递回执
type ticketResponse struct {
	Data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Client Expo 推送网关客户端。
// Deliberately no automatic retries: the dispatcher treats a failed token as
// skipped and the live channel is the redundant path. 失败只记录，不重试。
type Client struct {
	httpClient *resty.Client
	endpoint   string
	logger     *zap.Logger
}

func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		endpoint:   endpoint,
		logger:     logger,
	}
}

// SendPush 向单个令牌投递一条推送。Success/failure is all the caller gets;
// the provider-specific response body is not propagated.
func (c *Client) SendPush(ctx context.Context, token, title, body string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}

	msg := Message{
		To:    token,
		Sound: "default",
		Title: title,
		Body:  body,
		Data:  data,
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to call push gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode())
	}

	// Expo reports per-message errors inside a 200 response.
	var ticket ticketResponse
	if err := json.Unmarshal(resp.Body(), &ticket); err == nil {
		if len(ticket.Errors) > 0 {
			return fmt.Errorf("push gateway error: %s", ticket.Errors[0].Message)
		}
		if ticket.Data.Status == "error" {
			return fmt.Errorf("push rejected: %s", ticket.Data.Message)
		}
	}

	c.logger.Debug("Push delivered",
		zap.String("title", title),
	)
	return nil
}
