package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"tissuewatch/internal/domain"
	"tissuewatch/internal/ws"
)

// PushSender 推送网关面（push.Client 实现）
type PushSender interface {
	SendPush(ctx context.Context, token, title, body string, data map[string]any) error
}

// TokenSource 收件人已注册推送令牌来源（repository.PushTokensRepository 实现）
type TokenSource interface {
	ListByUsers(ctx context.Context, userIDs []int64) ([]domain.PushToken, error)
}

// Dispatcher 报警扇出：把一条已持久化的通知投递到每个收件人的所有存活连接，
// 并独立地对每个已注册推送令牌调用一次推送网关。
// Both channels always run: live connections for immediacy, push for reach.
// No internal retries; every per-target failure is logged and isolated.
type Dispatcher struct {
	registry    *ws.Registry
	tokens      TokenSource
	pusher      PushSender
	sendTimeout time.Duration
	logger      *zap.Logger
}

func NewDispatcher(registry *ws.Registry, tokens TokenSource, pusher PushSender, sendTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Dispatcher{
		registry:    registry,
		tokens:      tokens,
		pusher:      pusher,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Dispatch 同步完成两条投递路径后返回；需要吞吐的调用方自行异步调用。
// 单个连接或令牌的失败绝不中止其余目标。
func (d *Dispatcher) Dispatch(ctx context.Context, dev domain.Device, rd domain.Reading, n domain.Notification, recipients []int64) {
	recipients = dedupe(recipients)
	env := ws.NewNotificationEnvelope(dev, rd, n)

	var wg sync.WaitGroup

	// 路径一：存活连接。Snapshot per recipient so concurrent connect/disconnect
	// cannot corrupt delivery iteration.
	for _, recipient := range recipients {
		for _, session := range d.registry.ConnectionsFor(recipient) {
			wg.Add(1)
			go func(recipient int64, session *ws.Session) {
				defer wg.Done()
				if err := session.SendEnvelope(env); err != nil {
					// Already treated as an implicit disconnect by the session.
					d.logger.Warn("Live delivery failed",
						zap.Int64("recipient_id", recipient),
						zap.Int64("notification_id", n.ID),
						zap.Error(err),
					)
				}
			}(recipient, session)
		}
	}

	// 路径二：推送令牌。Runs regardless of live-channel outcome.
	tokens, err := d.tokens.ListByUsers(ctx, recipients)
	if err != nil {
		d.logger.Error("Failed to load push tokens, skipping push path",
			zap.Int64("notification_id", n.ID),
			zap.Error(err),
		)
	}
	for _, token := range tokens {
		wg.Add(1)
		go func(token domain.PushToken) {
			defer wg.Done()

			// Bounded per token so one unresponsive target cannot stall the batch.
			tctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
			defer cancel()

			err := d.pusher.SendPush(tctx, token.Token, n.Title, n.Message, map[string]any{
				"device_id":       dev.ID,
				"notification_id": n.ID,
				"kind":            n.Kind,
			})
			if err != nil {
				d.logger.Warn("Push delivery failed",
					zap.Int64("recipient_id", token.UserID),
					zap.Int64("notification_id", n.ID),
					zap.Error(err),
				)
			}
		}(token)
	}

	wg.Wait()
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
