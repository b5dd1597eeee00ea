package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type request struct {
	ctx      context.Context
	chatID   int64
	send     func(ctx context.Context) error
	response chan error
}

// RateLimiter serialises outgoing messages and keeps per-chat pacing within
// Telegram's limits.
type RateLimiter struct {
	queue       chan request
	lastSent    map[int64]time.Time
	mu          sync.Mutex
	privateRate time.Duration
	groupRate   time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	log         *slog.Logger
}

func New(log *slog.Logger) *RateLimiter {
	return NewWithRates(log, privateChatRate, groupChatRate)
}

// NewWithRates builds a limiter with custom minimal intervals between
// messages to the same private or group chat.
func NewWithRates(log *slog.Logger, privateRate, groupRate time.Duration) *RateLimiter {
	ctx, cancel := context.WithCancel(context.Background())

	rl := &RateLimiter{
		queue:       make(chan request, queueSize),
		lastSent:    make(map[int64]time.Time),
		privateRate: privateRate,
		groupRate:   groupRate,
		ctx:         ctx,
		cancel:      cancel,
		log:         log,
	}

	go rl.processQueue()

	return rl
}

// Send queues send for chatID and waits until it has been executed.
func (rl *RateLimiter) Send(
	ctx context.Context,
	chatID int64,
	send func(ctx context.Context) error,
) error {
	req := request{
		ctx:      ctx,
		chatID:   chatID,
		send:     send,
		response: make(chan error, 1),
	}

	select {
	case rl.queue <- req:
	case <-rl.ctx.Done():
		return rl.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.response:
		return err
	case <-rl.ctx.Done():
		return rl.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rl *RateLimiter) Stop() {
	rl.cancel()
}

func (rl *RateLimiter) processQueue() {
	for {
		select {
		case req := <-rl.queue:
			rl.handleRequest(req)
		case <-rl.ctx.Done():
			for {
				select {
				case req := <-rl.queue:
					req.response <- rl.ctx.Err()
				default:
					return
				}
			}
		}
	}
}

func (rl *RateLimiter) handleRequest(req request) {
	if err := req.ctx.Err(); err != nil {
		req.response <- err
		return
	}

	rl.mu.Lock()
	lastSent, exists := rl.lastSent[req.chatID]
	rl.mu.Unlock()

	if exists {
		delay := rl.delay(req.chatID, lastSent)

		if delay > 0 {
			rl.log.DebugContext(req.ctx, "Rate limiting message",
				"chatID", req.chatID,
				"delay", delay,
				"queueLen", len(rl.queue))

			select {
			case <-time.After(delay):
			case <-rl.ctx.Done():
				req.response <- rl.ctx.Err()
				return
			case <-req.ctx.Done():
				req.response <- req.ctx.Err()
				return
			}
		}
	}

	err := req.send(req.ctx)

	rl.mu.Lock()
	rl.lastSent[req.chatID] = time.Now()
	rl.mu.Unlock()

	req.response <- err
}

func (rl *RateLimiter) delay(chatID int64, lastSent time.Time) time.Duration {
	rate := rl.privateRate
	if chatID < 0 {
		rate = rl.groupRate
	}

	return max(rate-time.Since(lastSent), 0)
}
