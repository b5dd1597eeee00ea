package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"proofreader/internal/proofreader"
	"proofreader/internal/ratelimiter"
	"proofreader/internal/session"
	"proofreader/internal/upload"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	updateProcessingTimeout = 5 * time.Minute
	downloadTimeout         = 30 * time.Second
)

// telegramAPI is the part of the Telegram client the bot relies on.
type telegramAPI interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *tgbot.AnswerCallbackQueryParams) (bool, error)
	SendChatAction(ctx context.Context, params *tgbot.SendChatActionParams) (bool, error)
	GetFile(ctx context.Context, params *tgbot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

type Proofreader interface {
	Proofread(ctx context.Context, text string) (proofreader.Result, error)
}

type Options struct {
	AllowedUsers []int64
	MaxFileSize  int64
	HTTPClient   *http.Client
}

type Bot struct {
	api          telegramAPI
	client       *tgbot.Bot
	rateLimiter  *ratelimiter.RateLimiter
	proofreader  Proofreader
	sessions     *session.Store
	uploads      *upload.Store
	httpClient   *http.Client
	allowedUsers []int64
	maxFileSize  int64
	log          *slog.Logger

	// uploadLocks holds a *sync.Mutex per user guarding the user's store.
	uploadLocks sync.Map
}

func New(
	token string,
	pr Proofreader,
	sessions *session.Store,
	uploads *upload.Store,
	opts Options,
	log *slog.Logger,
) (*Bot, error) {
	b := newBot(nil, pr, sessions, uploads, opts, log)

	client, err := tgbot.New(
		strings.TrimSpace(token),
		tgbot.WithDefaultHandler(b.handleUpdate),
		tgbot.WithErrorsHandler(func(err error) {
			b.log.Error("Telegram client error",
				"error", err)
		}),
	)
	if err != nil {
		b.rateLimiter.Stop()
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	b.api = client
	b.client = client

	return b, nil
}

func newBot(
	api telegramAPI,
	pr Proofreader,
	sessions *session.Store,
	uploads *upload.Store,
	opts Options,
	log *slog.Logger,
) *Bot {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: downloadTimeout}
	}

	b := &Bot{
		api:          api,
		rateLimiter:  ratelimiter.New(log),
		proofreader:  pr,
		sessions:     sessions,
		uploads:      uploads,
		httpClient:   httpClient,
		allowedUsers: opts.AllowedUsers,
		maxFileSize:  opts.MaxFileSize,
		log:          log,
	}

	sessions.OnExpire(b.handleSessionExpired)

	return b
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.client.Start(ctx)
}

func (b *Bot) Stop() {
	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		message := update.Message
		if message.From == nil {
			return
		}

		userID := message.From.ID
		if !b.userAllowed(userID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", userID,
				"chatID", message.Chat.ID,
				"username", message.From.Username,
				"chatType", message.Chat.Type)

			return
		}

		if err := b.handleMessage(updateCtx, message); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle message",
				"error", err,
				"chatID", message.Chat.ID,
				"userID", userID,
				"chatType", message.Chat.Type,
				"messageID", message.ID)
		}

	case update.CallbackQuery != nil:
		callback := update.CallbackQuery
		chatID := callbackChatID(callback)

		if !b.userAllowed(callback.From.ID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", callback.From.ID,
				"chatID", chatID,
				"username", callback.From.Username,
				"data", callback.Data)

			return
		}

		if err := b.handleCallbackQuery(updateCtx, callback); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle callback query",
				"error", err,
				"chatID", chatID,
				"userID", callback.From.ID,
				"data", callback.Data)
		}
	}
}

func (b *Bot) handleSessionExpired(ctx context.Context, userID int64) {
	if err := b.clearUploads(userID); err != nil {
		b.log.ErrorContext(ctx, "Failed to remove uploads of expired session",
			"error", err,
			"userID", userID)

		return
	}

	b.log.DebugContext(ctx, "Session is expired",
		"userID", userID)
}

// lockUploads serialises access to the upload store of userID and returns
// the unlock function.
func (b *Bot) lockUploads(userID int64) func() {
	mu, _ := b.uploadLocks.LoadOrStore(userID, &sync.Mutex{})
	m := mu.(*sync.Mutex) //nolint:forcetypeassert // only *sync.Mutex is stored
	m.Lock()
	return m.Unlock
}

func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}

func callbackChatID(cb *models.CallbackQuery) int64 {
	switch {
	case cb.Message.Message != nil:
		return cb.Message.Message.Chat.ID
	case cb.Message.InaccessibleMessage != nil:
		return cb.Message.InaccessibleMessage.Chat.ID
	default:
		// Callbacks without a message only come from private chats.
		return cb.From.ID
	}
}
