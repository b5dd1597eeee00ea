package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"proofreader/internal/metrics"
	"proofreader/internal/upload"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *models.CallbackQuery) error {
	chatID := callbackChatID(callback)
	userID := callback.From.ID

	switch strings.TrimSpace(callback.Data) {
	case callbackMenu:
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.handleMenuCommand(ctx, chatID)
		})
	case callbackModeText:
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.handleModeText(ctx, chatID, userID)
		})
	case callbackModeFile:
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.handleModeFile(ctx, chatID, userID)
		})
	case callbackSubmitText:
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.withSpinner(ctx, chatID, func() error {
				return b.handleSubmitText(ctx, chatID, userID)
			})
		})
	case callbackSubmitFile:
		return b.withEmptyCallbackAnswer(ctx, callback, func() error {
			return b.withSpinner(ctx, chatID, func() error {
				return b.handleSubmitFile(ctx, chatID, userID)
			})
		})
	case callbackRemoveFile:
		return b.handleRemoveFile(ctx, callback, chatID, userID)
	}

	return b.withEmptyCallbackAnswer(ctx, callback, func() error { return nil })
}

func (b *Bot) handleSubmitText(ctx context.Context, chatID, userID int64) error {
	text := b.sessions.Get(userID).PendingText
	if strings.TrimSpace(text) == "" {
		metrics.RequestsTotal.WithLabelValues(metrics.SourceText, metrics.OutcomeInvalid).Inc()
		return b.sendMessageWithKeyboard(ctx, chatID, emptyTextWarning, returnKeyboard())
	}

	return b.proofreadAndReply(ctx, chatID, text, textSections)
}

func (b *Bot) handleSubmitFile(ctx context.Context, chatID, userID int64) error {
	unlock := b.lockUploads(userID)
	_, text, err := b.uploads.ForUser(userID).ReadFirst()
	unlock()

	switch {
	case errors.Is(err, upload.ErrNoFile):
		metrics.RequestsTotal.WithLabelValues(metrics.SourceFile, metrics.OutcomeInvalid).Inc()
		return b.sendMessageWithKeyboard(ctx, chatID, filePromptText, returnKeyboard())
	case err != nil:
		return fmt.Errorf("read uploaded file: %w", err)
	}

	return b.proofreadAndReply(ctx, chatID, text, fileSections)
}

func (b *Bot) handleRemoveFile(
	ctx context.Context,
	callback *models.CallbackQuery,
	chatID int64,
	userID int64,
) error {
	if err := b.clearUploads(userID); err != nil {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("clear uploads: %w", err))
	}

	if _, err := b.api.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
		Text:            "🗑 File is removed.",
	}); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	return b.sendMessageWithKeyboard(ctx, chatID, filePromptText, returnKeyboard())
}

func (b *Bot) withEmptyCallbackAnswer(
	ctx context.Context,
	callback *models.CallbackQuery,
	fn func() error,
) error {
	var errs []error

	if _, err := b.api.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
	}); err != nil {
		errs = append(errs, b.errorCallbackAnswer(ctx, callback, fmt.Errorf("answer callback query: %w", err)))
	}

	if err := fn(); err != nil {
		errs = append(errs, fmt.Errorf("call fn: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) errorCallbackAnswer(
	ctx context.Context,
	callback *models.CallbackQuery,
	err error,
) error {
	if _, sendErr := b.api.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
		Text:            "❌ Failed.",
	}); sendErr != nil {
		return errors.Join(err, fmt.Errorf("answer callback query: %w", sendErr))
	}
	return err
}
