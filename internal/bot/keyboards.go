package bot

import (
	"context"
	"strings"

	"proofreader/internal/markdown"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	callbackMenu       = "menu"
	callbackModeText   = "mode_text"
	callbackModeFile   = "mode_file"
	callbackSubmitText = "submit_text"
	callbackSubmitFile = "submit_file"
	callbackRemoveFile = "remove_file"
)

func (b *Bot) sendMessageWithKeyboard(
	ctx context.Context,
	chatID int64,
	text string,
	keyboard [][]models.InlineKeyboardButton,
) error {
	normalizedText := strings.ToValidUTF8(text, "?")
	if normalizedText != text {
		b.log.WarnContext(ctx, "Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalizedText))
	}

	disablePreview := true
	params := &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   normalizedText,

		// See https://core.telegram.org/bots/api#markdownv2-style.
		ParseMode: models.ParseModeMarkdown,

		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disablePreview},
	}
	if keyboard != nil {
		params.ReplyMarkup = &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
	}

	return b.rateLimiter.Send(ctx, chatID, func(ctx context.Context) error {
		_, err := b.api.SendMessage(ctx, params)
		return err
	})
}

// sendLongMessage splits escaped text at Telegram's limit and attaches the
// keyboard to the last part only.
func (b *Bot) sendLongMessage(
	ctx context.Context,
	chatID int64,
	text string,
	keyboard [][]models.InlineKeyboardButton,
) error {
	chunks := markdown.Split(text, markdown.MessageMaxLength)

	for i, chunk := range chunks {
		var kb [][]models.InlineKeyboardButton
		if i == len(chunks)-1 {
			kb = keyboard
		}

		if err := b.sendMessageWithKeyboard(ctx, chatID, chunk, kb); err != nil {
			return err
		}
	}

	return nil
}

func button(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

func menuKeyboard() [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		{
			button("✍️ Input Text", callbackModeText),
			button("📄 Upload Text File", callbackModeFile),
		},
	}
}

func returnKeyboard() [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		{button("⬅️ Return to menu", callbackMenu)},
	}
}

func submitTextKeyboard() [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		{button("✅ Submit", callbackSubmitText)},
		{button("⬅️ Return to menu", callbackMenu)},
	}
}

func submitFileKeyboard() [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		{
			button("✅ Submit", callbackSubmitFile),
			button("🗑 Remove file", callbackRemoveFile),
		},
		{button("⬅️ Return to menu", callbackMenu)},
	}
}
