package bot

import (
	"context"
	"strings"

	"proofreader/internal/markdown"
	"proofreader/internal/session"

	"github.com/go-telegram/bot/models"
)

const welcomeText = `📝 *AI Proofreader*

*Welcome to the AI Proofreader\!*

AI Proofreader reviews and edits simple texts or text documents\. ` +
	`It will help you check for grammar, spelling, punctuation, and formatting errors\!

Choose how you would like to provide your text:`

const (
	chooseInputText   = "☝️ Choose an input method first\\."
	textPromptText    = "✍️ Drop the text you would like to have proofread\\."
	filePromptText    = "📄 Upload a text document \\(\\.txt\\)\\."
	emptyTextWarning  = "⚠️ Text was not provided in your input\\."
	textReceivedText  = "✅ Text is received\\. Press *Submit* to proofread it\\."
	fileInTextModeTxt = "☝️ Text input is selected\\. Switch to *Upload Text File* to send a document\\."
)

func (b *Bot) handleMessage(ctx context.Context, message *models.Message) error {
	chatID := message.Chat.ID
	userID := message.From.ID

	if message.Document != nil {
		return b.withSpinner(ctx, chatID, func() error {
			return b.handleDocument(ctx, message.Document, chatID, userID)
		})
	}

	switch command(message.Text) {
	case "/start", "/menu":
		return b.handleMenuCommand(ctx, chatID)
	case "/text":
		return b.handleModeText(ctx, chatID, userID)
	case "/file":
		return b.handleModeFile(ctx, chatID, userID)
	default:
		return b.handleUserText(ctx, message.Text, chatID, userID)
	}
}

// command returns the bot command that text starts with, without the
// @botname suffix, or an empty string.
func command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}

	name, _, _ := strings.Cut(fields[0], "@")
	return name
}

func (b *Bot) handleMenuCommand(ctx context.Context, chatID int64) error {
	return b.sendMessageWithKeyboard(ctx, chatID, welcomeText, menuKeyboard())
}

func (b *Bot) handleUserText(ctx context.Context, text string, chatID, userID int64) error {
	switch b.sessions.Get(userID).Mode {
	case session.ModeText:
	case session.ModeFile:
		return b.sendMessageWithKeyboard(ctx, chatID, filePromptText, returnKeyboard())
	default:
		return b.sendMessageWithKeyboard(ctx, chatID, chooseInputText, menuKeyboard())
	}

	if strings.TrimSpace(text) == "" {
		return b.sendMessageWithKeyboard(ctx, chatID, emptyTextWarning, returnKeyboard())
	}

	b.sessions.SetPendingText(userID, text)

	return b.sendMessageWithKeyboard(ctx, chatID, textReceivedText, submitTextKeyboard())
}

func (b *Bot) handleModeText(ctx context.Context, chatID, userID int64) error {
	b.sessions.SetMode(userID, session.ModeText)

	if err := b.clearUploads(userID); err != nil {
		b.log.WarnContext(ctx, "Failed to remove uploads on mode switch",
			"error", err,
			"userID", userID)
	}

	return b.sendMessageWithKeyboard(ctx, chatID, textPromptText, returnKeyboard())
}

func (b *Bot) handleModeFile(ctx context.Context, chatID, userID int64) error {
	b.sessions.SetMode(userID, session.ModeFile)

	return b.sendMessageWithKeyboard(ctx, chatID, filePromptText, returnKeyboard())
}

func fileUploadedText(name string) string {
	return "📄 " + markdown.Bold(markdown.EscapeV2(name)) + " is uploaded\\. Press *Submit* to proofread it\\."
}
