package bot

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"proofreader/internal/markdown"
	"proofreader/internal/metrics"
	"proofreader/internal/proofreader"

	"github.com/go-telegram/bot/models"
)

const proofreadFailedText = "❌ Proofreading failed\\. Please try again later\\."

type sectionTitles struct {
	source    string
	original  string
	rephrased string
	remarks   string
}

//nolint:gochecknoglobals // Immutable section titles.
var (
	textSections = sectionTitles{
		source:    metrics.SourceText,
		original:  "Before Proofreading",
		rephrased: "Output after Proofread",
		remarks:   "Remarks:",
	}
	fileSections = sectionTitles{
		source:    metrics.SourceFile,
		original:  "Text Before Proofreading",
		rephrased: "Text After Proofreading",
		remarks:   "Remarks:",
	}
)

func (b *Bot) proofreadAndReply(
	ctx context.Context,
	chatID int64,
	text string,
	titles sectionTitles,
) error {
	metrics.InputChars.Observe(float64(utf8.RuneCountInString(text)))

	result, err := b.proofreader.Proofread(ctx, text)
	if err != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, proofreader.ErrEmptyText) {
			outcome = metrics.OutcomeInvalid
		}
		metrics.RequestsTotal.WithLabelValues(titles.source, outcome).Inc()

		errs := []error{fmt.Errorf("proofread: %w", err)}

		replyText := proofreadFailedText
		if outcome == metrics.OutcomeInvalid {
			replyText = emptyTextWarning
		}
		if sendErr := b.sendMessageWithKeyboard(ctx, chatID, replyText, returnKeyboard()); sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	metrics.RequestsTotal.WithLabelValues(titles.source, metrics.OutcomeOK).Inc()

	var errs []error
	for _, message := range formatResult(result, titles) {
		if err = b.sendLongMessage(ctx, chatID, message.text, message.keyboard); err != nil {
			errs = append(errs, fmt.Errorf("send result: %w", err))
		}
	}

	return errors.Join(errs...)
}

type outgoingMessage struct {
	text     string
	keyboard [][]models.InlineKeyboardButton
}

func formatResult(result proofreader.Result, titles sectionTitles) []outgoingMessage {
	section := func(title, body string) string {
		return markdown.Bold(markdown.EscapeV2(title)) + "\n\n" + markdown.EscapeV2(body)
	}

	return []outgoingMessage{
		{text: section(titles.original, result.Original)},
		{text: section(titles.rephrased, result.Rephrased)},
		{text: section(titles.remarks, result.Remarks), keyboard: returnKeyboard()},
	}
}
