package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"proofreader/internal/metrics"
	"proofreader/internal/session"
	"proofreader/internal/upload"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (b *Bot) handleDocument(
	ctx context.Context,
	doc *models.Document,
	chatID int64,
	userID int64,
) error {
	switch b.sessions.Get(userID).Mode {
	case session.ModeFile:
	case session.ModeText:
		return b.sendMessageWithKeyboard(ctx, chatID, fileInTextModeTxt, returnKeyboard())
	default:
		return b.sendMessageWithKeyboard(ctx, chatID, chooseInputText, menuKeyboard())
	}

	name := strings.TrimSpace(doc.FileName)
	if !strings.EqualFold(filepath.Ext(name), ".txt") {
		metrics.UploadsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return b.sendMessageWithKeyboard(ctx, chatID, "❌ Only \\.txt documents are supported\\.", returnKeyboard())
	}
	if b.maxFileSize > 0 && doc.FileSize > b.maxFileSize {
		metrics.UploadsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return b.sendMessageWithKeyboard(ctx, chatID, "❌ The document is too large\\.", returnKeyboard())
	}

	// Only one document is kept per user, so concurrent uploads of the same
	// user run one after another.
	unlock := b.lockUploads(userID)
	defer unlock()

	store := b.uploads.ForUser(userID)
	if err := store.Clear(); err != nil {
		return b.failUpload(ctx, chatID, fmt.Errorf("clear user store: %w", err))
	}

	if err := b.downloadDocument(ctx, doc, store); err != nil {
		switch {
		case errors.Is(err, upload.ErrFileTooLarge):
			metrics.UploadsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
			return b.sendMessageWithKeyboard(ctx, chatID, "❌ The document is too large\\.", returnKeyboard())
		case errors.Is(err, upload.ErrUnsupportedType):
			metrics.UploadsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
			return b.sendMessageWithKeyboard(ctx, chatID, "❌ Only \\.txt documents are supported\\.", returnKeyboard())
		default:
			return b.failUpload(ctx, chatID, err)
		}
	}

	storedName, _, err := store.ReadFirst()
	if err != nil {
		var errs []error
		if clearErr := store.Clear(); clearErr != nil {
			errs = append(errs, fmt.Errorf("clear user store: %w", clearErr))
		}

		if errors.Is(err, upload.ErrNotText) {
			metrics.UploadsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
			sendErr := b.sendMessageWithKeyboard(ctx, chatID, "❌ The document is not a valid text file\\.", returnKeyboard())
			if sendErr != nil {
				errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
			}
			return errors.Join(errs...)
		}

		errs = append(errs, b.failUpload(ctx, chatID, fmt.Errorf("read uploaded file: %w", err)))
		return errors.Join(errs...)
	}

	metrics.UploadsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	b.log.InfoContext(ctx, "Document is uploaded",
		"userID", userID,
		"fileName", storedName,
		"fileSize", doc.FileSize)

	return b.sendMessageWithKeyboard(ctx, chatID, fileUploadedText(storedName), submitFileKeyboard())
}

func (b *Bot) downloadDocument(ctx context.Context, doc *models.Document, store *upload.Store) error {
	file, err := b.api.GetFile(ctx, &tgbot.GetFileParams{FileID: doc.FileID})
	if err != nil {
		return fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.api.FileDownloadLink(file), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}

	if _, err = store.Save(doc.FileName, resp.Body); err != nil {
		return fmt.Errorf("save file: %w", err)
	}

	return nil
}

func (b *Bot) failUpload(ctx context.Context, chatID int64, err error) error {
	metrics.UploadsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()

	if sendErr := b.sendMessageWithKeyboard(ctx, chatID, "❌ Failed to upload the document\\.", returnKeyboard()); sendErr != nil {
		return errors.Join(err, fmt.Errorf("send message with keyboard: %w", sendErr))
	}
	return err
}

func (b *Bot) clearUploads(userID int64) error {
	unlock := b.lockUploads(userID)
	defer unlock()

	return b.uploads.ForUser(userID).Clear()
}
