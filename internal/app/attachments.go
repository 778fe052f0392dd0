package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

// UploadAttachment streams a file into blob storage and records it on the
// card.
func (s *Service) UploadAttachment(ctx context.Context, cardID, userID, fileName, contentType string, size int64, reader io.Reader) (store.CardAttachment, error) {
	if s.blobs == nil {
		return store.CardAttachment{}, validationFailed("Attachment storage is not configured", nil)
	}
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return store.CardAttachment{}, validationFailed("File name is required", nil)
	}
	if size <= 0 || size > s.cfg.MaxAttachmentBytes {
		return store.CardAttachment{}, validationFailed(
			fmt.Sprintf("Attachment must be between 1 byte and %d bytes", s.cfg.MaxAttachmentBytes), nil)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	card, _, err := s.cardForMember(ctx, cardID, userID)
	if err != nil {
		return store.CardAttachment{}, err
	}

	objectKey := fmt.Sprintf("cards/%s/%s", cardID, util.NewID())
	if err := s.blobs.Put(ctx, objectKey, reader, size, contentType); err != nil {
		return store.CardAttachment{}, err
	}

	attachment, err := s.store.InsertAttachment(ctx, store.CardAttachment{
		ID:          util.NewID(),
		CardID:      cardID,
		FileName:    fileName,
		Size:        size,
		ContentType: contentType,
		ObjectKey:   objectKey,
		UploadedBy:  userID,
	})
	if err != nil {
		// Best effort cleanup of the orphaned object.
		if delErr := s.blobs.Delete(ctx, objectKey); delErr != nil {
			s.logger.Warn("clean up orphaned attachment object", "key", objectKey, "error", delErr)
		}
		return store.CardAttachment{}, err
	}

	if err := s.store.InsertActivity(ctx, store.CardActivity{
		ID:       util.NewID(),
		CardID:   cardID,
		UserID:   userID,
		Action:   store.ActionAttachmentAdded,
		Metadata: map[string]any{"file_name": fileName},
	}); err != nil {
		s.logger.Warn("record attachment activity", "error", err)
	}

	s.broadcastBoard(card.BoardID, userID, "attachment_added", map[string]any{
		"card_id":       cardID,
		"attachment_id": attachment.ID,
		"file_name":     fileName,
	})
	return attachment, nil
}

// DownloadAttachment returns the attachment record and a reader over its
// content. The caller must close the reader.
func (s *Service) DownloadAttachment(ctx context.Context, attachmentID, userID string) (store.CardAttachment, io.ReadCloser, error) {
	if s.blobs == nil {
		return store.CardAttachment{}, nil, validationFailed("Attachment storage is not configured", nil)
	}
	attachment, err := s.attachmentForMember(ctx, attachmentID, userID)
	if err != nil {
		return store.CardAttachment{}, nil, err
	}
	reader, err := s.blobs.Get(ctx, attachment.ObjectKey)
	if err != nil {
		return store.CardAttachment{}, nil, err
	}
	return attachment, reader, nil
}

func (s *Service) DeleteAttachment(ctx context.Context, attachmentID, userID string) error {
	if s.blobs == nil {
		return validationFailed("Attachment storage is not configured", nil)
	}
	attachment, err := s.attachmentForMember(ctx, attachmentID, userID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteAttachment(ctx, attachmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("Attachment not found")
		}
		return err
	}
	if err := s.blobs.Delete(ctx, attachment.ObjectKey); err != nil {
		s.logger.Warn("delete attachment object", "key", attachment.ObjectKey, "error", err)
	}

	if err := s.store.InsertActivity(ctx, store.CardActivity{
		ID:       util.NewID(),
		CardID:   attachment.CardID,
		UserID:   userID,
		Action:   store.ActionAttachmentRemoved,
		Metadata: map[string]any{"file_name": attachment.FileName},
	}); err != nil {
		s.logger.Warn("record attachment activity", "error", err)
	}
	return nil
}

func (s *Service) attachmentForMember(ctx context.Context, attachmentID, userID string) (store.CardAttachment, error) {
	attachment, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.CardAttachment{}, notFound("Attachment not found")
		}
		return store.CardAttachment{}, err
	}
	if _, _, err := s.cardForMember(ctx, attachment.CardID, userID); err != nil {
		return store.CardAttachment{}, err
	}
	return attachment, nil
}
