package app

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
)

func (s *HTTPServer) handleCards(w http.ResponseWriter, r *http.Request, parts []string) {
	session, ok := s.authed(w, r)
	if !ok {
		return
	}
	if len(parts) < 3 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	if r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "bulk-move" {
		var body struct {
			Moves []BulkMoveItem `json:"moves"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		results, err := s.service.BulkMoveCards(r.Context(), session.UserID, body.Moves)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}

	cardID := parts[2]
	switch {
	case r.Method == http.MethodGet && len(parts) == 3:
		detail, err := s.service.GetCard(r.Context(), cardID, session.UserID)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		comments := make([]map[string]any, 0, len(detail.Comments))
		for _, comment := range detail.Comments {
			comments = append(comments, commentPayload(comment))
		}
		activities := make([]map[string]any, 0, len(detail.Activities))
		for _, activity := range detail.Activities {
			activities = append(activities, activityPayload(activity))
		}
		attachments := make([]map[string]any, 0, len(detail.Attachments))
		for _, attachment := range detail.Attachments {
			attachments = append(attachments, attachmentPayload(attachment))
		}
		payload := cardPayload(detail.Card)
		payload["comments"] = comments
		payload["activities"] = activities
		payload["attachments"] = attachments
		writeJSON(w, http.StatusOK, payload)

	case r.Method == http.MethodPut && len(parts) == 3:
		var body UpdateCardInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		card, err := s.service.UpdateCard(r.Context(), cardID, session.UserID, body)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cardPayload(card))

	case r.Method == http.MethodDelete && len(parts) == 3:
		if err := s.service.DeleteCard(r.Context(), cardID, session.UserID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "move":
		var body MoveCardInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		card, err := s.service.MoveCard(r.Context(), cardID, session.UserID, body)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cardPayload(card))

	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "comments":
		var body CommentInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		comment, err := s.service.CreateComment(r.Context(), cardID, session.UserID, body)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, commentPayload(comment))

	case len(parts) == 5 && parts[3] == "labels":
		s.handleCardLabel(w, r, session, cardID, parts[4])

	case len(parts) == 5 && parts[3] == "assignees":
		s.handleCardAssignee(w, r, session, cardID, parts[4])

	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "attachments":
		s.handleAttachmentUpload(w, r, session, cardID)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleCardLabel(w http.ResponseWriter, r *http.Request, session Session, cardID, labelID string) {
	switch r.Method {
	case http.MethodPut:
		if err := s.service.AttachLabel(r.Context(), cardID, labelID, session.UserID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case http.MethodDelete:
		if err := s.service.DetachLabel(r.Context(), cardID, labelID, session.UserID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleCardAssignee(w http.ResponseWriter, r *http.Request, session Session, cardID, assigneeID string) {
	switch r.Method {
	case http.MethodPut:
		if err := s.service.AssignCard(r.Context(), cardID, session.UserID, assigneeID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case http.MethodDelete:
		if err := s.service.UnassignCard(r.Context(), cardID, session.UserID, assigneeID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleAttachmentUpload(w http.ResponseWriter, r *http.Request, session Session, cardID string) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Expected multipart form data", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "A file field is required", nil)
		return
	}
	defer file.Close()

	attachment, err := s.service.UploadAttachment(r.Context(), cardID, session.UserID,
		header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, attachmentPayload(attachment))
}

func (s *HTTPServer) handleComments(w http.ResponseWriter, r *http.Request, parts []string) {
	session, ok := s.authed(w, r)
	if !ok {
		return
	}
	if len(parts) != 3 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	commentID := parts[2]

	switch r.Method {
	case http.MethodPut:
		var body CommentInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		comment, err := s.service.UpdateComment(r.Context(), commentID, session.UserID, body)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, commentPayload(comment))
	case http.MethodDelete:
		if err := s.service.DeleteComment(r.Context(), commentID, session.UserID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleAttachments(w http.ResponseWriter, r *http.Request, parts []string) {
	session, ok := s.authed(w, r)
	if !ok {
		return
	}
	if len(parts) != 3 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	attachmentID := parts[2]

	switch r.Method {
	case http.MethodGet:
		attachment, reader, err := s.service.DownloadAttachment(r.Context(), attachmentID, session.UserID)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		defer reader.Close()
		w.Header().Set("Content-Type", attachment.ContentType)
		w.Header().Set("Content-Length", strconv.FormatInt(attachment.Size, 10))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.FileName))
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, reader)
	case http.MethodDelete:
		if err := s.service.DeleteAttachment(r.Context(), attachmentID, session.UserID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleInvitations(w http.ResponseWriter, r *http.Request, parts []string) {
	session, ok := s.authed(w, r)
	if !ok {
		return
	}

	switch {
	case r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "accept":
		var body struct {
			Token string `json:"token"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		workspace, err := s.service.AcceptInvitation(r.Context(), body.Token, session.UserID)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, workspacePayload(workspace))

	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "resend":
		invitation, err := s.service.ResendInvitation(r.Context(), parts[2], session.UserID)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, invitationPayload(invitation))

	case r.Method == http.MethodDelete && len(parts) == 3:
		if err := s.service.RevokeInvitation(r.Context(), parts[2], session.UserID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request, parts []string) {
	session, ok := s.authed(w, r)
	if !ok {
		return
	}

	switch {
	case r.Method == http.MethodGet && len(parts) == 2:
		query := r.URL.Query()
		limit, _ := strconv.Atoi(query.Get("limit"))
		notifications, err := s.service.ListNotifications(r.Context(), session.UserID, query.Get("unread") == "true", limit)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		items := make([]map[string]any, 0, len(notifications))
		for _, notification := range notifications {
			items = append(items, notificationPayload(notification))
		}
		writeJSON(w, http.StatusOK, map[string]any{"notifications": items})

	case r.Method == http.MethodGet && len(parts) == 3 && parts[2] == "unread-count":
		count, err := s.service.UnreadNotificationCount(r.Context(), session.UserID)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": count})

	case r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "read-all":
		count, err := s.service.MarkAllNotificationsRead(r.Context(), session.UserID)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"marked": count})

	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "read":
		if err := s.service.MarkNotificationRead(r.Context(), parts[2], session.UserID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}
