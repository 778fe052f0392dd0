package app

import (
	"net/http"
	"strconv"
)

func (s *HTTPServer) handleWorkspaces(w http.ResponseWriter, r *http.Request, parts []string) {
	session, ok := s.authed(w, r)
	if !ok {
		return
	}

	switch {
	case r.Method == http.MethodGet && len(parts) == 2:
		workspaces, err := s.service.ListWorkspaces(r.Context(), session.UserID)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		items := make([]map[string]any, 0, len(workspaces))
		for _, workspace := range workspaces {
			items = append(items, workspacePayload(workspace))
		}
		writeJSON(w, http.StatusOK, map[string]any{"workspaces": items})

	case r.Method == http.MethodPost && len(parts) == 2:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		workspace, err := s.service.CreateWorkspace(r.Context(), session.UserID, body.Name)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, workspacePayload(workspace))

	case r.Method == http.MethodGet && len(parts) == 3:
		detail, err := s.service.GetWorkspace(r.Context(), parts[2], session.UserID)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		members := make([]map[string]any, 0, len(detail.Members))
		for _, member := range detail.Members {
			members = append(members, memberPayload(member))
		}
		labels := make([]map[string]any, 0, len(detail.Labels))
		for _, label := range detail.Labels {
			labels = append(labels, labelPayload(label))
		}
		payload := workspacePayload(detail.Workspace)
		payload["members"] = members
		payload["labels"] = labels
		payload["role"] = detail.Role
		writeJSON(w, http.StatusOK, payload)

	case r.Method == http.MethodPut && len(parts) == 3:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		workspace, err := s.service.RenameWorkspace(r.Context(), parts[2], session.UserID, body.Name)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, workspacePayload(workspace))

	case r.Method == http.MethodDelete && len(parts) == 3:
		if err := s.service.DeleteWorkspace(r.Context(), parts[2], session.UserID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(parts) >= 4 && parts[3] == "boards":
		s.handleWorkspaceBoards(w, r, session, parts)

	case len(parts) >= 4 && parts[3] == "labels":
		s.handleWorkspaceLabels(w, r, session, parts)

	case len(parts) >= 4 && parts[3] == "members":
		s.handleWorkspaceMembers(w, r, session, parts)

	case len(parts) >= 4 && parts[3] == "invitations":
		s.handleWorkspaceInvitations(w, r, session, parts)

	case r.Method == http.MethodGet && len(parts) == 4 && parts[3] == "audit":
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err := s.service.ListAuditLog(r.Context(), parts[2], session.UserID, limit)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		items := make([]map[string]any, 0, len(entries))
		for _, entry := range entries {
			items = append(items, auditPayload(entry))
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": items})

	case r.Method == http.MethodGet && len(parts) == 4 && parts[3] == "search":
		query := r.URL.Query()
		limit, _ := strconv.Atoi(query.Get("limit"))
		offset, _ := strconv.Atoi(query.Get("offset"))
		response, err := s.service.SearchCards(r.Context(), parts[2], session.UserID, query.Get("q"), limit, offset)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, response)

	case r.Method == http.MethodGet && len(parts) == 4 && parts[3] == "events":
		if s.hub == nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Event streaming is not enabled", nil)
			return
		}
		if err := s.service.AuthorizeWorkspace(r.Context(), parts[2], session.UserID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		s.hub.ServeWorkspaceSSE(w, r, parts[2], session.UserID)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleWorkspaceBoards(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	workspaceID := parts[2]
	switch {
	case r.Method == http.MethodGet && len(parts) == 4:
		includeArchived := r.URL.Query().Get("includeArchived") == "true"
		boards, err := s.service.ListBoards(r.Context(), workspaceID, session.UserID, includeArchived)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		items := make([]map[string]any, 0, len(boards))
		for _, board := range boards {
			items = append(items, boardPayload(board))
		}
		writeJSON(w, http.StatusOK, map[string]any{"boards": items})

	case r.Method == http.MethodPost && len(parts) == 4:
		var body CreateBoardInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		board, err := s.service.CreateBoard(r.Context(), workspaceID, session.UserID, body)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, boardPayload(board))

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleWorkspaceLabels(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	workspaceID := parts[2]
	switch {
	case r.Method == http.MethodGet && len(parts) == 4:
		labels, err := s.service.ListLabels(r.Context(), workspaceID, session.UserID)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		items := make([]map[string]any, 0, len(labels))
		for _, label := range labels {
			items = append(items, labelPayload(label))
		}
		writeJSON(w, http.StatusOK, map[string]any{"labels": items})

	case r.Method == http.MethodPost && len(parts) == 4:
		var body LabelInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		label, err := s.service.CreateLabel(r.Context(), workspaceID, session.UserID, body)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, labelPayload(label))

	case r.Method == http.MethodPut && len(parts) == 5:
		var body LabelInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		label, err := s.service.UpdateLabel(r.Context(), parts[4], session.UserID, body)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, labelPayload(label))

	case r.Method == http.MethodDelete && len(parts) == 5:
		if err := s.service.DeleteLabel(r.Context(), parts[4], session.UserID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleWorkspaceMembers(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	workspaceID := parts[2]
	switch {
	case r.Method == http.MethodPut && len(parts) == 5:
		var body struct {
			Role string `json:"role"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.ChangeMemberRole(r.Context(), workspaceID, session.UserID, parts[4], body.Role); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case r.Method == http.MethodDelete && len(parts) == 5:
		if err := s.service.RemoveMember(r.Context(), workspaceID, session.UserID, parts[4]); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleWorkspaceInvitations(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	workspaceID := parts[2]
	switch {
	case r.Method == http.MethodGet && len(parts) == 4:
		invitations, err := s.service.ListInvitations(r.Context(), workspaceID, session.UserID)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		items := make([]map[string]any, 0, len(invitations))
		for _, invitation := range invitations {
			items = append(items, invitationPayload(invitation))
		}
		writeJSON(w, http.StatusOK, map[string]any{"invitations": items})

	case r.Method == http.MethodPost && len(parts) == 4:
		var body InviteInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		invitation, err := s.service.InviteMember(r.Context(), workspaceID, session.UserID, body)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, invitationPayload(invitation))

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}
