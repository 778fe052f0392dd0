package app

import "net/http"

func (s *HTTPServer) handleBoards(w http.ResponseWriter, r *http.Request, parts []string) {
	session, ok := s.authed(w, r)
	if !ok {
		return
	}
	if len(parts) < 3 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	boardID := parts[2]

	switch {
	case r.Method == http.MethodGet && len(parts) == 3:
		detail, err := s.service.GetBoard(r.Context(), boardID, session.UserID)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		cards := make([]map[string]any, 0, len(detail.Cards))
		for _, card := range detail.Cards {
			cards = append(cards, cardPayload(card))
		}
		payload := boardPayload(detail.Board)
		payload["cards"] = cards
		writeJSON(w, http.StatusOK, payload)

	case r.Method == http.MethodPut && len(parts) == 3:
		var body UpdateBoardInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		board, err := s.service.UpdateBoard(r.Context(), boardID, session.UserID, body)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, boardPayload(board))

	case r.Method == http.MethodDelete && len(parts) == 3:
		if err := s.service.DeleteBoard(r.Context(), boardID, session.UserID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "cards":
		var body CreateCardInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		card, err := s.service.CreateCard(r.Context(), boardID, session.UserID, body)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, cardPayload(card))

	case r.Method == http.MethodGet && len(parts) == 4 && parts[3] == "events":
		if s.hub == nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Event streaming is not enabled", nil)
			return
		}
		if err := s.service.AuthorizeBoard(r.Context(), boardID, session.UserID); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		s.hub.ServeBoardSSE(w, r, boardID, session.UserID)

	case len(parts) >= 4 && parts[3] == "columns":
		s.handleBoardColumns(w, r, session, parts)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleBoardColumns(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	boardID := parts[2]
	switch {
	case r.Method == http.MethodPost && len(parts) == 4:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		board, err := s.service.AddColumn(r.Context(), boardID, session.UserID, body.Name)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, boardPayload(board))

	case r.Method == http.MethodPut && len(parts) == 5 && parts[4] == "reorder":
		var body struct {
			ColumnIDs []string `json:"columnIds"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		board, err := s.service.ReorderColumns(r.Context(), boardID, session.UserID, body.ColumnIDs)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, boardPayload(board))

	case r.Method == http.MethodPut && len(parts) == 5:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		board, err := s.service.RenameColumn(r.Context(), boardID, session.UserID, parts[4], body.Name)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, boardPayload(board))

	case r.Method == http.MethodDelete && len(parts) == 5:
		board, err := s.service.RemoveColumn(r.Context(), boardID, session.UserID, parts[4])
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, boardPayload(board))

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}
