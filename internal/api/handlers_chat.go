package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"DeFi-Agent/internal/chat"
	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/pkg/dto"
)

// requestHints 从边缘代理注入的地理位置头中读取请求来源。
func requestHints(r *http.Request) chat.RequestHints {
	return chat.RequestHints{
		Latitude:  r.Header.Get("X-Vercel-IP-Latitude"),
		Longitude: r.Header.Get("X-Vercel-IP-Longitude"),
		City:      r.Header.Get("X-Vercel-IP-City"),
		Country:   r.Header.Get("X-Vercel-IP-Country"),
	}
}

func pathID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if err := dto.Validate(dto.ChatParams{ID: id}); err != nil {
		return "", err
	}
	return id, nil
}

// handleCreateChat godoc
// @Summary      Send a message and stream the reply
// @Description  Responds with a text/event-stream of UI message frames terminated by [DONE].
// @Tags         chat
// @Accept       json
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        body  body  dto.PostChatRequest  true  "message"
// @Success      200
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      429  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/chat [post]
func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.PostChatRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out := newSSEWriter(w)
	if err := s.deps.Chat.Create(r.Context(), sub, req, requestHints(r), out); err != nil {
		if !out.Started() {
			s.writeError(w, r, err)
			return
		}
		s.log.Error("聊天流中断", slog.String("chat_id", req.ID), slog.Any("error", err))
	}
	out.Done()
}

// handleResumeChat godoc
// @Summary      Resume the latest stream of a chat
// @Tags         chat
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id   path  string  true  "chat id"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/chat/{id}/stream [get]
func (s *Server) handleResumeChat(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := newSSEWriter(w)
	if err := s.deps.Chat.Resume(r.Context(), sub, id, out); err != nil {
		if !out.Started() {
			s.writeError(w, r, err)
			return
		}
		s.log.Warn("恢复聊天流中断", slog.String("chat_id", id), slog.Any("error", err))
	}
	out.Done()
}

// handleGetChat godoc
// @Summary      Get a chat with its messages
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "chat id"
// @Success      200  {object}  dto.ChatWithMessages
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/chat/{id} [get]
func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Chat.GetChat(r.Context(), sub, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDeleteChat godoc
// @Summary      Delete a chat
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id   query     string  true  "chat id"
// @Success      200  {object}  dto.Chat
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/chat [delete]
func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var q dto.ChatParams
	if err := queryInto(r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Chat.DeleteChat(r.Context(), sub, q.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleUpdateVisibility godoc
// @Summary      Change chat visibility
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "chat id"
// @Param        body  body      dto.VisibilityRequest  true  "visibility"
// @Success      200   {object}  dto.Success
// @Router       /api/chat/{id}/visibility [patch]
func (s *Server) handleUpdateVisibility(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.VisibilityRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Chat.UpdateVisibility(r.Context(), sub, id, req.Visibility); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Success{Success: true})
}

// handleDeleteTrailing godoc
// @Summary      Delete a message and everything after it
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "message id"
// @Success      200  {object}  dto.Success
// @Router       /api/chat/messages/{id}/trailing [delete]
func (s *Server) handleDeleteTrailing(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Chat.DeleteTrailingMessages(r.Context(), sub, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Success{Success: true})
}

// handleHistory godoc
// @Summary      List chats
// @Tags         history
// @Produce      json
// @Security     BearerAuth
// @Param        limit           query     int     false  "page size (1-100)"
// @Param        starting_after  query     string  false  "chat id cursor, newer chats"
// @Param        ending_before   query     string  false  "chat id cursor, older chats"
// @Param        agentId         query     string  false  "filter by agent, empty for chats without agent"
// @Success      200             {object}  dto.HistoryPage
// @Router       /api/history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	query := r.URL.Query()
	q := dto.HistoryQuery{
		StartingAfter: query.Get("starting_after"),
		EndingBefore:  query.Get("ending_before"),
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, apperrors.New(apperrors.CodeBadRequestAPI, "Parameter limit must be an integer"))
			return
		}
		q.Limit = limit
	}
	if query.Has("agentId") {
		agentID := query.Get("agentId")
		q.AgentID = &agentID
	}
	res, err := s.deps.Chat.History(r.Context(), sub, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDeleteHistory godoc
// @Summary      Delete every chat of the current user
// @Tags         history
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.DeletedCount
// @Router       /api/history [delete]
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Chat.DeleteHistory(r.Context(), sub)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetVotes godoc
// @Summary      List votes of a chat
// @Tags         vote
// @Produce      json
// @Security     BearerAuth
// @Param        chatId  query     string  true  "chat id"
// @Success      200     {array}   dto.Vote
// @Router       /api/vote [get]
func (s *Server) handleGetVotes(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Chat.Votes(r.Context(), sub, r.URL.Query().Get("chatId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleVote godoc
// @Summary      Vote on a message
// @Tags         vote
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.VoteRequest  true  "vote"
// @Success      200   {object}  dto.Success
// @Router       /api/vote [patch]
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.VoteRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Chat.Vote(r.Context(), sub, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
