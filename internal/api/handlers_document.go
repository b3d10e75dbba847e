package api

import (
	"net/http"

	"DeFi-Agent/pkg/dto"
)

// handleGetDocument godoc
// @Summary      List every version of a document
// @Tags         document
// @Produce      json
// @Security     BearerAuth
// @Param        id   query     string  true  "document id"
// @Success      200  {array}   dto.Document
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/document [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Documents.Get(r.Context(), sub, r.URL.Query().Get("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSaveDocument godoc
// @Summary      Save a new document version
// @Tags         document
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    query     string               true  "document id"
// @Param        body  body      dto.DocumentRequest  true  "document"
// @Success      200   {object}  dto.Document
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/document [post]
func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.DocumentRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Documents.Save(r.Context(), sub, r.URL.Query().Get("id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDeleteDocument godoc
// @Summary      Delete document versions newer than a timestamp
// @Tags         document
// @Produce      json
// @Security     BearerAuth
// @Param        id         query     string  true  "document id"
// @Param        timestamp  query     string  true  "RFC3339 time or unix milliseconds"
// @Success      200        {array}   dto.Document
// @Router       /api/document [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	query := r.URL.Query()
	res, err := s.deps.Documents.DeleteAfter(r.Context(), sub, query.Get("id"), query.Get("timestamp"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSuggestions godoc
// @Summary      List suggestions of a document
// @Tags         document
// @Produce      json
// @Security     BearerAuth
// @Param        documentId  query     string  true  "document id"
// @Success      200         {array}   dto.Suggestion
// @Router       /api/suggestions [get]
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Documents.Suggestions(r.Context(), sub, r.URL.Query().Get("documentId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
