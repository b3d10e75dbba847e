package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"DeFi-Agent/pkg/dto"
)

// handleListLinks godoc
// @Summary      List links
// @Tags         links
// @Produce      json
// @Success      200  {array}  dto.Link
// @Router       /links [get]
func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Links.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCreateLink godoc
// @Summary      Create a link
// @Tags         links
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateLinkRequest  true  "link"
// @Success      201   {object}  dto.Link
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /links [post]
func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLinkRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Links.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleGetLink godoc
// @Summary      Get a link
// @Tags         links
// @Produce      json
// @Param        id   path      int  true  "link id"
// @Success      200  {object}  dto.Link
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /links/{id} [get]
func (s *Server) handleGetLink(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Links.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleUpdateLink godoc
// @Summary      Update a link
// @Tags         links
// @Accept       json
// @Produce      json
// @Param        id    path      int                    true  "link id"
// @Param        body  body      dto.UpdateLinkRequest  true  "fields to change"
// @Success      200   {object}  dto.Link
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /links/{id} [patch]
func (s *Server) handleUpdateLink(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateLinkRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Links.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDeleteLink godoc
// @Summary      Delete a link
// @Tags         links
// @Produce      json
// @Param        id   path      int  true  "link id"
// @Success      200  {object}  dto.Success
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /links/{id} [delete]
func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Links.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Success{Success: true})
}
