package api

import (
	"errors"
	"net/http"

	apperrors "DeFi-Agent/internal/errors"
)

// handleUpload godoc
// @Summary      Upload an image attachment
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "JPEG or PNG, at most 5MB"
// @Success      200   {object}  dto.UploadResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/files/upload [post]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if _, err := subject(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	limit := s.deps.Files.MaxBytes() + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, apperrors.New(apperrors.CodeBadRequestFile, "File size should be less than 5MB"))
			return
		}
		s.writeError(w, r, apperrors.Wrap(apperrors.CodeBadRequestAPI, err, "Request body is empty"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, apperrors.New(apperrors.CodeBadRequestAPI, "No file uploaded"))
		return
	}
	defer file.Close()

	res, err := s.deps.Files.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
