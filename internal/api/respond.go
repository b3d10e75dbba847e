package api

import (
	"bytes"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/pkg/dto"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// writeJSON 输出 JSON 响应。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 将任意错误渲染为统一的错误信封。
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := dto.ErrorResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
		Method:    r.Method,
	}

	var verrs validator.ValidationErrors
	switch e, known := apperrors.From(err); {
	case stdErrors.As(err, &verrs):
		body.StatusCode = http.StatusBadRequest
		body.Code = string(apperrors.CodeBadRequestAPI)
		body.Message = apperrors.AttributesOf(apperrors.CodeBadRequestAPI).Message
		body.Cause = validationCause(verrs)
	case known:
		body.StatusCode = e.Status()
		body.Code = string(e.Code())
		body.Message = e.Message()
		if cause, ok := e.Metadata()["cause"]; ok {
			body.Cause = cause
		}
		if apperrors.VisibilityOf(e.Code()) == apperrors.VisibilityLog {
			s.log.Error("数据库操作失败",
				slog.String("path", r.URL.Path),
				slog.String("code", string(e.Code())),
				slog.Any("error", err),
			)
		} else if body.StatusCode >= http.StatusInternalServerError {
			s.log.Error("请求处理失败", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
	default:
		body.StatusCode = http.StatusInternalServerError
		body.Message = "Internal server error"
		s.log.Error("未处理的错误", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	writeJSON(w, body.StatusCode, body)
}

func validationCause(verrs validator.ValidationErrors) string {
	causes := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		causes = append(causes, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(causes, "; ")
}

// decodeJSON 读取并校验请求体，超过 maxBytes 的请求体直接拒绝。
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stdErrors.As(err, &tooLarge) {
			return apperrors.Wrap(apperrors.CodeBadRequestAPI, err, "Request body too large",
				apperrors.WithStatus(http.StatusRequestEntityTooLarge))
		}
		return apperrors.Wrap(apperrors.CodeBadRequestAPI, err, "Request body could not be read")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return apperrors.New(apperrors.CodeBadRequestAPI, "Request body is required")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.Wrap(apperrors.CodeBadRequestAPI, err, "Request body is not valid JSON")
	}
	return dto.Validate(dst)
}

// queryInto 把查询参数按 json 标签填入结构体并校验。
func queryInto(r *http.Request, dst any) error {
	values := make(map[string]string)
	for key, v := range r.URL.Query() {
		if len(v) > 0 {
			values[key] = v[0]
		}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeBadRequestAPI, err, "")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.Wrap(apperrors.CodeBadRequestAPI, err, "")
	}
	return dto.Validate(dst)
}
