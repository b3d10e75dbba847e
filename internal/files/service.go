package files

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/pkg/dto"
	"DeFi-Agent/pkg/logger"
)

// DefaultMaxBytes 是默认的单文件大小上限。
const DefaultMaxBytes int64 = 5 << 20

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Service 校验并保存上传文件。
type Service struct {
	storage  Storage
	maxBytes int64
	log      *slog.Logger
}

// NewService 创建上传服务，maxBytes 不大于 0 时使用 5MB。
func NewService(storage Storage, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{storage: storage, maxBytes: maxBytes, log: logger.Named("files")}
}

// MaxBytes 返回单文件大小上限。
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload 校验文件并写入存储。
func (s *Service) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*dto.UploadResponse, error) {
	if size > s.maxBytes {
		return nil, apperrors.New(apperrors.CodeBadRequestFile, "File size should be less than 5MB")
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !allowedTypes[contentType] {
		return nil, apperrors.New(apperrors.CodeBadRequestFile, "File type should be JPEG or PNG")
	}

	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	key := uuid.NewString() + "-" + name

	url, err := s.storage.Put(ctx, key, contentType, size, io.LimitReader(body, s.maxBytes))
	if err != nil {
		s.log.Error("上传文件失败", slog.String("key", key), slog.Any("error", err))
		return nil, apperrors.Wrap(apperrors.CodeBadRequestAPI, err, "Upload failed", apperrors.WithStatus(http.StatusInternalServerError))
	}
	return &dto.UploadResponse{URL: url, Pathname: key, ContentType: contentType}, nil
}
