package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/moviestream/backend/internal/config"
)

const maxUploadBytes = 2 << 30 // 2 GiB

// CommonHandler serves the health probe and the video upload staging
// endpoint.
type CommonHandler struct {
	Cfg    config.Config
	Logger *zap.Logger
}

// Health handles GET /health.
func (h *CommonHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// UploadVideo handles POST /v1/common/video (admin). The multipart file
// lands in the temp directory as <uuid>_<unix>.mp4; the movie create
// endpoint later moves it to permanent storage. The timestamp in the
// name lets the orphan sweep age out files that never got attached.
func (h *CommonHandler) UploadVideo(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	if fh.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large"})
	}
	if ext := strings.ToLower(filepath.Ext(fh.Filename)); ext != ".mp4" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only .mp4 uploads are accepted"})
	}

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read upload"})
	}
	defer src.Close()

	if err := os.MkdirAll(h.Cfg.TempDir, 0o755); err != nil {
		h.Logger.Error("create temp dir failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}

	name := fmt.Sprintf("%s_%d.mp4", uuid.NewString(), time.Now().Unix())
	dstPath := filepath.Join(h.Cfg.TempDir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		h.Logger.Error("create temp file failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dstPath)
		h.Logger.Error("write upload failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"file": name})
}
