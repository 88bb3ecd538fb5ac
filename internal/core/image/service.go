package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"  // 支援 GIF
	_ "image/jpeg" // 支援 JPEG
	_ "image/png"  // 支援 PNG

	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // 支援 WebP
)

// Service 圖片處理服務：驗證、轉正、縮放並存到上傳目錄
type Service struct {
	maxSizeBytes int64
	maxDimension int
	uploadDir    string
}

// NewService 創建新的圖片處理服務
func NewService(cfg *config.Config) *Service {
	return &Service{
		maxSizeBytes: cfg.Image.MaxSizeBytes,
		maxDimension: cfg.Image.MaxDimension,
		uploadDir:    cfg.Image.UploadDir,
	}
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}

// Save 儲存上傳的圖片，回傳隨機檔名（相對於上傳目錄）
func (s *Service) Save(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSizeBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > s.maxSizeBytes {
		return "", common.ErrInvalidImageSize
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", common.ErrInvalidImageFormat.WithError(err)
	}
	if !isSupportedFormat(format) {
		return "", common.ErrInvalidImageFormat.WithMessage("unsupported image format: " + format)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	outFormat, err := imaging.FormatFromExtension(ext)
	if err != nil {
		ext, outFormat = ".jpg", imaging.JPEG
	}

	// imaging.Decode 會依 EXIF 轉正
	if oriented, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		img = oriented
	}
	bounds := img.Bounds()
	if s.maxDimension > 0 && (bounds.Dx() > s.maxDimension || bounds.Dy() > s.maxDimension) {
		img = imaging.Fit(img, s.maxDimension, s.maxDimension, imaging.Lanczos)
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := strings.ReplaceAll(common.GenerateUUID(), "-", "") + ext
	f, err := os.Create(s.Path(name))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	if err := imaging.Encode(f, img, outFormat, imaging.JPEGQuality(85)); err != nil {
		f.Close()
		_ = os.Remove(s.Path(name))
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	common.LogInfo("圖片已儲存",
		zap.String("file", name),
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
	)
	return name, nil
}

// Path 檔名對應的實際路徑，空檔名回傳空字串
func (s *Service) Path(name string) string {
	if name == "" {
		return ""
	}
	return filepath.Join(s.uploadDir, filepath.Base(name))
}

// Remove 刪除圖片，檔案不存在不算錯誤
func (s *Service) Remove(name string) error {
	if name == "" {
		return nil
	}
	if err := os.Remove(s.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}
