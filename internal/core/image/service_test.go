package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"

	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, maxSize int64) *Service {
	cfg := &config.Config{}
	cfg.Image.MaxSizeBytes = maxSize
	cfg.Image.MaxDimension = 50
	cfg.Image.UploadDir = t.TempDir()
	return NewService(cfg)
}

func pngBytes(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSave_ResizesAndStores(t *testing.T) {
	s := newTestService(t, 1<<20)

	name, err := s.Save(bytes.NewReader(pngBytes(t, 200, 100)), "fridge.PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.NotContains(t, name, "fridge")

	stored, err := imaging.Open(s.Path(name))
	require.NoError(t, err)
	assert.Equal(t, 50, stored.Bounds().Dx())
	assert.Equal(t, 25, stored.Bounds().Dy())

	require.NoError(t, s.Remove(name))
	_, err = os.Stat(s.Path(name))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, s.Remove(name))
}

func TestSave_UnknownExtensionBecomesJPEG(t *testing.T) {
	s := newTestService(t, 1<<20)
	name, err := s.Save(bytes.NewReader(pngBytes(t, 10, 10)), "photo")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".jpg"))
}

func TestSave_Rejects(t *testing.T) {
	s := newTestService(t, 40)

	_, err := s.Save(bytes.NewReader(pngBytes(t, 100, 100)), "big.png")
	assert.ErrorIs(t, err, common.ErrInvalidImageSize)

	_, err = s.Save(strings.NewReader("not an image"), "x.jpg")
	assert.True(t, common.IsValidationError(err))
}
