package transform

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "reelproxy/pkg/errors"
)

func TestRegionFilterArg(t *testing.T) {
	r := Region{Left: 10, Top: 20, Width: 300, Height: 400}
	assert.Equal(t, "crop=300:400:10:20", r.FilterArg())
}

func TestRegionValidate(t *testing.T) {
	assert.NoError(t, Region{Width: 1, Height: 1}.Validate())
	assert.Error(t, Region{Width: 0, Height: 100}.Validate())
	assert.Error(t, Region{Width: 100, Height: -1}.Validate())
	assert.Error(t, Region{Left: -5, Width: 100, Height: 100}.Validate())
}

func TestExtensionClassification(t *testing.T) {
	assert.True(t, IsImageExt(".JPG"))
	assert.True(t, IsImageExt("png"))
	assert.True(t, IsVideoExt(".mp4"))
	assert.True(t, IsVideoExt("webm"))
	assert.False(t, IsImageExt("mp4"))
	assert.False(t, IsVideoExt("jpg"))
	assert.False(t, IsSupportedExt(".exe"))
	assert.False(t, IsSupportedExt(""))
}

func testPNG(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestCropImage(t *testing.T) {
	src := testPNG(t, 200, 200)
	var out bytes.Buffer

	err := CropImage(src, &out, Region{Left: 0, Top: 0, Width: 100, Height: 100}, "png", 90)
	require.NoError(t, err)

	cropped, _, err := image.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, 100, cropped.Bounds().Dx())
	assert.Equal(t, 100, cropped.Bounds().Dy())
}

func TestCropImageWithOffset(t *testing.T) {
	src := testPNG(t, 200, 150)
	var out bytes.Buffer

	err := CropImage(src, &out, Region{Left: 50, Top: 30, Width: 80, Height: 60}, "jpeg", 85)
	require.NoError(t, err)

	cropped, _, err := image.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, 80, cropped.Bounds().Dx())
	assert.Equal(t, 60, cropped.Bounds().Dy())
}

func TestCropImageRejectsOutOfBoundsRegion(t *testing.T) {
	src := testPNG(t, 100, 100)
	var out bytes.Buffer

	err := CropImage(src, &out, Region{Left: 50, Top: 50, Width: 100, Height: 100}, "png", 90)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeValidation))
}

func TestCropImageRejectsGarbageInput(t *testing.T) {
	var out bytes.Buffer
	err := CropImage(bytes.NewReader([]byte("not an image")), &out, Region{Width: 10, Height: 10}, "png", 90)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeTransform))
}
