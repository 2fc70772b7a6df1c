// Package transform crops media: videos through ffmpeg, images
// in-process through the imaging library.
package transform

import (
	"fmt"
	"strings"

	errs "reelproxy/pkg/errors"
)

// Region is a crop rectangle in pixels, offset from the top-left
// corner of the source frame.
type Region struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Validate rejects rectangles that cannot describe a crop
func (r Region) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return errs.New(errs.ErrorTypeValidation, "crop region must have positive width and height")
	}
	if r.Left < 0 || r.Top < 0 {
		return errs.New(errs.ErrorTypeValidation, "crop region offsets must not be negative")
	}
	return nil
}

// FilterArg renders the region as an ffmpeg crop filter expression
func (r Region) FilterArg() string {
	return fmt.Sprintf("crop=%d:%d:%d:%d", r.Width, r.Height, r.Left, r.Top)
}

var (
	imageExts = map[string]bool{
		"jpeg": true, "jpg": true, "png": true, "gif": true,
	}
	videoExts = map[string]bool{
		"mp4": true, "avi": true, "mov": true, "mkv": true, "webm": true,
	}
)

// NormalizeExt lowercases an extension and strips its leading dot
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImageExt reports whether ext names a supported image format
func IsImageExt(ext string) bool {
	return imageExts[NormalizeExt(ext)]
}

// IsVideoExt reports whether ext names a supported video format
func IsVideoExt(ext string) bool {
	return videoExts[NormalizeExt(ext)]
}

// IsSupportedExt reports whether ext names any supported media format
func IsSupportedExt(ext string) bool {
	return IsImageExt(ext) || IsVideoExt(ext)
}
