package transform

import (
	"image"
	"io"

	"github.com/disintegration/imaging"

	errs "reelproxy/pkg/errors"
)

// CropImage decodes an image, crops it to region and re-encodes it in
// the format named by ext (defaulting to JPEG), writing the result to
// w. quality only applies to JPEG output.
func CropImage(r io.Reader, w io.Writer, region Region, ext string, quality int) error {
	if err := region.Validate(); err != nil {
		return err
	}

	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeTransform, "could not decode image", err)
	}

	bounds := src.Bounds()
	rect := image.Rect(
		bounds.Min.X+region.Left,
		bounds.Min.Y+region.Top,
		bounds.Min.X+region.Left+region.Width,
		bounds.Min.Y+region.Top+region.Height,
	)
	if !rect.In(bounds) {
		return errs.New(errs.ErrorTypeValidation, "crop region extends outside the image")
	}

	cropped := imaging.Crop(src, rect)

	format, err := imaging.FormatFromExtension(NormalizeExt(ext))
	if err != nil {
		format = imaging.JPEG
	}

	if err := imaging.Encode(w, cropped, format, imaging.JPEGQuality(quality)); err != nil {
		return errs.Wrap(errs.ErrorTypeTransform, "could not encode cropped image", err)
	}
	return nil
}
