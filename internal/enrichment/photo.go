package enrichment

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxPhotoPixels bounds the decoded size of an upload. Compressed formats can
// declare dimensions far larger than their byte size suggests.
const MaxPhotoPixels = 50_000_000

// PreparePhoto decodes an uploaded photo, scales it so its long edge is at
// most maxDim pixels and re-encodes it as JPEG at the given quality.
func PreparePhoto(raw []byte, maxDim, quality int) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPhotoPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds the pixel limit", ErrUnsupportedImage, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}

	var out image.Image = src
	if long := max(w, h); maxDim > 0 && long > maxDim {
		nw, nh := w*maxDim/long, h*maxDim/long
		dst := image.NewRGBA(image.Rect(0, 0, max(nw, 1), max(nh, 1)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
