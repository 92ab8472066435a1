package imaging

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	"github.com/forPelevin/mediagrab/internal/ports"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 4096
	jpegQuality         = 92
)

// Normalizer re-encodes still images to JPEG, shrinking anything larger than
// MaxDimension on its long side.
type Normalizer struct {
	MaxDimension int
}

func New(maxDimension int) *Normalizer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &Normalizer{MaxDimension: maxDimension}
}

func (n *Normalizer) Ext() string { return ".jpg" }

func (n *Normalizer) Normalize(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ports.ErrUnsupportedImage, src, err)
	}

	img = Fit(img, n.MaxDimension)

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(out, flatten(img), &jpeg.Options{Quality: jpegQuality}); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("encode %s: %w", dst, err)
	}
	return out.Close()
}

// Fit scales img down so neither side exceeds max, keeping the aspect ratio.
func Fit(img image.Image, max int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if max <= 0 || (w <= max && h <= max) {
		return img
	}
	nw, nh := max, max
	if w >= h {
		nh = h * max / w
	} else {
		nw = w * max / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// flatten paints transparent pixels onto white; JPEG has no alpha.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
