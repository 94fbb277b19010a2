package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	// Registered decoders for the formats chat platforms hand us.
	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"yuri/internal/domain"
	"yuri/internal/domain/models"
)

// Normalizer converts any decodable image to an RGB JPEG whose longest side
// is at most MaxDimension. Transparency is flattened onto white.
type Normalizer struct {
	MaxDimension int
	Quality      int
}

func NewNormalizer(maxDimension, quality int) *Normalizer {
	return &Normalizer{MaxDimension: maxDimension, Quality: quality}
}

func (n *Normalizer) Normalize(data []byte) (*models.Image, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %v: %w", err, domain.ErrUnsupportedMedia)
	}

	w, h := scaledSize(src.Bounds().Dx(), src.Bounds().Dy(), n.MaxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, xdraw.Src)

	if w == src.Bounds().Dx() && h == src.Bounds().Dy() {
		xdraw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, xdraw.Over)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: n.Quality}); err != nil {
		return nil, fmt.Errorf("encode %s as jpeg: %w", format, err)
	}
	return &models.Image{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil
}

// scaledSize fits w x h inside a limit x limit box, keeping the aspect ratio.
func scaledSize(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
