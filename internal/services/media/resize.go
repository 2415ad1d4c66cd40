package media

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// Processor normalizes uploaded photos: decode, downscale to fit the bounding
// box, re-encode as JPEG. Upscaling never happens; a photo already inside the
// box is only re-encoded.
type Processor struct {
	MaxBoxPX int
	Quality  int
}

func NewProcessor(maxBoxPX, quality int) *Processor {
	if maxBoxPX <= 0 {
		maxBoxPX = 1080
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Processor{MaxBoxPX: maxBoxPX, Quality: quality}
}

// Process returns the normalized JPEG bytes, or ErrUnsupportedImage when the
// payload does not decode as an image.
func (p *Processor) Process(body io.Reader) ([]byte, error) {
	img, err := imaging.Decode(body, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > p.MaxBoxPX || bounds.Dy() > p.MaxBoxPX {
		img = imaging.Fit(img, p.MaxBoxPX, p.MaxBoxPX, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.Quality)); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}

	return buf.Bytes(), nil
}
