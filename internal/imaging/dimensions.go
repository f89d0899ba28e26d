package imaging

import (
	"bytes"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Dimensions probes the pixel dimensions of an encoded image without
// decoding the full payload. Unknown or non-image formats yield (0, 0);
// dimension extraction is best-effort and must not fail storage.
func Dimensions(data []byte) (width, height int) {
	if len(data) == 0 {
		return 0, 0
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
