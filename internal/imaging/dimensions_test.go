package imaging

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestDimensions(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 640, 480))); err != nil {
		t.Fatal(err)
	}

	width, height := Dimensions(buf.Bytes())
	if width != 640 || height != 480 {
		t.Fatalf("Dimensions() = (%d, %d), want (640, 480)", width, height)
	}
}

func TestDimensionsUnknownFormat(t *testing.T) {
	width, height := Dimensions([]byte("not an image"))
	if width != 0 || height != 0 {
		t.Fatalf("expected zero dimensions, got (%d, %d)", width, height)
	}
}

func TestDimensionsEmpty(t *testing.T) {
	if w, h := Dimensions(nil); w != 0 || h != 0 {
		t.Fatalf("expected zero dimensions for nil input, got (%d, %d)", w, h)
	}
}
