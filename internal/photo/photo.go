// Package photo turns profile pictures into small JPEG data URLs.
package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxSide bounds the longer side of a stored photo in pixels.
const MaxSide = 200

// Quality is the JPEG quality of a stored photo.
const Quality = 80

// ErrNotImage is returned when the input cannot be decoded as an image.
var ErrNotImage = errors.New("not a supported image")

// Shrink decodes data (JPEG, PNG, GIF or WebP) and re-encodes it as a JPEG
// whose longer side is at most maxSide. Smaller images keep their size.
// Transparent areas become white.
func Shrink(data []byte, maxSide int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	bounds := src.Bounds()
	w, h := fit(bounds.Dx(), bounds.Dy(), maxSide)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode photo: %w", err)
	}
	return buf.Bytes(), nil
}

// fit scales w x h so the longer side is at most maxSide, keeping the ratio.
func fit(w, h, maxSide int) (int, int) {
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return w, h
	}
	if w > h {
		return maxSide, max(1, h*maxSide/w)
	}
	return max(1, w*maxSide/h), maxSide
}

// DataURL shrinks data to MaxSide and returns it as a JPEG data URL.
func DataURL(data []byte) (string, error) {
	out, err := Shrink(data, MaxSide)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(out), nil
}
