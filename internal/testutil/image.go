package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
)

// testImage builds a gradient image so re-encoding at different quality
// levels produces different byte counts.
func testImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 13), 128, 255})
		}
	}
	return img
}

// PNGBytes returns an encoded PNG of the given dimensions.
func PNGBytes(width, height int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(width, height)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// JPEGBytes returns an encoded JPEG of the given dimensions.
func JPEGBytes(width, height int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(width, height), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// GIFBytes returns a small encoded GIF.
func GIFBytes() []byte {
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{
		color.RGBA{0, 0, 0, 255},
		color.RGBA{255, 255, 255, 255},
	})
	img.SetColorIndex(0, 0, 1)
	img.SetColorIndex(1, 1, 1)

	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// MP4Bytes returns the smallest MP4 header that type sniffers recognize as
// video/mp4. The file is not playable.
func MP4Bytes() []byte {
	return []byte{
		0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
		'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
		'i', 's', 'o', 'm', 'm', 'p', '4', '1',
	}
}
