package ocr

import (
	"image"

	"github.com/disintegration/imaging"
)

// Binarize converts img to grayscale and maps every pixel brighter than
// threshold to white and everything else to black.
func Binarize(img image.Image, threshold uint8) *image.Gray {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			// R == G == B after Grayscale
			if src[x*4] > threshold {
				dst[x] = 0xff
			} else {
				dst[x] = 0
			}
		}
	}
	return out
}
