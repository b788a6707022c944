package ocr

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/invoice-intake/constants"
)

// acquireImage decodes the upload into 8-bit RGBA and recognizes it as-is.
// The raw engine output is returned; no binarization or normalization.
func (e *Extractor) acquireImage(ctx context.Context, data []byte) Result {
	res := Result{SourceType: constants.IMAGE, Method: MethodImageOCR, Pages: 1}
	if len(data) == 0 {
		res.Err = errEmptyDocument
		return res
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		res.Err = fmt.Errorf("decode image: %w", err)
		return res
	}
	txt, err := e.engine.Recognize(ctx, imaging.Clone(img), RecognizeOptions{})
	if err != nil {
		res.Err = err
		return res
	}
	res.Text = txt
	return res
}
