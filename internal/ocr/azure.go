package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/disintegration/imaging"
)

// AzureEngine sends page images to Azure Computer Vision printed-text OCR.
// The layout hint is ignored.
type AzureEngine struct {
	client computervision.BaseClient
}

func NewAzureEngine(endpoint, apiKey string) (*AzureEngine, error) {
	if endpoint == "" || apiKey == "" {
		return nil, errors.New("azure ocr: endpoint and key are required")
	}
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &AzureEngine{client: client}, nil
}

func (a *AzureEngine) Recognize(ctx context.Context, img image.Image, _ RecognizeOptions) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode page image: %w", err)
	}
	result, err := a.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(&buf),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		return "", fmt.Errorf("azure ocr: %w", err)
	}
	return joinOCRResult(result), nil
}

// joinOCRResult writes one line per recognized line, with a blank line between regions.
func joinOCRResult(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}
	var regions []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		var lines []string
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, w := range *line.Words {
				if w.Text != nil {
					words = append(words, *w.Text)
				}
			}
			lines = append(lines, strings.Join(words, " "))
		}
		regions = append(regions, strings.Join(lines, "\n"))
	}
	return strings.Join(regions, "\n\n")
}
