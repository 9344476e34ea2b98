package scanning

import (
	"context"
	"fmt"
	"log/slog"
)

// Extractor reads bills with a vision model
type Extractor struct {
	model      Model
	strategies []PageStrategy
}

// NewExtractor creates an Extractor using the default PDF strategies
func NewExtractor(model Model) *Extractor {
	return NewExtractorWithStrategies(model, DefaultPageStrategies())
}

// NewExtractorWithStrategies creates an Extractor with custom PDF strategies for testing
func NewExtractorWithStrategies(model Model, strategies []PageStrategy) *Extractor {
	return &Extractor{
		model:      model,
		strategies: strategies,
	}
}

// ExtractBill reads a single bill. It never returns an error: anything that goes wrong
// is reported as an OutcomeFailure extraction with zero confidence.
func (e *Extractor) ExtractBill(ctx context.Context, data []byte, filename string) (result Extraction) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Bill extraction panicked", "filename", filename, "panic", r)
			result = failure(fmt.Sprintf("Extraction error: %v", r), 0)
		}
	}()

	if isPDF(data, filename) {
		return e.extractPDF(ctx, data, filename)
	}

	media, err := prepareImage(data)
	if err != nil {
		slog.Error("Failed to prepare bill image",
			"filename", filename,
			"file_size", len(data),
			"error", err,
		)
		return failure(fmt.Sprintf("Image processing error: %v", err), 0)
	}

	text, err := e.model.Generate(ctx, billExtractionPrompt, media)
	if err != nil {
		slog.Error("Failed to extract bill", "filename", filename, "error", err)
		return failure(fmt.Sprintf("Extraction error: %v", err), 0)
	}

	return Normalize(text)
}

// extractPDF tries each page strategy in order. A strategy counts as successful only
// when the model answers for the media it produced.
func (e *Extractor) extractPDF(ctx context.Context, data []byte, filename string) Extraction {
	var lastErr error
	for _, strategy := range e.strategies {
		media, err := strategy.Prepare(data)
		if err != nil {
			slog.Warn("PDF strategy failed", "filename", filename, "strategy", strategy.Name(), "error", err)
			lastErr = fmt.Errorf("%s: %w", strategy.Name(), err)
			continue
		}

		text, err := e.model.Generate(ctx, billExtractionPrompt, media)
		if err != nil {
			slog.Warn("Model failed on PDF", "filename", filename, "strategy", strategy.Name(), "error", err)
			lastErr = fmt.Errorf("%s: %w", strategy.Name(), err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		slog.Info("Extracted PDF bill", "filename", filename, "strategy", strategy.Name())
		return Normalize(text)
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no PDF strategies configured")
	}
	slog.Error("All PDF strategies failed", "filename", filename, "error", lastErr)
	return failure(fmt.Sprintf("PDF processing failed: %v", lastErr), 0)
}
