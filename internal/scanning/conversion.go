package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// maxImageDimension caps the longest side of images sent to the model
const maxImageDimension = 2000

// PageStrategy turns a PDF into media a vision model can read
type PageStrategy interface {
	Name() string
	Prepare(pdfData []byte) (Media, error)
}

// FitzRasterizer renders the first PDF page with MuPDF
type FitzRasterizer struct{}

func (FitzRasterizer) Name() string { return "mupdf" }

// Prepare renders the first page (most bills are single page) as PNG
func (FitzRasterizer) Prepare(pdfData []byte) (Media, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return Media{}, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return Media{}, errors.New("PDF has no pages")
	}

	img, err := doc.Image(0)
	if err != nil {
		return Media{}, fmt.Errorf("rendering PDF page: %w", err)
	}

	return encodePNG(img)
}

// PdfcpuRasterizer pulls the first embedded image from page one. Scanned bills are
// usually a single full-page image, so this works when MuPDF is unavailable.
type PdfcpuRasterizer struct{}

func (PdfcpuRasterizer) Name() string { return "pdfcpu" }

// Prepare extracts and re-encodes the first image on page one
func (PdfcpuRasterizer) Prepare(pdfData []byte) (Media, error) {
	var found image.Image
	var decodeErr error

	digest := func(img model.Image, singleImgPerPage bool, maxPageDigits int) error {
		if found != nil || decodeErr != nil {
			return nil
		}
		decoded, _, err := image.Decode(img)
		if err != nil {
			decodeErr = fmt.Errorf("decoding embedded %s image: %w", img.FileType, err)
			return nil
		}
		found = decoded
		return nil
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImages(bytes.NewReader(pdfData), []string{"1"}, digest, conf); err != nil {
		return Media{}, fmt.Errorf("extracting PDF images: %w", err)
	}
	if found == nil {
		if decodeErr != nil {
			return Media{}, decodeErr
		}
		return Media{}, errors.New("no image on first PDF page")
	}

	return encodePNG(found)
}

// DirectPDF hands the PDF to the model untouched
type DirectPDF struct{}

func (DirectPDF) Name() string { return "direct" }

func (DirectPDF) Prepare(pdfData []byte) (Media, error) {
	if len(pdfData) == 0 {
		return Media{}, errors.New("empty PDF")
	}
	return Media{Data: pdfData, MIMEType: "application/pdf"}, nil
}

// DefaultPageStrategies is the order PDFs are attempted in
func DefaultPageStrategies() []PageStrategy {
	return []PageStrategy{FitzRasterizer{}, PdfcpuRasterizer{}, DirectPDF{}}
}

// isPDF checks the filename extension, then the %PDF- magic bytes
func isPDF(data []byte, filename string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// prepareImage decodes any supported raster format, normalizes its color mode and size,
// and re-encodes it as PNG
func prepareImage(imageData []byte) (Media, error) {
	var img image.Image
	var err error

	// Go's standard image package doesn't support HEIC
	if isHEICFormat(imageData) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return Media{}, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			if errors.Is(err, image.ErrFormat) {
				return Media{}, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, WebP, TIFF, HEIC, PDF: %w", err)
			}
			return Media{}, fmt.Errorf("decoding image: %w", err)
		}
	}

	return encodePNG(img)
}

// encodePNG converts to 8-bit NRGBA (dropping palettes, CMYK and 16-bit depth),
// shrinks oversized images and encodes as PNG
func encodePNG(img image.Image) (Media, error) {
	normalized := imaging.Clone(img)

	b := normalized.Bounds()
	if b.Dx() > maxImageDimension || b.Dy() > maxImageDimension {
		normalized = imaging.Fit(normalized, maxImageDimension, maxImageDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, normalized); err != nil {
		return Media{}, fmt.Errorf("encoding PNG: %w", err)
	}

	return Media{Data: buf.Bytes(), MIMEType: "image/png"}, nil
}

// isHEICFormat checks if the image data is in HEIC/HEIF format
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	// ftyp box at offset 4 with a HEIC-related brand
	if string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1" {
			return true
		}
	}
	return false
}
