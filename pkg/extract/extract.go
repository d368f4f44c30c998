// Package extract turns meal input of any modality into nutrient records.
package extract

import (
	"context"
	"errors"

	"nutrilog/pkg/domain"
)

var (
	ErrRecognitionUnavailable = errors.New("recognition unavailable")
	ErrNothingDetected        = errors.New("nothing detected")
	ErrUnknownModality        = errors.New("unknown modality")

	errUnrecognisedShape = errors.New("unrecognised recognition response")
)

type Modality string

const (
	ModalityText    Modality = "text"
	ModalityVoice   Modality = "voice"
	ModalityImage   Modality = "image"
	ModalityBarcode Modality = "barcode"
)

// ParseModality accepts the lowercase modality names.
func ParseModality(v string) (Modality, bool) {
	switch m := Modality(v); m {
	case ModalityText, ModalityVoice, ModalityImage, ModalityBarcode:
		return m, true
	}
	return "", false
}

// InputMethod maps the modality onto the method recorded on a saved meal.
func (m Modality) InputMethod() domain.InputMethod {
	switch m {
	case ModalityVoice:
		return domain.InputVoice
	case ModalityImage:
		return domain.InputImage
	case ModalityBarcode:
		return domain.InputBarcode
	default:
		return domain.InputText
	}
}

// Source names the strategy that produced a Result.
type Source string

const (
	SourceInference Source = "inference"
	SourceFallback  Source = "fallback"
	SourceVision    Source = "vision"
	SourceBarcode   Source = "barcode"
	SourceNone      Source = "none"
)

// Result is what every adapter returns. Degraded is set when a configured
// or expected external service could not be used.
type Result struct {
	Items           []domain.NutrientRecord
	Source          Source
	Degraded        bool
	NothingDetected bool
	Transcript      string
}

type Image struct {
	Data     []byte
	MIMEType string
	Ref      string
}

type Audio struct {
	Data     []byte
	MIMEType string
	Filename string
}

type Input struct {
	Modality Modality
	Text     string
	Barcode  string
	Image    Image
	Audio    Audio
}

// TextInference returns a raw recognition response for free text.
type TextInference interface {
	InferText(ctx context.Context, text string) (any, error)
}

// VisionInference returns a raw recognition response for a photo.
type VisionInference interface {
	InferImage(ctx context.Context, img Image) (any, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}

// BarcodeLookup finds a product by exact code. ok is false on a miss.
type BarcodeLookup interface {
	Lookup(ctx context.Context, code string) (domain.FoodProduct, bool, error)
}
