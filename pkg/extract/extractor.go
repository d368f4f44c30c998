package extract

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultTimeout          = 20 * time.Second
	DefaultFailureThreshold = 3
	DefaultCooldown         = 30 * time.Second
)

type Config struct {
	Text     TextInference
	Vision   VisionInference
	Speech   Transcriber
	Barcodes BarcodeLookup
	Matcher  *PatternMatcher

	// Timeout bounds each external call.
	Timeout          time.Duration
	FailureThreshold int
	Cooldown         time.Duration
}

// Extractor routes input to the adapter for its modality.
type Extractor struct {
	text    *TextAdapter
	voice   *VoiceAdapter
	image   *ImageAdapter
	barcode *BarcodeAdapter
}

func New(cfg Config) *Extractor {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Matcher == nil {
		cfg.Matcher = NewPatternMatcher()
	}
	text := &TextAdapter{
		primary:  cfg.Text,
		breaker:  NewBreaker(cfg.FailureThreshold, cfg.Cooldown),
		matcher:  cfg.Matcher,
		timeout:  cfg.Timeout,
		modality: ModalityText,
	}
	voiceText := *text
	voiceText.modality = ModalityVoice
	return &Extractor{
		text: text,
		voice: &VoiceAdapter{
			speech:  cfg.Speech,
			text:    &voiceText,
			timeout: cfg.Timeout,
		},
		image: &ImageAdapter{
			vision:  cfg.Vision,
			breaker: NewBreaker(cfg.FailureThreshold, cfg.Cooldown),
			timeout: cfg.Timeout,
		},
		barcode: &BarcodeAdapter{
			lookup:  cfg.Barcodes,
			breaker: NewBreaker(cfg.FailureThreshold, cfg.Cooldown),
			timeout: cfg.Timeout,
		},
	}
}

// Extract never fails because a recognition service is down; the only
// error is an unsupported modality.
func (e *Extractor) Extract(ctx context.Context, in Input) (Result, error) {
	switch in.Modality {
	case ModalityText:
		return e.text.Extract(ctx, in.Text), nil
	case ModalityVoice:
		return e.voice.Extract(ctx, in.Audio), nil
	case ModalityImage:
		return e.image.Extract(ctx, in.Image), nil
	case ModalityBarcode:
		return e.barcode.Extract(ctx, in.Barcode), nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownModality, in.Modality)
	}
}
