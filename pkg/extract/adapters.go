package extract

import (
	"context"
	"strings"
	"time"

	"nutrilog/internal/util"
	"nutrilog/pkg/domain"
)

// TextAdapter tries the inference service first and falls back to the
// pattern matcher when the service is absent, unhealthy, failing, or finds
// nothing.
type TextAdapter struct {
	primary  TextInference
	breaker  *Breaker
	matcher  *PatternMatcher
	timeout  time.Duration
	modality Modality
}

func (a *TextAdapter) Extract(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Source: SourceNone}
	}
	degraded := false
	if a.primary != nil && a.breaker.Allow() {
		items, err := a.infer(ctx, text)
		switch {
		case err != nil:
			a.breaker.Failure()
			degraded = true
			util.LoggerFromContext(ctx).Warn("text_inference_failed", "modality", string(a.modality), "err", err)
		case len(items) > 0:
			a.breaker.Success()
			return Result{Items: items, Source: SourceInference}
		default:
			a.breaker.Success()
		}
	} else if a.primary != nil {
		degraded = true
	}
	return Result{Items: a.matcher.Match(text), Source: SourceFallback, Degraded: degraded}
}

func (a *TextAdapter) infer(ctx context.Context, text string) ([]domain.NutrientRecord, error) {
	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()
	raw, err := a.primary.InferText(ctx, text)
	if err != nil {
		return nil, err
	}
	items, ok := Normalize(raw)
	if !ok {
		return nil, errUnrecognisedShape
	}
	return items, nil
}

// ImageAdapter has no local fallback.
type ImageAdapter struct {
	vision  VisionInference
	breaker *Breaker
	timeout time.Duration
}

func (a *ImageAdapter) Extract(ctx context.Context, img Image) Result {
	if len(img.Data) == 0 && img.Ref == "" {
		return Result{Source: SourceNone}
	}
	if a.vision == nil || !a.breaker.Allow() {
		return Result{Source: SourceNone, Degraded: true}
	}
	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()
	raw, err := a.vision.InferImage(ctx, img)
	if err == nil {
		if items, ok := Normalize(raw); ok {
			a.breaker.Success()
			for i := range items {
				if items[i].SourceImageRef == "" {
					items[i].SourceImageRef = img.Ref
				}
			}
			return Result{Items: items, Source: SourceVision}
		}
		err = errUnrecognisedShape
	}
	a.breaker.Failure()
	util.LoggerFromContext(ctx).Warn("vision_inference_failed", "modality", string(ModalityImage), "err", err)
	return Result{Source: SourceNone, Degraded: true}
}

// BarcodeAdapter looks codes up in the product database. A miss is a
// healthy answer; only lookup errors count against the breaker.
type BarcodeAdapter struct {
	lookup  BarcodeLookup
	breaker *Breaker
	timeout time.Duration
}

func (a *BarcodeAdapter) Extract(ctx context.Context, code string) Result {
	code = strings.TrimSpace(code)
	if code == "" {
		return Result{Source: SourceNone}
	}
	if a.lookup == nil || !a.breaker.Allow() {
		return Result{Source: SourceNone, Degraded: true}
	}
	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()
	product, ok, err := a.lookup.Lookup(ctx, code)
	if err != nil {
		a.breaker.Failure()
		util.LoggerFromContext(ctx).Warn("barcode_lookup_failed", "modality", string(ModalityBarcode), "code", code, "err", err)
		return Result{Source: SourceNone, Degraded: true}
	}
	a.breaker.Success()
	if !ok {
		return Result{Source: SourceNone}
	}
	return Result{Items: []domain.NutrientRecord{ProductRecord(product)}, Source: SourceBarcode}
}

// ProductRecord converts a per-100g product into a 100 g record.
func ProductRecord(p domain.FoodProduct) domain.NutrientRecord {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = unknownFoodName
	}
	return domain.NutrientRecord{
		FoodName:        name,
		Quantity:        100,
		Unit:            "g",
		Calories:        clamp(p.Calories),
		Protein:         clamp(p.Protein),
		Carbs:           clamp(p.Carbs),
		Fats:            clamp(p.Fats),
		Fiber:           clamp(p.Fiber),
		Sugar:           clamp(p.Sugar),
		Sodium:          clamp(p.Sodium),
		Barcode:         p.Code,
		ConfidenceScore: 1.0,
	}
}

// VoiceAdapter transcribes audio and hands the transcript to the text adapter.
type VoiceAdapter struct {
	speech  Transcriber
	text    *TextAdapter
	timeout time.Duration
}

func (a *VoiceAdapter) Extract(ctx context.Context, audio Audio) Result {
	if len(audio.Data) == 0 {
		return Result{Source: SourceNone, NothingDetected: true}
	}
	if a.speech == nil {
		return Result{Source: SourceNone, Degraded: true}
	}
	tctx, cancel := withTimeout(ctx, a.timeout)
	transcript, err := a.speech.Transcribe(tctx, audio)
	cancel()
	if err != nil {
		util.LoggerFromContext(ctx).Warn("transcription_failed", "modality", string(ModalityVoice), "err", err)
		return Result{Source: SourceNone, Degraded: true}
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Result{Source: SourceNone, NothingDetected: true}
	}
	res := a.text.Extract(ctx, transcript)
	res.Transcript = transcript
	return res
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
