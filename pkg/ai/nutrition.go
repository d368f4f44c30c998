package ai

import (
	"context"
	"fmt"
	"strings"

	"nutrilog/pkg/extract"
)

const nutritionSystemPrompt = `You are a nutrition assistant. Identify every food or drink described and estimate its nutrition.
Reply with JSON only, in the form {"items":[{"food_name":string,"quantity":number,"unit":string,"calories":number,"protein":number,"carbs":number,"fats":number,"fiber":number,"sugar":number,"sodium":number,"confidence_score":number}]}.
Macronutrients are grams, sodium is milligrams, confidence_score is between 0 and 1. Use {"items":[]} when there is no food.`

const imageUserPrompt = "List the foods visible in this meal photo with portion estimates."

// TranscriptionPrompt biases speech-to-text towards meal vocabulary.
const TranscriptionPrompt = "A person describing what they ate: foods, drinks, quantities and units such as grams, cups, slices, tablespoons, bowls."

// TextInference adapts a TextGenerator to free-text meal recognition.
type TextInference struct {
	gen TextGenerator
}

func NewTextInference(gen TextGenerator) *TextInference {
	return &TextInference{gen: gen}
}

// InferText returns the raw model answer; normalisation happens in extract.
func (t *TextInference) InferText(ctx context.Context, text string) (any, error) {
	out, err := t.gen.GenerateText(ctx, nutritionSystemPrompt, "Meal description: "+text)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VisionInference adapts a VisionGenerator to meal photo recognition.
type VisionInference struct {
	gen VisionGenerator
}

func NewVisionInference(gen VisionGenerator) *VisionInference {
	return &VisionInference{gen: gen}
}

func (v *VisionInference) InferImage(ctx context.Context, img extract.Image) (any, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("image data required")
	}
	out, err := v.gen.GenerateFromImage(ctx, nutritionSystemPrompt, imageUserPrompt, img.Data, img.MIMEType)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Transcription adapts a SpeechTranscriber to extract.Transcriber.
type Transcription struct {
	speech SpeechTranscriber
	prompt string
}

func NewTranscription(speech SpeechTranscriber) *Transcription {
	return &Transcription{speech: speech, prompt: TranscriptionPrompt}
}

func (t *Transcription) Transcribe(ctx context.Context, audio extract.Audio) (string, error) {
	text, err := t.speech.Transcribe(ctx, audio.Data, audio.Filename, t.prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Providers for NewTextGenerator.
const (
	ProviderGemini       = "gemini"
	ProviderOllama       = "ollama"
	ProviderOpenAICompat = "openai-compat"
)

// ProviderConfig selects and configures one LLM backend.
type ProviderConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// Generator is implemented by every provider generator.
type Generator interface {
	TextGenerator
	VisionGenerator
}

// NewGenerator builds the generator for cfg.Provider. An empty provider
// returns nil, nil: recognition is then left unconfigured.
func NewGenerator(cfg ProviderConfig) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "":
		return nil, nil
	case ProviderGemini:
		client, err := NewGeminiClient(cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return NewGeminiGenerator(client.WithBaseURL(cfg.BaseURL), cfg.Model), nil
	case ProviderOllama:
		return NewOllamaGenerator(NewOllamaClient(cfg.BaseURL), cfg.Model), nil
	case ProviderOpenAICompat:
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, fmt.Errorf("openai-compat base url required")
		}
		return NewOpenAICompatGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
