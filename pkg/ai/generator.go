package ai

import "context"

// TextGenerator generates text from a system prompt and user prompt.
// All LLM providers (Gemini, Ollama, OpenAI-compatible) implement this interface.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// VisionGenerator answers a prompt about one image.
type VisionGenerator interface {
	GenerateFromImage(ctx context.Context, systemPrompt, userPrompt string, image []byte, mimeType string) (string, error)
}

// SpeechTranscriber turns audio into text. prompt biases the vocabulary.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, prompt string) (string, error)
}
