package gemini

import (
	"context"

	"google.golang.org/genai"
)

// ContentGenerator is the subset of the genai client used by the generator.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// promptData represents the data passed to the prompt template
type promptData struct {
	YourName string
	Style    string
	Count    int
	Lang     string
	// Preferences is the JSON encoding of the user's preferences.
	Preferences string
}

// preferences is the subset of the task input shown to the model.
type preferences struct {
	YourName string   `json:"yourName"`
	Genders  []string `json:"genders"`
	Styles   []string `json:"styles"`
	Count    int      `json:"count"`
	Lang     string   `json:"lang"`
}
