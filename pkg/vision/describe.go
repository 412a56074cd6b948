package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/noxbotics/go-nox/internal/httpc"
)

// Describer produces a short natural-language scene description for a
// frame. Implementations must honor the context deadline.
type Describer interface {
	Describe(ctx context.Context, jpeg []byte) (string, error)
}

const defaultScenePrompt = "Describe this scene from a small robot's camera in one or two short sentences. Mention people, notable objects and what kind of room this looks like."

// GeminiDescriber calls Gemini Flash to describe a frame.
type GeminiDescriber struct {
	APIKey string
	Model  string
	Prompt string

	// Client defaults to the shared httpc.Client.
	Client *http.Client
}

// NewGeminiDescriber creates a describer for the given API key.
func NewGeminiDescriber(apiKey string) *GeminiDescriber {
	return &GeminiDescriber{
		APIKey: apiKey,
		Model:  "gemini-2.0-flash",
		Prompt: defaultScenePrompt,
		Client: httpc.Client,
	}
}

// Describe sends the frame inline and returns the model's text.
func (g *GeminiDescriber) Describe(ctx context.Context, jpeg []byte) (string, error) {
	if g.APIKey == "" {
		return "", fmt.Errorf("describer: API key not set")
	}

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": g.Prompt},
					{"inline_data": map[string]string{
						"mime_type": "image/jpeg",
						"data":      base64.StdEncoding.EncodeToString(jpeg),
					}},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0.7,
			"maxOutputTokens": 200,
		},
	}
	body, _ := json.Marshal(payload)

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", g.Model, g.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = httpc.Client
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("describer request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("describer status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var result geminiResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("describer decode: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("describer: %s", result.Error.Message)
	}
	if len(result.Candidates) > 0 && len(result.Candidates[0].Content.Parts) > 0 {
		return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
	}
	return "", fmt.Errorf("describer: empty response")
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
