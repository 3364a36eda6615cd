package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/scenereel/api/internal/apperr"
	"github.com/scenereel/api/internal/config"
	"github.com/scenereel/api/internal/model"
)

// SceneSplitter decomposes a script into ordered scenes
type SceneSplitter interface {
	SplitScenes(ctx context.Context, script string) ([]model.Scene, error)
}

// GeminiClient implements SceneSplitter with a structured-output Gemini model
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

const scenePrompt = `Analyze the following script and break it down into logical, short scenes suitable for video generation. Each scene should ideally be a single, concise descriptive sentence or phrase, maximum 15 words. Provide the output as a JSON array of objects. Script: "%s"`

var sceneListSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"scene": {
				Type:        genai.TypeString,
				Description: "A short sentence or phrase describing a single, continuous action or moment.",
			},
		},
		Required: []string{"scene"},
	},
}

// NewGeminiClient creates a new Gemini client for scene analysis
func NewGeminiClient(ctx context.Context, cfg *config.GeminiConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("could not create new genai client: %w", err)
	}

	m := client.GenerativeModel(cfg.TextModel)
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = sceneListSchema

	return &GeminiClient{
		client: client,
		model:  m,
	}, nil
}

// SplitScenes asks the model for the scene list of a script
func (c *GeminiClient) SplitScenes(ctx context.Context, script string) ([]model.Scene, error) {
	log.Printf("[Gemini API] → splitting script into scenes (%d chars)", len(script))

	res, err := c.model.GenerateContent(ctx, genai.Text(fmt.Sprintf(scenePrompt, script)))
	if err != nil {
		log.Printf("[Gemini API] ✗ scene analysis failed: %v", err)
		return nil, classifyAnalysisError(err)
	}

	scenes, err := parseScenes(res)
	if err != nil {
		log.Printf("[Gemini API] ✗ scene analysis returned unusable output: %v", err)
		return nil, err
	}

	log.Printf("[Gemini API] ← %d scenes", len(scenes))
	return scenes, nil
}

// Close releases the underlying client
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func classifyAnalysisError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return apperr.Quota(apperr.StageAnalysis, err)
	}
	if apperr.IsQuotaSignal(err.Error()) {
		return apperr.Quota(apperr.StageAnalysis, err)
	}
	return apperr.Wrap(apperr.KindSegmentation, "scene analysis request failed", err)
}

// parseScenes decodes the structured response. Anything other than a
// non-empty array of objects with a non-blank "scene" string is rejected.
func parseScenes(res *genai.GenerateContentResponse) ([]model.Scene, error) {
	text, err := responseText(res)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindSegmentation, "empty analysis response", err)
	}

	var raw []struct {
		Scene *string `json:"scene"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, apperr.Wrap(apperr.KindSegmentation, "malformed analysis response", err)
	}

	if len(raw) == 0 {
		return nil, apperr.Wrap(apperr.KindSegmentation, "no scenes", apperr.ErrNoScenes)
	}

	scenes := make([]model.Scene, 0, len(raw))
	for i, r := range raw {
		if r.Scene == nil || strings.TrimSpace(*r.Scene) == "" {
			return nil, apperr.Wrap(apperr.KindSegmentation, "malformed analysis response",
				fmt.Errorf("item %d has no scene text", i))
		}
		scenes = append(scenes, model.Scene{Description: strings.TrimSpace(*r.Scene)})
	}

	return scenes, nil
}

func responseText(res *genai.GenerateContentResponse) (string, error) {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no content")
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("gemini response did not contain text")
	}
	return out, nil
}
