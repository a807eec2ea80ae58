package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"Chatrigo/pkg/logger"
)

// GeminiService calls the Gemini generateContent REST endpoint.
type GeminiService struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	policy  RetryPolicy
}

type GeminiOption func(*GeminiService)

func WithHTTPClient(c *http.Client) GeminiOption {
	return func(s *GeminiService) { s.client = c }
}

func WithRetryPolicy(p RetryPolicy) GeminiOption {
	return func(s *GeminiService) { s.policy = p }
}

func NewGeminiService(apiKey, model, baseURL string, opts ...GeminiOption) *GeminiService {
	s := &GeminiService{
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		policy:  DefaultRetryPolicy(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
}

type generateContentRequest struct {
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content *geminiContent `json:"content"`
	} `json:"candidates"`
}

// Complete sends chat to Gemini under the retry policy. Transport failures
// come back as *UpstreamError; an answer without text yields FallbackReply.
func (s *GeminiService) Complete(ctx context.Context, chat []ChatMessage) (string, error) {
	if s.apiKey == "" {
		return "", ErrProviderKeyMissing
	}
	body, err := json.Marshal(buildGeminiRequest(chat))
	if err != nil {
		return "", fmt.Errorf("encode gemini request: %w", err)
	}

	var raw []byte
	attempts, err := s.policy.Do(ctx, func(actx context.Context) error {
		b, err := s.post(actx, body)
		if err != nil {
			logger.L.Warn("gemini attempt failed", zap.String("model", s.model), zap.Error(err))
			return err
		}
		raw = b
		return nil
	})
	if err != nil {
		ue := &UpstreamError{Attempts: attempts, Err: err}
		var se *StatusError
		if errors.As(err, &se) {
			ue.StatusCode = se.StatusCode
		}
		return "", ue
	}

	text, ok := extractText(raw)
	if !ok {
		logger.L.Warn("gemini response had no usable text, using fallback",
			zap.String("model", s.model), zap.Int("bytes", len(raw)))
		return FallbackReply, nil
	}
	return text, nil
}

func (s *GeminiService) post(ctx context.Context, body []byte) ([]byte, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.baseURL, s.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(respBytes)), 500)}
	}
	return respBytes, nil
}

func buildGeminiRequest(chat []ChatMessage) generateContentRequest {
	req := generateContentRequest{
		Contents: make([]geminiContent, 0, len(chat)),
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 2048,
			TopK:            40,
			TopP:            0.9,
		},
	}
	var system []geminiPart
	for _, m := range chat {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		switch role {
		case RoleSystem:
			system = append(system, geminiPart{Text: m.Text})
			continue
		case RoleModel, RoleUser:
		default:
			role = RoleUser
		}
		req.Contents = append(req.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Text}}})
	}
	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{Parts: system}
	}
	return req
}

// extractText joins the text parts of the first candidate.
func extractText(raw []byte) (string, bool) {
	var parsed generateContentResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false
	}
	if len(parsed.Candidates) == 0 || parsed.Candidates[0].Content == nil {
		return "", false
	}
	var b strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	return text, text != ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
