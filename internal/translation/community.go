package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"lingua-flow-go/internal/types"
)

// CommunityProvider speaks the LibreTranslate /translate API.
type CommunityProvider struct {
	endpoint    string
	apiKey      string
	httpClient  *http.Client
	retryBudget time.Duration
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText *string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

func NewCommunityProvider(baseURL, apiKey string, timeout, retryBudget time.Duration) (*CommunityProvider, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("LibreTranslate URL is required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CommunityProvider{
		endpoint:    baseURL + "/translate",
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: timeout},
		retryBudget: retryBudget,
	}, nil
}

// CommunityFactoryFor adapts NewCommunityProvider to the router's factory signature.
func CommunityFactoryFor(baseURL, apiKey string, timeout, retryBudget time.Duration) CommunityFactory {
	return func() (Provider, error) {
		p, err := NewCommunityProvider(baseURL, apiKey, timeout, retryBudget)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func (p *CommunityProvider) Name() string             { return "libretranslate" }
func (p *CommunityProvider) Kind() types.ProviderKind { return types.ProviderCommunity }

func (p *CommunityProvider) TranslateChunk(ctx context.Context, req ChunkRequest) (string, error) {
	source := req.SourceLang
	if source == "" {
		source = AutoSourceLang
	}
	body, err := json.Marshal(libreRequest{
		Q:      req.Text,
		Source: source,
		Target: req.TargetLang,
		Format: "text",
		APIKey: p.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("marshal libretranslate request: %w", err)
	}

	var out string
	operation := func() error {
		text, err := p.post(ctx, body)
		if err != nil {
			return err
		}
		out = text
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = p.retryBudget
	if p.retryBudget <= 0 {
		err = backoff.Retry(operation, backoff.WithContext(&backoff.StopBackOff{}, ctx))
	} else {
		err = backoff.Retry(operation, backoff.WithContext(bo, ctx))
	}
	if err != nil {
		return "", err
	}
	return out, nil
}

func (p *CommunityProvider) post(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("libretranslate request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read libretranslate response: %w", err)
	}

	var parsed libreResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("libretranslate status %d: %s", resp.StatusCode, errorText(parsed.Error, raw))
	case resp.StatusCode >= 400:
		return "", backoff.Permanent(fmt.Errorf("libretranslate status %d: %s", resp.StatusCode, errorText(parsed.Error, raw)))
	}

	if decodeErr != nil {
		return "", backoff.Permanent(fmt.Errorf("decode libretranslate response: %w: %s", decodeErr, errorText("", raw)))
	}
	if parsed.Error != "" {
		return "", backoff.Permanent(fmt.Errorf("libretranslate error: %s", parsed.Error))
	}
	if parsed.TranslatedText == nil {
		return "", backoff.Permanent(errors.New("libretranslate response has no translatedText"))
	}
	return *parsed.TranslatedText, nil
}

func errorText(msg string, raw []byte) string {
	if msg != "" {
		return msg
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
