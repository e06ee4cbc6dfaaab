// Package transcription sends wav audio to a Whisper-compatible speech recognition API.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"lingua-flow-go/internal/logger"
)

// ErrUnintelligible means the service answered but found no speech it could transcribe.
var ErrUnintelligible = errors.New("speech was unintelligible")

type Config struct {
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	RetryBudget time.Duration
}

type transcriptResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client posts audio as multipart/form-data (file, model, language) and reads {"text"}.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logrus.Entry
}

func New(cfg Config, log *logrus.Entry) (*Client, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Endpoint == "" {
		return nil, errors.New("STT endpoint not set")
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.OrDefault(log, "transcription").WithField("module", "transcription"),
	}, nil
}

// Transcribe returns the recognized text of wav. lang is a BCP-47 tag such as "en-US";
// only its primary subtag is forwarded.
func (c *Client) Transcribe(ctx context.Context, wav []byte, lang string) (string, error) {
	if len(wav) == 0 {
		return "", ErrUnintelligible
	}

	var resp transcriptResponse
	if err := c.doJSON(ctx, func() (*http.Request, error) { return c.newRequest(ctx, wav, lang) }, &resp); err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrUnintelligible
	}

	logger.FromContext(ctx, c.log).WithFields(logrus.Fields{
		"stt_lang": lang,
		"chars":    len([]rune(text)),
	}).Info("transcription completed")
	return text, nil
}

func (c *Client) newRequest(ctx context.Context, wav []byte, lang string) (*http.Request, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(wav); err != nil {
		return nil, err
	}
	_ = w.WriteField("model", c.cfg.Model)
	if code := primarySubtag(lang); code != "" {
		_ = w.WriteField("language", code)
	}
	_ = w.WriteField("response_format", "json")
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	return req, nil
}

// doJSON retries network errors and 5xx responses within the retry budget.
// The request is rebuilt per attempt because its body is consumed.
func (c *Client) doJSON(ctx context.Context, build func() (*http.Request, error), target *transcriptResponse) error {
	var lastErr error
	op := func() error {
		req, err := build()
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("stt request failed: %w", err)
			return lastErr
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("stt server error: status=%d body=%s", resp.StatusCode, snippet(body))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("stt request rejected: status=%d body=%s", resp.StatusCode, snippet(body))
			return backoff.Permanent(lastErr)
		}
		if len(body) == 0 {
			lastErr = errors.New("stt empty body")
			return lastErr
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("stt json decode error: %v body=%s", err, snippet(body))
			return backoff.Permanent(lastErr)
		}
		if target.Error != nil && target.Error.Message != "" {
			lastErr = fmt.Errorf("stt error: %s", target.Error.Message)
			return backoff.Permanent(lastErr)
		}
		return nil
	}

	var bo backoff.BackOff = &backoff.StopBackOff{}
	if c.cfg.RetryBudget > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.MaxElapsedTime = c.cfg.RetryBudget
		bo = exp
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}

func primarySubtag(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
