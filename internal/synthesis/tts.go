// Package synthesis renders text to mp3 through a translate_tts style endpoint.
package synthesis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"lingua-flow-go/internal/logger"
)

// MaxPieceChars is the longest text the endpoint accepts per request.
const MaxPieceChars = 100

var ErrEmptyText = errors.New("nothing to synthesize")

type Config struct {
	Endpoint    string
	DefaultLang string
	Timeout     time.Duration
	RetryBudget time.Duration
}

// Client requests one mp3 segment per text piece and concatenates them.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logrus.Entry
}

func New(cfg Config, log *logrus.Entry) (*Client, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Endpoint == "" {
		return nil, errors.New("TTS endpoint not set")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid TTS endpoint: %w", err)
	}
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.OrDefault(log, "synthesis").WithField("module", "synthesis"),
	}, nil
}

// Synthesize returns mp3 bytes for text spoken in lang.
func (c *Client) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	pieces := Split(text, MaxPieceChars)
	if len(pieces) == 0 {
		return nil, ErrEmptyText
	}
	if strings.TrimSpace(lang) == "" {
		lang = c.cfg.DefaultLang
	}

	var out bytes.Buffer
	for i, piece := range pieces {
		audio, err := c.fetch(ctx, piece, lang, i, len(pieces))
		if err != nil {
			return nil, fmt.Errorf("tts piece %d/%d: %w", i+1, len(pieces), err)
		}
		out.Write(audio)
	}

	logger.FromContext(ctx, c.log).WithFields(logrus.Fields{
		"lang":   lang,
		"pieces": len(pieces),
		"bytes":  out.Len(),
	}).Info("speech synthesized")
	return out.Bytes(), nil
}

func (c *Client) fetch(ctx context.Context, piece, lang string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", piece)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(len([]rune(piece))))

	u, _ := url.Parse(c.cfg.Endpoint)
	u.RawQuery = q.Encode()

	var audio []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("tts server error: status=%d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("tts request rejected: status=%d", resp.StatusCode))
		case len(body) == 0:
			return backoff.Permanent(errors.New("tts returned empty audio"))
		}
		audio = body
		return nil
	}

	var bo backoff.BackOff = &backoff.StopBackOff{}
	if c.cfg.RetryBudget > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.MaxElapsedTime = c.cfg.RetryBudget
		bo = exp
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return audio, nil
}

// Split breaks text into pieces of at most maxChars runes, preferring to cut after
// sentence punctuation, then at whitespace. Words longer than maxChars are hard-cut.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = MaxPieceChars
	}
	runes := []rune(strings.TrimSpace(text))
	var pieces []string
	for len(runes) > 0 {
		if len(runes) <= maxChars {
			pieces = appendPiece(pieces, runes)
			break
		}
		cut := cutPoint(runes[:maxChars+1], maxChars)
		pieces = appendPiece(pieces, runes[:cut])
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	return pieces
}

// cutPoint returns the length of the next piece within window[:limit].
func cutPoint(window []rune, limit int) int {
	punct, space := -1, -1
	for i := limit; i > 0; i-- {
		r := window[i-1]
		if punct < 0 && strings.ContainsRune(".!?;:,。，", r) {
			punct = i
		}
		if space < 0 && unicode.IsSpace(window[i]) {
			space = i
		}
	}
	switch {
	case punct > limit/2:
		return punct
	case space > 0:
		return space
	case punct > 0:
		return punct
	default:
		return limit
	}
}

func appendPiece(pieces []string, r []rune) []string {
	if s := strings.TrimSpace(string(r)); s != "" {
		return append(pieces, s)
	}
	return pieces
}
