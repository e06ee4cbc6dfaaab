// Package translation routes text through one of two translation backends.
package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"lingua-flow-go/internal/chunker"
	"lingua-flow-go/internal/logger"
	"lingua-flow-go/internal/types"
)

// DefaultResolveTimeout bounds provider initialization.
const DefaultResolveTimeout = 30 * time.Second

// ErrNoProvider means neither backend could be initialized. It is a setup
// problem, not a transient provider failure.
var ErrNoProvider = errors.New("no translation provider available")

// CloudFactory initializes the cloud provider. A nil factory means cloud is not configured.
type CloudFactory func(ctx context.Context) (Provider, error)

// CommunityFactory initializes the community fallback provider.
type CommunityFactory func() (Provider, error)

// SourceDetector guesses the source language of a full text. An empty result means unknown.
type SourceDetector func(text string) string

type Options struct {
	MaxChunkChars int
	// SourceLang is sent to providers; "auto" or "" triggers Detect once per call.
	SourceLang string
	Cloud      CloudFactory
	Community  CommunityFactory
	Detect     SourceDetector
	// ResolveTimeout bounds provider initialization; zero means DefaultResolveTimeout.
	ResolveTimeout time.Duration
}

// RouterConfig is the provider selection, resolved once per process and never mutated.
type RouterConfig struct {
	Provider Provider
	Kind     types.ProviderKind
	// Degraded is set when cloud was configured but failed to initialize.
	Degraded bool
}

// Router chunks text and sends every chunk through the selected provider.
type Router struct {
	opts Options
	log  *logrus.Entry

	once     sync.Once
	resolved *RouterConfig
	err      error
}

func NewRouter(opts Options, log *logrus.Entry) *Router {
	if opts.MaxChunkChars <= 0 {
		opts.MaxChunkChars = chunker.DefaultMaxChars
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = DefaultResolveTimeout
	}
	return &Router{
		opts: opts,
		log:  logger.OrDefault(log, "translation").WithField("component", "translation"),
	}
}

// Config resolves the provider selection on first use. Concurrent first callers
// block until the single resolution finishes and all observe the same outcome.
// Resolution keeps ctx values but not its cancellation, so an aborted first
// request cannot decide the provider for the rest of the process.
func (r *Router) Config(ctx context.Context) (*RouterConfig, error) {
	r.once.Do(func() {
		resolveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.ResolveTimeout)
		defer cancel()
		r.resolved, r.err = r.resolve(resolveCtx)
	})
	return r.resolved, r.err
}

func (r *Router) resolve(ctx context.Context) (*RouterConfig, error) {
	var cloudErr error
	if r.opts.Cloud != nil {
		p, err := r.opts.Cloud(ctx)
		if err == nil && p != nil {
			r.log.WithField("provider", p.Name()).Info("translation provider selected")
			return &RouterConfig{Provider: p, Kind: types.ProviderCloud}, nil
		}
		if err == nil {
			err = errors.New("cloud factory returned no provider")
		}
		cloudErr = err
	}

	if r.opts.Community != nil {
		p, err := r.opts.Community()
		if err == nil && p != nil {
			entry := r.log.WithField("provider", p.Name())
			if cloudErr != nil {
				entry.WithField("cloud_error", cloudErr.Error()).
					Warn("cloud translation unavailable, degrading to community provider for process lifetime")
			} else {
				entry.Info("translation provider selected")
			}
			return &RouterConfig{Provider: p, Kind: types.ProviderCommunity, Degraded: cloudErr != nil}, nil
		}
		if err == nil {
			err = errors.New("community factory returned no provider")
		}
		return nil, fmt.Errorf("%w: community: %v; cloud: %v", ErrNoProvider, err, cloudErr)
	}

	if cloudErr != nil {
		return nil, fmt.Errorf("%w: cloud: %v; community: not configured", ErrNoProvider, cloudErr)
	}
	return nil, fmt.Errorf("%w: no provider configured", ErrNoProvider)
}

// Translate returns the full translation of text. Chunks are translated in order by
// one provider and joined with a single space; any chunk failure fails the call.
func (r *Router) Translate(ctx context.Context, text, targetLang string) (*types.TranslationResult, error) {
	chunks := chunker.Chunk(text, r.opts.MaxChunkChars)
	if len(chunks) == 0 {
		return &types.TranslationResult{Text: "", TargetLang: targetLang}, nil
	}

	cfg, err := r.Config(ctx)
	if err != nil {
		return nil, err
	}

	source := r.sourceLang(text)
	log := logger.FromContext(ctx, r.log).WithFields(logrus.Fields{
		"provider":    cfg.Provider.Name(),
		"source_lang": source,
		"target_lang": targetLang,
		"chunks":      len(chunks),
	})
	log.Debug("translating")

	translated := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := cfg.Provider.TranslateChunk(ctx, ChunkRequest{
			Text:       chunk,
			SourceLang: source,
			TargetLang: targetLang,
		})
		if err != nil {
			log.WithField("chunk", i+1).WithField("error", err.Error()).Warn("translation chunk failed")
			return nil, fmt.Errorf("chunk %d/%d (%s): %w", i+1, len(chunks), cfg.Provider.Name(), err)
		}
		translated = append(translated, out)
	}

	return &types.TranslationResult{
		Text:       strings.Join(translated, " "),
		Provider:   cfg.Kind,
		SourceLang: source,
		TargetLang: targetLang,
		Chunks:     len(chunks),
	}, nil
}

func (r *Router) sourceLang(text string) string {
	source := strings.TrimSpace(r.opts.SourceLang)
	if source != "" && !strings.EqualFold(source, AutoSourceLang) {
		return source
	}
	if r.opts.Detect != nil {
		if detected := r.opts.Detect(text); detected != "" {
			return detected
		}
	}
	return AutoSourceLang
}
