// Package app wires configuration into a ready pipeline composer. It is shared by
// the HTTP server, the Lambda handler and the CLI.
package app

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"lingua-flow-go/internal/config"
	"lingua-flow-go/internal/extract"
	"lingua-flow-go/internal/language"
	"lingua-flow-go/internal/pipeline"
	"lingua-flow-go/internal/synthesis"
	"lingua-flow-go/internal/tempfile"
	"lingua-flow-go/internal/transcode"
	"lingua-flow-go/internal/transcription"
	"lingua-flow-go/internal/translation"
)

type App struct {
	Config    *config.Config
	Composer  *pipeline.Composer
	Languages *language.Validator
	Router    *translation.Router

	// SpeechRecognitionEnabled is true when an STT endpoint is configured and the
	// transcoder binary resolves. It never changes after Build.
	SpeechRecognitionEnabled bool
}

// Build constructs every collaborator from cfg. Missing optional collaborators
// degrade capability rather than fail startup.
func Build(_ context.Context, cfg *config.Config, log *logrus.Entry) (*App, error) {
	languages := language.NewValidator(sttLanguages(cfg, log), cfg.STTDefaultLanguage, log)

	transcoder := transcode.New(transcode.WithBinary(cfg.FFmpegBinary))
	var recognizer pipeline.SpeechRecognizer
	speechEnabled := false
	if strings.TrimSpace(cfg.STTEndpoint) != "" {
		client, err := transcription.New(transcription.Config{
			Endpoint:    cfg.STTEndpoint,
			APIKey:      cfg.STTAPIKey,
			Model:       cfg.STTModel,
			Timeout:     cfg.ProviderTimeout(),
			RetryBudget: cfg.ProviderRetryBudget(),
		}, log)
		if err != nil {
			return nil, err
		}
		recognizer = client
		speechEnabled = transcoder.Available()
		if !speechEnabled {
			log.WithField("binary", transcoder.Binary()).Warn("transcoder binary not found, speech recognition disabled")
		}
	} else {
		log.Info("STT_ENDPOINT not set, speech recognition disabled")
	}

	synthesizer, err := synthesis.New(synthesis.Config{
		Endpoint:    cfg.TTSEndpoint,
		DefaultLang: cfg.TTSDefaultLang,
		Timeout:     cfg.ProviderTimeout(),
		RetryBudget: cfg.ProviderRetryBudget(),
	}, log)
	if err != nil {
		return nil, err
	}

	router := translation.NewRouter(routerOptions(cfg), log)

	composer := pipeline.New(pipeline.Deps{
		Extractor:   extract.NewPDF(log),
		Transcoder:  transcoder,
		Recognizer:  recognizer,
		Synthesizer: synthesizer,
		Translator:  router,
		Languages:   languages,
		Temp:        tempfile.NewManager(cfg.TempDir, log),
	}, pipeline.Options{
		MaxUploadBytes:           cfg.MaxUploadBytes,
		MaxTextChars:             cfg.MaxTextChars,
		SpeechRecognitionEnabled: speechEnabled,
		TTSDefaultLang:           cfg.TTSDefaultLang,
	}, log)

	log.WithFields(logrus.Fields{
		"speech_recognition": speechEnabled,
		"cloud_translation":  cfg.TranslateCloudEnabled,
		"community_fallback": cfg.LibreTranslateURL != "",
		"stt_languages":      len(languages.Supported()),
	}).Info("pipeline ready")

	return &App{
		Config:                   cfg,
		Composer:                 composer,
		Languages:                languages,
		Router:                   router,
		SpeechRecognitionEnabled: speechEnabled,
	}, nil
}

func routerOptions(cfg *config.Config) translation.Options {
	opts := translation.Options{
		MaxChunkChars: cfg.MaxChunkChars,
		SourceLang:    cfg.TranslateSourceLang,
	}
	if cfg.TranslateCloudEnabled {
		opts.Cloud = translation.CloudFactoryFor(cfg.TranslateCloudFunction)
	}
	if strings.TrimSpace(cfg.LibreTranslateURL) != "" {
		opts.Community = translation.CommunityFactoryFor(cfg.LibreTranslateURL, cfg.LibreTranslateAPIKey, cfg.ProviderTimeout(), cfg.ProviderRetryBudget())
	}
	if strings.EqualFold(strings.TrimSpace(cfg.TranslateSourceLang), translation.AutoSourceLang) {
		opts.Detect = translation.DetectSource
	}
	return opts
}

// sttLanguages merges the configured allow-list with the enabled rows of the
// optional catalog. A catalog that cannot be read is logged and ignored.
func sttLanguages(cfg *config.Config, log *logrus.Entry) []string {
	tags := cfg.STTLanguageList()
	path := strings.TrimSpace(cfg.STTLanguageCatalog)
	if path == "" {
		return tags
	}

	entries, err := language.LoadCatalog(path)
	if err != nil {
		log.WithFields(logrus.Fields{"path": path, "error": err.Error()}).Warn("failed to load language catalog")
		return tags
	}

	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		seen[strings.ToLower(tag)] = struct{}{}
	}
	added := 0
	for _, tag := range language.EnabledTags(entries) {
		if _, ok := seen[strings.ToLower(tag)]; ok {
			continue
		}
		seen[strings.ToLower(tag)] = struct{}{}
		tags = append(tags, tag)
		added++
	}
	log.WithFields(logrus.Fields{"path": path, "added": added}).Info("language catalog loaded")
	return tags
}
