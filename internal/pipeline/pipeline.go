// Package pipeline composes extraction, transcoding, recognition, translation and
// synthesis into the six supported modes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lingua-flow-go/internal/guard"
	"lingua-flow-go/internal/language"
	"lingua-flow-go/internal/logger"
	"lingua-flow-go/internal/tempfile"
	"lingua-flow-go/internal/transcription"
	"lingua-flow-go/internal/types"
)

const (
	StageValidate     = "validate"
	StageSizeCheck    = "size-check"
	StageExtract      = "extract"
	StageGuardLength  = "guard-length"
	StageTranscode    = "transcode"
	StageValidateLang = "validate-lang"
	StageTranscribe   = "transcribe"
	StageTranslate    = "translate"
	StageSynthesize   = "synthesize"
)

const DefaultTargetLang = "en"

var stageTable = map[types.Mode][]string{
	types.ModePDFAudio:          {StageSizeCheck, StageExtract, StageGuardLength, StageSynthesize},
	types.ModePDFTranslate:      {StageSizeCheck, StageExtract, StageTranslate},
	types.ModePDFTranslateAudio: {StageSizeCheck, StageExtract, StageTranslate, StageSynthesize},
	types.ModeAudioText:         {StageSizeCheck, StageTranscode, StageValidateLang, StageTranscribe},
	types.ModeAudioTranslate:    {StageSizeCheck, StageTranscode, StageValidateLang, StageTranscribe, StageTranslate},
	types.ModeAudioAudio:        {StageSizeCheck, StageTranscode, StageValidateLang, StageTranscribe, StageTranslate, StageSynthesize},
}

// Stages returns the ordered stage names of mode, the order Run executes them in.
func Stages(mode types.Mode) []string {
	return append([]string(nil), stageTable[mode]...)
}

type PDFExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// AudioTranscoder writes a recognizer-ready wav of srcPath to dstPath. Both files
// belong to the composer.
type AudioTranscoder interface {
	ToWav(ctx context.Context, srcPath, dstPath string) error
}

// SpeechRecognizer returns transcription.ErrUnintelligible when no speech was understood.
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, wav []byte, lang string) (string, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (*types.TranslationResult, error)
}

type LanguageValidator interface {
	Validate(tag string) string
}

// Deps are the collaborators of a Composer. Recognizer and Transcoder may be nil
// when speech recognition is disabled.
type Deps struct {
	Extractor   PDFExtractor
	Transcoder  AudioTranscoder
	Recognizer  SpeechRecognizer
	Synthesizer SpeechSynthesizer
	Translator  Translator
	Languages   LanguageValidator
	Temp        *tempfile.Manager
}

type Options struct {
	MaxUploadBytes int64
	MaxTextChars   int
	// SpeechRecognitionEnabled is resolved once at startup; audio modes fail fast when false.
	SpeechRecognitionEnabled bool
	// TTSDefaultLang is the voice used by PDF→Audio, which has no target language.
	TTSDefaultLang string
}

type Request struct {
	Mode       types.Mode
	Asset      types.UploadedAsset
	TargetLang string
	STTLang    string
}

// Result is the output of one invocation. Audio is set for modes that end in
// synthesis and is owned by the caller, who must Release it.
type Result struct {
	Mode        types.Mode
	Text        string
	Translation *types.TranslationResult
	Audio       *tempfile.Handle
	STTLang     string
	Truncated   bool
	DurationMs  int64
}

// DownloadName is the attachment filename for an audio result.
func (r *Result) DownloadName() string {
	if r.Mode == types.ModePDFAudio {
		return "audio.mp3"
	}
	return "translated_audio.mp3"
}

// Composer runs pipeline invocations. It holds no per-request state.
type Composer struct {
	deps Deps
	opts Options
	log  *logrus.Entry
}

func New(deps Deps, opts Options, log *logrus.Entry) *Composer {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = guard.DefaultMaxUploadBytes
	}
	if opts.MaxTextChars <= 0 {
		opts.MaxTextChars = guard.DefaultMaxTextChars
	}
	if opts.TTSDefaultLang == "" {
		opts.TTSDefaultLang = DefaultTargetLang
	}
	if deps.Temp == nil {
		deps.Temp = tempfile.NewManager("", log)
	}
	if deps.Languages == nil {
		deps.Languages = language.NewValidator(language.DefaultSTTLanguages, language.DefaultSTTLanguage, log)
	}
	return &Composer{
		deps: deps,
		opts: opts,
		log:  logger.OrDefault(log, "pipeline").WithField("component", "pipeline"),
	}
}

func (c *Composer) SpeechRecognitionEnabled() bool {
	return c.opts.SpeechRecognitionEnabled
}

func (c *Composer) PDFToAudio(ctx context.Context, asset types.UploadedAsset) (*Result, error) {
	return c.Run(ctx, Request{Mode: types.ModePDFAudio, Asset: asset})
}

func (c *Composer) PDFToTranslate(ctx context.Context, asset types.UploadedAsset, targetLang string) (*Result, error) {
	return c.Run(ctx, Request{Mode: types.ModePDFTranslate, Asset: asset, TargetLang: targetLang})
}

func (c *Composer) PDFToTranslateAudio(ctx context.Context, asset types.UploadedAsset, targetLang string) (*Result, error) {
	return c.Run(ctx, Request{Mode: types.ModePDFTranslateAudio, Asset: asset, TargetLang: targetLang})
}

func (c *Composer) AudioToText(ctx context.Context, asset types.UploadedAsset, sttLang string) (*Result, error) {
	return c.Run(ctx, Request{Mode: types.ModeAudioText, Asset: asset, STTLang: sttLang})
}

func (c *Composer) AudioToTranslate(ctx context.Context, asset types.UploadedAsset, sttLang, targetLang string) (*Result, error) {
	return c.Run(ctx, Request{Mode: types.ModeAudioTranslate, Asset: asset, STTLang: sttLang, TargetLang: targetLang})
}

func (c *Composer) AudioToAudio(ctx context.Context, asset types.UploadedAsset, sttLang, targetLang string) (*Result, error) {
	return c.Run(ctx, Request{Mode: types.ModeAudioAudio, Asset: asset, STTLang: sttLang, TargetLang: targetLang})
}

// Run executes req.Mode. The first failing stage ends the invocation; every ephemeral
// file of the invocation is released before Run returns, except a successful audio output.
func (c *Composer) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	inv := &invocation{
		c:     c,
		req:   req,
		scope: c.deps.Temp.NewScope(),
		log:   logger.FromContext(ctx, c.log).WithField("mode", req.Mode),
		state: StateIdle,
	}
	defer inv.scope.Close()

	res, err := inv.execute(ctx)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		inv.transition(StateFailed)
		var pe *Error
		if !errors.As(err, &pe) {
			pe = newError(KindInternal, inv.stage, err)
		}
		inv.log.WithFields(logrus.Fields{
			"kind":        pe.Kind,
			"stage":       pe.Stage,
			"error":       errString(pe.Err),
			"duration_ms": duration,
		}).Warn("pipeline failed")
		return nil, pe
	}

	inv.transition(StateSucceeded)
	res.DurationMs = duration
	inv.log.WithField("duration_ms", duration).Info("pipeline finished")
	return res, nil
}

type invocation struct {
	c     *Composer
	req   Request
	scope *tempfile.Scope
	log   *logrus.Entry
	state State
	stage string
	index int
}

func (inv *invocation) execute(ctx context.Context) (*Result, error) {
	inv.transition(StateValidating)
	if err := inv.validate(); err != nil {
		return nil, err
	}

	res := &Result{Mode: inv.req.Mode}
	var (
		text  string
		wav   []byte
		voice = inv.c.opts.TTSDefaultLang
	)
	for _, stage := range stageTable[inv.req.Mode] {
		inv.enter(stage)
		var err error
		switch stage {
		case StageSizeCheck:
			err = inv.checkSize()
		case StageExtract:
			text, err = inv.extract(ctx)
		case StageGuardLength:
			text, res.Truncated = inv.guardLength(text)
		case StageTranscode:
			wav, err = inv.transcode(ctx)
		case StageValidateLang:
			res.STTLang = inv.c.deps.Languages.Validate(inv.req.STTLang)
		case StageTranscribe:
			text, err = inv.transcribe(ctx, wav, res.STTLang)
		case StageTranslate:
			voice = inv.targetLang()
			res.Translation, err = inv.translate(ctx, text, voice)
			if err == nil {
				text = res.Translation.Text
			}
		case StageSynthesize:
			var audio *tempfile.Handle
			audio, err = inv.synthesize(ctx, text, voice)
			if err == nil {
				res.Audio = inv.scope.Detach(audio)
			}
		default:
			err = newError(KindInternal, stage, fmt.Errorf("unknown stage %q", stage))
		}
		if err != nil {
			return nil, err
		}
	}
	res.Text = text
	return res, nil
}

func (inv *invocation) validate() error {
	mode := inv.req.Mode
	if !mode.Valid() {
		return invalidRequest("unknown mode %q", mode)
	}
	asset := &inv.req.Asset
	if asset.Content == nil {
		return invalidRequest("No %s uploaded", noun(mode.Input()))
	}
	if asset.Kind == "" {
		asset.Kind = mode.Input()
	}
	if asset.Kind != mode.Input() {
		return invalidRequest("mode %s expects a %s upload, got %s", mode, mode.Input(), asset.Kind)
	}
	if mode.Input() == types.MediaAudio && !inv.c.opts.SpeechRecognitionEnabled {
		return newError(KindFeatureDisabled, StageValidate, errors.New("speech recognition capability is disabled"))
	}
	return nil
}

func (inv *invocation) checkSize() error {
	if err := guard.CheckSize(inv.req.Asset, inv.c.opts.MaxUploadBytes); err != nil {
		if errors.Is(err, guard.ErrSizeExceeded) {
			return newError(KindSizeExceeded, StageSizeCheck, err)
		}
		return newError(KindInvalidRequest, StageSizeCheck, err)
	}
	return nil
}

func (inv *invocation) extract(ctx context.Context) (string, error) {
	data, err := readAll(inv.req.Asset.Content)
	if err != nil {
		return "", newError(KindExtractFailed, StageExtract, err)
	}
	text, err := inv.c.deps.Extractor.Extract(ctx, data)
	if err != nil {
		return "", newError(KindExtractFailed, StageExtract, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", newError(KindExtractFailed, StageExtract, errors.New("no text extracted"))
	}
	return text, nil
}

func (inv *invocation) guardLength(text string) (string, bool) {
	limit := inv.c.opts.MaxTextChars
	out, truncated := guard.TruncateText(text, limit)
	if truncated {
		inv.log.WithFields(logrus.Fields{
			"original_chars": len([]rune(text)),
			"max_chars":      limit,
		}).Warn("extracted text truncated")
	}
	return out, truncated
}

func (inv *invocation) transcode(ctx context.Context) ([]byte, error) {
	upload, err := inv.scope.AcquireExt(tempfile.KindUpload, inv.req.Asset.Ext)
	if err != nil {
		return nil, newError(KindTranscodeFailed, StageTranscode, err)
	}
	data, err := readAll(inv.req.Asset.Content)
	if err != nil {
		return nil, newError(KindTranscodeFailed, StageTranscode, err)
	}
	if err := upload.Write(data); err != nil {
		return nil, newError(KindTranscodeFailed, StageTranscode, err)
	}

	wav, err := inv.scope.Acquire(tempfile.KindWAV)
	if err != nil {
		return nil, newError(KindTranscodeFailed, StageTranscode, err)
	}
	if err := inv.c.deps.Transcoder.ToWav(ctx, upload.Path, wav.Path); err != nil {
		return nil, newError(KindTranscodeFailed, StageTranscode, err)
	}
	out, err := wav.ReadAll()
	if err != nil {
		return nil, newError(KindTranscodeFailed, StageTranscode, err)
	}
	if len(out) == 0 {
		return nil, newError(KindTranscodeFailed, StageTranscode, errors.New("transcoder produced no audio"))
	}
	return out, nil
}

func (inv *invocation) transcribe(ctx context.Context, wav []byte, lang string) (string, error) {
	text, err := inv.c.deps.Recognizer.Transcribe(ctx, wav, lang)
	switch {
	case errors.Is(err, transcription.ErrUnintelligible):
		return "", newError(KindUnintelligible, StageTranscribe, err)
	case err != nil:
		return "", newError(KindRecognitionServiceError, StageTranscribe, err)
	case strings.TrimSpace(text) == "":
		return "", newError(KindUnintelligible, StageTranscribe, transcription.ErrUnintelligible)
	}
	return text, nil
}

func (inv *invocation) translate(ctx context.Context, text, target string) (*types.TranslationResult, error) {
	tr, err := inv.c.deps.Translator.Translate(ctx, text, target)
	if err != nil {
		return nil, newError(KindTranslationFailed, StageTranslate, err)
	}
	return tr, nil
}

func (inv *invocation) synthesize(ctx context.Context, text, lang string) (*tempfile.Handle, error) {
	audio, err := inv.c.deps.Synthesizer.Synthesize(ctx, text, lang)
	if err != nil {
		return nil, newError(KindSynthesisFailed, StageSynthesize, err)
	}
	if len(audio) == 0 {
		return nil, newError(KindSynthesisFailed, StageSynthesize, errors.New("synthesizer returned no audio"))
	}
	mp3, err := inv.scope.Acquire(tempfile.KindMP3)
	if err != nil {
		return nil, newError(KindSynthesisFailed, StageSynthesize, err)
	}
	if err := mp3.Write(audio); err != nil {
		return nil, newError(KindSynthesisFailed, StageSynthesize, err)
	}
	return mp3, nil
}

func (inv *invocation) targetLang() string {
	if lang := strings.TrimSpace(inv.req.TargetLang); lang != "" {
		return lang
	}
	return DefaultTargetLang
}

func readAll(r io.ReadSeeker) ([]byte, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

func noun(kind types.MediaKind) string {
	if kind == types.MediaPDF {
		return "PDF"
	}
	return "audio"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
