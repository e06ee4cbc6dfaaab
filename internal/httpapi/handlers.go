package httpapi

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"lingua-flow-go/internal/logger"
	"lingua-flow-go/internal/pipeline"
	"lingua-flow-go/internal/translation"
	"lingua-flow-go/internal/types"
)

const (
	defaultTargetLang = "en"
	defaultSTTLang    = "en-US"
)

type modeRoute struct {
	path  string
	mode  types.Mode
	field string
}

var modeRoutes = []modeRoute{
	{path: "/pdf-to-audio", mode: types.ModePDFAudio, field: "pdf"},
	{path: "/pdf-to-translate", mode: types.ModePDFTranslate, field: "pdf"},
	{path: "/pdf-to-translate-audio", mode: types.ModePDFTranslateAudio, field: "pdf"},
	{path: "/audio-to-text", mode: types.ModeAudioText, field: "audio"},
	{path: "/audio-to-translate", mode: types.ModeAudioTranslate, field: "audio"},
	{path: "/audio-to-audio", mode: types.ModeAudioAudio, field: "audio"},
}

type errorResponse struct {
	Error string `json:"error"`
}

type textResponse struct {
	Text string `json:"text"`
}

type translatedResponse struct {
	TranslatedText string `json:"translated_text"`
}

type healthResponse struct {
	Status            string `json:"status"`
	SpeechRecognition bool   `json:"speech_recognition"`
}

type languagesResponse struct {
	STTLanguages []string     `json:"stt_languages"`
	Default      string       `json:"default"`
	Modes        []types.Mode `json:"modes"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:            "ok",
		SpeechRecognition: s.opts.SpeechRecognitionEnabled,
	})
}

func (s *Server) handleLanguages(c echo.Context) error {
	resp := languagesResponse{Default: defaultSTTLang, Modes: types.Modes}
	if s.languages != nil {
		resp.STTLanguages = s.languages.Supported()
		resp.Default = s.languages.Default()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) modeHandler(route modeRoute) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		reqLog := logger.FromContext(ctx, s.log.Entry).WithFields(logrus.Fields{
			"handler": route.mode,
		})

		fh, err := c.FormFile(route.field)
		if err != nil || fh == nil {
			reqLog.Warn("missing upload")
			return writeError(c, http.StatusBadRequest, "No "+noun(route.field)+" uploaded")
		}
		file, err := fh.Open()
		if err != nil {
			reqLog.WithField("error", err.Error()).Warn("failed to open upload")
			return writeError(c, http.StatusBadRequest, "Could not read upload")
		}
		defer file.Close()

		req := pipeline.Request{
			Mode:       route.mode,
			Asset:      assetFrom(route.mode.Input(), fh, file),
			TargetLang: formValue(c, "lang", defaultTargetLang),
			STTLang:    formValue(c, "stt_lang", defaultSTTLang),
		}
		reqLog.WithFields(logrus.Fields{
			"filename": fh.Filename,
			"size":     fh.Size,
		}).Info("pipeline request received")

		res, err := s.runner.Run(ctx, req)
		if err != nil {
			return writeError(c, statusFor(err), pipeline.MessageOf(err))
		}

		if res.Audio != nil {
			defer res.Audio.Release()
			return c.Attachment(res.Audio.Path, res.DownloadName())
		}
		if route.mode.Translates() {
			return c.JSON(http.StatusOK, translatedResponse{TranslatedText: res.Text})
		}
		return c.JSON(http.StatusOK, textResponse{Text: res.Text})
	}
}

func assetFrom(kind types.MediaKind, fh *multipart.FileHeader, file multipart.File) types.UploadedAsset {
	return types.UploadedAsset{
		Kind:     kind,
		Filename: fh.Filename,
		Ext:      strings.ToLower(filepath.Ext(fh.Filename)),
		Content:  file,
		Size:     fh.Size,
	}
}

func formValue(c echo.Context, key, def string) string {
	if v := strings.TrimSpace(c.FormValue(key)); v != "" {
		return v
	}
	return def
}

// statusFor maps a pipeline failure kind onto an HTTP status.
func statusFor(err error) int {
	switch pipeline.KindOf(err) {
	case pipeline.KindInvalidRequest:
		return http.StatusBadRequest
	case pipeline.KindSizeExceeded:
		return http.StatusRequestEntityTooLarge
	case pipeline.KindExtractFailed, pipeline.KindTranscodeFailed, pipeline.KindUnintelligible:
		return http.StatusUnprocessableEntity
	case pipeline.KindRecognitionServiceError, pipeline.KindSynthesisFailed:
		return http.StatusBadGateway
	case pipeline.KindTranslationFailed:
		if errors.Is(err, translation.ErrNoProvider) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case pipeline.KindFeatureDisabled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, code int, message string) error {
	return c.JSON(code, errorResponse{Error: message})
}

func noun(field string) string {
	if field == "pdf" {
		return "PDF"
	}
	return field
}
