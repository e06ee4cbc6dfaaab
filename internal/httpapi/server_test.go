package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingua-flow-go/internal/language"
	"lingua-flow-go/internal/logger"
	"lingua-flow-go/internal/pipeline"
	"lingua-flow-go/internal/tempfile"
	"lingua-flow-go/internal/translation"
	"lingua-flow-go/internal/types"
)

type fakeRunner struct {
	got    pipeline.Request
	body   []byte
	result *pipeline.Result
	err    error
}

func (f *fakeRunner) Run(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.got = req
	if req.Asset.Content != nil {
		f.body, _ = io.ReadAll(req.Asset.Content)
	}
	return f.result, f.err
}

func newTestServer(t *testing.T, runner Runner) *Server {
	t.Helper()
	log := logger.NewWith("production", "error", io.Discard)
	langs := language.NewValidator([]string{"en-US", "fr-FR"}, "en-US", logrus.NewEntry(logrus.New()))
	return NewServer(log, runner, langs, Options{MaxUploadBytes: 1 << 20, SpeechRecognitionEnabled: true})
}

func multipartRequest(t *testing.T, path, field, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPDFToTranslate_ReturnsTranslatedText(t *testing.T) {
	runner := &fakeRunner{result: &pipeline.Result{Mode: types.ModePDFTranslate, Text: "bonjour"}}
	srv := newTestServer(t, runner)

	req := multipartRequest(t, "/pdf-to-translate", "pdf", "Doc.PDF", []byte("%PDF-1.7"), map[string]string{"lang": "fr"})
	req.Header.Set(logger.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bonjour", decode(t, rec)["translated_text"])
	assert.Equal(t, "req-42", rec.Header().Get(logger.RequestIDHeader))

	assert.Equal(t, types.ModePDFTranslate, runner.got.Mode)
	assert.Equal(t, "fr", runner.got.TargetLang)
	assert.Equal(t, ".pdf", runner.got.Asset.Ext)
	assert.Equal(t, types.MediaPDF, runner.got.Asset.Kind)
	assert.Equal(t, int64(8), runner.got.Asset.Size)
	assert.Equal(t, []byte("%PDF-1.7"), runner.body)
}

func TestAudioToText_Defaults(t *testing.T) {
	runner := &fakeRunner{result: &pipeline.Result{Mode: types.ModeAudioText, Text: "hello"}}
	srv := newTestServer(t, runner)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, multipartRequest(t, "/audio-to-text", "audio", "a.ogg", []byte("OggS"), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", decode(t, rec)["text"])
	assert.Equal(t, "en-US", runner.got.STTLang)
	assert.Equal(t, "en", runner.got.TargetLang)
	assert.NotEmpty(t, rec.Header().Get(logger.RequestIDHeader))
}

func TestAudioOutput_StreamsThenReleases(t *testing.T) {
	mgr := tempfile.NewManager(t.TempDir(), nil)
	h, err := mgr.Acquire(tempfile.KindMP3)
	require.NoError(t, err)
	require.NoError(t, h.Write([]byte("ID3-audio")))

	runner := &fakeRunner{result: &pipeline.Result{Mode: types.ModeAudioAudio, Audio: h}}
	srv := newTestServer(t, runner)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, multipartRequest(t, "/audio-to-audio", "audio", "a.m4a", []byte("m4a"), map[string]string{"lang": "de", "stt_lang": "fr-FR"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ID3-audio", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "translated_audio.mp3")
	assert.Equal(t, "fr-FR", runner.got.STTLang)

	_, statErr := os.Stat(h.Path)
	assert.True(t, os.IsNotExist(statErr), "output file must be released after streaming")
}

func TestMissingUpload(t *testing.T) {
	runner := &fakeRunner{}
	srv := newTestServer(t, runner)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, multipartRequest(t, "/pdf-to-audio", "", "", nil, map[string]string{"lang": "fr"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No PDF uploaded", decode(t, rec)["error"])
	assert.Equal(t, types.Mode(""), runner.got.Mode)
}

func TestPipelineErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		kind    pipeline.Kind
		err     error
		status  int
		message string
	}{
		{pipeline.KindSizeExceeded, nil, http.StatusRequestEntityTooLarge, "File is too large"},
		{pipeline.KindExtractFailed, nil, http.StatusUnprocessableEntity, "PDF extraction failed"},
		{pipeline.KindUnintelligible, nil, http.StatusUnprocessableEntity, "Could not understand the audio"},
		{pipeline.KindRecognitionServiceError, nil, http.StatusBadGateway, "Speech recognition service error"},
		{pipeline.KindTranslationFailed, errors.New("chunk 1/1"), http.StatusBadGateway, "Translation failed"},
		{pipeline.KindTranslationFailed, translation.ErrNoProvider, http.StatusServiceUnavailable, "Translation is not configured"},
		{pipeline.KindSynthesisFailed, nil, http.StatusBadGateway, "TTS failed"},
		{pipeline.KindFeatureDisabled, nil, http.StatusServiceUnavailable, "Speech recognition is not available on this server"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.kind, tt.status), func(t *testing.T) {
			runner := &fakeRunner{err: &pipeline.Error{Kind: tt.kind, Err: tt.err}}
			srv := newTestServer(t, runner)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, multipartRequest(t, "/pdf-to-translate-audio", "pdf", "d.pdf", []byte("x"), nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec)["error"])
		})
	}
}

func TestBodyLimit(t *testing.T) {
	log := logger.NewWith("production", "error", io.Discard)
	srv := NewServer(log, &fakeRunner{}, nil, Options{MaxUploadBytes: 16})

	big := bytes.Repeat([]byte("a"), int(multipartOverhead)+1024)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, multipartRequest(t, "/pdf-to-audio", "pdf", "big.pdf", big, nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "File is too large", decode(t, rec)["error"])
}

func TestHealthAndLanguages(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.Equal(t, true, decode(t, rec)["speech_recognition"])

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/languages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var langs languagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &langs))
	assert.Equal(t, []string{"en-US", "fr-FR"}, langs.STTLanguages)
	assert.Equal(t, "en-US", langs.Default)
	assert.Len(t, langs.Modes, 6)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode(t, rec)["error"])
}
