package lambdaevent

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"lingua-flow-go/internal/guard"
	"lingua-flow-go/internal/types"
)

func TestParse_Valid(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))
	raw := json.RawMessage(`{"mode":"pdf_translate","content_base64":"` + content + `","filename":"Report.PDF","lang":"fr"}`)

	ev, err := Parse(raw)
	if err != nil {
		t.Fatalf("expected event to be valid, got error: %v", err)
	}
	if ev.Mode != types.ModePDFTranslate {
		t.Fatalf("expected mode pdf_translate, got %q", ev.Mode)
	}

	asset, err := ev.Asset(0)
	if err != nil {
		t.Fatalf("Asset returned error: %v", err)
	}
	if asset.Kind != types.MediaPDF || asset.Ext != ".pdf" || asset.Size != 8 {
		t.Fatalf("unexpected asset %+v", asset)
	}
	data, _ := io.ReadAll(asset.Content)
	if string(data) != "%PDF-1.4" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"not json", `mode=pdf_audio`},
		{"missing content", `{"mode":"pdf_audio"}`},
		{"unknown mode", `{"mode":"video_audio","content_base64":"eA=="}`},
		{"unknown field", `{"mode":"pdf_audio","content_base64":"eA==","voice":"x"}`},
		{"bad stt tag", `{"mode":"audio_text","content_base64":"eA==","stt_lang":"not a tag"}`},
		{"trailing content", `{"mode":"pdf_audio","content_base64":"eA=="} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(json.RawMessage(tt.raw)); err == nil {
				t.Fatalf("expected %s to be rejected", tt.name)
			}
		})
	}
}

func TestAsset_BadBase64(t *testing.T) {
	ev := &Event{Mode: types.ModeAudioText, ContentBase64: "***"}
	if _, err := ev.Asset(0); err == nil {
		t.Fatal("expected base64 error")
	}
}

func TestAsset_AudioKeepsExtension(t *testing.T) {
	ev := &Event{Mode: types.ModeAudioAudio, ContentBase64: "eA==", Filename: "clip.M4A"}
	asset, err := ev.Asset(0)
	if err != nil {
		t.Fatalf("Asset returned error: %v", err)
	}
	if asset.Kind != types.MediaAudio || asset.Ext != ".m4a" {
		t.Fatalf("unexpected asset %+v", asset)
	}
}

func TestIsWarmup(t *testing.T) {
	if !IsWarmup(json.RawMessage(`{"source":"warmup","concurrency":3}`)) {
		t.Fatal("expected warmup event")
	}
	if IsWarmup(json.RawMessage(`{"mode":"pdf_audio"}`)) {
		t.Fatal("pipeline event is not a warmup")
	}
	if IsWarmup(json.RawMessage(strings.Repeat("[", 3))) {
		t.Fatal("malformed input is not a warmup")
	}
}

func TestAsset_SizeCheckedBeforeDecode(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte("0123456789"))
	ev := &Event{Mode: types.ModePDFAudio, ContentBase64: content}

	asset, err := ev.Asset(10)
	if err != nil {
		t.Fatalf("content at the limit rejected: %v", err)
	}
	if asset.Size != 10 {
		t.Fatalf("expected size 10, got %d", asset.Size)
	}

	_, err = ev.Asset(9)
	if !errors.Is(err, guard.ErrSizeExceeded) {
		t.Fatalf("expected size exceeded, got %v", err)
	}

	// oversized content is rejected even when it is not valid base64
	ev.ContentBase64 = strings.Repeat("*", 400)
	if _, err := ev.Asset(100); !errors.Is(err, guard.ErrSizeExceeded) {
		t.Fatalf("expected size exceeded before decoding, got %v", err)
	}
}

func TestDecodedSize(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 5, 99} {
		encoded := base64.StdEncoding.EncodeToString(make([]byte, n))
		if got := decodedSize(encoded); got != int64(n) {
			t.Fatalf("decodedSize(%d bytes) = %d", n, got)
		}
	}
}
