package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestLanguagesCommand(t *testing.T) {
	t.Setenv("STT_LANGUAGES", "fr-FR,en-US")
	t.Setenv("TEMP_DIR", t.TempDir())

	out, err := execute(t, "languages")
	if err != nil {
		t.Fatalf("languages returned error: %v", err)
	}
	var got languagesOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v (%s)", err, out)
	}
	if strings.Join(got.STTLanguages, ",") != "en-US,fr-FR" {
		t.Fatalf("unexpected languages %v", got.STTLanguages)
	}
	if got.Default != "en-US" {
		t.Fatalf("unexpected default %q", got.Default)
	}
}

func TestModesCommand(t *testing.T) {
	out, err := execute(t, "modes")
	if err != nil {
		t.Fatalf("modes returned error: %v", err)
	}
	var got []modeOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("expected 6 modes, got %d", len(got))
	}
	if got[0].Mode != "pdf_audio" || got[0].Input != "pdf" || len(got[0].Stages) != 4 {
		t.Fatalf("unexpected first mode %#v", got[0])
	}
}

func TestRunCommand_Validation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown mode", []string{"run", "video_audio", "x.mp4"}, "unknown mode"},
		{"audio needs out", []string{"run", "pdf_audio", "x.pdf"}, "pass --out"},
		{"missing file", []string{"run", "pdf_translate", filepath.Join(t.TempDir(), "nope.pdf")}, "open input"},
		{"wrong arg count", []string{"run", "pdf_translate"}, "accepts 2 arg(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
