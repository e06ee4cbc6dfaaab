// Package lambdaevent decodes and validates pipeline invocations delivered as JSON events.
package lambdaevent

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"lingua-flow-go/internal/guard"
	"lingua-flow-go/internal/types"
)

//go:embed event.schema.json
var eventSchemaJSON string

const schemaName = "pipeline_event.schema.json"

// WarmupSource identifies scheduled keep-warm events.
const WarmupSource = "warmup"

// Event is one pipeline invocation.
type Event struct {
	Mode          types.Mode `json:"mode"`
	ContentBase64 string     `json:"content_base64"`
	Filename      string     `json:"filename,omitempty"`
	Lang          string     `json:"lang,omitempty"`
	STTLang       string     `json:"stt_lang,omitempty"`
}

// Response mirrors the HTTP API: exactly one of Text, TranslatedText, AudioBase64 or Error is set.
type Response struct {
	Mode           types.Mode `json:"mode,omitempty"`
	Text           string     `json:"text,omitempty"`
	TranslatedText string     `json:"translated_text,omitempty"`
	AudioBase64    string     `json:"audio_base64,omitempty"`
	DownloadName   string     `json:"download_name,omitempty"`
	Error          string     `json:"error,omitempty"`
	Kind           string     `json:"kind,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// Parse validates raw against the event schema and decodes it.
func Parse(raw json.RawMessage) (*Event, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode event JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &ev, nil
}

// Asset decodes the embedded content into an upload for the event's mode. A positive
// maxBytes rejects content whose decoded size would exceed it before decoding.
func (e *Event) Asset(maxBytes int64) (types.UploadedAsset, error) {
	encoded := strings.TrimSpace(e.ContentBase64)
	if maxBytes > 0 {
		if size := decodedSize(encoded); size > maxBytes {
			return types.UploadedAsset{}, fmt.Errorf("content_base64 decodes to %d bytes, limit %d: %w", size, maxBytes, guard.ErrSizeExceeded)
		}
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return types.UploadedAsset{}, fmt.Errorf("decode content_base64: %w", err)
	}
	kind := e.Mode.Input()
	ext := strings.ToLower(filepath.Ext(e.Filename))
	if ext == "" && kind == types.MediaPDF {
		ext = ".pdf"
	}
	return types.UploadedAsset{
		Kind:     kind,
		Filename: e.Filename,
		Ext:      ext,
		Content:  bytes.NewReader(data),
		Size:     int64(len(data)),
	}, nil
}

// decodedSize is the byte length encoded decodes to, assuming it is well-formed.
func decodedSize(encoded string) int64 {
	size := int64(base64.StdEncoding.DecodedLen(len(encoded)))
	size -= int64(len(encoded) - len(strings.TrimRight(encoded, "=")))
	if size < 0 {
		return 0
	}
	return size
}

// IsWarmup reports whether raw is a keep-warm ping rather than an invocation.
func IsWarmup(raw json.RawMessage) bool {
	var probe struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Source == WarmupSource
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource(schemaName, strings.NewReader(eventSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile(schemaName)
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("event is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("event contains trailing content")
	}
	return value, nil
}
