package types

import "io"

type MediaKind string

const (
	MediaPDF   MediaKind = "pdf"
	MediaAudio MediaKind = "audio"
)

// UploadedAsset is one inbound file, owned by a single pipeline invocation.
type UploadedAsset struct {
	Kind     MediaKind
	Filename string
	// Ext is the source extension including the dot, e.g. ".m4a".
	Ext     string
	Content io.ReadSeeker
	// Size is the declared size in bytes; <= 0 means unknown.
	Size int64
}

type Mode string

const (
	ModePDFAudio          Mode = "pdf_audio"
	ModePDFTranslate      Mode = "pdf_translate"
	ModePDFTranslateAudio Mode = "pdf_translate_audio"
	ModeAudioText         Mode = "audio_text"
	ModeAudioTranslate    Mode = "audio_translate"
	ModeAudioAudio        Mode = "audio_audio"
)

// Modes lists every pipeline shape in display order.
var Modes = []Mode{
	ModePDFAudio,
	ModePDFTranslate,
	ModePDFTranslateAudio,
	ModeAudioText,
	ModeAudioTranslate,
	ModeAudioAudio,
}

func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// Input returns the media kind the mode consumes.
func (m Mode) Input() MediaKind {
	switch m {
	case ModePDFAudio, ModePDFTranslate, ModePDFTranslateAudio:
		return MediaPDF
	default:
		return MediaAudio
	}
}

// ProducesAudio reports whether the mode ends with speech synthesis.
func (m Mode) ProducesAudio() bool {
	return m == ModePDFAudio || m == ModePDFTranslateAudio || m == ModeAudioAudio
}

// Translates reports whether the mode has a translation stage.
func (m Mode) Translates() bool {
	return m != ModePDFAudio && m != ModeAudioText
}

type ProviderKind string

const (
	ProviderCloud     ProviderKind = "cloud"
	ProviderCommunity ProviderKind = "community"
)

// TranslationResult is the full target-language text and the provider path that produced it.
type TranslationResult struct {
	Text       string       `json:"translated_text"`
	Provider   ProviderKind `json:"provider,omitempty"`
	SourceLang string       `json:"source_lang,omitempty"`
	TargetLang string       `json:"target_lang"`
	Chunks     int          `json:"chunks"`
}
