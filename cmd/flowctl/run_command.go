package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lingua-flow-go/internal/app"
	"lingua-flow-go/internal/pipeline"
	"lingua-flow-go/internal/types"
)

type runOutput struct {
	Mode           types.Mode `json:"mode"`
	Text           string     `json:"text,omitempty"`
	TranslatedText string     `json:"translated_text,omitempty"`
	AudioPath      string     `json:"audio_path,omitempty"`
	Provider       string     `json:"provider,omitempty"`
	STTLang        string     `json:"stt_lang,omitempty"`
	Truncated      bool       `json:"truncated,omitempty"`
	DurationMs     int64      `json:"duration_ms"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		lang    string
		sttLang string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "run <mode> <file>",
		Short: "Run one pipeline mode against a local file",
		Long: "Run one pipeline mode against a local PDF or audio file.\n\nModes: " +
			strings.Join(modeNames(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := types.Mode(args[0])
			if !mode.Valid() {
				return fmt.Errorf("unknown mode %q (want one of %s)", args[0], strings.Join(modeNames(), ", "))
			}
			if mode.ProducesAudio() && outPath == "" {
				return fmt.Errorf("mode %s writes audio; pass --out", mode)
			}

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return fmt.Errorf("stat input: %w", err)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.newLogger(cmd.ErrOrStderr())
			a, err := app.Build(cmd.Context(), cfg, log.Entry)
			if err != nil {
				return err
			}

			res, err := a.Composer.Run(cmd.Context(), pipeline.Request{
				Mode: mode,
				Asset: types.UploadedAsset{
					Kind:     mode.Input(),
					Filename: filepath.Base(args[1]),
					Ext:      strings.ToLower(filepath.Ext(args[1])),
					Content:  f,
					Size:     info.Size(),
				},
				TargetLang: lang,
				STTLang:    sttLang,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", pipeline.MessageOf(err), err)
			}

			out := runOutput{Mode: mode, STTLang: res.STTLang, Truncated: res.Truncated, DurationMs: res.DurationMs}
			if res.Translation != nil {
				out.Provider = string(res.Translation.Provider)
			}
			if res.Audio != nil {
				defer res.Audio.Release()
				if err := copyFile(res.Audio.Path, outPath); err != nil {
					return err
				}
				out.AudioPath = outPath
			} else if mode.Translates() {
				out.TranslatedText = res.Text
			} else {
				out.Text = res.Text
			}
			return writeJSON(cmd, out)
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "en", "Target language for translation and speech")
	cmd.Flags().StringVar(&sttLang, "stt-lang", "en-US", "Speech recognition language tag")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Where to write the mp3 for audio-producing modes")
	return cmd
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return out.Close()
}

func modeNames() []string {
	names := make([]string, 0, len(types.Modes))
	for _, m := range types.Modes {
		names = append(names, string(m))
	}
	return names
}
