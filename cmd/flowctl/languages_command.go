package main

import (
	"github.com/spf13/cobra"

	"lingua-flow-go/internal/app"
	"lingua-flow-go/internal/pipeline"
	"lingua-flow-go/internal/types"
)

type languagesOutput struct {
	STTLanguages      []string `json:"stt_languages"`
	Default           string   `json:"default"`
	SpeechRecognition bool     `json:"speech_recognition"`
}

func newLanguagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List accepted speech recognition languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			a, err := app.Build(cmd.Context(), cfg, ctx.newLogger(cmd.ErrOrStderr()).Entry)
			if err != nil {
				return err
			}
			return writeJSON(cmd, languagesOutput{
				STTLanguages:      a.Languages.Supported(),
				Default:           a.Languages.Default(),
				SpeechRecognition: a.SpeechRecognitionEnabled,
			})
		},
	}
}

type modeOutput struct {
	Mode   types.Mode `json:"mode"`
	Input  string     `json:"input"`
	Stages []string   `json:"stages"`
}

func newModesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List pipeline modes and their stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := make([]modeOutput, 0, len(types.Modes))
			for _, m := range types.Modes {
				out = append(out, modeOutput{Mode: m, Input: string(m.Input()), Stages: pipeline.Stages(m)})
			}
			return writeJSON(cmd, out)
		},
	}
}
