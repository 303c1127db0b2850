package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/chatterbox-serve/internal/tts"
	"github.com/spf13/cobra"
)

func newSynthCmd() *cobra.Command {
	var text string
	var voiceName string
	var normalize bool
	var temperature float64
	var exaggeration float64

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize text through the generation backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			inputText, err := readSynthText(text, os.Stdin)
			if err != nil {
				return err
			}

			resolver := buildResolver(cfg)
			svc, err := buildService(cmd.Context(), cfg, resolver)
			if err != nil {
				return err
			}

			params := tts.DefaultParams()
			params.Temperature = temperature
			params.Exaggeration = exaggeration

			res, err := svc.Synthesize(cmd.Context(), tts.SynthesisRequest{
				Text:              inputText,
				Voice:             voiceName,
				Params:            params,
				NormalizeLoudness: normalize,
			})
			if err != nil {
				return err
			}

			switch {
			case res.AudioURL != "":
				_, err = fmt.Fprintln(os.Stdout, res.AudioURL)
			default:
				_, err = fmt.Fprintln(os.Stdout, res.AudioBase64)
			}
			return err
		},
	}

	defaults := tts.DefaultParams()
	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize (if empty, read from stdin)")
	cmd.Flags().StringVar(&voiceName, "voice", "", "Voice name from the voice mapping")
	cmd.Flags().BoolVar(&normalize, "normalize", true, "Apply loudness normalization to the output")
	cmd.Flags().Float64Var(&temperature, "temperature", defaults.Temperature, "Sampling temperature")
	cmd.Flags().Float64Var(&exaggeration, "exaggeration", defaults.Exaggeration, "Emotion exaggeration factor")

	return cmd
}

func readSynthText(text string, stdin io.Reader) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	input := strings.TrimSpace(string(b))
	if input == "" {
		return "", fmt.Errorf("either provide --text or pipe text on stdin")
	}
	return input, nil
}
