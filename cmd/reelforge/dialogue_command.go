package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reelforge/internal/api"
	"reelforge/internal/dialogue"
	"reelforge/internal/media/assets"
)

func newDialogueCommand(ctx *commandContext) *cobra.Command {
	var topic string
	var turns int
	var media []string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "dialogue",
		Short: "Write a dialogue with the configured LLM",
		Long: `Dialogue asks the configured LLM for a conversation about --topic and
prints it as a render request, ready for "reelforge render --input".

--media takes "filename" or "filename=description" and may be repeated; the
model only cues files listed this way.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.LLM.APIKey) == "" {
				return errors.New("llm.api_key is not set (or export OPENROUTER_API_KEY)")
			}
			logger, err := ctx.logger(false)
			if err != nil {
				return err
			}

			options := make([]dialogue.MediaOption, 0, len(media))
			for _, value := range media {
				options = append(options, parseMediaOption(value))
			}

			generator := dialogue.NewGeneratorFromConfig(cfg, logger)
			generated, err := generator.Generate(commandCtx(cmd), dialogue.Brief{
				Topic: topic,
				Turns: turns,
				Media: options,
			})
			if err != nil {
				return err
			}

			response := api.DialogueResponse{Conversation: generated}
			if strings.TrimSpace(outputPath) == "" {
				return writeJSON(cmd, response)
			}
			payload, err := json.MarshalIndent(response, "", "  ")
			if err != nil {
				return fmt.Errorf("encode dialogue: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			if err := os.WriteFile(outputPath, append(payload, '\n'), 0o644); err != nil {
				return fmt.Errorf("write dialogue: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d turns to %s\n", len(generated), outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "What the characters talk about")
	cmd.Flags().IntVarP(&turns, "turns", "n", 4, "Number of turns")
	cmd.Flags().StringArrayVarP(&media, "media", "m", nil, "Media the model may cue (filename[=description])")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the dialogue to a file instead of stdout")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func parseMediaOption(value string) dialogue.MediaOption {
	name, description, _ := strings.Cut(value, "=")
	name = strings.TrimSpace(name)
	return dialogue.MediaOption{
		Filename:    name,
		Kind:        string(assets.KindOf(name)),
		Description: strings.TrimSpace(description),
	}
}
