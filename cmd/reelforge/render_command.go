package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"reelforge/internal/api"
	"reelforge/internal/dialogue"
	"reelforge/internal/logging"
	"reelforge/internal/media/assets"
	"reelforge/internal/pipeline"
	"reelforge/internal/timeline"
)

type renderSummary struct {
	ID            string   `json:"id"`
	Output        string   `json:"output"`
	VideoBytes    int      `json:"videoBytes"`
	TotalDuration float64  `json:"totalDuration"`
	Segments      int      `json:"segments"`
	Words         int      `json:"words"`
	Overlays      []string `json:"overlays,omitempty"`
	ElapsedMillis int64    `json:"elapsedMillis"`
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var inputPath string
	var mediaPaths []string
	var outputPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a dialogue JSON file to an MP4",
		Long: `Render reads a dialogue from --input (a render request with "conversation"
and optional "mediaFiles", or a bare array of turns) and writes the video to
--output. Local files passed with --media can be referenced by media cues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := readInput(cmd.InOrStdin(), inputPath)
			if err != nil {
				return err
			}
			req, err := parseRenderInput(data)
			if err != nil {
				return err
			}

			logger, err := ctx.logger(false)
			if err != nil {
				return err
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			p, err := pipeline.NewFromConfig(cfg, store, logger)
			if err != nil {
				return err
			}

			library := api.DecodeMedia(req.MediaFiles, logger)
			if err := addLocalMedia(library, mediaPaths); err != nil {
				return err
			}

			id := uuid.NewString()
			target := strings.TrimSpace(outputPath)
			if target == "" {
				target = filepath.Join(cfg.Paths.OutputDir, fmt.Sprintf("reelforge_%s.mp4", id))
			}

			runCtx, cancel := signal.NotifyContext(commandCtx(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			result, err := p.Run(runCtx, pipeline.Request{
				ID:     id,
				Turns:  req.Conversation,
				Media:  library,
				Source: "cli",
			})
			if err != nil {
				if perr, ok := pipeline.AsError(err); ok {
					return fmt.Errorf("render %s failed (%s): %s", perr.RequestID, perr.Class, perr.Detail)
				}
				return err
			}
			logger.Debug("render finished", logging.String("output", target))

			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			if err := os.WriteFile(target, result.Video, 0o644); err != nil {
				return fmt.Errorf("write video: %w", err)
			}

			summary := summarizeRender(result, target)
			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			printRenderSummary(cmd.OutOrStdout(), summary, result.Timeline)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Dialogue JSON file (- for stdin)")
	cmd.Flags().StringArrayVarP(&mediaPaths, "media", "m", nil, "Local media file available to media cues (repeatable)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output MP4 path (default: output_dir/reelforge_<id>.mp4)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output summary as JSON")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// addLocalMedia adds files named with --media under their base names. Unlike
// uploaded media, a file that cannot be read or exceeds its size limit fails
// the command.
func addLocalMedia(library *assets.Library, paths []string) error {
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read media %s: %w", path, err)
		}
		if _, err := library.Add(filepath.Base(path), content); err != nil {
			return fmt.Errorf("add media %s: %w", path, err)
		}
	}
	return nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// parseRenderInput accepts either a full render request or a bare turn array.
func parseRenderInput(data []byte) (api.RenderRequest, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return api.RenderRequest{}, errors.New("input is empty")
	}
	var req api.RenderRequest
	if trimmed[0] == '[' {
		var turns []dialogue.Turn
		if err := json.Unmarshal(trimmed, &turns); err != nil {
			return api.RenderRequest{}, fmt.Errorf("decode turns: %w", err)
		}
		req.Conversation = turns
	} else if err := json.Unmarshal(trimmed, &req); err != nil {
		return api.RenderRequest{}, fmt.Errorf("decode render request: %w", err)
	}
	if len(req.Conversation) == 0 {
		return api.RenderRequest{}, errors.New("input has no conversation turns")
	}
	return req, nil
}

func summarizeRender(result *pipeline.Result, output string) renderSummary {
	summary := renderSummary{
		ID:            result.ID,
		Output:        output,
		VideoBytes:    len(result.Video),
		ElapsedMillis: result.Elapsed.Milliseconds(),
	}
	if tl := result.Timeline; tl != nil {
		summary.TotalDuration = tl.TotalDuration
		summary.Segments = len(tl.Segments)
		summary.Words = len(tl.Words)
		for _, overlay := range tl.Overlays {
			if overlay.Asset != nil {
				summary.Overlays = append(summary.Overlays, overlay.Asset.Filename)
			}
		}
	}
	return summary
}

func printRenderSummary(out io.Writer, summary renderSummary, tl *timeline.Timeline) {
	fmt.Fprintf(out, "Render %s\n", summary.ID)
	fmt.Fprintf(out, "Output:   %s (%s)\n", summary.Output, formatBytes(int64(summary.VideoBytes)))
	fmt.Fprintf(out, "Duration: %.2fs  words: %d  elapsed: %dms\n", summary.TotalDuration, summary.Words, summary.ElapsedMillis)
	if tl == nil || len(tl.Segments) == 0 {
		return
	}

	rows := make([][]string, 0, len(tl.Segments))
	for _, seg := range tl.Segments {
		rows = append(rows, []string{
			fmt.Sprintf("%d", seg.Task.Index),
			string(seg.Task.Character),
			fmt.Sprintf("%.2f", seg.Start),
			fmt.Sprintf("%.2f", seg.Duration),
			truncate(seg.Task.Text, 48),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Speaker", "Start", "Duration", "Text"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
	))

	if len(tl.Overlays) == 0 {
		return
	}
	overlayRows := make([][]string, 0, len(tl.Overlays))
	for _, overlay := range tl.Overlays {
		end := "end"
		if value, ok := overlay.End(); ok {
			end = fmt.Sprintf("%.2f", value)
		}
		name := ""
		if overlay.Asset != nil {
			name = overlay.Asset.Filename
		}
		overlayRows = append(overlayRows, []string{name, fmt.Sprintf("%.2f", overlay.Start), end})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Media", "Start", "End"},
		overlayRows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
