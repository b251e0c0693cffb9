package render

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"reelforge/internal/dialogue"
	"reelforge/internal/media/assets"
	"reelforge/internal/media/audio"
	"reelforge/internal/subtitles"
	"reelforge/internal/timeline"
)

// Settings are the encode and layout parameters.
type Settings struct {
	Width           int
	Height          int
	FrameRate       int
	Preset          string
	CRF             int
	CharacterHeight int
	MediaWidth      int
	FontName        string
	FontSize        int
}

// DefaultSettings renders 1080x1920 at 30fps.
func DefaultSettings() Settings {
	return Settings{
		Width:           1080,
		Height:          1920,
		FrameRate:       30,
		Preset:          "slow",
		CRF:             18,
		CharacterHeight: 700,
		MediaWidth:      600,
		FontName:        "Arial Black",
		FontSize:        140,
	}
}

// OverlayInput is a media overlay written to disk. Duration is nil for
// videos.
type OverlayInput struct {
	Path        string
	Kind        assets.Kind
	Start       float64
	Duration    *float64
	Description string
}

// Plan is everything the renderer needs, as files and time windows.
type Plan struct {
	WorkDir        string
	BackgroundPath string
	CharacterAPath string
	CharacterBPath string
	AudioPath      string
	SubtitlePath   string
	VisibilityA    []timeline.Visibility
	VisibilityB    []timeline.Visibility
	Overlays       []OverlayInput
	TotalDuration  float64
	OutputPath     string
	Settings       Settings
}

// EnableExpression builds an ffmpeg enable expression that is true while
// any interval is active. No intervals yields '0'.
func EnableExpression(intervals []timeline.Visibility) string {
	if len(intervals) == 0 {
		return "0"
	}
	terms := make([]string, len(intervals))
	for i, v := range intervals {
		terms[i] = fmt.Sprintf("between(t,%s,%s)", seconds(v.Start), seconds(v.End))
	}
	return strings.Join(terms, "+")
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Concatenator joins dialogue clips into one track inside dir, separated by
// Gap seconds of silence.
type Concatenator interface {
	Concatenate(ctx context.Context, dir string, clips []audio.Clip) (string, error)
	Gap() float64
}

// ArtPaths locates the fixed artwork.
type ArtPaths struct {
	Background string
	CharacterA string
	CharacterB string
}

// Planner writes plan inputs into a workspace.
type Planner struct {
	concat   Concatenator
	art      ArtPaths
	settings Settings
}

// NewPlanner returns a planner using concat for the soundtrack.
func NewPlanner(concat Concatenator, art ArtPaths, settings Settings) *Planner {
	return &Planner{concat: concat, art: art, settings: settings}
}

// Gap reports the silence the soundtrack puts between clips.
func (p *Planner) Gap() float64 {
	return p.concat.Gap()
}

// Plan writes the soundtrack, subtitles and overlays for tl into ws. A
// timeline placed with a different gap than the concatenator inserts is
// rejected, since every cue after the first line would drift.
func (p *Planner) Plan(ctx context.Context, tl *timeline.Timeline, ws *Workspace) (*Plan, error) {
	if math.Abs(tl.Gap-p.concat.Gap()) > 1e-9 {
		return nil, fmt.Errorf("plan: timeline gap %.3fs does not match soundtrack gap %.3fs", tl.Gap, p.concat.Gap())
	}
	clips := make([]audio.Clip, len(tl.Segments))
	for i, seg := range tl.Segments {
		clips[i] = audio.Clip{Audio: seg.Audio, Duration: seg.Duration}
	}
	audioPath, err := p.concat.Concatenate(ctx, ws.Dir(), clips)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	script := subtitles.SerializeASS(tl.Words, subtitles.Options{
		Width:    p.settings.Width,
		Height:   p.settings.Height,
		FontName: p.settings.FontName,
		FontSize: p.settings.FontSize,
		MarginV:  subtitles.DefaultOptions().MarginV,
	})
	subtitlePath, err := ws.WriteFile("subtitles.ass", []byte(script))
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	overlays := make([]OverlayInput, 0, len(tl.Overlays))
	for i, ov := range tl.Overlays {
		path, err := ws.WriteFile(fmt.Sprintf("overlay_%02d%s", i, ov.Asset.Extension()), ov.Asset.Data)
		if err != nil {
			return nil, fmt.Errorf("plan: %w", err)
		}
		overlays = append(overlays, OverlayInput{
			Path:        path,
			Kind:        ov.Asset.Kind,
			Start:       ov.Start,
			Duration:    ov.Duration,
			Description: ov.Description,
		})
	}

	return &Plan{
		WorkDir:        ws.Dir(),
		BackgroundPath: p.art.Background,
		CharacterAPath: p.art.CharacterA,
		CharacterBPath: p.art.CharacterB,
		AudioPath:      audioPath,
		SubtitlePath:   subtitlePath,
		VisibilityA:    tl.VisibilityFor(dialogue.CharacterA),
		VisibilityB:    tl.VisibilityFor(dialogue.CharacterB),
		Overlays:       overlays,
		TotalDuration:  tl.TotalDuration,
		OutputPath:     ws.Path("output.mp4"),
		Settings:       p.settings,
	}, nil
}
