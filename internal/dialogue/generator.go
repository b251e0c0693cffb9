package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelforge/internal/config"
	"reelforge/internal/logging"
	"reelforge/internal/services"
	"reelforge/internal/services/llm"
)

// Completer sends a structured prompt and decodes the model's reply into out.
type Completer interface {
	Complete(ctx context.Context, prompt llm.Prompt, out any) error
}

// MediaOption describes an uploaded file the writer may reference.
type MediaOption struct {
	Filename    string `json:"filename"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}

// Brief is the input to dialogue generation.
type Brief struct {
	Topic string        `json:"topic"`
	Turns int           `json:"turns"`
	Media []MediaOption `json:"media,omitempty"`
}

// Generator writes dialogues with an LLM.
type Generator struct {
	client Completer
	nameA  string
	nameB  string
	logger *slog.Logger
}

// NewGenerator builds a generator for the two named characters.
func NewGenerator(client Completer, nameA, nameB string, logger *slog.Logger) *Generator {
	return &Generator{
		client: client,
		nameA:  nameA,
		nameB:  nameB,
		logger: logging.NewComponentLogger(logger, "dialogue"),
	}
}

// Generate asks the model for a dialogue about the brief's topic. Cues naming
// files outside the brief's media list are removed before validation.
func (g *Generator) Generate(ctx context.Context, brief Brief) ([]Turn, error) {
	topic := strings.TrimSpace(brief.Topic)
	if topic == "" {
		return nil, services.Wrap(services.ErrValidation, "dialogue", "generate", "topic is required", nil)
	}
	if g.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "dialogue", "generate", "llm client not configured", nil)
	}
	turns := brief.Turns
	if turns <= 0 {
		turns = 4
	}
	if turns > MaxTurns {
		turns = MaxTurns
	}

	var payload struct {
		Turns []Turn `json:"turns"`
	}
	err := g.client.Complete(ctx, llm.Prompt{
		System:     fmt.Sprintf(scriptPrompt, g.nameA, g.nameB),
		User:       buildUserPrompt(topic, turns, brief.Media),
		SchemaName: scriptSchemaName,
		Schema:     scriptSchema(),
	}, &payload)
	if err != nil {
		return nil, services.Wrap(services.ErrInternal, "dialogue", "generate", "llm request failed", err)
	}

	known := make(map[string]struct{}, len(brief.Media))
	for _, m := range brief.Media {
		known[m.Filename] = struct{}{}
	}
	for i := range payload.Turns {
		payload.Turns[i].SpeakerA = strings.TrimSpace(payload.Turns[i].SpeakerA)
		payload.Turns[i].SpeakerB = strings.TrimSpace(payload.Turns[i].SpeakerB)
		payload.Turns[i].MediaCues = g.keepKnownCues(payload.Turns[i].MediaCues, known)
	}
	if err := Validate(payload.Turns); err != nil {
		return nil, services.Wrap(services.ErrInternal, "dialogue", "generate", "model returned an unusable dialogue: "+err.Error(), nil)
	}

	g.logger.Info("dialogue generated",
		logging.Int("turns", len(payload.Turns)),
		logging.Int("media_options", len(brief.Media)),
	)
	return payload.Turns, nil
}

func (g *Generator) keepKnownCues(cues []MediaCue, known map[string]struct{}) []MediaCue {
	if len(cues) == 0 {
		return nil
	}
	kept := cues[:0]
	for _, cue := range cues {
		cue.Filename = strings.TrimSpace(cue.Filename)
		if _, ok := known[cue.Filename]; !ok {
			logging.WarnWithContext(g.logger, "model referenced unknown media; cue dropped", "dialogue_unknown_media",
				logging.String("filename", cue.Filename),
				logging.String(logging.FieldImpact, "media will not appear in the video"),
			)
			continue
		}
		kept = append(kept, cue)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func buildUserPrompt(topic string, turns int, media []MediaOption) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\nTurns: %d\n", topic, turns)
	if len(media) == 0 {
		b.WriteString("Media files: none\n")
		return b.String()
	}
	b.WriteString("Media files:\n")
	for _, m := range media {
		fmt.Fprintf(&b, "- %s (%s)", m.Filename, m.Kind)
		if desc := strings.TrimSpace(m.Description); desc != "" {
			fmt.Fprintf(&b, ": %s", desc)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// NewGeneratorFromConfig builds a generator backed by the configured LLM.
// The client is created even without an API key so callers get a clear
// error from the LLM endpoint rather than a nil generator.
func NewGeneratorFromConfig(cfg *config.Config, logger *slog.Logger) *Generator {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, llm.WithTemperature(0.9))
	return NewGenerator(client, cfg.CharacterName("A"), cfg.CharacterName("B"), logger)
}
