package dialogue_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"reelforge/internal/dialogue"
	"reelforge/internal/logging"
	"reelforge/internal/services"
	"reelforge/internal/services/llm"
)

type fakeCompleter struct {
	content string
	err     error
	prompt  llm.Prompt
}

func (f *fakeCompleter) Complete(_ context.Context, prompt llm.Prompt, out any) error {
	f.prompt = prompt
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.content), out)
}

func TestGeneratorParsesTurnsAndDropsUnknownMedia(t *testing.T) {
	completer := &fakeCompleter{content: `{"turns":[
		{"speakerA":" Why is the sky blue? ","speakerB":"Rayleigh scattering, obviously.",
		 "mediaCues":[{"filename":"sky.png","triggerWord":"sky","duration":3},{"filename":"ghost.png","triggerWord":"why"}]},
		{"speakerA":"Show me.","speakerB":"Fine.","mediaCues":[]}
	]}`}
	gen := dialogue.NewGenerator(completer, "Stewie", "Peter", logging.NewNop())

	turns, err := gen.Generate(context.Background(), dialogue.Brief{
		Topic: "the sky",
		Turns: 2,
		Media: []dialogue.MediaOption{{Filename: "sky.png", Kind: "image", Description: "a blue sky"}},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].SpeakerA != "Why is the sky blue?" {
		t.Fatalf("expected trimmed line, got %q", turns[0].SpeakerA)
	}
	if len(turns[0].MediaCues) != 1 || turns[0].MediaCues[0].Filename != "sky.png" {
		t.Fatalf("unexpected cues: %+v", turns[0].MediaCues)
	}
	if turns[0].MediaCues[0].Duration == nil || *turns[0].MediaCues[0].Duration != 3 {
		t.Fatalf("expected duration 3, got %+v", turns[0].MediaCues[0].Duration)
	}
	if !strings.Contains(completer.prompt.System, "Stewie") || !strings.Contains(completer.prompt.System, "Peter") {
		t.Fatalf("system prompt missing names: %q", completer.prompt.System)
	}
	if !strings.Contains(completer.prompt.User, "sky.png (image): a blue sky") {
		t.Fatalf("user prompt missing media listing: %q", completer.prompt.User)
	}
}

func TestGeneratorSendsScriptSchema(t *testing.T) {
	completer := &fakeCompleter{content: `{"turns":[{"speakerA":"Hi","speakerB":"Hello","mediaCues":[]}]}`}
	gen := dialogue.NewGenerator(completer, "A", "B", nil)
	if _, err := gen.Generate(context.Background(), dialogue.Brief{Topic: "cats"}); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if completer.prompt.SchemaName != "dialogue_script" {
		t.Fatalf("unexpected schema name %q", completer.prompt.SchemaName)
	}
	encoded, err := json.Marshal(completer.prompt.Schema)
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	for _, field := range []string{`"turns"`, `"speakerA"`, `"speakerB"`, `"mediaCues"`, `"triggerWord"`, `"additionalProperties":false`} {
		if !strings.Contains(string(encoded), field) {
			t.Fatalf("schema missing %s: %s", field, encoded)
		}
	}
}

func TestGeneratorAcceptsNullCueFields(t *testing.T) {
	completer := &fakeCompleter{content: `{"turns":[{"speakerA":"Look at this clip","speakerB":"Wow",
		"mediaCues":[{"filename":"run.mp4","triggerWord":"clip","duration":null,"description":null}]}]}`}
	gen := dialogue.NewGenerator(completer, "A", "B", nil)
	turns, err := gen.Generate(context.Background(), dialogue.Brief{
		Topic: "running",
		Media: []dialogue.MediaOption{{Filename: "run.mp4", Kind: "video"}},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	cue := turns[0].MediaCues[0]
	if cue.Duration != nil || cue.TriggerWord != "clip" {
		t.Fatalf("unexpected cue %+v", cue)
	}
}

func TestGeneratorRequiresTopic(t *testing.T) {
	gen := dialogue.NewGenerator(&fakeCompleter{}, "A", "B", nil)
	_, err := gen.Generate(context.Background(), dialogue.Brief{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGeneratorSurfacesClientErrors(t *testing.T) {
	boom := errors.New("upstream down")
	gen := dialogue.NewGenerator(&fakeCompleter{err: boom}, "A", "B", nil)
	_, err := gen.Generate(context.Background(), dialogue.Brief{Topic: "cats"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}

func TestGeneratorRejectsEmptyDialogue(t *testing.T) {
	gen := dialogue.NewGenerator(&fakeCompleter{content: `{"turns":[]}`}, "A", "B", nil)
	_, err := gen.Generate(context.Background(), dialogue.Brief{Topic: "cats"})
	if err == nil {
		t.Fatal("expected error for empty dialogue")
	}
	if services.ErrorClass(err) != services.ClassInternal {
		t.Fatalf("expected internal class, got %s", services.ErrorClass(err))
	}
}
