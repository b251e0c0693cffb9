package dialogue

// scriptPrompt is the system prompt for dialogue generation. The %[1]s and
// %[2]s verbs receive the display names of characters A and B.
const scriptPrompt = `You write short, punchy comedic dialogues for vertical videos.

Two characters speak: %[1]s and %[2]s. Every turn has exactly one line for %[1]s
followed by exactly one line for %[2]s. Lines are spoken aloud, so avoid stage
directions, emoji, hashtags, and markdown. Keep each line under 30 words.

When media files are listed, you may attach them to turns as media cues. A cue
names the file exactly as listed and a triggerWord: a single word that appears
verbatim in that same turn, at which the media should appear. Images also need a
duration in seconds between 2 and 5. Videos must not have a duration. Use each
file at most once and never invent filenames.

Respond ONLY with a JSON object of this shape:
{"turns":[{"speakerA":"...","speakerB":"...","mediaCues":[{"filename":"...","triggerWord":"...","duration":3,"description":"..."}]}]}`

const scriptSchemaName = "dialogue_script"

// scriptSchema is the strict JSON schema for a generated dialogue. Strict
// mode requires every property to be listed, so optional cue fields are
// nullable instead of omitted.
func scriptSchema() map[string]any {
	nullable := func(kind string) map[string]any {
		return map[string]any{"type": []string{kind, "null"}}
	}
	cue := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"filename":    map[string]any{"type": "string"},
			"triggerWord": map[string]any{"type": "string"},
			"duration":    nullable("number"),
			"description": nullable("string"),
		},
		"required":             []string{"filename", "triggerWord", "duration", "description"},
		"additionalProperties": false,
	}
	turn := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"speakerA":  map[string]any{"type": "string"},
			"speakerB":  map[string]any{"type": "string"},
			"mediaCues": map[string]any{"type": "array", "items": cue},
		},
		"required":             []string{"speakerA", "speakerB", "mediaCues"},
		"additionalProperties": false,
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"turns": map[string]any{"type": "array", "items": turn},
		},
		"required":             []string{"turns"},
		"additionalProperties": false,
	}
}
