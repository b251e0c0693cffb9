package logging

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value slog.Value
		want  string
	}{
		{"whole seconds", slog.Float64Value(3), "3"},
		{"fractional seconds", slog.Float64Value(1.25), "1.25"},
		{"rounded seconds", slog.Float64Value(2.00049), "2"},
		{"negative zero", slog.Float64Value(-0.0001), "0"},
		{"long duration", slog.DurationValue(2*time.Second + 345678*time.Microsecond), "2.346s"},
		{"short duration", slog.DurationValue(1500 * time.Microsecond), "1.5ms"},
		{"plain string", slog.StringValue("stewie"), "stewie"},
		{"spaced string", slog.StringValue("two words"), `"two words"`},
		{"empty string", slog.StringValue(""), `""`},
		{"error", slog.AnyValue(errors.New("tts down")), `"tts down"`},
		{"filenames", slog.AnyValue([]string{"cat.png", "run.mp4"}), "cat.png,run.mp4"},
		{"int", slog.IntValue(4), "4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValue(tt.value); got != tt.want {
				t.Fatalf("formatValue = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAttrStringLeavesStringsUnquoted(t *testing.T) {
	if got := attrString(slog.StringValue("speech worker")); got != "speech worker" {
		t.Fatalf("attrString = %q", got)
	}
	if got := attrString(slog.Float64Value(0.5)); got != "0.5" {
		t.Fatalf("attrString = %q", got)
	}
}
