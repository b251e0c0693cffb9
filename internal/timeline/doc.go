// Package timeline turns ordered dialogue turns into a time-stamped
// composition: audio segments, per-word subtitles, character visibility, and
// media overlays.
//
// Assemble runs in three phases. Speech tasks are synthesized in fixed-size
// concurrent batches with a cooldown between batches; results land in a
// slice indexed by task so completion order never leaks into the timeline.
// A left fold over the clips in task order then assigns start times, each
// segment starting Gap seconds after the previous one ends. Finally every
// segment is aligned (degrading to estimated timings when needed) and media
// cues are resolved against their turn's words.
//
// Blank lines are skipped: they produce no backend call, no segment, and no
// visibility interval.
package timeline
