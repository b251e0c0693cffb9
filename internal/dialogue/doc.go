// Package dialogue models the two-character script a render starts from.
//
// A Turn carries one line for character A and one for character B plus any
// media cues. Flatten turns a script into speech tasks in render order, and
// Validate rejects scripts the pipeline cannot render. Generator asks an LLM
// for a fresh script about a topic, optionally referencing uploaded media.
package dialogue
