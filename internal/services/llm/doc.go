// Package llm provides an OpenRouter chat client that decodes JSON replies.
//
// The dialogue generator uses it to turn a topic and a list of available
// media into scripted turns. The package knows nothing about dialogue; the
// caller supplies a Prompt carrying the JSON schema of the reply it expects
// and a value to decode into.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send a Prompt, decode the reply into a caller value.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// Complete runs the same RetryState loop as the speech client and draws its
// delays from services.Backoff (base 1s, max 10s, up to 5 attempts by
// default). HTTP 408/429/5xx, network timeouts and replies that are empty or
// fail to decode are retried. Retry-After headers are honoured up to the cap.
// Refusals and other 4xx answers fail immediately, as does context
// cancellation.
package llm
