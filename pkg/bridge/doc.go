// Package bridge composes the agent and speech clients into voice turns.
//
// A full turn is audio in, audio out: decode the browser clip, transcribe
// it, hand the text to the agent, synthesize the reply. Each stage degrades
// independently: an unconfigured agent platform falls back to the speech
// provider's chat model, and a failed synthesis degrades the turn to a
// text-only reply rather than failing it.
package bridge
