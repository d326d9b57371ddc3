// Package speech talks to an OpenAI-compatible speech provider: audio in,
// text out (transcription), text in, text out (chat completion), and text
// in, audio out (synthesis).
//
// The client reads its settings per call so configuration reloads take
// effect on the next request without a restart. Provider failures surface
// as *APIError carrying the upstream status and the provider's own message.
package speech
