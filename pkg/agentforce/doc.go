// Package agentforce drives conversations against the Einstein AI Agent API.
//
// Invariants:
// - Turns for the same conversation key are serialized; keys never block each other.
// - A send re-authenticates at most once and re-creates the session at most once.
// - Sequence IDs advance only after a delivered message and reset with a new session.
// - Auth, session and message failures surface as typed errors with the platform's own text.
//
// Usage:
//
//	client, _ := agentforce.NewClient(provider)
//	reply, _ := client.SendMessage(ctx, "caller:42", "What is my order status?")
//	_ = reply.Text
package agentforce
