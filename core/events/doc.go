// Package events defines the normalized events decoded from live API server
// messages.
//
// A single server message may carry several of them. They are always
// emitted in this order:
//
//   - SetupComplete (setup_complete): the server accepted the session setup.
//   - Interrupted (interrupted): the assistant was cut off; drop queued audio.
//   - Transcript (transcript) with RoleUser: transcription of the student's
//     speech.
//   - Transcript and Audio (transcript, audio): model turn parts in the order
//     they appear in the message.
//   - Transcript (transcript) with RoleAssistant: transcription of the
//     assistant's audio.
//   - TurnComplete (turn_complete): the assistant finished generating.
//   - ToolCall (tool_call): one per function call, in message order.
package events
