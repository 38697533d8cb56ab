// Package engine implements the streaming protocol translation core: it
// consumes native OpenAI Responses events and re-emits semantically
// equivalent Gemini GenerateContentResponse chunks, in real time, with
// exactly-once emission of each logical unit.
//
// The pipeline is pull-based end to end. The Reducer is a synchronous
// state machine keyed by source item ID; the Stream driver composes
// parser, guards, and reducer into a single lazy sequence, so stopping
// consumption stops pulling from the transport. One Reducer instance
// serves exactly one stream; instances share no state.
package engine
