// Package api defines the Gemini-facing wire types served by the gemgate
// gateway: generateContent requests, streamed GenerateContentResponse
// chunks with candidate framing, and the Google-style error envelope.
//
// Types in this package mirror the generativelanguage v1beta JSON shapes
// exactly. They carry no behavior beyond construction helpers and
// serialization; translation logic lives in pkg/engine.
package api
