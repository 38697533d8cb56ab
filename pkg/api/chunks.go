package api

// Chunk constructors used by the translation engine. Each returns a
// GenerateContentResponse holding exactly one candidate, ready for SSE
// serialization.

// NewTextChunk wraps a text delta in candidate framing.
func NewTextChunk(delta string) *GenerateContentResponse {
	return &GenerateContentResponse{
		Candidates: []Candidate{{
			Content: &Content{
				Role:  "model",
				Parts: []Part{{Text: delta}},
			},
		}},
	}
}

// NewFunctionCallChunk wraps a function call in candidate framing.
// Args may be nil for a name-only announcement chunk.
func NewFunctionCallChunk(name string, args map[string]any) *GenerateContentResponse {
	return &GenerateContentResponse{
		Candidates: []Candidate{{
			Content: &Content{
				Role:  "model",
				Parts: []Part{{FunctionCall: &FunctionCall{Name: name, Args: args}}},
			},
		}},
	}
}

// NewFinishChunk builds the terminal chunk carrying the finish reason and
// optional usage metadata.
func NewFinishChunk(reason FinishReason, usage *UsageMetadata) *GenerateContentResponse {
	return &GenerateContentResponse{
		Candidates:    []Candidate{{FinishReason: reason}},
		UsageMetadata: usage,
	}
}

// Text concatenates all text parts of the first candidate.
// Used by the non-streaming aggregation path and by tests.
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var out string
	for _, p := range r.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out
}

// FunctionCalls returns all functionCall parts of the first candidate.
func (r *GenerateContentResponse) FunctionCalls() []*FunctionCall {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return nil
	}
	var calls []*FunctionCall
	for _, p := range r.Candidates[0].Content.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, p.FunctionCall)
		}
	}
	return calls
}
