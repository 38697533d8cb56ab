package api

import "fmt"

// ValidateRequest checks the structural validity of an incoming
// generateContent request before it reaches the engine. It rejects
// requests the backend could never serve; semantic validation of model
// output is deliberately not performed anywhere in the gateway.
func ValidateRequest(req *GenerateContentRequest) *Error {
	if req == nil {
		return NewInvalidArgument("request body is required")
	}

	if len(req.Contents) == 0 {
		return NewInvalidArgument("contents must not be empty")
	}

	for i, c := range req.Contents {
		if len(c.Parts) == 0 {
			return NewInvalidArgument(fmt.Sprintf("contents[%d].parts must not be empty", i))
		}
		switch c.Role {
		case "", "user", "model", "function":
		default:
			return NewInvalidArgument(fmt.Sprintf("contents[%d].role %q is not supported", i, c.Role))
		}
		for j, p := range c.Parts {
			if err := validatePart(i, j, p); err != nil {
				return err
			}
		}
	}

	for i, tool := range req.Tools {
		for j, fd := range tool.FunctionDeclarations {
			if fd.Name == "" {
				return NewInvalidArgument(fmt.Sprintf("tools[%d].functionDeclarations[%d].name is required", i, j))
			}
		}
	}

	if gc := req.GenerationConfig; gc != nil {
		if gc.MaxOutputTokens != nil && *gc.MaxOutputTokens <= 0 {
			return NewInvalidArgument("generationConfig.maxOutputTokens must be positive")
		}
		if gc.CandidateCount != nil && *gc.CandidateCount != 1 {
			return NewInvalidArgument("generationConfig.candidateCount other than 1 is not supported")
		}
	}

	return nil
}

// validatePart enforces the one-field-set rule for parts. InlineData is
// accepted without inspection; it is relayed opaquely.
func validatePart(ci, pi int, p Part) *Error {
	set := 0
	if p.Text != "" {
		set++
	}
	if p.FunctionCall != nil {
		set++
	}
	if p.FunctionResponse != nil {
		set++
	}
	if len(p.InlineData) > 0 {
		set++
	}
	if set > 1 {
		return NewInvalidArgument(fmt.Sprintf("contents[%d].parts[%d] must set exactly one field", ci, pi))
	}
	if p.FunctionResponse != nil && p.FunctionResponse.Name == "" {
		return NewInvalidArgument(fmt.Sprintf("contents[%d].parts[%d].functionResponse.name is required", ci, pi))
	}
	if p.FunctionCall != nil && p.FunctionCall.Name == "" {
		return NewInvalidArgument(fmt.Sprintf("contents[%d].parts[%d].functionCall.name is required", ci, pi))
	}
	return nil
}
