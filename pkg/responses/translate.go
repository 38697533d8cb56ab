package responses

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mkappe/gemgate/pkg/api"
)

// TranslateRequest converts a Gemini generateContent request into the
// Responses API wire format. Always sets store=false since the gateway is
// stateless toward the backend.
//
// Function call correlation: Gemini parts carry no call IDs, so each
// model-role functionCall part is assigned one from gen, and later
// functionResponse parts resolve their call_id by function name. Repeated
// calls to the same function resolve in order of appearance.
func TranslateRequest(req *api.GenerateContentRequest, model string, gen *api.IDGenerator) (*Request, error) {
	rr := &Request{
		Model: model,
		Store: false,
	}

	if req.SystemInstruction != nil {
		rr.Instructions = concatText(req.SystemInstruction.Parts)
	}

	// call IDs assigned to functionCall parts, keyed by function name,
	// consumed FIFO by matching functionResponse parts.
	pendingCalls := make(map[string][]string)

	for i, content := range req.Contents {
		items, err := translateContent(content, gen, pendingCalls)
		if err != nil {
			return nil, fmt.Errorf("contents[%d]: %w", i, err)
		}
		rr.Input = append(rr.Input, items...)
	}

	for _, tool := range req.Tools {
		for _, fd := range tool.FunctionDeclarations {
			rr.Tools = append(rr.Tools, Tool{
				Type:        "function",
				Name:        fd.Name,
				Description: fd.Description,
				Parameters:  fd.Parameters,
			})
		}
	}

	if tc := req.ToolConfig; tc != nil && tc.FunctionCallingConfig != nil {
		switch tc.FunctionCallingConfig.Mode {
		case "ANY":
			rr.ToolChoice = "required"
		case "NONE":
			rr.ToolChoice = "none"
		case "", "AUTO":
			// Backend default.
		}
	}

	if gc := req.GenerationConfig; gc != nil {
		rr.Temperature = gc.Temperature
		rr.TopP = gc.TopP
		rr.MaxOutputTokens = gc.MaxOutputTokens
		rr.Stop = gc.StopSequences
	}

	return rr, nil
}

// translateContent maps one Gemini content turn to Responses input items.
// Text parts of a turn collapse into a single message item; functionCall
// and functionResponse parts become standalone items in part order.
func translateContent(content api.Content, gen *api.IDGenerator, pendingCalls map[string][]string) ([]InputItem, error) {
	role := "user"
	contentType := "input_text"
	if content.Role == "model" {
		role = "assistant"
		contentType = "output_text"
	}

	var items []InputItem
	var textParts []ContentPart

	flushText := func() {
		if len(textParts) == 0 {
			return
		}
		items = append(items, InputItem{
			Type:    "message",
			Role:    role,
			Content: textParts,
		})
		textParts = nil
	}

	for _, part := range content.Parts {
		switch {
		case part.FunctionCall != nil:
			flushText()
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("marshal functionCall args: %w", err)
			}
			callID := gen.CallID()
			pendingCalls[part.FunctionCall.Name] = append(pendingCalls[part.FunctionCall.Name], callID)
			items = append(items, InputItem{
				Type:      "function_call",
				CallID:    callID,
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})

		case part.FunctionResponse != nil:
			flushText()
			output, err := json.Marshal(part.FunctionResponse.Response)
			if err != nil {
				return nil, fmt.Errorf("marshal functionResponse: %w", err)
			}
			items = append(items, InputItem{
				Type:   "function_call_output",
				CallID: takeCallID(pendingCalls, part.FunctionResponse.Name, gen),
				Output: string(output),
			})

		case len(part.InlineData) > 0:
			// Opaque passthrough: the inline payload is forwarded as an
			// image content part without inspection.
			textParts = append(textParts, ContentPart{
				Type:  "input_image",
				Image: part.InlineData,
			})

		default:
			textParts = append(textParts, ContentPart{Type: contentType, Text: part.Text})
		}
	}
	flushText()

	return items, nil
}

// takeCallID pops the oldest pending call ID recorded for the function
// name. A response with no matching call gets a fresh ID so the backend
// still sees a well-formed pair.
func takeCallID(pendingCalls map[string][]string, name string, gen *api.IDGenerator) string {
	ids := pendingCalls[name]
	if len(ids) == 0 {
		return gen.CallID()
	}
	id := ids[0]
	pendingCalls[name] = ids[1:]
	return id
}

// concatText joins the text parts of a content block, newline separated.
func concatText(parts []api.Part) string {
	var texts []string
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
