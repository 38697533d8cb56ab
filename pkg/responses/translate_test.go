package responses

import (
	"encoding/json"
	"testing"

	"github.com/mkappe/gemgate/pkg/api"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestTranslateSimpleConversation(t *testing.T) {
	req := &api.GenerateContentRequest{
		SystemInstruction: &api.Content{Parts: []api.Part{{Text: "Be terse."}}},
		Contents: []api.Content{
			{Role: "user", Parts: []api.Part{{Text: "Hi"}}},
			{Role: "model", Parts: []api.Part{{Text: "Hello"}}},
			{Role: "user", Parts: []api.Part{{Text: "Weather?"}}},
		},
		GenerationConfig: &api.GenerationConfig{
			Temperature:     floatPtr(0.2),
			TopP:            floatPtr(0.9),
			MaxOutputTokens: intPtr(256),
			StopSequences:   []string{"END"},
		},
	}

	rr, err := TranslateRequest(req, "gpt-test", api.NewDeterministicIDGenerator())
	if err != nil {
		t.Fatalf("TranslateRequest: %v", err)
	}

	if rr.Model != "gpt-test" {
		t.Errorf("Model = %q", rr.Model)
	}
	if rr.Store {
		t.Error("Store must be false")
	}
	if rr.Instructions != "Be terse." {
		t.Errorf("Instructions = %q", rr.Instructions)
	}
	if len(rr.Input) != 3 {
		t.Fatalf("len(Input) = %d, want 3", len(rr.Input))
	}
	if rr.Input[0].Role != "user" || rr.Input[0].Content[0].Type != "input_text" {
		t.Errorf("input[0] = %+v, want user input_text", rr.Input[0])
	}
	if rr.Input[1].Role != "assistant" || rr.Input[1].Content[0].Type != "output_text" {
		t.Errorf("input[1] = %+v, want assistant output_text", rr.Input[1])
	}
	if rr.Temperature == nil || *rr.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", rr.Temperature)
	}
	if rr.MaxOutputTokens == nil || *rr.MaxOutputTokens != 256 {
		t.Errorf("MaxOutputTokens = %v, want 256", rr.MaxOutputTokens)
	}
	if len(rr.Stop) != 1 || rr.Stop[0] != "END" {
		t.Errorf("Stop = %v, want [END]", rr.Stop)
	}
}

func TestTranslateFunctionCallCorrelation(t *testing.T) {
	req := &api.GenerateContentRequest{
		Contents: []api.Content{
			{Role: "user", Parts: []api.Part{{Text: "Weather in Oslo and Paris?"}}},
			{Role: "model", Parts: []api.Part{
				{FunctionCall: &api.FunctionCall{Name: "get_weather", Args: map[string]any{"city": "Oslo"}}},
				{FunctionCall: &api.FunctionCall{Name: "get_weather", Args: map[string]any{"city": "Paris"}}},
			}},
			{Role: "function", Parts: []api.Part{
				{FunctionResponse: &api.FunctionResponse{Name: "get_weather", Response: map[string]any{"temp": 5}}},
				{FunctionResponse: &api.FunctionResponse{Name: "get_weather", Response: map[string]any{"temp": 12}}},
			}},
		},
	}

	rr, err := TranslateRequest(req, "m", api.NewDeterministicIDGenerator())
	if err != nil {
		t.Fatalf("TranslateRequest: %v", err)
	}

	var calls, outputs []InputItem
	for _, item := range rr.Input {
		switch item.Type {
		case "function_call":
			calls = append(calls, item)
		case "function_call_output":
			outputs = append(outputs, item)
		}
	}
	if len(calls) != 2 || len(outputs) != 2 {
		t.Fatalf("calls/outputs = %d/%d, want 2/2", len(calls), len(outputs))
	}

	// Repeated calls to the same function pair up in order of appearance.
	if outputs[0].CallID != calls[0].CallID {
		t.Errorf("first output call_id = %q, want %q", outputs[0].CallID, calls[0].CallID)
	}
	if outputs[1].CallID != calls[1].CallID {
		t.Errorf("second output call_id = %q, want %q", outputs[1].CallID, calls[1].CallID)
	}
	if calls[0].CallID == calls[1].CallID {
		t.Error("distinct calls must get distinct call IDs")
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(calls[0].Arguments), &args); err != nil {
		t.Fatalf("arguments not valid JSON: %v", err)
	}
	if args["city"] != "Oslo" {
		t.Errorf("first call args = %v, want city Oslo", args)
	}
}

func TestTranslateOrphanFunctionResponse(t *testing.T) {
	req := &api.GenerateContentRequest{
		Contents: []api.Content{
			{Role: "function", Parts: []api.Part{
				{FunctionResponse: &api.FunctionResponse{Name: "lookup", Response: map[string]any{"ok": true}}},
			}},
		},
	}

	rr, err := TranslateRequest(req, "m", api.NewDeterministicIDGenerator())
	if err != nil {
		t.Fatalf("TranslateRequest: %v", err)
	}
	if len(rr.Input) != 1 || rr.Input[0].CallID == "" {
		t.Errorf("orphan response must still carry a call_id: %+v", rr.Input)
	}
}

func TestTranslateToolsAndToolChoice(t *testing.T) {
	params := json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`)
	req := &api.GenerateContentRequest{
		Contents: []api.Content{{Role: "user", Parts: []api.Part{{Text: "go"}}}},
		Tools: []api.Tool{{FunctionDeclarations: []api.FunctionDeclaration{
			{Name: "get_weather", Description: "Weather lookup", Parameters: params},
			{Name: "get_time"},
		}}},
		ToolConfig: &api.ToolConfig{FunctionCallingConfig: &api.FunctionCallingConfig{Mode: "ANY"}},
	}

	rr, err := TranslateRequest(req, "m", api.NewDeterministicIDGenerator())
	if err != nil {
		t.Fatalf("TranslateRequest: %v", err)
	}
	if len(rr.Tools) != 2 {
		t.Fatalf("len(Tools) = %d, want 2", len(rr.Tools))
	}
	if rr.Tools[0].Type != "function" || rr.Tools[0].Name != "get_weather" {
		t.Errorf("tool[0] = %+v", rr.Tools[0])
	}
	if rr.ToolChoice != "required" {
		t.Errorf("ToolChoice = %q, want required", rr.ToolChoice)
	}
}

func TestTranslateToolChoiceModes(t *testing.T) {
	tests := []struct {
		mode string
		want any
	}{
		{"NONE", "none"},
		{"AUTO", nil},
		{"", nil},
	}
	for _, tt := range tests {
		req := &api.GenerateContentRequest{
			Contents:   []api.Content{{Role: "user", Parts: []api.Part{{Text: "go"}}}},
			ToolConfig: &api.ToolConfig{FunctionCallingConfig: &api.FunctionCallingConfig{Mode: tt.mode}},
		}
		rr, err := TranslateRequest(req, "m", api.NewDeterministicIDGenerator())
		if err != nil {
			t.Fatalf("mode %q: %v", tt.mode, err)
		}
		if rr.ToolChoice != tt.want {
			t.Errorf("mode %q: ToolChoice = %q, want %q", tt.mode, rr.ToolChoice, tt.want)
		}
	}
}

func TestTranslateInlineDataPassthrough(t *testing.T) {
	inline := json.RawMessage(`{"mimeType":"image/png","data":"aGVsbG8="}`)
	req := &api.GenerateContentRequest{
		Contents: []api.Content{
			{Role: "user", Parts: []api.Part{
				{Text: "What is this?"},
				{InlineData: inline},
			}},
		},
	}

	rr, err := TranslateRequest(req, "m", api.NewDeterministicIDGenerator())
	if err != nil {
		t.Fatalf("TranslateRequest: %v", err)
	}
	if len(rr.Input) != 1 {
		t.Fatalf("len(Input) = %d, want 1", len(rr.Input))
	}
	parts := rr.Input[0].Content
	if len(parts) != 2 {
		t.Fatalf("len(parts) = %d, want 2", len(parts))
	}
	if parts[1].Type != "input_image" || string(parts[1].Image) != string(inline) {
		t.Errorf("image part = %+v, want opaque passthrough", parts[1])
	}
}

func TestTranslateTextFlushAroundCalls(t *testing.T) {
	req := &api.GenerateContentRequest{
		Contents: []api.Content{
			{Role: "model", Parts: []api.Part{
				{Text: "Let me check."},
				{FunctionCall: &api.FunctionCall{Name: "f", Args: map[string]any{}}},
				{Text: "Done."},
			}},
		},
	}

	rr, err := TranslateRequest(req, "m", api.NewDeterministicIDGenerator())
	if err != nil {
		t.Fatalf("TranslateRequest: %v", err)
	}
	if len(rr.Input) != 3 {
		t.Fatalf("len(Input) = %d, want 3 (message, call, message)", len(rr.Input))
	}
	if rr.Input[0].Type != "message" || rr.Input[1].Type != "function_call" || rr.Input[2].Type != "message" {
		t.Errorf("item order = [%s %s %s]", rr.Input[0].Type, rr.Input[1].Type, rr.Input[2].Type)
	}
}
