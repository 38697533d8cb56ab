// Command mock-backend runs a deterministic Responses API server for
// development and conformance testing of the gateway. It returns
// predictable responses based on request content analysis, so the same
// prompt always yields the same stream.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mkappe/gemgate/pkg/responses"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/responses", handleResponses)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func handleResponses(w http.ResponseWriter, r *http.Request) {
	var req responses.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "invalid_request", "message": "invalid request body"},
		})
		return
	}

	script := classify(&req)

	if req.Stream {
		streamScript(w, script)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(script.response(req.Model))
}

// script describes the deterministic output for one request class.
type script struct {
	tokens []string // text deltas, emitted one SSE event each
	call   *responses.Item
	usage  responses.Usage
}

func classify(req *responses.Request) script {
	if len(req.Tools) > 0 {
		return script{
			call: &responses.Item{
				ID:        "item_fc_1",
				Type:      "function_call",
				CallID:    "call_mock_1",
				Name:      "get_weather",
				Arguments: `{"location":"San Francisco","unit":"celsius"}`,
			},
			usage: responses.Usage{InputTokens: 20, OutputTokens: 15, TotalTokens: 35},
		}
	}

	if hasImageInput(req) {
		return textScript("I can see the image you shared. It appears to be a small red icon or symbol.")
	}

	if req.Instructions != "" {
		return textScript("Ahoy there, matey! Welcome aboard!")
	}

	if strings.Contains(strings.ToLower(lastUserText(req)), "count from 1 to 5") {
		return script{
			tokens: []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"},
			usage:  responses.Usage{InputTokens: 10, OutputTokens: 9, TotalTokens: 19},
		}
	}

	return textScript("Hello, nice day!")
}

func textScript(text string) script {
	// Split into word-ish tokens to exercise delta accumulation.
	var tokens []string
	for _, word := range strings.SplitAfter(text, " ") {
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return script{
		tokens: tokens,
		usage:  responses.Usage{InputTokens: 10, OutputTokens: len(tokens), TotalTokens: 10 + len(tokens)},
	}
}

// response builds the one-shot JSON body for a non-streaming request.
func (s script) response(model string) responses.Response {
	if model == "" {
		model = "mock-model"
	}
	usage := s.usage
	resp := responses.Response{
		ID:        "resp_mock",
		Object:    "response",
		CreatedAt: time.Now().Unix(),
		Status:    "completed",
		Model:     model,
		Usage:     &usage,
	}
	if s.call != nil {
		resp.Output = append(resp.Output, *s.call)
		return resp
	}
	resp.Output = append(resp.Output, responses.Item{
		ID:   "item_msg_1",
		Type: "message",
		Role: "assistant",
		Content: []responses.ContentPart{
			{Type: "output_text", Text: strings.Join(s.tokens, "")},
		},
	})
	return resp
}

func streamScript(w http.ResponseWriter, s script) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	emit := func(v any) {
		data, _ := json.Marshal(v)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	if s.call != nil {
		// Announce the call, then fragment the arguments across several
		// deltas so clients see incremental assembly.
		emit(map[string]any{
			"type": "response.output_item.added",
			"item": map[string]any{
				"id":      s.call.ID,
				"type":    "function_call",
				"call_id": s.call.CallID,
				"name":    s.call.Name,
			},
		})
		for _, frag := range fragment(s.call.Arguments, 12) {
			emit(map[string]any{
				"type":    "response.function_call_arguments.delta",
				"item_id": s.call.ID,
				"delta":   frag,
			})
		}
		emit(map[string]any{
			"type":    "response.output_item.done",
			"item_id": s.call.ID,
			"item": map[string]any{
				"id":        s.call.ID,
				"type":      "function_call",
				"call_id":   s.call.CallID,
				"name":      s.call.Name,
				"arguments": s.call.Arguments,
			},
		})
	} else {
		emit(map[string]any{
			"type": "response.output_item.added",
			"item": map[string]any{"id": "item_msg_1", "type": "message", "role": "assistant"},
		})
		for _, token := range s.tokens {
			emit(map[string]any{
				"type":    "response.output_text.delta",
				"item_id": "item_msg_1",
				"delta":   token,
			})
		}
	}

	emit(map[string]any{
		"type": "response.completed",
		"response": map[string]any{
			"id":     "resp_mock",
			"status": "completed",
			"usage": map[string]any{
				"input_tokens":  s.usage.InputTokens,
				"output_tokens": s.usage.OutputTokens,
				"total_tokens":  s.usage.TotalTokens,
			},
		},
	})

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// fragment splits s into chunks of at most n bytes.
func fragment(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	return append(parts, s)
}

func lastUserText(req *responses.Request) string {
	for i := len(req.Input) - 1; i >= 0; i-- {
		item := req.Input[i]
		if item.Type != "message" || item.Role != "user" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "input_text" {
				return part.Text
			}
		}
	}
	return ""
}

func hasImageInput(req *responses.Request) bool {
	for _, item := range req.Input {
		for _, part := range item.Content {
			if part.Type == "input_image" {
				return true
			}
		}
	}
	return false
}
