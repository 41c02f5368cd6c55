// Command openai-stub is a minimal OpenAI-compatible server for local runs
// and container smoke tests. It answers every chat completion with a fixed
// scam assessment whose wrapping is chosen by STUB_MODE.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

const assessment = `{"score": 85, "motivation": "Stub assessment: urgency language and a payment form on an unfamiliar domain."}`

// replyFor wraps the assessment the way different models tend to answer.
func replyFor(mode string) string {
	switch mode {
	case "fenced":
		return "Here is the analysis:\n```json\n" + assessment + "\n```"
	case "prose":
		return "After reviewing the page I would rate it as follows. " + assessment + " Let me know if you need more."
	case "garbage":
		return "I cannot help with that."
	default:
		return assessment
	}
}

func newMux(model, mode string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		log.Debug().Str("model", req.Model).Int("messages", len(req.Messages)).Msg("chat completion")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": replyFor(mode)}},
			},
		})
	})
	return mux
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("STUB_MODE")))

	log.Info().Str("addr", addr).Str("model", model).Str("mode", mode).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, newMux(model, mode)); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
