package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func newSkillAgent(t *testing.T, received *[]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/agent.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "weather",
			"skills": [
				{"id": "forecast", "name": "Forecast", "description": "Weather forecast"},
				{"name": "alerts", "description": "Severe weather alerts"}
			]
		}`))
	})
	mux.HandleFunc("/tasks/send", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ID     string `json:"id"`
			Params struct {
				Message struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"message"`
			} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Params.Message.Parts) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		*received = append(*received, body.Params.Message.Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      body.ID,
			"result": map[string]any{
				"id":       body.ID,
				"status":   map[string]any{"state": "completed"},
				"messages": []any{map[string]any{"role": "agent", "parts": []any{map[string]any{"type": "text", "text": "Sunny"}}}},
			},
		})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestA2ASource_SkillsAsTools(t *testing.T) {
	var received []string
	ts := newSkillAgent(t, &received)

	reg := New()
	inv, err := reg.Discover(context.Background(), []ToolServerConfig{{
		Name:      "weather",
		Endpoint:  ts.URL,
		Transport: TransportA2A,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertNames(t, inv, "forecast", "alerts")

	tool, ok := inv.Lookup("forecast")
	if !ok {
		t.Fatal("expected forecast in inventory")
	}
	if tool.Descriptor.Description != "Weather forecast" {
		t.Errorf("unexpected description %q", tool.Descriptor.Description)
	}

	var schema map[string]any
	if err := json.Unmarshal(tool.Descriptor.Schema, &schema); err != nil {
		t.Fatalf("failed to unmarshal schema: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("expected object schema, got %v", schema["type"])
	}
	if _, ok := schema["$schema"]; ok {
		t.Error("expected no $schema keyword")
	}
	props, _ := schema["properties"].(map[string]any)
	if _, ok := props["message"]; !ok {
		t.Errorf("expected message property, got %v", schema["properties"])
	}

	res, err := tool.Invoke(context.Background(), map[string]any{"message": "Sydney tomorrow?"})
	if err != nil {
		t.Fatalf("unexpected invoke error: %v", err)
	}
	if got := resultText(t, res); got != "Sunny" {
		t.Errorf("expected Sunny, got %q", got)
	}
	if !reflect.DeepEqual(received, []string{"Sydney tomorrow?"}) {
		t.Errorf("expected one task with the message, got %v", received)
	}

	if _, err := tool.Invoke(context.Background(), map[string]any{}); err == nil || !strings.Contains(err.Error(), "invalid arguments") {
		t.Errorf("expected invalid arguments, got %v", err)
	}
}

func TestA2ASource_CardFailureIsDiscoveryError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(ts.Close)

	inv, err := New().Discover(context.Background(), []ToolServerConfig{{
		Name:      "broken",
		Endpoint:  ts.URL,
		Transport: TransportA2A,
	}})
	var derr *DiscoveryError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DiscoveryError, got %v", err)
	}
	if derr.Server != "broken" {
		t.Errorf("expected server broken, got %s", derr.Server)
	}
	if len(inv.Tools) != 0 {
		t.Errorf("expected no tools, got %v", inv.Names())
	}
}
