package llm

import "testing"

func TestOpenRouterRequestDefaultTemperature(t *testing.T) {
	o := &OpenRouter{model: "test-model"}
	req := o.request([]Message{{Role: RoleUser, Content: "hi"}}, nil, Options{})
	if req.Temperature != nil {
		t.Errorf("zero temperature should leave the backend default, got %v", *req.Temperature)
	}
	if req.MaxTokens != 0 {
		t.Errorf("max tokens = %d, want unset", req.MaxTokens)
	}
}

func TestOpenRouterRequestCarriesOptions(t *testing.T) {
	o := &OpenRouter{model: "test-model"}
	req := o.request(nil, nil, Options{Temperature: 0.3, MaxTokens: 256})
	if req.Temperature == nil || *req.Temperature != 0.3 {
		t.Errorf("temperature not carried: %v", req.Temperature)
	}
	if req.MaxTokens != 256 {
		t.Errorf("max tokens = %d, want 256", req.MaxTokens)
	}
}

func TestOpenRouterRequestDeclaresTools(t *testing.T) {
	o := &OpenRouter{model: "test-model"}
	tools := []Tool{{Name: "get_datetime", Description: "current time", Parameters: map[string]any{"type": "object"}}}
	req := o.request(nil, tools, Options{})
	if len(req.Tools) != 1 {
		t.Fatalf("got %d tools, want 1", len(req.Tools))
	}
	if req.Tools[0].Function == nil || req.Tools[0].Function.Name != "get_datetime" {
		t.Errorf("tool declaration = %+v", req.Tools[0])
	}
}
