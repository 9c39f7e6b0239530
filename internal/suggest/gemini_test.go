package suggest

import (
	"testing"

	"google.golang.org/genai"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			nil,
			{Content: &genai.Content{Parts: []*genai.Part{{Text: " first "}, nil, {Text: ""}}}},
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "second"}}}},
		},
	}
	got, err := responseText(resp)
	if err != nil {
		t.Fatal(err)
	}
	if got != "first\nsecond" {
		t.Errorf("responseText = %q", got)
	}

	if _, err := responseText(&genai.GenerateContentResponse{}); err == nil {
		t.Error("expected error for empty response")
	}
	if _, err := responseText(nil); err == nil {
		t.Error("expected error for nil response")
	}
}
