package lara

import (
	"encoding/json"
	"fmt"
	"strings"
)

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError        bool    `json:"isError"`
	TranslatedText *string `json:"translated_text"`
	Translation    *string `json:"translation"`
}

type textItem struct {
	Text string `json:"text"`
}

// parseTranslateResult extracts the translated text from a tools/call result.
// The first content block may itself be a JSON list of {"text": ...} items.
func parseTranslateResult(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("%w: empty result", ErrUnexpectedResult)
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, nil
	}
	var result toolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnexpectedResult, summarizePayloadSnippet(string(raw)))
	}
	if len(result.Content) > 0 && result.Content[0].Text != "" {
		text := result.Content[0].Text
		if result.IsError {
			return "", &RPCError{Message: text}
		}
		return unwrapTextList(text), nil
	}
	switch {
	case result.TranslatedText != nil:
		return *result.TranslatedText, nil
	case result.Translation != nil:
		return *result.Translation, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnexpectedResult, summarizePayloadSnippet(string(raw)))
}

// unwrapTextList returns the first item's text when content is a JSON list of
// text items, or content unchanged otherwise.
func unwrapTextList(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "[") {
		return content
	}
	var items []textItem
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil || len(items) == 0 {
		return content
	}
	return items[0].Text
}

// parseBatchResult accepts {"translated_texts": [...]} or a bare list.
func parseBatchResult(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		TranslatedTexts []string `json:"translated_texts"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.TranslatedTexts == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedResult, summarizePayloadSnippet(string(raw)))
	}
	return wrapped.TranslatedTexts, nil
}
