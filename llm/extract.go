package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// MalformedResponseError reports an LLM response that did not contain the
// JSON payload the prompt contracted for. These are fatal for the call and
// never retried.
type MalformedResponseError struct {
	Reason string
	Raw    string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed LLM response: %s", e.Reason)
}

var (
	codeBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*([\\[{].*?[\\]}])\\s*```")
	objectRegex    = regexp.MustCompile(`(?s)\{.*\}`)
	arrayRegex     = regexp.MustCompile(`(?s)\[.*\]`)
)

// extractJSON finds the JSON value (object or array) in a model response that
// may wrap it in prose or a markdown code block. When both an object and an
// array match, whichever starts first wins, so an array field inside an
// object is not mistaken for the payload.
func extractJSON(text string) string {
	if matches := codeBlockRegex.FindStringSubmatch(text); len(matches) > 1 {
		return matches[1]
	}

	objLoc := objectRegex.FindStringIndex(text)
	arrLoc := arrayRegex.FindStringIndex(text)
	switch {
	case objLoc != nil && (arrLoc == nil || objLoc[0] < arrLoc[0]):
		return text[objLoc[0]:objLoc[1]]
	case arrLoc != nil:
		return text[arrLoc[0]:arrLoc[1]]
	}
	return text
}

// decodeResponse extracts and unmarshals the JSON payload from a model
// response into v.
func decodeResponse(text string, v any) error {
	payload := extractJSON(text)
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return &MalformedResponseError{
			Reason: fmt.Sprintf("failed to parse JSON: %v", err),
			Raw:    text,
		}
	}
	return nil
}
