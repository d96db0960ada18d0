package llm

import (
	"regexp"
	"strings"

	"github.com/bytedance/sonic"

	"partschat/pkg"
)

// fencedJSON matches a ```json fenced block in assistant content.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

type actionEnvelope struct {
	Action struct {
		Name      string `json:"name"`
		Arguments any    `json:"arguments"`
	} `json:"action"`
}

// ParseActionDirective scans assistant content for an action request
// encoded as a JSON block. It returns the requested action (nil when
// none) and the content with the block stripped.
func ParseActionDirective(content string) (*pkg.RequestedAction, string) {
	match := fencedJSON.FindStringSubmatch(content)
	var raw, whole string
	if match != nil {
		whole, raw = match[0], match[1]
	} else if strings.Contains(content, `"action"`) {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start < 0 || end <= start {
			return nil, content
		}
		whole = content[start : end+1]
		raw = whole
	} else {
		return nil, content
	}

	var envelope actionEnvelope
	if err := sonic.UnmarshalString(raw, &envelope); err != nil {
		return nil, content
	}
	if envelope.Action.Name == "" {
		return nil, content
	}

	argsJSON := "{}"
	if envelope.Action.Arguments != nil {
		if encoded, err := sonic.MarshalString(envelope.Action.Arguments); err == nil {
			argsJSON = encoded
		}
	}

	cleaned := strings.TrimSpace(strings.Replace(content, whole, "", 1))
	return &pkg.RequestedAction{Name: envelope.Action.Name, ArgsJSON: argsJSON}, cleaned
}
