package enrich

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/chefatlas/atlas-cli/internal/model"
)

// FieldValues holds the parsed provider payload. Key presence matters:
// a key mapped to nil is an explicit JSON null (an accepted overwrite for
// some fields), an absent key means the provider returned nothing for it.
type FieldValues map[model.Field]*string

// Has reports whether the provider returned the field at all.
func (fv FieldValues) Has(f model.Field) bool {
	_, ok := fv[f]
	return ok
}

// ExtractObject locates the first '{' and last '}' in free text and parses
// the span as a JSON object of string-or-null values. Markdown code fences
// are tolerated. Non-string values are ignored rather than failing the whole
// object.
func ExtractObject(text string) (FieldValues, error) {
	span, err := extractSpan(text, '{', '}')
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, eris.Wrap(err, "parse extracted object")
	}

	out := make(FieldValues, len(raw))
	for k, v := range raw {
		field := model.Field(k)
		if string(v) == "null" {
			out[field] = nil
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			continue
		}
		out[field] = &s
	}
	return out, nil
}

// ExtractArray locates the first '[' and last ']' in free text and parses the
// span as a JSON array of objects, tolerating markdown fencing.
func ExtractArray(text string) ([]map[string]any, error) {
	span, err := extractSpan(text, '[', ']')
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	if err := json.Unmarshal([]byte(span), &out); err != nil {
		return nil, eris.Wrap(err, "parse extracted array")
	}
	return out, nil
}

func extractSpan(text string, open, close byte) (string, error) {
	text = stripFences(text)
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start == -1 || end == -1 || end < start {
		return "", eris.Errorf("no %c...%c span in response", open, close)
	}
	return text[start : end+1], nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if i := strings.IndexByte(text, '\n'); i != -1 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
