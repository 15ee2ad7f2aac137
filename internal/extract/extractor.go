// Package extract turns a free-text request into survey filters by asking a
// language model for a JSON object and parsing its reply defensively.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/Vinayak1844/Statathon-Project/internal/filters"
	"github.com/Vinayak1844/Statathon-Project/internal/observability"
)

// ErrExtractionParse is matched by every *ParseError.
var ErrExtractionParse = errors.New("extraction parse error")

// ParseError carries the model text that could not be parsed.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrExtractionParse) hold.
func (e *ParseError) Is(target error) bool { return target == ErrExtractionParse }

// Completer is a one-shot text completion: prompt in, text out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Extractor builds the prompt, calls the model and parses the reply.
type Extractor struct {
	completer Completer
	logger    *observability.Logger
}

// New creates an extractor.
func New(completer Completer, logger *observability.Logger) *Extractor {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Extractor{
		completer: completer,
		logger:    logger.WithOperation("extract"),
	}
}

// Extract returns the object the model produced for message. It never
// fails: completion errors and unparseable replies are logged and yield an
// empty map. Keys outside the filter whitelist are passed through untouched;
// filters.FromMap drops them.
func (e *Extractor) Extract(ctx context.Context, message string) map[string]any {
	text, err := e.completer.Complete(ctx, BuildPrompt(message))
	if err != nil {
		observability.Extractions.WithLabelValues("completion_error").Inc()
		e.logger.Warn().Err(err).Msg("Completion failed, continuing without filters")
		return map[string]any{}
	}

	obj, err := Parse(text)
	if err != nil {
		observability.Extractions.WithLabelValues("parse_error").Inc()
		e.logger.Warn().Err(err).Str("raw", text).Msg("Failed to parse filters")
		return map[string]any{}
	}

	observability.Extractions.WithLabelValues("ok").Inc()
	e.logger.Debug().Int("keys", len(obj)).Msg("Filters extracted")
	return obj
}

var (
	openFence  = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n?")
	closeFence = regexp.MustCompile("\r?\n?[ \t]*```$")
)

// StripCodeFence removes a leading ```lang line and a trailing ``` from a
// model reply, along with surrounding whitespace.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = openFence.ReplaceAllString(text, "")
	text = closeFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Parse decodes a model reply into a JSON object. Code fences are stripped
// first; if the remainder is not a bare object, the outermost {...} span is
// tried before giving up with a *ParseError.
func Parse(text string) (map[string]any, error) {
	body := StripCodeFence(text)

	obj, err := decodeObject(body)
	if err == nil {
		return obj, nil
	}

	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		if inner, innerErr := decodeObject(body[start : end+1]); innerErr == nil {
			return inner, nil
		}
	}
	return nil, &ParseError{Raw: text, Err: err}
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, nil
}

// BuildPrompt constrains the model to a strict JSON object over the filter
// whitelist.
func BuildPrompt(message string) string {
	names := make([]string, 0, len(filters.Keys()))
	for _, k := range filters.Keys() {
		names = append(names, string(k))
	}

	var b bytes.Buffer
	b.WriteString("You are a strict JSON parser. Convert the user request into a JSON object\n")
	b.WriteString("with only these keys if present:\n")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(".\n\n")
	b.WriteString("- Return only valid JSON.\n")
	b.WriteString("- Do not include explanations, extra text, or code fences.\n")
	b.WriteString("- If a key is not mentioned, omit it.\n")
	b.WriteString("- Use string values.\n\n")
	b.WriteString("Example:\n")
	b.WriteString(`Input: "Show me urban households in Bihar that are Hindu"` + "\n")
	b.WriteString(`Output: {"state_name": "Bihar", "sector": "Urban", "religion": "Hindu"}` + "\n\n")
	b.WriteString("Now parse this message:\n")
	fmt.Fprintf(&b, "%q\n", message)
	return b.String()
}
