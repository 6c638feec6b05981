package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/rxdesk/rxdesk/internal/platform/httpx"
)

var (
	// ErrImportInvalid signals import text that is unparseable or has no elements.
	ErrImportInvalid = fmt.Errorf("%w: import must contain a non-empty elements array", httpx.ErrValidation)
	// ErrDuplicateID signals two elements sharing an id.
	ErrDuplicateID = fmt.Errorf("%w: duplicate element id", httpx.ErrValidation)
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateMeta checks the enums of a template meta block.
func ValidateMeta(meta Meta) error {
	if err := validatorInstance().Struct(meta); err != nil {
		return fmt.Errorf("%w: %s", httpx.ErrValidation, describe(err))
	}
	return nil
}

// ValidateElements checks every element and the uniqueness of ids.
func ValidateElements(elements []Element) error {
	seen := make(map[string]struct{}, len(elements))
	for i := range elements {
		if err := validatorInstance().Struct(elements[i]); err != nil {
			return fmt.Errorf("%w: element %d: %s", httpx.ErrValidation, i, describe(err))
		}
		if _, ok := seen[elements[i].ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, elements[i].ID)
		}
		seen[elements[i].ID] = struct{}{}
	}
	return nil
}

// Validate checks meta and elements together.
func (s Schema) Validate() error {
	if err := ValidateMeta(s.Meta); err != nil {
		return err
	}
	return ValidateElements(s.Elements)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// Export serialises the schema as indented JSON.
func Export(s Schema) (string, error) {
	if s.Elements == nil {
		s.Elements = []Element{}
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// extractionRule pulls a raw elements array out of a decoded document.
type extractionRule struct {
	name string
	path []string
}

// importRules are evaluated in order; the first yielding a non-empty array wins.
var importRules = []extractionRule{
	{name: "top-level", path: []string{"elements"}},
	{name: "template_json", path: []string{"template_json", "elements"}},
	{name: "schema", path: []string{"schema", "elements"}},
}

// Import parses text produced by Export, or the same shape nested under
// template_json or schema, and returns its elements.
func Import(text string) ([]Element, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &doc); err != nil {
		return nil, ErrImportInvalid
	}
	for _, rule := range importRules {
		elements, ok := rule.apply(doc)
		if !ok {
			continue
		}
		for i := range elements {
			if elements[i].ID == "" {
				elements[i].ID = NewID()
			}
		}
		if err := ValidateElements(elements); err != nil {
			return nil, err
		}
		return elements, nil
	}
	return nil, ErrImportInvalid
}

func (r extractionRule) apply(doc map[string]json.RawMessage) ([]Element, bool) {
	current := doc
	for i, key := range r.path {
		raw, ok := current[key]
		if !ok {
			return nil, false
		}
		if i == len(r.path)-1 {
			raw = bytes.TrimSpace(raw)
			if len(raw) == 0 || raw[0] != '[' {
				return nil, false
			}
			var elements []Element
			if err := json.Unmarshal(raw, &elements); err != nil || len(elements) == 0 {
				return nil, false
			}
			return elements, true
		}
		var next map[string]json.RawMessage
		if err := json.Unmarshal(raw, &next); err != nil {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// DecodeTemplateJSON reads a persisted template_json payload. A missing or
// malformed payload yields an empty schema rather than an error.
func DecodeTemplateJSON(raw []byte) Schema {
	var s Schema
	if len(bytes.TrimSpace(raw)) == 0 {
		return s
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Schema{}
	}
	return s
}
