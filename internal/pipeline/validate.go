package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/scoring"
)

var (
	ErrFormNotFound = errors.New("form not found")
	ErrFormInactive = errors.New("form is not accepting submissions")
)

// ValidationError rejects a submission before any side effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

// CompileSchema compiles a form's JSON Schema (draft 2020-12).
func CompileSchema(name, schema string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://oxisite.local/forms/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("form schema load failed: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("form schema compile failed: %w", err)
	}
	return compiled, nil
}

// schemaCache keeps compiled schemas keyed by their source text.
type schemaCache struct {
	m sync.Map
}

func (c *schemaCache) get(name, src string) (*jsonschema.Schema, error) {
	if s, ok := c.m.Load(src); ok {
		return s.(*jsonschema.Schema), nil
	}
	s, err := CompileSchema(name, src)
	if err != nil {
		return nil, err
	}
	c.m.Store(src, s)
	return s, nil
}

// validate checks field definitions and the optional schema.
func (p *Processor) validate(form *models.Form, data map[string]any) error {
	for _, fd := range form.Fields {
		v, present := data[fd.Name]
		if !present || !scoring.IsFilled(v) {
			if fd.Required {
				return &ValidationError{Field: fd.Name, Message: "is required"}
			}
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		n := utf8.RuneCountInString(s)
		if fd.MinLength != nil && n < *fd.MinLength {
			return &ValidationError{Field: fd.Name, Message: fmt.Sprintf("must be at least %d characters", *fd.MinLength)}
		}
		if fd.MaxLength != nil && n > *fd.MaxLength {
			return &ValidationError{Field: fd.Name, Message: fmt.Sprintf("must be at most %d characters", *fd.MaxLength)}
		}
		if fd.Pattern != "" {
			re, err := regexp.Compile(fd.Pattern)
			if err == nil && !re.MatchString(s) {
				return &ValidationError{Field: fd.Name, Message: "has an invalid format"}
			}
		}
	}

	if form.Schema == "" {
		return nil
	}
	schema, err := p.schemas.get(form.Slug, form.Schema)
	if err != nil {
		return err
	}
	// the validator only understands decoded JSON values
	raw, err := json.Marshal(data)
	if err != nil {
		return &ValidationError{Message: "data is not valid JSON"}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &ValidationError{Message: "data is not valid JSON"}
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			for len(ve.Causes) > 0 {
				ve = ve.Causes[0]
			}
			return &ValidationError{Field: strings.TrimPrefix(ve.InstanceLocation, "/"), Message: ve.Message}
		}
		return &ValidationError{Message: err.Error()}
	}
	return nil
}
