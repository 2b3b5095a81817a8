package services

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Request body schemas, by file name without extension.
const (
	SchemaTask         = "task"
	SchemaRating       = "rating"
	SchemaRegistration = "registration"
	SchemaProfile      = "profile"
)

//go:embed schemas/*.json
var schemaFS embed.FS

type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles every embedded schema. Formats (date-time, email) are asserted.
func NewValidator() (*Validator, error) {
	names, err := fs.Glob(schemaFS, "schemas/*.json")
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	c.AssertFormat = true
	schemas := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		data, err := schemaFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", name, err)
		}
		key := strings.TrimSuffix(path.Base(name), ".json")
		url := "https://mandadito.dev/schemas/" + key + ".json"
		if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %q: %w", key, err)
		}
		if schemas[key], err = c.Compile(url); err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", key, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// Validate rejects body unless it is JSON matching the named schema.
func (v *Validator) Validate(schema string, body []byte) error {
	s, ok := v.schemas[schema]
	if !ok {
		return fmt.Errorf("unknown schema %q", schema)
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, describe(err))
	}
	return nil
}

// describe flattens a schema error to its innermost causes.
func describe(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}

// ErrValidation can be used with errors.Is to detect request bodies that fail their schema.
var ErrValidation = errors.New("validation failed")
