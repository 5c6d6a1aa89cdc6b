// Package workset parses and validates job submissions. A work set is the
// JSON payload a reader client sends to start a translation job: the owning
// reader, the book title, and the ordered sentence units to translate.
package workset

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/aelous/read-bridge/internal/job"
)

//go:embed workset.schema.json
var workSetSchemaJSON string

// Unit is one sentence with its position in the book.
type Unit struct {
	Text          string `json:"text"`
	ChapterIndex  int    `json:"chapter_index"`
	SentenceIndex int    `json:"sentence_index"`
}

// WorkSet is a validated job submission.
type WorkSet struct {
	OwnerID    string `json:"owner_id"`
	Title      string `json:"title"`
	BatchSize  int    `json:"batch_size,omitempty"`
	SourceLang string `json:"source_lang,omitempty"`
	TargetLang string `json:"target_lang,omitempty"`
	Units      []Unit `json:"units"`
}

// WorkUnits converts the submission's units into job work units, preserving
// order.
func (w *WorkSet) WorkUnits() []job.WorkUnit {
	if w == nil {
		return nil
	}
	units := make([]job.WorkUnit, len(w.Units))
	for i, unit := range w.Units {
		units[i] = job.WorkUnit{
			Text:          unit.Text,
			ChapterIndex:  unit.ChapterIndex,
			SentenceIndex: unit.SentenceIndex,
		}
	}
	return units
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// Parse validates payload against the work set schema and returns the
// decoded submission. The payload must be a single JSON document with no
// trailing content and no unknown fields.
func Parse(payload json.RawMessage) (*WorkSet, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode work set JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize work set JSON: %w", err)
	}

	var ws WorkSet
	if err := json.Unmarshal(normalized, &ws); err != nil {
		return nil, fmt.Errorf("unmarshal work set: %w", err)
	}

	if err := validateSemantics(&ws); err != nil {
		return nil, err
	}

	return &ws, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("workset.schema.json", strings.NewReader(workSetSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("workset.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(ws *WorkSet) error {
	if ws == nil {
		return fmt.Errorf("work set is nil")
	}

	if strings.TrimSpace(ws.OwnerID) == "" {
		return fmt.Errorf("owner_id must not be blank")
	}
	for i, unit := range ws.Units {
		if strings.TrimSpace(unit.Text) == "" {
			return fmt.Errorf("units[%d].text must not be blank", i)
		}
	}

	return nil
}
