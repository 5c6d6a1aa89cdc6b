package workset

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"owner_id":"reader-7",
		"title":"Dune",
		"batch_size":20,
		"source_lang":"en",
		"target_lang":"zh",
		"units":[
			{"text":"Arrakis.","chapter_index":0,"sentence_index":0},
			{"text":"Dune.","chapter_index":0,"sentence_index":1}
		]
	}`)

	ws, err := Parse(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}

	if ws.OwnerID != "reader-7" || ws.Title != "Dune" || ws.BatchSize != 20 {
		t.Fatalf("unexpected work set: %+v", ws)
	}
	if len(ws.Units) != 2 || ws.Units[1].SentenceIndex != 1 {
		t.Fatalf("unexpected units: %+v", ws.Units)
	}

	units := ws.WorkUnits()
	if len(units) != 2 || units[0].Text != "Arrakis." || units[1].ChapterIndex != 0 {
		t.Fatalf("unexpected work units: %+v", units)
	}
}

func TestParse_MinimalPayload(t *testing.T) {
	payload := json.RawMessage(`{"owner_id":"reader-7","title":"","units":[]}`)

	ws, err := Parse(payload)
	if err != nil {
		t.Fatalf("expected minimal payload to be valid, got error: %v", err)
	}
	if ws.BatchSize != 0 || len(ws.Units) != 0 {
		t.Fatalf("unexpected work set: %+v", ws)
	}
}

func TestParse_MissingRequired(t *testing.T) {
	payload := json.RawMessage(`{"title":"Dune","units":[]}`)

	if _, err := Parse(payload); err == nil {
		t.Fatal("expected validation to fail for missing owner_id")
	}
}

func TestParse_BlankOwnerID(t *testing.T) {
	payload := json.RawMessage(`{"owner_id":"   ","title":"Dune","units":[]}`)

	_, err := Parse(payload)
	if err == nil {
		t.Fatal("expected validation to fail for whitespace-only owner_id")
	}
	if !strings.Contains(err.Error(), "owner_id must not be blank") {
		t.Fatalf("expected owner_id semantic error, got: %v", err)
	}
}

func TestParse_BlankUnitText(t *testing.T) {
	payload := json.RawMessage(`{
		"owner_id":"reader-7",
		"title":"Dune",
		"units":[{"text":"  ","chapter_index":0,"sentence_index":0}]
	}`)

	_, err := Parse(payload)
	if err == nil {
		t.Fatal("expected validation to fail for whitespace-only unit text")
	}
	if !strings.Contains(err.Error(), "units[0].text") {
		t.Fatalf("expected unit text semantic error, got: %v", err)
	}
}

func TestParse_UnknownField(t *testing.T) {
	payload := json.RawMessage(`{"owner_id":"reader-7","title":"Dune","units":[],"provider":"openai"}`)

	if _, err := Parse(payload); err == nil {
		t.Fatal("expected validation to fail for unknown field")
	}
}

func TestParse_InvalidBatchSize(t *testing.T) {
	payload := json.RawMessage(`{"owner_id":"reader-7","title":"Dune","batch_size":0,"units":[]}`)

	if _, err := Parse(payload); err == nil {
		t.Fatal("expected validation to fail for batch_size below 1")
	}
}

func TestParse_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"owner_id":"reader-7","title":"Dune","units":[]}{}`)

	_, err := Parse(payload)
	if err == nil {
		t.Fatal("expected validation to fail for trailing content")
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse(json.RawMessage("  ")); err == nil {
		t.Fatal("expected validation to fail for empty payload")
	}
}
