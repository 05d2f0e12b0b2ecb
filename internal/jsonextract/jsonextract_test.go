package jsonextract

import (
	"errors"
	"testing"
)

type doc struct {
	Hook string `json:"hook"`
	N    int    `json:"n"`
}

func TestObjectPlainJSON(t *testing.T) {
	var d doc
	if err := Object(`{"hook":"welcome","n":3}`, &d); err != nil {
		t.Fatal(err)
	}
	if d.Hook != "welcome" || d.N != 3 {
		t.Errorf("got %+v", d)
	}
}

func TestObjectFencedBlock(t *testing.T) {
	text := "Here is the script:\n```json\n{\"hook\": \"step inside\", \"n\": 5}\n```\nLet me know if you need changes."
	var d doc
	if err := Object(text, &d); err != nil {
		t.Fatal(err)
	}
	if d.Hook != "step inside" {
		t.Errorf("got %+v", d)
	}
}

func TestObjectFencedBlockNoLanguageTag(t *testing.T) {
	text := "```\n{\"hook\":\"x\",\"n\":1}\n```"
	var d doc
	if err := Object(text, &d); err != nil {
		t.Fatal(err)
	}
	if d.N != 1 {
		t.Errorf("got %+v", d)
	}
}

func TestObjectBraceSpan(t *testing.T) {
	text := `Sure! {"hook": "the grand tour", "n": 8} Hope that helps.`
	var d doc
	if err := Object(text, &d); err != nil {
		t.Fatal(err)
	}
	if d.N != 8 {
		t.Errorf("got %+v", d)
	}
}

func TestObjectNestedBraces(t *testing.T) {
	text := `prefix {"hook": "a", "n": 2, "extra": {"k": "v"}} suffix`
	var d doc
	if err := Object(text, &d); err != nil {
		t.Fatal(err)
	}
	if d.Hook != "a" {
		t.Errorf("got %+v", d)
	}
}

func TestObjectNoJSON(t *testing.T) {
	var d doc
	err := Object("I cannot produce that script.", &d)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
