package model

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestReadOperations(t *testing.T) {
	script := `
# bootstrap
{"op":"init","label":"alice","amount_a":1000,"amount_b":2000}
{"op":"swap_a_for_b","amount":100}

{"op":"remove","label":"alice","shares":250000}
`
	ops, err := ReadOperations(strings.NewReader(script))
	if err != nil {
		t.Fatalf("read operations: %v", err)
	}
	want := []Operation{
		{Op: OpInit, Label: "alice", AmountA: 1000, AmountB: 2000},
		{Op: OpSwapAForB, Amount: 100},
		{Op: OpRemove, Label: "alice", Shares: 250000},
	}
	if !reflect.DeepEqual(ops, want) {
		t.Fatalf("ops mismatch: %+v", ops)
	}
}

func TestReadOperationsRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown op":    `{"op":"burn"}`,
		"missing op":    `{"amount":1}`,
		"missing label": `{"op":"add","amount_a":1,"amount_b":1}`,
	}
	for name, script := range cases {
		_, err := ReadOperations(strings.NewReader(script))
		if !errors.Is(err, ErrInvalidOperation) {
			t.Fatalf("%s: expected ErrInvalidOperation, got %v", name, err)
		}
	}

	_, err := ReadOperations(strings.NewReader("{not json"))
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("expected line-numbered decode error, got %v", err)
	}
}
