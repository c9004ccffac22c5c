package model

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Op names a scripted pool operation.
type Op string

const (
	OpInit      Op = "init"
	OpAdd       Op = "add"
	OpRemove    Op = "remove"
	OpSwapAForB Op = "swap_a_for_b"
	OpSwapBForA Op = "swap_b_for_a"
)

var ErrInvalidOperation = errors.New("invalid operation")

// Operation is one step of a simulation script.
//
// init and add deposit AmountA and AmountB and credit the minted shares to
// the Label wallet. remove burns Shares from the Label wallet, or the whole
// wallet when Shares is zero. Swaps sell Amount of the input token.
type Operation struct {
	Op      Op     `json:"op"`
	Label   string `json:"label,omitempty"`
	AmountA uint64 `json:"amount_a,omitempty"`
	AmountB uint64 `json:"amount_b,omitempty"`
	Shares  uint64 `json:"shares,omitempty"`
	Amount  uint64 `json:"amount,omitempty"`
}

func (o Operation) Validate() error {
	switch o.Op {
	case OpInit, OpAdd, OpRemove:
		if strings.TrimSpace(o.Label) == "" {
			return fmt.Errorf("%s without label: %w", o.Op, ErrInvalidOperation)
		}
	case OpSwapAForB, OpSwapBForA:
	case "":
		return fmt.Errorf("missing op: %w", ErrInvalidOperation)
	default:
		return fmt.Errorf("unknown op %q: %w", o.Op, ErrInvalidOperation)
	}
	return nil
}

// ReadOperations decodes a JSONL script. Blank lines and lines starting with
// '#' are skipped. Every operation is validated.
func ReadOperations(r io.Reader) ([]Operation, error) {
	var ops []Operation
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var op Operation
		if err := json.Unmarshal([]byte(text), &op); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ops, nil
}
