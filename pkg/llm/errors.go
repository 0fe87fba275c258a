package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrNoImage means the response was well-formed but carried no inline image.
	ErrNoImage       = errors.New("no image generated")
	ErrNoVideo       = errors.New("no video URI returned")
	ErrEmptyResponse = errors.New("empty model response")
)

// GenerationError wraps a failed model call with the operation that issued it.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Wrap tags err with op. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) && genErr.Op == op {
		return err
	}
	return &GenerationError{Op: op, Err: err}
}
