package handoff

import (
	"context"
	"fmt"
	"io"
)

// Writer hands the login URL to the embedding shell by printing it on its
// own line.
type Writer struct {
	out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) Open(ctx context.Context, loginURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w.out, loginURL); err != nil {
		return fmt.Errorf("write login url: %w", err)
	}
	return nil
}
