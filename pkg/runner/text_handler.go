package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/convo/pkg/domain"
)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	// Prompt is printed before reading a reply.
	Prompt string

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTextHandlerPrompt replaces the default "> " input prompt.
func WithTextHandlerPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		Prompt: "> ",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// initPump starts the reader goroutine. Reads cannot be interrupted, so a
// single goroutine owns the reader and Input selects on its channel and ctx.
func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	defer close(h.inputChan)
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			return
		}
	}
}

// Output prints each message on its own line. Payload-only messages are
// printed as a placeholder naming the payload type.
func (h *TextHandler) Output(ctx context.Context, msgs []domain.Message) error {
	for _, msg := range msgs {
		output := msg.Text
		if output == "" && msg.Payload != nil {
			output = fmt.Sprintf("[%T]", msg.Payload)
		}
		if h.Renderer != nil {
			if rendered, err := h.Renderer(output); err == nil {
				output = rendered
			}
		}
		if _, err := fmt.Fprintln(h.Writer, strings.TrimSpace(output)); err != nil {
			return err
		}
	}
	return nil
}

// Input reads one line. Replies that fail sanitization are reported and
// read again.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	for {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		fmt.Fprint(h.Writer, h.Prompt)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

// SystemOutput prints msg with a "[System]" prefix.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "[System] %s\n", msg)
	return err
}
