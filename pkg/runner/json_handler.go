package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/convo/pkg/domain"
)

// JSONHandler implements IOHandler for JSON-Lines communication, for hosts
// driving the chat loop from another process.
//
// Output writes one JSON array of messages per turn. Input accepts a JSON
// string, an object with a "text" field, or raw text.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Output(ctx context.Context, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return h.Encoder.Encode(msgs)
}

// Input reads a single line. Blank lines are skipped.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := h.Reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			if err != nil {
				return "", err
			}
			continue
		}
		return SanitizeInput(decodeReply(line))
	}
}

func decodeReply(line string) string {
	var s string
	if err := json.Unmarshal([]byte(line), &s); err == nil {
		return s
	}
	var obj struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal([]byte(line), &obj); err == nil && obj.Text != nil {
		return *obj.Text
	}
	return line
}

// SystemOutput writes {"system": msg}.
func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(map[string]string{"system": msg})
}
