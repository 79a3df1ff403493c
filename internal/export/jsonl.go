package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/iksnae/corner/internal"
)

// JSONLExporter exports chat messages in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports a transcript's chat messages to JSONL format
func (e *JSONLExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range transcript.Messages {
		obj := map[string]interface{}{
			"id":   msg.ID,
			"type": msg.Type,
			"text": msg.DisplayText(),
		}
		if msg.UserName != "" {
			obj["user"] = msg.UserName
		}
		if msg.Timestamp > 0 {
			obj["timestamp"] = msg.Time().UTC().Format(time.RFC3339)
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
