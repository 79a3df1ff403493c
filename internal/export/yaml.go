package export

import (
	"io"

	"github.com/iksnae/corner/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter exports the whole transcript as one YAML document
type YAMLExporter struct{}

// Export exports a transcript to YAML format
func (e *YAMLExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(transcript)
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
