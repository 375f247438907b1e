package knowledge

import (
	"strings"

	"github.com/inexasli/automation-gateway/internal/pipeline"
)

// Marker is the training directive prefix, matched case-insensitively
const Marker = "TRAIN:"

// Detector recognizes training directives in inbound messages. Pure, no I/O:
// detecting and parsing only — persisting the knowledge is the config
// service's concern.
type Detector struct{}

// NewDetector creates a knowledge update detector
func NewDetector() *Detector {
	return &Detector{}
}

// Detect checks whether the message starts with the training marker and, if
// so, returns the trimmed remainder as the knowledge text.
func (d *Detector) Detect(message string) pipeline.KnowledgeResult {
	if len(message) < len(Marker) {
		return pipeline.KnowledgeResult{}
	}
	if !strings.EqualFold(message[:len(Marker)], Marker) {
		return pipeline.KnowledgeResult{}
	}
	return pipeline.KnowledgeResult{
		Updated:   true,
		Knowledge: strings.TrimSpace(message[len(Marker):]),
	}
}
