// Package parsers turns uploaded tabular files into trade candidates: the
// detector classifies a header row against known source signatures and the
// row parser applies a column mapping to each record.
package parsers

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/username/tradevault/src/models"
	"gopkg.in/yaml.v3"
)

// detectThreshold is how many of a signature's headers must be present for
// the source to be declared detected.
const detectThreshold = 4

//go:embed signatures.yaml
var signaturesYAML []byte

type signature struct {
	Source  string             `yaml:"source"`
	Headers []string           `yaml:"headers"`
	Mapping models.MappingSpec `yaml:"mapping"`
}

type signatureFile struct {
	Signatures []signature `yaml:"signatures"`
}

var builtinSignatures []signature

func init() {
	var f signatureFile
	if err := yaml.Unmarshal(signaturesYAML, &f); err != nil {
		panic(fmt.Sprintf("parsers: bad embedded signatures.yaml: %v", err))
	}
	builtinSignatures = f.Signatures
}

// Detect classifies a header row against the built-in source signatures.
// Signatures are checked in a fixed priority order and the first one with at
// least detectThreshold case-insensitive header matches wins. ok=false means
// no source was auto-detected and the caller must supply a manual mapping;
// that is a legitimate outcome, not an error.
func Detect(headers []string) (source string, mapping models.MappingSpec, ok bool) {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[strings.ToLower(strings.TrimSpace(h))] = true
	}

	for _, sig := range builtinSignatures {
		matches := 0
		for _, want := range sig.Headers {
			if present[strings.ToLower(want)] {
				matches++
			}
		}
		if matches >= detectThreshold {
			return sig.Source, sig.Mapping, true
		}
	}
	return "", models.MappingSpec{}, false
}

// KnownSources lists the source tags the detector can classify, in priority
// order.
func KnownSources() []string {
	out := make([]string, 0, len(builtinSignatures))
	for _, sig := range builtinSignatures {
		out = append(out, sig.Source)
	}
	return out
}
