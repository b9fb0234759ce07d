package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	batcherrors "github.com/alexisbeaulieu97/batchflow/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseDocument loads a scenario file from disk and validates its schema.
func ParseDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, batcherrors.NewParseError(path, 0, err)
	}
	return ParseDocumentBytes(path, data)
}

// ParseDocumentBytes decodes and validates scenario YAML. path is only used in errors.
func ParseDocumentBytes(path string, data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, batcherrors.NewParseError(path, extractLine(err), err)
	}

	if err := ValidateDocument(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
