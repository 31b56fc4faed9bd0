// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package survey

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibextract/pkg/types"
)

// Report formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// ReportFormat picks the report format from a file name's extension.
// Anything other than .json is YAML.
func ReportFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// WriteReport serializes the full result to w.
func WriteReport(w io.Writer, result *types.SurveyResult, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(result)
	default:
		return fmt.Errorf("%w: unknown report format %q", types.ErrConfig, format)
	}
}
