package metrics

import (
	"fmt"
	"strings"
)

// Formats lists the supported metrics formats.
var Formats = []string{"prometheus", "json"}

// NewExporter creates the exporter for format writing to path.
func NewExporter(format, path, version string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "prometheus", "prom":
		return NewPrometheusExporter(WithPrometheusFile(path)), nil
	case "json":
		return NewJSONExporter(WithJSONFile(path), WithJSONVersion(version)), nil
	default:
		return nil, fmt.Errorf("unknown metrics format %q (available: %s)", format, strings.Join(Formats, ", "))
	}
}
