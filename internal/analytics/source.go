package analytics

import (
	"encoding/json"

	"github.com/servicehub/backoffice/internal/db/models"
)

// Known front-ends
const (
	SourceAdmin = "admin"
	SourceMain  = "main"

	sourceUnknown = "unknown"
	sourceKey     = "_source"
)

// withSource returns a copy of data tagged with source. The caller's map is
// left untouched.
func withSource(data map[string]any, source string) models.JSONMap {
	out := make(models.JSONMap, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out[sourceKey] = source
	return out
}

// sourceOf extracts the source tag from a raw action_data payload. Older
// writers stored the bag as a JSON string holding the serialized object, so
// both encodings are accepted.
func sourceOf(raw []byte) string {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return sourceUnknown
	}

	if s, ok := decoded.(string); ok {
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return sourceUnknown
		}
	}

	bag, ok := decoded.(map[string]any)
	if !ok {
		return sourceUnknown
	}
	source, ok := bag[sourceKey].(string)
	if !ok || source == "" {
		return sourceUnknown
	}
	return source
}

// metricSource bounds the label cardinality of analytics_events_total
func metricSource(source string) string {
	switch source {
	case SourceAdmin, SourceMain:
		return source
	}
	return "other"
}
