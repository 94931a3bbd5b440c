package sessions

import "strings"

const unknown = "unknown"

// ClientInfo is what the tracker derives from a User-Agent header
type ClientInfo struct {
	DeviceType string
	Browser    string
	OS         string
}

type marker struct {
	substr string
	label  string
}

// Markers are checked in order and the first hit wins; no hit is "unknown".
var (
	deviceMarkers = []marker{
		{"Mobile", "mobile"},
		{"Tablet", "tablet"},
	}
	browserMarkers = []marker{
		{"Chrome", "Chrome"},
		{"Firefox", "Firefox"},
		{"Safari", "Safari"},
		{"Edge", "Edge"},
	}
	osMarkers = []marker{
		{"Windows", "Windows"},
		{"Mac", "Mac"},
		{"Linux", "Linux"},
		{"Android", "Android"},
		{"iOS", "iOS"},
	}
)

// ParseUserAgent classifies a User-Agent string by substring heuristics.
func ParseUserAgent(ua string) ClientInfo {
	return ClientInfo{
		DeviceType: firstMatch(ua, deviceMarkers),
		Browser:    firstMatch(ua, browserMarkers),
		OS:         firstMatch(ua, osMarkers),
	}
}

func firstMatch(ua string, markers []marker) string {
	for _, m := range markers {
		if strings.Contains(ua, m.substr) {
			return m.label
		}
	}
	return unknown
}

const sourceTagPrefix = "[source:"

// TagUserAgent appends a bracketed source tag to ua. Sessions synthesized
// for analytics carry the originating front-end this way.
func TagUserAgent(ua, source string) string {
	tag := sourceTagPrefix + source + "]"
	if ua == "" {
		return tag
	}
	return ua + " " + tag
}

// SourceFromUserAgent recovers the source tag written by TagUserAgent.
func SourceFromUserAgent(ua string) (string, bool) {
	start := strings.LastIndex(ua, sourceTagPrefix)
	if start < 0 {
		return "", false
	}
	rest := ua[start+len(sourceTagPrefix):]
	end := strings.IndexByte(rest, ']')
	if end <= 0 {
		return "", false
	}
	return rest[:end], true
}
