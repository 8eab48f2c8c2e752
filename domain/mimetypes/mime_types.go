package mimetypes

import "mime"

type MIME string

const (
	Unknown           MIME = "unknown"
	TextPlain         MIME = "text/plain"
	TextCSV           MIME = "text/csv"
	ApplicationJSON   MIME = "application/json"
	ApplicationNDJSON MIME = "application/x-ndjson"
	ApplicationXML    MIME = "application/xml"
	ApplicationGzip   MIME = "application/gzip"
)

// logFormats are the payloads the backend accepts as log files.
var logFormats = []MIME{
	TextPlain,
	TextCSV,
	ApplicationJSON,
	ApplicationNDJSON,
	ApplicationXML,
	ApplicationGzip,
}

func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}

// ToMIME strips parameters such as charset and maps the detected type
// onto a known log format, Unknown otherwise.
func ToMIME(detected string) MIME {
	for _, format := range logFormats {
		if m, ok := Matches(detected, format); ok {
			return m
		}
	}
	return Unknown
}

func IsLogFormat(detected string) bool {
	return ToMIME(detected) != Unknown
}
