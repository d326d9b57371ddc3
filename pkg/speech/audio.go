package speech

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DefaultMIME is assumed for audio payloads that arrive without a data-URI
// header. Browser MediaRecorder clips default to WebM/Opus.
const DefaultMIME = "audio/webm"

// DecodeAudioInput turns a browser audio payload into raw bytes plus its
// MIME type. Input is either a data URI ("data:audio/webm;base64,...") or a
// bare base64 string, in which case the type defaults to DefaultMIME. Codec
// parameters in the header ("audio/webm;codecs=opus") are dropped. Some
// front ends send a header-like prefix without the data: scheme; anything
// up to the first comma is treated as the header and skipped.
func DecodeAudioInput(input string) ([]byte, string, error) {
	payload := strings.TrimSpace(input)
	mimeType := DefaultMIME

	if strings.HasPrefix(payload, "data:") {
		header, rest, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", fmt.Errorf("malformed audio data URI: no payload after header")
		}
		meta := strings.TrimPrefix(header, "data:")
		if m, _, _ := strings.Cut(meta, ";"); m != "" {
			mimeType = m
		}
		payload = rest
	} else if _, rest, ok := strings.Cut(payload, ","); ok {
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 audio payload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("audio payload is empty")
	}
	return data, mimeType, nil
}

// EncodeDataURI wraps audio bytes in a base64 data URI for transport back
// to the browser.
func EncodeDataURI(data []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = DefaultMIME
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ExtensionForMIME maps an audio MIME type to the filename extension the
// transcription endpoint uses for format detection. Unknown types fall back
// to webm.
func ExtensionForMIME(mimeType string) string {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mimeType)), ";")
	switch base {
	case "audio/webm", "video/webm":
		return "webm"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/ogg", "application/ogg":
		return "ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return "m4a"
	case "audio/flac", "audio/x-flac":
		return "flac"
	case "audio/aac":
		return "aac"
	default:
		return "webm"
	}
}
