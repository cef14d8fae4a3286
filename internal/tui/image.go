package tui

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/blackwell-systems/bookdesk/internal/media"
)

// TerminalImageProtocol is the inline image protocol a terminal speaks.
type TerminalImageProtocol int

const (
	ProtocolNone TerminalImageProtocol = iota
	ProtocolKitty
	ProtocolITerm2
)

// previewCells is how many columns an inline preview spans.
const previewCells = 12

// kittyChunk is the largest base64 payload kitty accepts per escape.
const kittyChunk = 4096

// DetectImageProtocol guesses the protocol from the environment.
// BOOKDESK_NO_IMAGES turns previews off.
func DetectImageProtocol() TerminalImageProtocol {
	if os.Getenv("BOOKDESK_NO_IMAGES") != "" {
		return ProtocolNone
	}
	program := os.Getenv("TERM_PROGRAM")
	switch {
	case strings.Contains(os.Getenv("TERM"), "kitty"), program == "ghostty":
		return ProtocolKitty
	case program == "iTerm.app", program == "WezTerm":
		return ProtocolITerm2
	}
	return ProtocolNone
}

// RenderPreview draws a pending image slot's thumbnail inline. Persisted
// slots and other file kinds have nothing local to draw.
func RenderPreview(s media.Slot, protocol TerminalImageProtocol) string {
	if protocol == ProtocolNone || !s.Pending() || !media.Image.Accepts(s.File.MIMEType) {
		return ""
	}
	data, err := os.ReadFile(strings.TrimPrefix(s.Preview.URL, "file://"))
	if err != nil || len(data) == 0 {
		return ""
	}
	payload := base64.StdEncoding.EncodeToString(data)
	switch protocol {
	case ProtocolKitty:
		return kittyImage(payload)
	case ProtocolITerm2:
		return fmt.Sprintf("\x1b]1337;File=inline=1;size=%d;width=%d:%s\x07", len(data), previewCells, payload)
	}
	return ""
}

// kittyImage sends the payload in chunks; every escape but the last
// carries m=1.
func kittyImage(payload string) string {
	var b strings.Builder
	for first := true; payload != ""; first = false {
		n := min(len(payload), kittyChunk)
		chunk := payload[:n]
		payload = payload[n:]
		more := 0
		if payload != "" {
			more = 1
		}
		if first {
			fmt.Fprintf(&b, "\x1b_Ga=T,f=100,c=%d,m=%d;%s\x1b\\", previewCells, more, chunk)
		} else {
			fmt.Fprintf(&b, "\x1b_Gm=%d;%s\x1b\\", more, chunk)
		}
	}
	return b.String()
}
