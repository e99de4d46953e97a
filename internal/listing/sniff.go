package listing

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind 是根据首部字节得出的内容分类。
type Kind string

const (
	KindBinary Kind = "binary"
	KindXML    Kind = "xml"
	KindHTML   Kind = "html"
	KindText   Kind = "text"
)

// Sniff 以首部字节为准判断内容类型；声明的 Content-Type 只在字节无法区分时作为提示。
func Sniff(data []byte, declared string) (Kind, string) {
	detected := mimetype.Detect(data)
	name := detected.String()

	if !hasAncestor(detected, "text/plain") {
		return KindBinary, name
	}
	switch {
	case hasAncestor(detected, "text/html"):
		return KindHTML, name
	case hasAncestor(detected, "text/xml"):
		return KindXML, name
	}

	declared = strings.ToLower(declared)
	switch {
	case strings.Contains(declared, "html"):
		return KindHTML, name
	case strings.Contains(declared, "xml"):
		return KindXML, name
	default:
		return KindText, name
	}
}

func hasAncestor(m *mimetype.MIME, expected string) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(expected) {
			return true
		}
	}
	return false
}
