package listing

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
)

type xmlIndex struct {
	XMLName xml.Name  `xml:"list"`
	Items   []xmlItem `xml:",any"`
}

type xmlItem struct {
	XMLName xml.Name
	Mtime   string `xml:"mtime,attr"`
	Size    string `xml:"size,attr"`
	Name    string `xml:",chardata"`
}

// parseXMLIndex 解析 <list><directory/><file/></list> 形式的索引。
func parseXMLIndex(data []byte) ([]Entry, bool) {
	var index xmlIndex
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	if err := decoder.Decode(&index); err != nil {
		return nil, false
	}

	entries := make([]Entry, 0, len(index.Items))
	for _, item := range index.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		switch item.XMLName.Local {
		case "directory":
			entries = append(entries, Entry{Name: name, IsDir: true, Description: item.Mtime})
		case "file":
			entries = append(entries, Entry{Name: name, Size: xmlSize(item.Size), Description: item.Mtime})
		}
	}
	return entries, true
}

func xmlSize(raw string) string {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return FormatSize(n)
	}
	return raw
}
