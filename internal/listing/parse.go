package listing

// strategy 是一种索引格式的解析器；accepts 决定该格式是否适用于嗅探结果。
type strategy struct {
	format  Format
	accepts func(Kind) bool
	parse   func([]byte) ([]Entry, bool)
}

// strategies 按固定顺序尝试，第一个识别成功的格式胜出。
var strategies = []strategy{
	{format: FormatXML, accepts: kindIn(KindXML, KindText), parse: parseXMLIndex},
	{format: FormatTable, accepts: kindIn(KindHTML, KindText), parse: parseTableIndex},
	{format: FormatPre, accepts: kindIn(KindHTML, KindText), parse: parsePreIndex},
}

func kindIn(kinds ...Kind) func(Kind) bool {
	return func(k Kind) bool {
		for _, candidate := range kinds {
			if candidate == k {
				return true
			}
		}
		return false
	}
}

// Formats 返回支持的格式，顺序即尝试顺序。
func Formats() []Format {
	result := make([]Format, len(strategies))
	for i, s := range strategies {
		result[i] = s.format
	}
	return result
}

// Parse 嗅探内容后依次尝试各格式；allowed 非空时只尝试其中列出的格式。
// 全部失败时返回 *ParseError。同名条目以后出现者为准，保留首次出现的位置。
func Parse(data []byte, contentType string, allowed ...Format) (Listing, error) {
	kind, detected := Sniff(data, contentType)
	if kind == KindBinary {
		return Listing{}, &ParseError{ContentType: contentType, Detected: detected, Err: ErrBinaryContent}
	}
	for _, s := range strategies {
		if !s.accepts(kind) || !formatAllowed(s.format, allowed) {
			continue
		}
		if entries, ok := s.parse(data); ok {
			return Listing{Format: s.format, Entries: dedupe(entries)}, nil
		}
	}
	return Listing{}, &ParseError{ContentType: contentType, Detected: detected, Err: ErrUnknownFormat}
}

// IsKnownFormat 报告 f 是否为受支持的格式。
func IsKnownFormat(f Format) bool {
	for _, s := range strategies {
		if s.format == f {
			return true
		}
	}
	return false
}

func formatAllowed(f Format, allowed []Format) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == f {
			return true
		}
	}
	return false
}

func dedupe(entries []Entry) []Entry {
	index := make(map[string]int, len(entries))
	result := entries[:0]
	for _, e := range entries {
		if at, ok := index[e.Name]; ok {
			result[at] = e
			continue
		}
		index[e.Name] = len(result)
		result = append(result, e)
	}
	return result
}
