package listing

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func loadDocument(data []byte) (*goquery.Document, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	return doc, true
}

// parseTableIndex 解析 Apache/lighttpd/nginx 的 <table> 目录页：
// 名称取自链接，后两个单元格依次为修改时间与大小。
func parseTableIndex(data []byte) ([]Entry, bool) {
	doc, ok := loadDocument(data)
	if !ok {
		return nil, false
	}

	recognized := false
	var entries []Entry
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		nameIdx := -1
		var href string
		cells.EachWithBreak(func(i int, cell *goquery.Selection) bool {
			link := cell.Find("a[href]").First()
			if link.Length() == 0 {
				return true
			}
			nameIdx = i
			href, _ = link.Attr("href")
			return false
		})
		if nameIdx < 0 {
			return
		}
		recognized = true

		name, isDir, ok := entryFromHref(href)
		if !ok {
			return
		}
		entry := Entry{Name: name, IsDir: isDir}
		if nameIdx+1 < cells.Length() {
			entry.Description = strings.TrimSpace(cells.Eq(nameIdx + 1).Text())
		}
		if nameIdx+2 < cells.Length() {
			entry.Size = normalizeSize(cells.Eq(nameIdx+2).Text(), isDir)
		}
		entries = append(entries, entry)
	})
	return entries, recognized
}

// parsePreIndex 解析 Apache fancy index 的 <pre> 块：每行形如 "<a>name</a>  date time size"。
func parsePreIndex(data []byte) ([]Entry, bool) {
	doc, ok := loadDocument(data)
	if !ok {
		return nil, false
	}

	recognized := false
	var entries []Entry
	doc.Find("pre a[href]").Each(func(_ int, link *goquery.Selection) {
		recognized = true
		href, _ := link.Attr("href")
		name, isDir, ok := entryFromHref(href)
		if !ok {
			return
		}

		fields := strings.Fields(lineTail(link.Get(0)))
		entry := Entry{Name: name, IsDir: isDir}
		if len(fields) >= 2 {
			entry.Description = fields[0] + " " + fields[1]
		}
		if len(fields) >= 3 {
			entry.Size = normalizeSize(fields[2], isDir)
		}
		entries = append(entries, entry)
	})
	return entries, recognized
}

// lineTail 收集链接之后、换行之前的文本节点，跳过描述等内嵌元素。
func lineTail(anchor *html.Node) string {
	var sb strings.Builder
	for node := anchor.NextSibling; node != nil; node = node.NextSibling {
		if node.Type == html.ElementNode {
			if node.DataAtom == atom.A || node.DataAtom == atom.Hr {
				break
			}
			continue
		}
		if node.Type != html.TextNode {
			continue
		}
		if idx := strings.IndexByte(node.Data, '\n'); idx >= 0 {
			sb.WriteString(node.Data[:idx])
			break
		}
		sb.WriteString(node.Data)
	}
	return sb.String()
}
