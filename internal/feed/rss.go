package feed

import (
	"fmt"
	"io"
	"time"
)

// rfc2822 is the pubDate layout required by RSS 2.0
const rfc2822 = time.RFC1123Z

// writeRSS emits an RSS 2.0 document for one label
func writeRSS(w io.Writer, label, labelURL string, now time.Time, entries []entry) error {
	var err error
	p := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	p("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	p("<rss version=\"2.0\">\n")
	p("  <channel>\n")
	p("    <title>%s</title>\n", escapeXML(label))
	p("    <link>%s</link>\n", escapeXML(labelURL))
	p("    <pubDate>%s</pubDate>\n", now.Format(rfc2822))

	for i := range entries {
		e := &entries[i]
		p("    <item>\n")
		p("      <title>%s</title>\n", escapeXML(e.Title))
		p("      <link>%s</link>\n", escapeXML(e.URL))
		p("      <pubDate>%s</pubDate>\n", e.Updated.Format(rfc2822))
		for _, category := range e.Categories {
			p("      <category>%s</category>\n", escapeXML(category))
		}
		p("      <description>%s</description>\n", escapeXML(e.Body))
		p("    </item>\n")
	}

	p("  </channel>\n")
	p("</rss>\n")
	return err
}
