package feed

import (
	"fmt"
	"io"
	"time"
)

// writeAtom emits an Atom document for one label. Every user-controlled
// string goes through escapeXML on its way in.
func writeAtom(w io.Writer, label, labelURL string, now time.Time, entries []entry) error {
	var err error
	p := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	p("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	p("<feed xmlns=\"http://www.w3.org/2005/Atom\">\n")
	p("  <title>%s</title>\n", escapeXML(label))
	p("  <id>%s</id>\n", escapeXML(labelURL))
	p("  <updated>%s</updated>\n", now.Format(time.RFC3339))
	p("  <link href=\"%s\" rel=\"alternate\"/>\n", escapeXML(labelURL))

	for i := range entries {
		e := &entries[i]
		p("  <entry>\n")
		p("    <title>%s</title>\n", escapeXML(e.Title))
		p("    <id>%s</id>\n", escapeXML(e.URL))
		p("    <updated>%s</updated>\n", e.Updated.Format(time.RFC3339))
		p("    <author>\n")
		p("      <name>%s</name>\n", escapeXML(e.Author))
		p("      <uri>%s</uri>\n", escapeXML(profileURL(e.Author)))
		p("    </author>\n")
		for _, category := range e.Categories {
			p("    <category term=\"%s\"/>\n", escapeXML(category))
		}
		p("    <link href=\"%s\"/>\n", escapeXML(e.URL))
		p("    <content type=\"html\">%s</content>\n", escapeXML(e.Body))
		p("  </entry>\n")
	}

	p("</feed>\n")
	return err
}
