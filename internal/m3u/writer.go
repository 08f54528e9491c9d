package m3u

import (
	"fmt"
	"io"
	"strings"
)

// WriteOptions controls playlist generation.
type WriteOptions struct {
	// EpgURL is emitted as the playlist's x-tvg-url/url-tvg header when set.
	EpgURL string
}

// Write renders entries as an extended M3U document.
func Write(w io.Writer, entries []Entry, opts WriteOptions) error {
	header := "#EXTM3U"
	if opts.EpgURL != "" {
		header += fmt.Sprintf(` x-tvg-url=%q url-tvg=%q`, opts.EpgURL, opts.EpgURL)
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	for _, e := range entries {
		var attrs strings.Builder
		writeAttr(&attrs, "tvg-id", e.TvgID)
		writeAttr(&attrs, "tvg-name", e.TvgName)
		writeAttr(&attrs, "tvg-logo", e.TvgLogo)
		writeAttr(&attrs, "group-title", e.GroupTitle)
		if _, err := fmt.Fprintf(w, "#EXTINF:-1%s,%s\n%s\n", attrs.String(), e.Name, e.URL); err != nil {
			return err
		}
	}
	return nil
}

func writeAttr(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	// Double quotes cannot appear inside an attribute value.
	value = strings.ReplaceAll(value, `"`, "'")
	fmt.Fprintf(b, ` %s="%s"`, key, value)
}
