package livereload

import (
	"bytes"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// Tag is the markup inserted into served pages.
const Tag = `<script async src="` + ScriptPath + `"></script>`

// maxInjectSize bounds how much of a page is buffered for injection.
const maxInjectSize = 512 * 1024

// InjectScript inserts Tag before the last </body> end tag of page, or
// appends it when the page has none.
func InjectScript(page []byte) []byte {
	at := bodyEnd(page)
	if at < 0 {
		out := make([]byte, 0, len(page)+len(Tag))
		out = append(out, page...)
		return append(out, Tag...)
	}
	out := make([]byte, 0, len(page)+len(Tag))
	out = append(out, page[:at]...)
	out = append(out, Tag...)
	return append(out, page[at:]...)
}

// bodyEnd returns the byte offset of the last </body> tag, or -1. The
// tokenizer skips matches inside comments, scripts and attribute values.
func bodyEnd(page []byte) int {
	z := html.NewTokenizer(bytes.NewReader(page))
	offset, found := 0, -1
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return found
		}
		raw := len(z.Raw())
		if tt == html.EndTagToken {
			name, _ := z.TagName()
			if string(name) == "body" {
				found = offset
			}
		}
		offset += raw
	}
}

// Middleware injects the client script into HTML responses.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		isHTMLPage := p == "" || strings.HasSuffix(p, "/") || strings.HasSuffix(p, ".html")
		if !isHTMLPage || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		injector := &injector{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(injector, r)
		injector.finalize()
	})
}

// injector buffers an HTML response up to maxInjectSize. Larger or
// non-HTML responses pass through untouched.
type injector struct {
	http.ResponseWriter
	statusCode    int
	buffer        []byte
	headerWritten bool
	passthrough   bool
	started       bool
}

func (l *injector) WriteHeader(code int) {
	l.statusCode = code
	if l.passthrough {
		l.ResponseWriter.WriteHeader(code)
		l.headerWritten = true
	}
}

func (l *injector) Write(data []byte) (int, error) {
	if !l.started {
		l.started = true
		contentType := l.ResponseWriter.Header().Get("Content-Type")
		isHTML := contentType == "" || strings.Contains(contentType, "text/html")
		if !isHTML || l.statusCode != http.StatusOK {
			l.passthrough = true
			l.ResponseWriter.WriteHeader(l.statusCode)
			l.headerWritten = true
		}
	}

	if l.passthrough {
		return l.ResponseWriter.Write(data)
	}

	if len(l.buffer)+len(data) > maxInjectSize {
		l.passthrough = true
		l.ResponseWriter.Header().Del("Content-Length")
		l.ResponseWriter.WriteHeader(l.statusCode)
		l.headerWritten = true
		if len(l.buffer) > 0 {
			if _, err := l.ResponseWriter.Write(l.buffer); err != nil {
				return 0, err
			}
		}
		return l.ResponseWriter.Write(data)
	}

	l.buffer = append(l.buffer, data...)
	return len(data), nil
}

func (l *injector) finalize() {
	if l.passthrough || len(l.buffer) == 0 {
		if !l.headerWritten {
			l.ResponseWriter.WriteHeader(l.statusCode)
		}
		return
	}

	out := InjectScript(l.buffer)
	l.ResponseWriter.Header().Del("Content-Length")
	l.ResponseWriter.WriteHeader(l.statusCode)
	_, _ = l.ResponseWriter.Write(out)
}
