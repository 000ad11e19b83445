package webhdfs

import (
	"fmt"
	"strings"
)

// urlBuilder composes operation URLs for one configured namenode endpoint.
type urlBuilder struct {
	prefix string // http://host:port/webhdfs/v1
	user   string // user.name parameter, empty to omit
}

func newURLBuilder(host string, port int, user string) *urlBuilder {
	return &urlBuilder{
		prefix: fmt.Sprintf("http://%s:%d/webhdfs/v1", host, port),
		user:   user,
	}
}

// opURL builds the request URL for one operation on a remote path. The path
// is percent-encoded; the options fragment, when present, is appended
// verbatim after the op= parameter.
func (b *urlBuilder) opURL(path, op string, opts queryEncoder) string {
	var sb strings.Builder
	sb.WriteString(b.prefix)
	sb.WriteString(encodePath(path))
	sb.WriteByte('?')
	if b.user != "" {
		sb.WriteString("user.name=")
		sb.WriteString(b.user)
		sb.WriteByte('&')
	}
	sb.WriteString("op=")
	sb.WriteString(op)
	if opts != nil {
		sb.WriteString(opts.query())
	}
	return sb.String()
}

const upperhex = "0123456789ABCDEF"

// encodePath percent-encodes a remote path for use in a request URL. Path
// separators stay intact; every byte outside [A-Za-z0-9._~/-] becomes %XX
// with uppercase hex digits. url.PathEscape is unsuitable here: it passes
// sub-delimiters like '&' and '=' through, which would corrupt the query
// string this path is concatenated with.
func encodePath(path string) string {
	var sb strings.Builder
	sb.Grow(len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if pathSafe(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&0x0f])
	}
	return sb.String()
}

func pathSafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '~', '/':
		return true
	}
	return false
}
