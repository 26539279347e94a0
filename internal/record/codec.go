// Package record implements the self-describing document format of the
// vault: an ordered YAML metadata block framed by --- delimiters, followed
// by a free-text Markdown body. The codec is pure; it never touches disk.
package record

import (
	"bytes"
	"strings"
)

const delimiter = "---"

// Record is one stored document.
type Record struct {
	// ID is the stable identifier "{category}/{slug}". Derived once at
	// creation time from the title; never changes on update.
	ID       string
	Category string
	Meta     *Meta
	Body     string
}

// Title returns the display title: the "title" field, falling back to
// "name" (people records), falling back to the slug part of the id.
func (r *Record) Title() string {
	if t := r.Meta.String(KeyTitle); t != "" {
		return t
	}
	if n := r.Meta.String(KeyName); n != "" {
		return n
	}
	if i := strings.LastIndexByte(r.ID, '/'); i >= 0 {
		return r.ID[i+1:]
	}
	return r.ID
}

// Encode serializes a metadata block and body into the on-disk layout:
//
//	---
//	<yaml metadata>
//	---
//	<body, verbatim>
func Encode(meta *Meta, body string) ([]byte, error) {
	y, err := meta.marshalYAML()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(y) + len(body) + 2*len(delimiter) + 2)
	buf.WriteString(delimiter)
	buf.WriteByte('\n')
	buf.Write(y)
	buf.WriteString(delimiter)
	buf.WriteByte('\n')
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// Decode splits raw content into metadata and body. It only ever splits on
// the first two delimiter occurrences, so a body containing the delimiter
// sequence round-trips intact.
//
// A document with no leading delimiter line decodes to empty metadata with
// the full content as body (graceful degradation). The same applies when
// the closing delimiter is missing. An unparseable metadata block is an
// error; callers wrap it with the offending path via apperr.Corrupt.
func Decode(raw []byte) (*Meta, string, error) {
	if !HasFrontmatter(raw) {
		return &Meta{}, string(raw), nil
	}

	rest := raw[len(delimiter):]
	idx := bytes.Index(rest, []byte("\n"+delimiter))
	if idx < 0 {
		return &Meta{}, string(raw), nil
	}

	block := rest[:idx]
	meta, err := parseMeta(block)
	if err != nil {
		return nil, "", err
	}

	// Body starts right after the closing delimiter line.
	j := idx + 1 + len(delimiter)
	if j < len(rest) && rest[j] == '\r' {
		j++
	}
	if j < len(rest) && rest[j] == '\n' {
		j++
	}
	return meta, string(rest[j:]), nil
}

// HasFrontmatter reports whether raw starts with a line that is exactly
// the delimiter. Documents without frontmatter are readable but carry no
// metadata; metadata-only rewrites must leave them alone.
func HasFrontmatter(raw []byte) bool {
	if !bytes.HasPrefix(raw, []byte(delimiter)) {
		return false
	}
	rest := raw[len(delimiter):]
	if len(rest) == 0 {
		return true
	}
	return rest[0] == '\n' || (rest[0] == '\r' && len(rest) > 1 && rest[1] == '\n')
}
