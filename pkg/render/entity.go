package render

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	// Packages
	gteast "github.com/igor-pavlenko/goldmark-telegram/extension/ast"
	relay "github.com/mutablelogic/go-relay"
	ast "github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	text "github.com/yuin/goldmark/text"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// entityBuilder walks a goldmark AST and accumulates plain text plus
// entities. Offsets are counted in UTF-16 code units.
type entityBuilder struct {
	text     strings.Builder
	entities []relay.Entity
	offset   int
	ordinal  int // next number in an ordered list, zero in a bullet list
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// content returns the accumulated text without trailing newlines. Entities
// are clipped to the returned text and ordered by offset, outermost first.
func (b *entityBuilder) content() relay.Content {
	result := strings.TrimRight(b.text.String(), "\n")
	size := utf16Len(result)

	var entities []relay.Entity
	for _, e := range b.entities {
		if e.Offset >= size {
			continue
		}
		if e.Offset+e.Length > size {
			e.Length = size - e.Offset
		}
		entities = append(entities, e)
	}
	slices.SortStableFunc(entities, func(a, b relay.Entity) int {
		if c := cmp.Compare(a.Offset, b.Offset); c != 0 {
			return c
		}
		return cmp.Compare(b.Length, a.Length)
	})
	return relay.Content{Text: result, Entities: entities}
}

func (b *entityBuilder) write(s string) {
	b.text.WriteString(s)
	b.offset += utf16Len(s)
}

// wrap records an entity of the given type over whatever fn writes
func (b *entityBuilder) wrap(typ string, fn func()) *relay.Entity {
	start := b.offset
	fn()
	if length := b.offset - start; length > 0 {
		b.entities = append(b.entities, relay.Entity{Type: typ, Offset: start, Length: length})
		return &b.entities[len(b.entities)-1]
	}
	return nil
}

func (b *entityBuilder) endsWith(suffix string) bool {
	return strings.HasSuffix(b.text.String(), suffix)
}

// newline ends the current line unless already at the start of one
func (b *entityBuilder) newline() {
	if b.text.Len() > 0 && !b.endsWith("\n") {
		b.write("\n")
	}
}

// blockSeparator leaves a blank line between blocks
func (b *entityBuilder) blockSeparator() {
	switch {
	case b.text.Len() == 0, b.endsWith("\n\n"):
		return
	case b.endsWith("\n"):
		b.write("\n")
	default:
		b.write("\n\n")
	}
}

// trimNewline removes one trailing newline written inside a code block
func (b *entityBuilder) trimNewline() {
	if s := b.text.String(); strings.HasSuffix(s, "\n") {
		b.text.Reset()
		b.text.WriteString(s[:len(s)-1])
		b.offset--
	}
}

func (b *entityBuilder) code(lines *text.Segments, source []byte, language string) {
	b.blockSeparator()
	if e := b.wrap(relay.EntityCodeBlock, func() {
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			b.write(string(segment.Value(source)))
		}
		b.trimNewline()
	}); e != nil {
		e.Language = language
	}
}

func (b *entityBuilder) walkChildren(node ast.Node, source []byte) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		b.walkNode(child, source)
	}
}

func (b *entityBuilder) walkNode(node ast.Node, source []byte) {
	children := func() { b.walkChildren(node, source) }

	switch n := node.(type) {
	case *ast.Document, *ast.TextBlock:
		children()
	case *ast.Paragraph:
		b.blockSeparator()
		children()
	case *ast.Heading:
		b.blockSeparator()
		b.wrap(relay.EntityBold, children)
	case *ast.Blockquote:
		b.blockSeparator()
		b.wrap(relay.EntityBlockquote, children)
	case *ast.List:
		b.newline()
		saved := b.ordinal
		b.ordinal = 0
		if n.IsOrdered() {
			b.ordinal = max(n.Start, 1)
		}
		children()
		b.ordinal = saved
	case *ast.ListItem:
		b.newline()
		if b.ordinal > 0 {
			b.write(strconv.Itoa(b.ordinal) + ". ")
			b.ordinal++
		} else {
			b.write("• ")
		}
		children()
	case *ast.FencedCodeBlock:
		b.code(n.Lines(), source, string(n.Language(source)))
	case *ast.CodeBlock:
		b.code(n.Lines(), source, "")
	case *ast.HTMLBlock:
		b.blockSeparator()
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			b.write(string(segment.Value(source)))
		}
	case *ast.ThematicBreak:
		b.blockSeparator()
		b.write("———")
	case *ast.Emphasis:
		typ := relay.EntityItalic
		if n.Level == 2 {
			typ = relay.EntityBold
		}
		b.wrap(typ, children)
	case *ast.CodeSpan:
		b.wrap(relay.EntityCode, func() {
			for child := n.FirstChild(); child != nil; child = child.NextSibling() {
				if t, ok := child.(*ast.Text); ok {
					b.write(string(t.Segment.Value(source)))
				}
			}
		})
	case *ast.Link:
		if e := b.wrap(relay.EntityTextLink, children); e != nil {
			e.URL = string(n.Destination)
		}
	case *ast.Image:
		if e := b.wrap(relay.EntityTextLink, children); e != nil {
			e.URL = string(n.Destination)
		}
	case *ast.AutoLink:
		b.write(string(n.URL(source)))
	case *ast.Text:
		b.write(string(n.Segment.Value(source)))
		if n.HardLineBreak() || n.SoftLineBreak() {
			b.write("\n")
		}
	case *ast.String:
		b.write(string(n.Value))
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			segment := n.Segments.At(i)
			b.write(string(segment.Value(source)))
		}
	default:
		switch node.Kind() {
		case east.KindStrikethrough:
			b.wrap(relay.EntityStrikethrough, children)
		case gteast.KindUnderline:
			b.wrap(relay.EntityUnderline, children)
		default:
			children()
		}
	}
}

// utf16Len returns the length of s in UTF-16 code units
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
