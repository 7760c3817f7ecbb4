package render

import (
	"strings"
	"unicode/utf8"

	// Packages
	gte "github.com/igor-pavlenko/goldmark-telegram/extension"
	relay "github.com/mutablelogic/go-relay"
	goldmark "github.com/yuin/goldmark"
	text "github.com/yuin/goldmark/text"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Renderer converts Markdown into plain text plus style entities for the
// chat surface
type Renderer struct {
	md goldmark.Markdown
}

var _ relay.Renderer = (*Renderer)(nil)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Markers which delimit text to show as an expandable (collapsed) quote,
// for example long tool output
const (
	ExpandableQuoteStart = "\x02EXPQUOTE_START\x02"
	ExpandableQuoteEnd   = "\x02EXPQUOTE_END\x02"
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func New() *Renderer {
	return &Renderer{
		md: goldmark.New(goldmark.WithExtensions(gte.GTE)),
	}
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Render converts Markdown into content. It fails on text which is not
// valid UTF-8, or when nothing could be rendered from non-empty text.
func (r *Renderer) Render(markdown string) (relay.Content, error) {
	if !utf8.ValidString(markdown) {
		return relay.Content{}, relay.ErrBadParameter.With("text is not valid UTF-8")
	}

	b := new(entityBuilder)
	for _, segment := range splitQuotes(markdown) {
		if !segment.quote {
			r.walk(b, segment.text)
			continue
		}
		b.blockSeparator()
		b.wrap(relay.EntityExpandableBlockquote, func() {
			r.walk(b, segment.text)
		})
	}

	result := b.content()
	if result.Text == "" && strings.TrimSpace(StripSentinels(markdown)) != "" {
		return relay.Content{}, relay.ErrBadParameter.With("nothing to render")
	}
	return result, nil
}

// Plain returns the text without any formatting, with expandable quote
// markers removed
func (r *Renderer) Plain(markdown string) relay.Content {
	return relay.Content{
		Text: strings.ToValidUTF8(StripSentinels(markdown), "�"),
	}
}

// StripSentinels removes expandable quote markers from text
func StripSentinels(text string) string {
	return strings.NewReplacer(ExpandableQuoteStart, "", ExpandableQuoteEnd, "").Replace(text)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (r *Renderer) walk(b *entityBuilder, markdown string) {
	source := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(source))
	b.walkNode(doc, source)
}

type segment struct {
	text  string
	quote bool
}

// splitQuotes splits text into segments outside and inside expandable quote
// markers. An unterminated quote runs to the end of the text.
func splitQuotes(markdown string) []segment {
	var result []segment
	for markdown != "" {
		before, rest, found := strings.Cut(markdown, ExpandableQuoteStart)
		if before != "" {
			result = append(result, segment{text: before})
		}
		if !found {
			break
		}
		inside, after, _ := strings.Cut(rest, ExpandableQuoteEnd)
		if strings.TrimSpace(inside) != "" {
			result = append(result, segment{text: inside, quote: true})
		}
		markdown = after
	}
	return result
}
