package parser

import (
	"slices"
	"strings"

	"golang.org/x/net/html/atom"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/syntax"
	"github.com/walteh/gorazor/pkg/taghelper"
	"github.com/walteh/gorazor/pkg/tokenizer"
)

type markupMode struct {
	// element ends the content at the end tag that closes the named element,
	// whose start tag the caller already parsed.
	element string
	// text marks "<text>" tags as transitions.
	text bool
	// braces ends the content before an unbalanced '}'.
	braces bool
	// line ends the content after the next line break.
	line bool
	// inCode is set for markup embedded in a code block.
	inCode bool
	// base is len(tags) when the markup began.
	base int
}

type markupEnd int

const (
	endEOF markupEnd = iota
	endElement
	endBrace
	endLine
)

func (me *parser) parseMarkup(mode markupMode) markupEnd {
	me.use(markupGrammar)
	depth, braces := 1, 0
	for {
		tok := me.cur()
		switch tok.Kind {
		case tokenizer.EOF:
			return endEOF
		case tokenizer.NewLine:
			me.next()
			if mode.line {
				return endLine
			}
		case tokenizer.Transition:
			me.parseMarkupTransition()
		case tokenizer.RazorCommentTransition:
			me.parseRazorComment()
		case tokenizer.OpenAngle:
			info := me.parseTag(mode)
			if mode.element == "" || info == nil || info.SelfClosing || info.Void || !strings.EqualFold(info.Name, mode.element) {
				break
			}
			if !info.EndTag {
				depth++
				break
			}
			if depth--; depth == 0 {
				return endElement
			}
		case tokenizer.Text:
			if !mode.braces {
				me.next()
				break
			}
			i := closingBrace(tok.Content, &braces)
			if i < 0 {
				me.next()
				break
			}
			if i > 0 {
				me.nextPart(i)
			}
			return endBrace
		default:
			me.next()
		}
	}
}

// closingBrace returns the index of the first '}' in s that closes past
// depth zero, updating depth for the braces before it.
func closingBrace(s string, depth *int) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			*depth++
		case '}':
			if *depth == 0 {
				return i
			}
			*depth--
		}
	}
	return -1
}

// parseMarkupTransition handles an '@' met in markup: an escaped "@@", an
// e-mail address, or the start of code.
func (me *parser) parseMarkupTransition() {
	at := me.cur()
	switch {
	case me.peek(1).Kind == tokenizer.Transition:
		me.flush()
		me.next()
		me.output(syntax.SpanMarkup, nil, syntax.AcceptNone)
		me.next()
	case me.looksLikeEmail(at.Span.AbsoluteIndex):
		me.next()
	default:
		ws := me.takeTrailingWhitespace()
		me.flush()
		me.parseTransition(ws)
		me.use(markupGrammar)
	}
}

func (me *parser) parseRazorComment() {
	me.start(syntax.BlockComment, "", nil)
	me.next()
	me.output(syntax.SpanTransition, nil, syntax.AcceptNone)
	me.next()
	me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)
	if me.is(tokenizer.RazorCommentLiteral) {
		me.next()
		me.output(syntax.SpanComment, nil, syntax.AcceptAny)
	}
	if me.is(tokenizer.RazorCommentStar) {
		me.next()
		me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)
		me.next()
		me.output(syntax.SpanTransition, nil, syntax.AcceptNone)
	}
	me.end()
}

// parseTag parses whatever starts at the current '<'. It returns nil for
// comments, declarations, processing instructions and stray '<'.
func (me *parser) parseTag(mode markupMode) *syntax.TagInfo {
	switch me.peek(1).Kind {
	case tokenizer.Bang:
		switch after := me.peek(2); {
		case after.Kind == tokenizer.DoubleHyphen:
			me.parseHtmlComment()
			return nil
		case after.Kind == tokenizer.LeftBracket, after.Kind == tokenizer.Text && strings.EqualFold(after.Content, "doctype"):
			me.parseDeclaration()
			return nil
		case after.Kind == tokenizer.Text && isTagNameStart(after.Content):
			return me.parseStartTag(mode, false)
		}
	case tokenizer.ForwardSlash:
		name := me.peek(2)
		return me.parseEndTag(mode, mode.text && name.Is(tokenizer.Text, "text"))
	case tokenizer.QuestionMark:
		me.parseProcessingInstruction()
		return nil
	case tokenizer.Text:
		if isTagNameStart(me.peek(1).Content) {
			return me.parseStartTag(mode, mode.text && me.peek(1).Is(tokenizer.Text, "text"))
		}
	}
	me.next()
	return nil
}

func (me *parser) parseHtmlComment() {
	me.start(syntax.BlockHtmlComment, "", nil)
	me.next()
	me.next()
	me.next()
	for {
		switch tok := me.cur(); {
		case tok.Kind == tokenizer.EOF:
			me.end()
			return
		case tok.Kind == tokenizer.DoubleHyphen && me.peek(1).Kind == tokenizer.CloseAngle:
			me.next()
			me.next()
			me.end()
			return
		case tok.Kind == tokenizer.Transition:
			me.parseMarkupTransition()
		case tok.Kind == tokenizer.RazorCommentTransition:
			me.parseRazorComment()
		default:
			me.next()
		}
	}
}

// parseDeclaration reads "<!DOCTYPE ...>" and "<![CDATA[ ... ]]>" as text.
func (me *parser) parseDeclaration() {
	cdata := me.peek(2).Kind == tokenizer.LeftBracket
	content := me.doc.Content()
	for !me.is(tokenizer.EOF) {
		t := me.next()
		if t.Kind == tokenizer.CloseAngle && (!cdata || strings.HasSuffix(content[:t.Span.AbsoluteIndex], "]]")) {
			return
		}
	}
}

func (me *parser) parseProcessingInstruction() {
	me.next()
	me.next()
	for !me.is(tokenizer.EOF) {
		if me.is(tokenizer.QuestionMark) && me.peek(1).Kind == tokenizer.CloseAngle {
			me.next()
			me.next()
			return
		}
		me.next()
	}
}

func (me *parser) outputTagPart(transition bool) {
	if transition {
		me.output(syntax.SpanTransition, nil, syntax.AcceptNone)
		return
	}
	me.output(syntax.SpanMarkup, syntax.MarkupGenerator{}, syntax.AcceptAny)
}

func isAttributeNameToken(t tokenizer.Token) bool {
	switch t.Kind {
	case tokenizer.Whitespace, tokenizer.NewLine, tokenizer.Equals, tokenizer.CloseAngle, tokenizer.ForwardSlash,
		tokenizer.OpenAngle, tokenizer.DoubleQuote, tokenizer.SingleQuote, tokenizer.Transition,
		tokenizer.RazorCommentTransition, tokenizer.EOF:
		return false
	}
	return true
}

func isTagNameStart(s string) bool {
	return s != "" && (s[0] >= 'a' && s[0] <= 'z' || s[0] >= 'A' && s[0] <= 'Z')
}

func isVoidElement(name string) bool {
	switch atom.Lookup([]byte(strings.ToLower(name))) {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img, atom.Input,
		atom.Link, atom.Meta, atom.Param, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}

// parseStartTag parses "<name attributes...>" into a Tag block. With
// transition set the tag is "<text>", which only switches to markup.
func (me *parser) parseStartTag(mode markupMode, transition bool) *syntax.TagInfo {
	optOut := me.peek(1).Kind == tokenizer.Bang
	nameTok := me.peek(1)
	if optOut {
		nameTok = me.peek(2)
	}
	info := &syntax.TagInfo{Name: nameTok.Content, OptOut: optOut, Void: isVoidElement(nameTok.Content)}
	parent := ""
	if len(me.tags) > 0 {
		parent = me.tags[len(me.tags)-1]
	}

	tag := me.start(syntax.BlockTag, info.Name, nil)
	tag.Tag = info
	me.next()
	if optOut {
		me.output(syntax.SpanMarkup, syntax.MarkupGenerator{}, syntax.AcceptAny)
		me.next()
		me.output(syntax.SpanMarkup, nil, syntax.AcceptNone)
	}
	me.next()
	me.outputTagPart(transition)

	var attrs []*syntax.Block
loop:
	for {
		tok := me.cur()
		switch {
		case tok.Kind == tokenizer.EOF || tok.Kind == tokenizer.OpenAngle:
			info.Unfinished = true
			me.errorf(tag, diagnostic.UnfinishedTag, nameTok.Span, info.Name)
			break loop
		case tok.Kind == tokenizer.CloseAngle:
			me.next()
			break loop
		case tok.Kind == tokenizer.ForwardSlash && me.peek(1).Kind == tokenizer.CloseAngle:
			me.next()
			me.next()
			info.SelfClosing = true
			break loop
		case tok.Kind == tokenizer.Whitespace || tok.Kind == tokenizer.NewLine:
			i := 1
			for k := me.peek(i).Kind; k == tokenizer.Whitespace || k == tokenizer.NewLine; k = me.peek(i).Kind {
				i++
			}
			if isAttributeNameToken(me.peek(i)) {
				me.outputTagPart(transition)
				attrs = append(attrs, me.parseAttribute())
				continue
			}
			for range i {
				me.next()
			}
		case tok.Kind == tokenizer.Transition:
			me.outputTagPart(transition)
			me.parseTransition(nil)
			me.use(markupGrammar)
		case isAttributeNameToken(tok):
			me.outputTagPart(transition)
			attrs = append(attrs, me.parseAttribute())
		default:
			me.next()
		}
	}
	me.outputTagPart(transition)
	me.end()

	if transition && len(attrs) > 0 {
		me.errorf(tag, diagnostic.TextTagCannotContainAttributes, nameTok.Span)
	}
	if me.binder != nil && !optOut && !transition {
		me.bindAttributes(tag, attrs, parent)
	}
	if !info.SelfClosing && !info.Void && !info.Unfinished {
		me.tags = append(me.tags, info.Name)
	}
	return info
}

func (me *parser) parseEndTag(mode markupMode, transition bool) *syntax.TagInfo {
	optOut := me.peek(2).Kind == tokenizer.Bang
	i := 2
	if optOut {
		i = 3
	}
	name := ""
	if t := me.peek(i); t.Kind == tokenizer.Text {
		name = t.Content
	}
	info := &syntax.TagInfo{Name: name, EndTag: true, OptOut: optOut}
	tag := me.start(syntax.BlockTag, name, nil)
	tag.Tag = info
	start := me.cur().Span.Location

	me.next()
	me.next()
	if optOut {
		me.outputTagPart(transition)
		me.next()
		me.output(syntax.SpanMarkup, nil, syntax.AcceptNone)
	}
	for !me.is(tokenizer.CloseAngle) && !me.is(tokenizer.OpenAngle) && !me.is(tokenizer.EOF) {
		me.next()
	}
	if me.is(tokenizer.CloseAngle) {
		me.next()
	} else {
		info.Unfinished = true
		me.errorf(tag, diagnostic.UnfinishedTag, position.NewSpan(start, me.at.Index()-start.AbsoluteIndex), "/"+name)
	}
	me.outputTagPart(transition)
	me.end()

	for i := len(me.tags) - 1; i >= mode.base; i-- {
		if strings.EqualFold(me.tags[i], name) {
			me.tags = me.tags[:i]
			return info
		}
	}
	if mode.inCode {
		me.errorf(tag, diagnostic.UnexpectedEndTag, tag.SourceSpan(), name)
	}
	return info
}

// parseAttribute reads one attribute, including the whitespace before it.
func (me *parser) parseAttribute() *syntax.Block {
	attr := me.start(syntax.BlockAttribute, "", nil)
	for me.is(tokenizer.Whitespace) || me.is(tokenizer.NewLine) {
		me.next()
	}
	var name strings.Builder
	for isAttributeNameToken(me.cur()) {
		name.WriteString(me.next().Content)
	}
	attr.Name = name.String()
	info := &syntax.AttributeInfo{Name: attr.Name, Style: syntax.Minimized}
	attr.Attribute = info

	i := 0
	for k := me.peek(i).Kind; k == tokenizer.Whitespace || k == tokenizer.NewLine; k = me.peek(i).Kind {
		i++
	}
	if me.peek(i).Kind != tokenizer.Equals {
		me.output(syntax.SpanMarkup, syntax.MarkupGenerator{}, syntax.AcceptAny)
		me.end()
		return attr
	}
	for range i + 1 {
		me.next()
	}
	for me.is(tokenizer.Whitespace) || me.is(tokenizer.NewLine) {
		me.next()
	}
	info.Style = syntax.NoQuotes
	switch {
	case me.is(tokenizer.DoubleQuote):
		info.Style = syntax.DoubleQuotes
		me.next()
	case me.is(tokenizer.SingleQuote):
		info.Style = syntax.SingleQuotes
		me.next()
	}
	prefix := me.take()

	conditional := me.valueHasTransition(info.Style) && !strings.HasPrefix(strings.ToLower(attr.Name), "data-")
	var edge syntax.Generator = syntax.MarkupGenerator{}
	if conditional {
		edge = nil
		me.add(me.span(prefix, syntax.SpanMarkup, edge, syntax.AcceptAnyExceptNewLine))
		me.parseConditionalValue(info.Style)
	} else {
		me.add(me.span(prefix, syntax.SpanMarkup, edge, syntax.AcceptAny))
		me.parsePlainValue(info.Style)
	}

	var suffix []tokenizer.Token
	if q := quoteKind(info.Style); q != tokenizer.Unknown && me.is(q) {
		me.next()
		suffix = me.pending
		info.Closed = true
		me.output(syntax.SpanMarkup, edge, syntax.AcceptNone)
	}
	if conditional {
		attr.Generator = syntax.AttributeBlockGenerator{
			Name:   attr.Name,
			Prefix: segment(prefix, prefix[0].Span.Location),
			Suffix: segment(suffix, me.at.Location()),
		}
	}
	me.end()
	return attr
}

func quoteKind(style syntax.AttributeStyle) tokenizer.Kind {
	switch style {
	case syntax.DoubleQuotes:
		return tokenizer.DoubleQuote
	case syntax.SingleQuotes:
		return tokenizer.SingleQuote
	}
	return tokenizer.Unknown
}

// valueHasTransition looks ahead in the raw text for an '@' before the value
// ends.
func (me *parser) valueHasTransition(style syntax.AttributeStyle) bool {
	rest := me.at.Rest()
	end := len(rest)
	var i int
	switch style {
	case syntax.DoubleQuotes:
		i = strings.IndexByte(rest, '"')
	case syntax.SingleQuotes:
		i = strings.IndexByte(rest, '\'')
	default:
		i = strings.IndexAny(rest, " \t\f\v\r\n>")
	}
	if i >= 0 {
		end = i
	}
	return strings.Contains(rest[:end], "@")
}

func (me *parser) valueEnds(style syntax.AttributeStyle) bool {
	t := me.cur()
	if t.Kind == tokenizer.EOF {
		return true
	}
	if q := quoteKind(style); q != tokenizer.Unknown {
		return t.Kind == q
	}
	switch t.Kind {
	case tokenizer.Whitespace, tokenizer.NewLine, tokenizer.CloseAngle:
		return true
	case tokenizer.ForwardSlash:
		return me.peek(1).Kind == tokenizer.CloseAngle
	}
	return false
}

// parsePlainValue reads a value that is written out as is, with embedded
// expressions rendered in place.
func (me *parser) parsePlainValue(style syntax.AttributeStyle) {
	for !me.valueEnds(style) {
		switch me.cur().Kind {
		case tokenizer.Transition:
			me.parseMarkupTransition()
		case tokenizer.RazorCommentTransition:
			me.parseRazorComment()
		default:
			me.next()
		}
	}
	me.flush()
}

// parseConditionalValue splits a value into literal and dynamic pieces, each
// carrying the whitespace that precedes it.
func (me *parser) parseConditionalValue(style syntax.AttributeStyle) {
	for !me.valueEnds(style) {
		for me.is(tokenizer.Whitespace) || me.is(tokenizer.NewLine) {
			me.next()
		}
		ws := me.take()
		tok := me.cur()
		switch {
		case me.valueEnds(style):
			me.addLiteral(ws, nil)
		case tok.Kind == tokenizer.Transition && me.peek(1).Kind == tokenizer.Transition:
			me.addLiteral(ws, nil)
			me.next()
			me.output(syntax.SpanMarkup, nil, syntax.AcceptNone)
			me.parseLiteralPiece(nil, style)
		case tok.Kind == tokenizer.Transition && !me.looksLikeEmail(tok.Span.AbsoluteIndex):
			me.start(syntax.BlockMarkup, "", syntax.DynamicAttributeGenerator{
				Prefix:     segment(ws, tok.Span.Location),
				ValueStart: tok.Span.Location,
			})
			if len(ws) > 0 {
				me.add(me.span(ws, syntax.SpanMarkup, nil, syntax.AcceptAny))
			}
			me.parseTransition(nil)
			me.use(markupGrammar)
			me.end()
		default:
			me.parseLiteralPiece(ws, style)
		}
	}
}

func (me *parser) parseLiteralPiece(ws []tokenizer.Token, style syntax.AttributeStyle) {
	me.next()
	for !me.valueEnds(style) && !me.is(tokenizer.Whitespace) && !me.is(tokenizer.NewLine) {
		if t := me.cur(); t.Kind == tokenizer.Transition && !me.looksLikeEmail(t.Span.AbsoluteIndex) {
			break
		}
		me.next()
	}
	me.addLiteral(ws, me.take())
}

// addLiteral adds a literal attribute piece. Whitespace with no value still
// counts, so "a " keeps its trailing space.
func (me *parser) addLiteral(ws, value []tokenizer.Token) {
	tokens := slices.Concat(ws, value)
	if len(tokens) == 0 {
		return
	}
	valueAt := me.at.Location()
	if len(value) > 0 {
		valueAt = value[0].Span.Location
	}
	me.add(me.span(tokens, syntax.SpanMarkup, syntax.LiteralAttributeGenerator{
		Prefix: segment(ws, tokens[0].Span.Location),
		Value:  segment(value, valueAt),
	}, syntax.AcceptAny))
}

// bindAttributes rereads the values of attributes bound to non-string tag
// helper properties as code.
func (me *parser) bindAttributes(tag *syntax.Block, attrs []*syntax.Block, parent string) {
	list := make([]taghelper.Attribute, 0, len(attrs))
	for _, a := range attrs {
		list = append(list, taghelper.Attribute{Name: a.Name, Value: valueText(a)})
	}
	binding := me.binder.Bind(tag.Name, list, parent)
	if binding == nil {
		return
	}
	for i, c := range tag.Children {
		a, ok := c.(*syntax.Block)
		if !ok || a.Attribute == nil || a.Attribute.Style == syntax.Minimized || !boundToCode(binding, a.Name) {
			continue
		}
		tag.Children[i] = me.rebindAttribute(a)
	}
}

func valueText(a *syntax.Block) string {
	var b strings.Builder
	for _, n := range a.AttributeValue() {
		b.WriteString(n.Content())
	}
	return b.String()
}

func boundToCode(binding *taghelper.Binding, name string) bool {
	for _, m := range binding.Bound(name) {
		if m.Indexer && !m.Attribute.IsIndexerStringProperty() {
			return true
		}
		if !m.Indexer && !m.Attribute.IsStringProperty() {
			return true
		}
	}
	return false
}

func (me *parser) rebindAttribute(a *syntax.Block) *syntax.Block {
	info := *a.Attribute
	info.Bound = true
	out := &syntax.Block{
		Type:        syntax.BlockAttribute,
		Name:        a.Name,
		Attribute:   &info,
		Diagnostics: a.Diagnostics,
		Start:       a.Start,
	}
	prefix := a.Children[0]
	out.Children = append(out.Children, prefix)

	start := prefix.Location().AbsoluteIndex + prefix.Length()
	end := start
	if value := a.AttributeValue(); len(value) > 0 {
		last := value[len(value)-1]
		end = last.Location().AbsoluteIndex + last.Length()
	}
	out.Children = append(out.Children, me.codeSpans(start, end)...)
	if a.Attribute.Closed {
		out.Children = append(out.Children, a.Children[len(a.Children)-1])
	}
	return out
}

// codeSpans tokenizes [start, end) as an expression. A leading '@' becomes a
// transition span.
func (me *parser) codeSpans(start, end int) []syntax.Node {
	if start >= end {
		return nil
	}
	var toks []tokenizer.Token
	for t := range tokenizer.All(tokenizer.NewCode(me.doc.CursorAt(start).Bounded(end), me.keywords)) {
		if t.Kind != tokenizer.EOF {
			toks = append(toks, t)
		}
	}
	var out []syntax.Node
	if len(toks) > 1 && toks[0].Kind == tokenizer.Transition {
		out = append(out, me.span(toks[:1], syntax.SpanTransition, nil, syntax.AcceptNone))
		toks = toks[1:]
	}
	if len(toks) > 0 {
		out = append(out, me.span(toks, syntax.SpanCode, syntax.ExpressionGenerator{}, syntax.AcceptAnyExceptNewLine))
	}
	return out
}
