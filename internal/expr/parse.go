package expr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// SyntaxError is a malformed template. Offset is a byte offset into Template.
type SyntaxError struct {
	Template string
	Offset   int
	Line     int
	Col      int
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template %q:%d:%d: %s", e.Template, e.Line, e.Col, e.Msg)
}

// templateNode is a group body: one or more branches joined by "|" or ";".
//
//nolint:govet // participle grammar tags are not standard struct tags
type templateNode struct {
	Pos   lexer.Position
	First *branchNode   `@@`
	Rest  []*branchTail `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type branchTail struct {
	Pos    lexer.Position
	Op     string      `@( "|" | ";" )`
	Branch *branchNode `@@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type branchNode struct {
	Pos   lexer.Position
	Items []*itemNode `@@+`
}

//nolint:govet // participle grammar tags are not standard struct tags
type itemNode struct {
	Pos      lexer.Position
	Text     []string      `  @( Word | Escaped )+`
	Group    *templateNode `| "(" @@ ")"`
	Optional *templateNode `| "[" @@ "]"`
	List     *nameNode     `| "{" @@ "}"`
	Rule     *nameNode     `| "<" @@ ">"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type nameNode struct {
	Pos   lexer.Position
	Parts []string `@( Word | Escaped )+`
}

var templateLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Escaped", Pattern: `\\.`},
	{Name: "Word", Pattern: `[^\\()\[\]{}<>|;]+`},
	{Name: "Punct", Pattern: `[()\[\]{}<>|;]`},
})

var templateParser = participle.MustBuild[templateNode](
	participle.Lexer(templateLexer),
	participle.Map(unescape, "Escaped"),
)

func unescape(t lexer.Token) (lexer.Token, error) {
	t.Value = t.Value[1:]
	return t, nil
}

var wordChunkRE = regexp.MustCompile(`\s*\S+\s*`)

// Parse parses a sentence template. The template body is an implicit group,
// so "a|b" at the top level is an alternative.
func Parse(template string) (*Sentence, error) {
	exp, err := ParseExpression(template)
	if err != nil {
		return nil, err
	}
	return &Sentence{Exp: exp, Text: template}, nil
}

func ParseExpression(template string) (Expression, error) {
	if strings.TrimSpace(template) == "" {
		return nil, &SyntaxError{Template: template, Line: 1, Col: 1, Msg: "empty template"}
	}

	ast, err := templateParser.ParseString("", template)
	if err != nil {
		return nil, wrapParseError(template, err)
	}

	b := builder{template: template}
	exp, err := b.group(ast)
	if err != nil {
		return nil, err
	}

	// (a) at the root is just a
	if seq, ok := exp.(*Sequence); ok && len(seq.Items) == 1 {
		if inner, ok := seq.Items[0].(*Sequence); ok {
			return inner, nil
		}
	}
	return exp, nil
}

type positioned interface {
	Message() string
	Position() lexer.Position
}

func wrapParseError(template string, err error) error {
	var perr positioned
	if errors.As(err, &perr) {
		pos := perr.Position()
		return &SyntaxError{
			Template: template,
			Offset:   pos.Offset,
			Line:     pos.Line,
			Col:      pos.Column,
			Msg:      perr.Message(),
		}
	}
	return &SyntaxError{Template: template, Line: 1, Col: 1, Msg: err.Error()}
}

type builder struct {
	template string
}

func (b *builder) errorAt(pos lexer.Position, format string, args ...any) error {
	return &SyntaxError{
		Template: b.template,
		Offset:   pos.Offset,
		Line:     pos.Line,
		Col:      pos.Column,
		Msg:      fmt.Sprintf(format, args...),
	}
}

func (b *builder) group(n *templateNode) (Expression, error) {
	first, err := b.branch(n.First)
	if err != nil {
		return nil, err
	}
	if len(n.Rest) == 0 {
		return first, nil
	}

	op := n.Rest[0].Op
	items := []Expression{first}
	for _, tail := range n.Rest {
		if tail.Op != op {
			return nil, b.errorAt(tail.Pos, "cannot mix %q and %q in one group", op, tail.Op)
		}
		item, err := b.branch(tail.Branch)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if op == ";" {
		return &Permutation{Items: items}, nil
	}
	return &Alternative{Items: items}, nil
}

func (b *builder) branch(n *branchNode) (Expression, error) {
	seq := &Sequence{}
	for _, item := range n.Items {
		switch {
		case item.Text != nil:
			for _, chunk := range wordChunks(strings.Join(item.Text, "")) {
				seq.Items = append(seq.Items, chunk)
			}
		case item.Group != nil:
			exp, err := b.group(item.Group)
			if err != nil {
				return nil, err
			}
			seq.Items = append(seq.Items, exp)
		case item.Optional != nil:
			exp, err := b.group(item.Optional)
			if err != nil {
				return nil, err
			}
			seq.Items = append(seq.Items, optional(exp))
		case item.List != nil:
			ref, err := b.listReference(item.List)
			if err != nil {
				return nil, err
			}
			seq.Items = append(seq.Items, ref)
		case item.Rule != nil:
			name := strings.TrimSpace(strings.Join(item.Rule.Parts, ""))
			if name == "" {
				return nil, b.errorAt(item.Rule.Pos, "empty rule name")
			}
			seq.Items = append(seq.Items, &RuleReference{RuleName: name})
		}
	}
	return seq, nil
}

func optional(exp Expression) *Alternative {
	if alt, ok := exp.(*Alternative); ok {
		items := append(append([]Expression{}, alt.Items...), EmptyChunk())
		return &Alternative{Items: items, Optional: true}
	}
	return &Alternative{Items: []Expression{exp, EmptyChunk()}, Optional: true}
}

func (b *builder) listReference(n *nameNode) (*ListReference, error) {
	raw := strings.Join(n.Parts, "")
	listName, slotName, hasSlot := strings.Cut(raw, ":")
	listName = strings.TrimSpace(listName)
	slotName = strings.TrimSpace(slotName)
	if listName == "" {
		return nil, b.errorAt(n.Pos, "empty list name")
	}
	if !hasSlot {
		slotName = listName
	} else if slotName == "" {
		return nil, b.errorAt(n.Pos, "empty slot name for list %q", listName)
	}
	return &ListReference{ListName: listName, SlotName: slotName}, nil
}

// wordChunks splits literal text into one chunk per word, each carrying its
// surrounding whitespace, so matching can stop at any word.
func wordChunks(text string) []*TextChunk {
	words := wordChunkRE.FindAllString(text, -1)
	if len(words) == 0 {
		return []*TextChunk{NewTextChunk(text)}
	}
	chunks := make([]*TextChunk, 0, len(words))
	for _, w := range words {
		chunks = append(chunks, NewTextChunk(w))
	}
	return chunks
}
