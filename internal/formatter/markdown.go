package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	markdown = goldmark.New()

	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	boldStyle    = lipgloss.NewStyle().Bold(true)
	italicStyle  = lipgloss.NewStyle().Italic(true)
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	quoteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// MessageHTML converts a coach reply from Markdown to HTML.
func MessageHTML(message string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(message), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// RenderMessage renders a coach reply written in Markdown as styled terminal text.
//
// Headings, emphasis, code, lists, quotes and links are kept; raw HTML is dropped.
func RenderMessage(message string) string {
	src := []byte(message)
	doc := markdown.Parser().Parse(text.NewReader(src))

	r := termRenderer{src: src}
	var b strings.Builder
	r.blocks(&b, doc, "")
	return strings.TrimRight(b.String(), "\n ")
}

type termRenderer struct {
	src []byte
}

func (r termRenderer) blocks(b *strings.Builder, parent ast.Node, indent string) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		r.block(b, n, indent)
	}
}

func (r termRenderer) block(b *strings.Builder, n ast.Node, indent string) {
	switch n := n.(type) {
	case *ast.Heading:
		writeLines(b, indent, headingStyle.Render(r.inline(n)))
		b.WriteString("\n")
	case *ast.Paragraph:
		writeLines(b, indent, r.inline(n))
		if !tight(n) {
			b.WriteString("\n")
		}
	case *ast.TextBlock:
		writeLines(b, indent, r.inline(n))
	case *ast.List:
		num := n.Start
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "• "
			if n.IsOrdered() {
				marker = fmt.Sprintf("%d. ", num)
				num++
			}
			var inner strings.Builder
			r.blocks(&inner, item, "")
			lines := strings.Split(strings.TrimRight(inner.String(), "\n"), "\n")
			pad := strings.Repeat(" ", len(marker))
			for i, line := range lines {
				if i == 0 {
					b.WriteString(indent + marker + line + "\n")
				} else {
					b.WriteString(indent + pad + line + "\n")
				}
			}
		}
		if n.Parent() != nil && n.Parent().Kind() == ast.KindDocument {
			b.WriteString("\n")
		}
	case *ast.FencedCodeBlock:
		r.code(b, n.Lines(), indent)
	case *ast.CodeBlock:
		r.code(b, n.Lines(), indent)
	case *ast.Blockquote:
		var inner strings.Builder
		r.blocks(&inner, n, "")
		for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
			b.WriteString(indent + quoteStyle.Render("│ "+line) + "\n")
		}
		b.WriteString("\n")
	case *ast.ThematicBreak:
		b.WriteString(indent + quoteStyle.Render(strings.Repeat("─", 24)) + "\n\n")
	case *ast.HTMLBlock:
	default:
		r.blocks(b, n, indent)
	}
}

func (r termRenderer) code(b *strings.Builder, lines *text.Segments, indent string) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(r.src)), "\n")
		b.WriteString(indent + "  " + codeStyle.Render(line) + "\n")
	}
	b.WriteString("\n")
}

func (r termRenderer) inline(parent ast.Node) string {
	var b strings.Builder
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(r.src))
			switch {
			case n.HardLineBreak():
				b.WriteString("\n")
			case n.SoftLineBreak():
				b.WriteString(" ")
			}
		case *ast.String:
			b.Write(n.Value)
		case *ast.CodeSpan:
			b.WriteString(codeStyle.Render(r.inline(n)))
		case *ast.Emphasis:
			if n.Level >= 2 {
				b.WriteString(boldStyle.Render(r.inline(n)))
			} else {
				b.WriteString(italicStyle.Render(r.inline(n)))
			}
		case *ast.Link:
			label := r.inline(n)
			dest := string(n.Destination)
			if label == "" || label == dest {
				b.WriteString(dest)
			} else {
				fmt.Fprintf(&b, "%s (%s)", label, dest)
			}
		case *ast.AutoLink:
			b.Write(n.URL(r.src))
		case *ast.Image:
			b.WriteString("[image: " + r.inline(n) + "]")
		case *ast.RawHTML:
		default:
			b.WriteString(r.inline(n))
		}
	}
	return b.String()
}

// tight reports whether a paragraph sits in a tight list item, where no blank line follows it.
func tight(n ast.Node) bool {
	p := n.Parent()
	if p == nil || p.Kind() != ast.KindListItem {
		return false
	}
	list, ok := p.Parent().(*ast.List)
	return ok && list.IsTight
}

func writeLines(b *strings.Builder, indent, s string) {
	for _, line := range strings.Split(s, "\n") {
		b.WriteString(indent + line + "\n")
	}
}
