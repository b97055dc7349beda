package wiki

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Section is one headed part of an article.
type Section struct {
	Title   string `json:"title"`
	Level   int    `json:"level"`
	Content string `json:"content"`
}

// Page is a plain-text article.
type Page struct {
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Sections []Section `json:"sections"`
}

var headingPattern = regexp.MustCompile(`(?m)^(={2,6})\s*(.+?)\s*={2,6}\s*$`)

// NewPage splits an extract written with "== Heading ==" markers into
// sections. Text before the first heading is the lead.
func NewPage(title, content string) *Page {
	p := &Page{Title: title, Content: content}

	locs := headingPattern.FindAllStringSubmatchIndex(content, -1)
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		p.Sections = append(p.Sections, Section{
			Title:   content[loc[4]:loc[5]],
			Level:   loc[3] - loc[2],
			Content: strings.TrimSpace(content[loc[1]:end]),
		})
	}
	return p
}

// Section returns the text under the first heading named name, compared
// case-insensitively. Text stops at the next heading of any level.
func (p *Page) Section(name string) (string, bool) {
	for _, s := range p.Sections {
		if strings.EqualFold(s.Title, name) {
			return s.Content, true
		}
	}
	return "", false
}

// FirstParagraph returns the first blank-line separated block of the
// article.
func (p *Page) FirstParagraph() string {
	text := strings.TrimSpace(p.Content)
	if i := strings.Index(text, "\n\n"); i >= 0 {
		text = text[:i]
	}
	if headingPattern.MatchString(text) {
		return ""
	}
	return text
}

// Head returns at most n bytes of the article, cut on a rune boundary.
func (p *Page) Head(n int) string {
	if len(p.Content) <= n {
		return p.Content
	}
	for n > 0 && !utf8.RuneStart(p.Content[n]) {
		n--
	}
	return p.Content[:n]
}
