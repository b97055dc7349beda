package websearch

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/haunted-dates/internal/cache"
	"github.com/pfrederiksen/haunted-dates/internal/dates"
	"github.com/pfrederiksen/haunted-dates/internal/fetch"
	"github.com/pfrederiksen/haunted-dates/internal/logger"
)

var (
	// sectionWords mark elements whose class or id suggests background text.
	sectionWords = []string{"history", "about", "info", "description", "background"}

	// constructionWords mark paragraphs that talk about a building's origin.
	constructionWords = []string{
		"built", "founded", "established", "constructed",
		"opened", "began", "originated", "started",
	}
)

// fallbackParagraphs is how many leading paragraphs are read when nothing
// more specific was found.
const fallbackParagraphs = 5

// PageDater reads the most likely founding date from a web page.
type PageDater struct {
	fetcher   *fetch.Client
	store     cache.Store
	extractor *dates.Extractor
	cutoff    int
}

// NewPageDater creates a PageDater.
func NewPageDater(fetcher *fetch.Client, store cache.Store, extractor *dates.Extractor) *PageDater {
	return &PageDater{
		fetcher:   fetcher,
		store:     store,
		extractor: extractor,
		cutoff:    dates.DefaultCutoffYear,
	}
}

// Date fetches pageURL and returns its selected date, or nil. Outcomes,
// including failures, are cached per URL; the error is non-nil only when
// ctx is done.
func (p *PageDater) Date(ctx context.Context, pageURL string) (*dates.Date, error) {
	key := cache.Key("web_page", pageURL)
	if d, ok := cache.Load[*dates.Date](p.store, cache.BucketWeb, key); ok {
		return d, nil
	}

	var result *dates.Date
	body, err := p.fetcher.Get(ctx, pageURL, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Debug("Page fetch failed", logger.Fields{
			"url":   pageURL,
			"error": err.Error(),
		})
	} else {
		result = p.dateFromHTML(body)
	}

	cache.Save(p.store, cache.BucketWeb, key, result)
	return result, nil
}

func (p *PageDater) dateFromHTML(body []byte) *dates.Date {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var candidates []dates.Date
	for _, text := range PageTexts(doc) {
		candidates = append(candidates, p.extractor.Candidates(text)...)
	}
	d, ok := p.extractor.Select(candidates, p.cutoff)
	if !ok {
		return nil
	}
	return &d
}

// PageTexts returns the text blocks of doc worth scanning, most specific
// first: elements whose class or id mentions history and the like plus
// paragraphs with construction words; failing that the meta description
// and title; failing that the first few paragraphs.
func PageTexts(doc *goquery.Document) []string {
	var texts []string

	doc.Find("div, p, section, article").Each(func(i int, sel *goquery.Selection) {
		attrs := strings.ToLower(sel.AttrOr("class", "") + " " + sel.AttrOr("id", ""))
		if containsAny(attrs, sectionWords) {
			texts = appendText(texts, sel.Text())
		}
	})
	doc.Find("p").Each(func(i int, sel *goquery.Selection) {
		text := sel.Text()
		if containsAny(strings.ToLower(text), constructionWords) {
			texts = appendText(texts, text)
		}
	})
	if len(texts) > 0 {
		return texts
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		texts = appendText(texts, desc)
	}
	texts = appendText(texts, doc.Find("title").First().Text())
	if len(texts) > 0 {
		return texts
	}

	doc.Find("p").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		texts = appendText(texts, sel.Text())
		return i+1 < fallbackParagraphs
	})
	return texts
}

func appendText(texts []string, text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return texts
	}
	return append(texts, text)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
