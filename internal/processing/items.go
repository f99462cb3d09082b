package processing

import (
	"errors"
	"strings"

	"github.com/DeafMist/vizdesk/internal/models"
)

// ErrEmptyItem rejects items with neither a title nor any text.
var ErrEmptyItem = errors.New("empty item")

// previewWords bounds previews derived from full content.
const previewWords = 40

// Options drive item normalisation.
type Options struct {
	KeywordLimit     int
	KeywordMinLength int
	TitleWords       int
}

// NormalizeNews trims an article and derives the fields a feed may leave
// out: title, preview, tags, external link, read time and id.
func NormalizeNews(a models.NewsArticle, opts Options) (models.NewsArticle, error) {
	trimBase(&a.Base)
	a.Source = strings.TrimSpace(a.Source)
	a.Author = strings.TrimSpace(a.Author)
	a.Date = strings.TrimSpace(a.Date)
	a.FullContent = strings.TrimSpace(a.FullContent)

	text := a.FullContent
	if text == "" {
		text = a.Preview
	}
	plain := StripMarkup(text)
	if a.Title == "" && plain == "" {
		return a, ErrEmptyItem
	}

	if a.Title == "" {
		a.Title = GenerateTitleFromText(plain, opts.TitleWords)
	}
	if a.Preview == "" {
		a.Preview = TruncateWords(StripMarkup(a.FullContent), previewWords)
	}
	if len(a.Tags) == 0 {
		a.Tags = ExtractKeywords(a.Title+" "+plain, opts.KeywordLimit, opts.KeywordMinLength)
	}
	if a.ExternalLink == "" {
		if urls := ExtractURLs(text); len(urls) > 0 {
			a.ExternalLink = urls[0]
		}
	}
	if a.ReadTime == "" {
		a.ReadTime = ReadTime(plain)
	}
	if a.ID == "" {
		a.ID = models.ID(BuildItemID(string(models.KindNews), a.Title, plain))
	}
	return a, nil
}

// NormalizeVisualization trims a visualization and derives title, tags
// and id when they are missing.
func NormalizeVisualization(v models.Visualization, opts Options) (models.Visualization, error) {
	trimBase(&v.Base)
	v.Summary = strings.TrimSpace(v.Summary)
	v.ImageURL = strings.TrimSpace(v.ImageURL)
	v.Thumb400 = strings.TrimSpace(v.Thumb400)
	v.DataSource = strings.TrimSpace(v.DataSource)

	text := StripMarkup(strings.TrimSpace(v.Preview + " " + v.Summary))
	if v.Title == "" && text == "" {
		return v, ErrEmptyItem
	}

	if v.Title == "" {
		v.Title = GenerateTitleFromText(text, opts.TitleWords)
	}
	if len(v.Tags) == 0 {
		v.Tags = ExtractKeywords(v.Title+" "+text, opts.KeywordLimit, opts.KeywordMinLength)
	}
	if v.ID == "" {
		v.ID = models.ID(BuildItemID(string(models.KindVisualization), v.Title, text+v.ImageURL))
	}
	return v, nil
}

func trimBase(b *models.Base) {
	b.ID = models.ParseID(string(b.ID))
	b.Title = strings.TrimSpace(b.Title)
	b.Preview = strings.TrimSpace(b.Preview)
	b.Category = strings.TrimSpace(b.Category)
	b.ExternalLink = strings.TrimSpace(b.ExternalLink)

	tags := make([]string, 0, len(b.Tags))
	for _, t := range b.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	b.Tags = tags
}
