package timeutil

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

var (
	dateTags = []language.Tag{
		language.AmericanEnglish,
		language.BritishEnglish,
		language.German,
		language.French,
		language.Spanish,
		language.Japanese,
		language.Chinese,
	}
	dateLayouts = []string{
		"1/2/2006, 3:04:05 PM",
		"02/01/2006, 15:04:05",
		"2.1.2006, 15:04:05",
		"02/01/2006 15:04:05",
		"2/1/2006, 15:04:05",
		"2006/1/2 15:04:05",
		"2006/1/2 15:04:05",
	}
	dateMatcher = language.NewMatcher(dateTags)
)

// DateFormatter renders post timestamps the way a browser's toLocaleString
// would for the configured locale. Unknown locales fall back to en-US.
type DateFormatter struct {
	tag    language.Tag
	layout string
	loc    *time.Location
	now    func() time.Time
}

func NewDateFormatter(locale string, loc *time.Location) (*DateFormatter, error) {
	if locale == "" {
		locale = "en-US"
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse date locale %q: %w", locale, err)
	}
	_, idx, _ := dateMatcher.Match(tag)
	if loc == nil {
		loc = time.Local
	}
	return &DateFormatter{tag: dateTags[idx], layout: dateLayouts[idx], loc: loc, now: time.Now}, nil
}

func (f *DateFormatter) Tag() language.Tag {
	return f.tag
}

func (f *DateFormatter) Format(t time.Time) string {
	return t.In(f.loc).Format(f.layout)
}

func (f *DateFormatter) Now() string {
	return f.Format(f.now())
}
