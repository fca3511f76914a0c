package web

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const notAvailable = "N/A"

var timestampLayouts = map[language.Base]string{
	mustBase("pt"): "02/01/2006, 15:04:05",
	mustBase("en"): "1/2/2006, 3:04:05 PM",
}

func mustBase(s string) language.Base {
	b, err := language.ParseBase(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Formatter renders hours and timestamps for one locale.
type Formatter struct {
	printer *message.Printer
	layout  string
	loc     *time.Location
}

// NewFormatter falls back to English for unparseable locales.
func NewFormatter(locale string, loc *time.Location) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	if loc == nil {
		loc = time.Local
	}
	base, _ := tag.Base()
	layout, ok := timestampLayouts[base]
	if !ok {
		layout = time.DateTime
	}
	return &Formatter{printer: message.NewPrinter(tag), layout: layout, loc: loc}
}

func (f *Formatter) Hours(h float64) string {
	return f.printer.Sprintf("%.2f", h)
}

func (f *Formatter) Timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return notAvailable
	}
	return t.In(f.loc).Format(f.layout)
}
