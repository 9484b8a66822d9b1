package pubmed

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// Article represents a single PubmedArticle element from a baseline or update file.
// Only the fields needed for revision resolution and text extraction are mapped.
type Article struct {
	XMLName     xml.Name    `xml:"PubmedArticle"`
	Title       *Text       `xml:"MedlineCitation>Article>ArticleTitle"`
	Abstract    []Text      `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	PubDate     *DateFields `xml:"MedlineCitation>Article>Journal>JournalIssue>PubDate"`
	DateRevised *DateFields `xml:"MedlineCitation>DateRevised"`
	ArticleIDs  []ArticleID `xml:"PubmedData>ArticleIdList>ArticleId"`
}

// ArticleID is an identifier distinguished by its IdType attribute (pubmed, doi, pmc, pii, ...)
type ArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// DateFields holds the raw year/month/day components of a PubDate or DateRevised element.
// Nil pointers mean the element was absent.
type DateFields struct {
	Year  *string `xml:"Year"`
	Month *string `xml:"Month"`
	Day   *string `xml:"Day"`
}

// Text collects all character data of an element, including text nested
// inside inline markup such as <i>, <sup> or <sub>.
type Text string

// UnmarshalXML implements xml.Unmarshaler.
func (t *Text) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tk := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(tk)
		}
	}
	*t = Text(b.String())
	return nil
}

// TitleText returns the article title with newlines flattened, or "" when missing.
func (a *Article) TitleText() string {
	if a.Title == nil {
		return ""
	}
	return flatten(string(*a.Title))
}

// AbstractText returns the first AbstractText section, or "" when missing.
func (a *Article) AbstractText() string {
	if len(a.Abstract) == 0 {
		return ""
	}
	return flatten(string(a.Abstract[0]))
}

func flatten(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// ID returns the raw text of the first identifier with the given IdType.
func (a *Article) ID(idType string) (string, bool) {
	for _, id := range a.ArticleIDs {
		if id.IDType == idType {
			return strings.TrimSpace(id.Value), true
		}
	}
	return "", false
}

// PMID returns the numeric PubMed identifier. Articles whose pubmed id is
// missing or malformed (e.g. "17181r22") report false.
func (a *Article) PMID() (int64, bool) {
	raw, ok := a.ID("pubmed")
	if !ok || !isDigits(raw) {
		return 0, false
	}
	pmid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || pmid <= 0 {
		return 0, false
	}
	return pmid, true
}

// DOI returns the lower-cased DOI, or "" if the article has none.
func (a *Article) DOI() string {
	doi, _ := a.ID("doi")
	return strings.ToLower(doi)
}

// RevisionDate parses the DateRevised section. The boolean is false when the
// article has no DateRevised element; a present but unparseable date is an error.
func (a *Article) RevisionDate() (string, bool, error) {
	if a.DateRevised == nil {
		return "", false, nil
	}
	f := a.DateRevised
	date, err := ParseDate(deref(f.Year), deref(f.Month), deref(f.Day))
	if err != nil {
		return "", true, err
	}
	return date, true, nil
}

// PublicationDate returns the best-effort ISO date of the journal issue.
// Year is mandatory; month and day default to "01". Any failure yields "".
func (a *Article) PublicationDate() string {
	f := a.PubDate
	if f == nil || f.Year == nil {
		return ""
	}
	month := "01"
	if f.Month != nil {
		month = *f.Month
	}
	day := "01"
	if f.Day != nil {
		day = *f.Day
	}
	date, err := ParseDate(*f.Year, month, day)
	if err != nil {
		return ""
	}
	return date
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
