// Package pubmedtest builds small gzip-compressed PubMed shards for tests.
package pubmedtest

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// Article describes one PubmedArticle element. Empty strings omit the
// corresponding element entirely.
type Article struct {
	PMID     string
	DOI      string
	Title    string
	Abstract string

	// RawTitle is written without escaping, for inline markup.
	RawTitle string

	PubYear, PubMonth, PubDay string

	// Revised holds year, month and day of DateRevised; all empty omits the element.
	Revised [3]string
}

// Revised is a convenience for building the Revised field.
func Revised(year, month, day string) [3]string {
	return [3]string{year, month, day}
}

// XML renders a full PubmedArticleSet document.
func XML(articles ...Article) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<!DOCTYPE PubmedArticleSet PUBLIC "-//NLM//DTD PubMedArticle, 1st January 2024//EN" "https://dtd.nlm.nih.gov/ncbi/pubmed/out/pubmed_240101.dtd">` + "\n")
	b.WriteString("<PubmedArticleSet>\n")
	for _, a := range articles {
		writeArticle(&b, a)
	}
	b.WriteString("</PubmedArticleSet>\n")
	return b.Bytes()
}

func writeArticle(b *bytes.Buffer, a Article) {
	b.WriteString("<PubmedArticle>\n<MedlineCitation Status=\"MEDLINE\" Owner=\"NLM\">\n")
	if a.PMID != "" {
		fmt.Fprintf(b, "<PMID Version=\"1\">%s</PMID>\n", html.EscapeString(a.PMID))
	}
	if a.Revised != [3]string{} {
		b.WriteString("<DateRevised>")
		element(b, "Year", a.Revised[0])
		element(b, "Month", a.Revised[1])
		element(b, "Day", a.Revised[2])
		b.WriteString("</DateRevised>\n")
	}
	b.WriteString("<Article PubModel=\"Print\">\n<Journal>\n<JournalIssue CitedMedium=\"Print\">\n")
	if a.PubYear != "" || a.PubMonth != "" || a.PubDay != "" {
		b.WriteString("<PubDate>")
		element(b, "Year", a.PubYear)
		element(b, "Month", a.PubMonth)
		element(b, "Day", a.PubDay)
		b.WriteString("</PubDate>\n")
	}
	b.WriteString("</JournalIssue>\n</Journal>\n")
	switch {
	case a.RawTitle != "":
		fmt.Fprintf(b, "<ArticleTitle>%s</ArticleTitle>\n", a.RawTitle)
	case a.Title != "":
		element(b, "ArticleTitle", a.Title)
	}
	if a.Abstract != "" {
		b.WriteString("<Abstract>")
		element(b, "AbstractText", a.Abstract)
		b.WriteString("</Abstract>\n")
	}
	b.WriteString("</Article>\n</MedlineCitation>\n<PubmedData>\n<ArticleIdList>\n")
	if a.PMID != "" {
		fmt.Fprintf(b, "<ArticleId IdType=\"pubmed\">%s</ArticleId>\n", html.EscapeString(a.PMID))
	}
	if a.DOI != "" {
		fmt.Fprintf(b, "<ArticleId IdType=\"doi\">%s</ArticleId>\n", html.EscapeString(a.DOI))
	}
	b.WriteString("</ArticleIdList>\n</PubmedData>\n</PubmedArticle>\n")
}

func element(b *bytes.Buffer, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "<%s>%s</%s>", name, html.EscapeString(value), name)
}

// WriteShard writes a gzip-compressed shard named name into dir and returns its path.
func WriteShard(t testing.TB, dir, name string, articles ...Article) string {
	t.Helper()
	return WriteRaw(t, dir, name, XML(articles...))
}

// WriteRaw gzip-compresses an arbitrary document into dir/name.
func WriteRaw(t testing.TB, dir, name string, doc []byte) string {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(doc); err != nil {
		t.Fatalf("Failed to compress shard: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Failed to close gzip writer: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write shard: %v", err)
	}
	return path
}
