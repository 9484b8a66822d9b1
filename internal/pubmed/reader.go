package pubmed

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// Reader streams PubmedArticle elements out of a gzip-compressed XML shard in document order.
type Reader struct {
	file    *os.File
	gz      *gzip.Reader
	decoder *xml.Decoder
	count   int
}

// Open opens a gzip-compressed PubMed XML file for streaming.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shard: %w", err)
	}

	gz, err := gzip.NewReader(bufio.NewReaderSize(file, 1<<20))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to decompress shard %s: %w", path, err)
	}

	return &Reader{
		file:    file,
		gz:      gz,
		decoder: NewDecoder(gz),
	}, nil
}

// NewDecoder returns an XML decoder configured for PubMed dumps, which
// declare a DOCTYPE and may contain HTML entities in titles.
func NewDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(r)
	d.Strict = false
	d.Entity = xml.HTMLEntity
	return d
}

// Next returns the next article, or io.EOF once the document is exhausted.
func (r *Reader) Next() (*Article, error) {
	for {
		tok, err := r.decoder.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read XML after %d articles: %w", r.count, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "PubmedArticle" {
			continue
		}

		var article Article
		if err := r.decoder.DecodeElement(&article, &start); err != nil {
			return nil, fmt.Errorf("failed to decode article %d: %w", r.count+1, err)
		}
		r.count++
		return &article, nil
	}
}

// Count reports how many articles have been decoded so far.
func (r *Reader) Count() int {
	return r.count
}

// Close releases the decompressor and the underlying file.
func (r *Reader) Close() error {
	gzErr := r.gz.Close()
	if err := r.file.Close(); err != nil {
		return err
	}
	return gzErr
}

// Walk calls fn for every article in the shard at path, stopping at the first error.
func Walk(path string, fn func(*Article) error) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		article, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(article); err != nil {
			return err
		}
	}
}
