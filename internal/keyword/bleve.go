package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "java" does not match
	// "javanese" through a shared stem.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("filename", textFieldMapping)
	docMapping.AddFieldMappingsAt("job_id", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("application", docMapping)
	im.DefaultType = "application"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates an in-memory
// index, which is rebuilt from storage on every start.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := newMapping()
	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces the document stored under id.
func (b *BleveIndex) Index(ctx context.Context, id string, doc Document) error {
	doc.Filename = filenameTerms(doc.Filename)
	return b.index.Index(id, doc)
}

// filenameTerms splits "jane_doe-cv.pdf" into words; the unicode tokenizer keeps
// "doe.pdf" together otherwise.
func filenameTerms(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '_', '-':
			return ' '
		}
		return r
	}, name)
}

// Search runs a match query over filename and text, restricted to jobID when set.
func (b *BleveIndex) Search(ctx context.Context, jobID, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	if opts == nil {
		opts = &SearchOptions{}
	}

	textQuery := b.matchQuery(query, "text", opts)
	filenameQuery := b.matchQuery(query, "filename", opts)
	if opts.FilenameBoost > 1 {
		filenameQuery.SetBoost(opts.FilenameBoost)
	}
	var q blevequery.Query = bleve.NewDisjunctionQuery(textQuery, filenameQuery)
	if jobID != "" {
		jobQuery := bleve.NewTermQuery(jobID)
		jobQuery.SetField("job_id")
		q = bleve.NewConjunctionQuery(jobQuery, q)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

func (b *BleveIndex) matchQuery(query, field string, opts *SearchOptions) *blevequery.MatchQuery {
	mq := bleve.NewMatchQuery(query)
	mq.SetField(field)
	if opts.RequireAll {
		mq.SetOperator(blevequery.MatchQueryOperatorAnd)
	}
	if opts.Fuzziness > 0 {
		mq.SetFuzziness(min(opts.Fuzziness, 2))
	}
	return mq
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
