// Package report records the outcome of a pipeline run as YAML.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/articles"
	"gopkg.in/yaml.v3"
)

// Shard statuses
const (
	StatusOK     = "ok"
	StatusEmpty  = "empty"
	StatusCached = "cached"
	StatusFailed = "failed"
)

// RunConfig is the configuration echoed at the top of a report.
type RunConfig struct {
	InputDir    string `yaml:"inputdir"`
	Glob        string `yaml:"glob"`
	OutputDir   string `yaml:"outputdir"`
	MaxTokenLen int    `yaml:"maxtokenlen"`
	Workers     int    `yaml:"workers"`
	Resume      bool   `yaml:"resume"`
	Timestamp   string `yaml:"timestamp"`
}

// ShardResult is the outcome of both phases for one shard.
type ShardResult struct {
	Name           string         `yaml:"name"`
	RevisionRows   int            `yaml:"revisionrows"`
	RevisionStatus string         `yaml:"revisionstatus"`
	ArticleStatus  string         `yaml:"articlestatus,omitempty"`
	Articles       articles.Stats `yaml:"articles"`
	Error          string         `yaml:"error,omitempty"`
}

// Totals aggregates every shard.
type Totals struct {
	Shards          int            `yaml:"shards"`
	Failed          int            `yaml:"failed"`
	Empty           int            `yaml:"empty"`
	Cached          int            `yaml:"cached"`
	RevisionRows    int            `yaml:"revisionrows"`
	CatalogIDs      int            `yaml:"catalogids"`
	CatalogSHA256   string         `yaml:"catalogsha256,omitempty"`
	Articles        articles.Stats `yaml:"articles"`
	CombinedRows    int            `yaml:"combinedrows"`
	CrossShardDupes int            `yaml:"crosssharddupes"`
	Elapsed         string         `yaml:"elapsed"`
}

// Report is the complete run report.
type Report struct {
	Config RunConfig     `yaml:"config"`
	Totals Totals        `yaml:"totals"`
	Shards []ShardResult `yaml:"shards"`
}

// New starts a report stamped with the current time.
func New(cfg RunConfig) *Report {
	cfg.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	return &Report{Config: cfg}
}

// Aggregate sorts shard results by name and recomputes the per-shard totals.
// Catalog and combine figures are left untouched.
func (r *Report) Aggregate() {
	sort.Slice(r.Shards, func(i, j int) bool {
		return r.Shards[i].Name < r.Shards[j].Name
	})

	r.Totals.Shards = len(r.Shards)
	r.Totals.Failed = 0
	r.Totals.Empty = 0
	r.Totals.Cached = 0
	r.Totals.RevisionRows = 0
	r.Totals.Articles = articles.Stats{}

	for _, s := range r.Shards {
		if s.RevisionStatus == StatusFailed || s.ArticleStatus == StatusFailed {
			r.Totals.Failed++
		}
		if s.ArticleStatus == StatusEmpty {
			r.Totals.Empty++
		}
		if s.ArticleStatus == StatusCached {
			r.Totals.Cached++
		}
		r.Totals.RevisionRows += s.RevisionRows
		r.Totals.Articles.Add(s.Articles)
	}
}

// Save writes the report as YAML to dir/report.yaml and returns the path.
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	path := filepath.Join(dir, "report.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}
	return path, nil
}

// Load reads a previously saved report.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &r, nil
}
