package corpuscmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/articles"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/batch"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/pipeline"
	pt "github.com/lehigh-university-libraries/pubmedcorpus/internal/pubmed/pubmedtest"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/revisions"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PUBMEDCORPUS_MAX_TOKEN_LEN",
		"PUBMEDCORPUS_WORKERS",
		"PUBMEDCORPUS_INPUT_DIR",
		"PUBMEDCORPUS_OUTPUT_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestBuildConfig(t *testing.T) {
	clearEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "pubmedcorpus.yaml")
	data := "tokens:\n  max_len: 25\ninput:\n  dir: /from/file\nworkers: 3\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	t.Setenv("PUBMEDCORPUS_WORKERS", "5")

	tests := []struct {
		name        string
		flags       runFlags
		changed     []string
		wantDir     string
		wantWorkers int
		wantMaxLen  int
	}{
		{
			name:        "file and env",
			flags:       runFlags{configPath: path, input: "/ignored"},
			wantDir:     "/from/file",
			wantWorkers: 5,
			wantMaxLen:  25,
		},
		{
			name:        "flags override",
			flags:       runFlags{configPath: path, input: "/from/flag", workers: 7, maxTokenLen: 12},
			changed:     []string{"input", "workers", "max-token-len"},
			wantDir:     "/from/flag",
			wantWorkers: 7,
			wantMaxLen:  12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := func(name string) bool {
				for _, c := range tt.changed {
					if c == name {
						return true
					}
				}
				return false
			}

			cfg, err := buildConfig(tt.flags, changed)
			if err != nil {
				t.Fatalf("buildConfig failed: %v", err)
			}
			if cfg.Input.Dir != tt.wantDir {
				t.Errorf("Expected input dir %s, got %s", tt.wantDir, cfg.Input.Dir)
			}
			if cfg.Workers != tt.wantWorkers {
				t.Errorf("Expected workers %d, got %d", tt.wantWorkers, cfg.Workers)
			}
			if cfg.Tokens.MaxLen != tt.wantMaxLen {
				t.Errorf("Expected max_len %d, got %d", tt.wantMaxLen, cfg.Tokens.MaxLen)
			}
		})
	}
}

func TestBuildConfigRejectsInvalid(t *testing.T) {
	clearEnv(t)

	changed := func(name string) bool { return name == "workers" }
	if _, err := buildConfig(runFlags{workers: -1}, changed); err == nil {
		t.Error("Expected error for negative workers")
	}
}

func writeCorpus(t *testing.T, dir string) {
	t.Helper()
	pt.WriteShard(t, dir, "pubmed24n0001.xml.gz",
		pt.Article{PMID: "1", DOI: "10.1000/ABC", Title: "Protein folding dynamics", Abstract: "We study snake_case folding.", PubYear: "2020", Revised: pt.Revised("2020", "01", "01")},
		pt.Article{PMID: "2", Title: "Gene expression atlas", Abstract: "An atlas of expression.", PubYear: "2019", PubMonth: "Jul", Revised: pt.Revised("2019", "07", "07")},
	)
	pt.WriteShard(t, dir, "pubmed24n0002.xml.gz",
		pt.Article{PMID: "1", DOI: "10.1000/ABC", Title: "Protein folding dynamics revisited", Abstract: "Updated abstract.", PubYear: "2020", Revised: pt.Revised("2022", "03", "01")},
	)
}

func TestRunExportSearch(t *testing.T) {
	clearEnv(t)

	input := t.TempDir()
	output := t.TempDir()
	writeCorpus(t, input)

	var out bytes.Buffer
	run := NewRunCmd()
	run.SetOut(&out)
	run.SetArgs([]string{"--input", input, "--output", output, "--workers", "2"})
	if err := run.Execute(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), "Combined Rows:      2") {
		t.Errorf("Expected summary with 2 combined rows, got:\n%s", out.String())
	}

	dbPath := filepath.Join(t.TempDir(), "corpus.db")
	exp := NewExportCmd()
	exp.SetArgs([]string{"--articles", filepath.Join(output, "articles.parquet"), "--db", dbPath})
	if err := exp.Execute(); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	out.Reset()
	search := NewSearchCmd()
	search.SetOut(&out)
	search.SetArgs([]string{"--db", dbPath, "revisited"})
	if err := search.Execute(); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out.String(), "Protein folding dynamics revisited") {
		t.Errorf("Expected latest revision in search results, got:\n%s", out.String())
	}

	out.Reset()
	search = NewSearchCmd()
	search.SetOut(&out)
	search.SetArgs([]string{"--db", dbPath, "--doi", "10.1000/ABC"})
	if err := search.Execute(); err != nil {
		t.Fatalf("doi search failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "1\t2020-01-01\t10.1000/abc") {
		t.Errorf("Expected DOI match for article 1, got:\n%s", out.String())
	}
}

func TestShardCommands(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writeCorpus(t, input)

	var revBatches []string
	for _, shard := range []string{"pubmed24n0001", "pubmed24n0002"} {
		out := filepath.Join(output, "revisions", shard+".parquet")
		cmd := NewRevisionsCmd()
		cmd.SetArgs([]string{"--input", filepath.Join(input, shard+".xml.gz"), "--output", out})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("revisions failed for %s: %v", shard, err)
		}
		revBatches = append(revBatches, out)
	}

	catalog := filepath.Join(output, "revisions.parquet")
	combine := NewCombineCmd()
	combine.SetArgs(append([]string{"revisions", "--output", catalog}, revBatches...))
	if err := combine.Execute(); err != nil {
		t.Fatalf("combine revisions failed: %v", err)
	}

	rows, err := batch.Read[revisions.Row](catalog)
	if err != nil {
		t.Fatalf("Failed to read catalog: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("Expected 3 catalog rows, got %d", len(rows))
	}

	articleOut := filepath.Join(output, "articles", "pubmed24n0001.parquet")
	cmd := NewArticlesCmd()
	cmd.SetArgs([]string{
		"--input", filepath.Join(input, "pubmed24n0001.xml.gz"),
		"--revisions", catalog,
		"--output", articleOut,
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("articles failed: %v", err)
	}

	if _, ok, err := batch.Lookup(articleOut, pipeline.CatalogKey); err != nil || !ok {
		t.Errorf("Expected catalog fingerprint in article batch, got ok=%v err=%v", ok, err)
	}

	kept, err := batch.Read[articles.Row](articleOut)
	if err != nil {
		t.Fatalf("Failed to read articles: %v", err)
	}
	// article 1 was revised in the second shard
	if len(kept) != 1 || kept[0].ID != 2 {
		t.Errorf("Expected only article 2 from the first shard, got %+v", kept)
	}
	if kept[0].Date != "2019-07-01" {
		t.Errorf("Expected date 2019-07-01, got %s", kept[0].Date)
	}
}

func TestArticlesCmdRejectsTokenLen(t *testing.T) {
	input := t.TempDir()
	output := filepath.Join(t.TempDir(), "out.parquet")
	writeCorpus(t, input)

	for _, n := range []string{"0", "-3"} {
		cmd := NewArticlesCmd()
		cmd.SetArgs([]string{
			"--input", filepath.Join(input, "pubmed24n0001.xml.gz"),
			"--revisions", filepath.Join(input, "unused.parquet"),
			"--output", output,
			"--max-token-len", n,
		})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "--max-token-len must be positive") {
			t.Errorf("--max-token-len %s: expected rejection, got %v", n, err)
		}
	}
	if batch.Exists(output) {
		t.Error("Expected no batch written for an invalid token length")
	}
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.parquet")
	rows := []articles.Row{
		{ID: 1, Title: "First", Abstract: strings.Repeat("x", previewChars+5)},
		{ID: 2, Title: "Second", Abstract: "short"},
	}
	if err := batch.Write(path, rows); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var out bytes.Buffer
	if err := executeInspect(context.Background(), &out, path, KindArticles, 1); err != nil {
		t.Fatalf("executeInspect failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Loaded 2 rows") {
		t.Errorf("Expected row count header, got:\n%s", got)
	}
	if strings.Contains(got, "Second") {
		t.Errorf("Expected limit to stop after one row, got:\n%s", got)
	}
	if !strings.Contains(got, "[... 5 more characters]") {
		t.Errorf("Expected truncated abstract, got:\n%s", got)
	}

	if err := executeInspect(context.Background(), &out, path, "bogus", 1); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestInspectInterrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revisions.parquet")
	if err := batch.Write(path, []revisions.Row{{ID: 1, File: "a.xml.gz", Date: "2020-01-01"}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := executeInspect(ctx, &out, path, KindRevisions, 0); err != nil {
		t.Fatalf("Expected clean exit on cancellation, got %v", err)
	}
	if !strings.Contains(out.String(), "Inspection interrupted.") {
		t.Errorf("Expected interruption message, got:\n%s", out.String())
	}
}
