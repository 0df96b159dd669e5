package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"campaignforge/internal/datasource"
)

// categoryFor maps a corpus file name to its document category. Files that
// match none of the known patterns are indexed under "general".
func categoryFor(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "campaign"):
		return "campaign"
	case strings.Contains(lower, "customer"), strings.Contains(lower, "segment"):
		return "segment"
	case strings.Contains(lower, "sales"):
		return "sales"
	default:
		return "general"
	}
}

// FlattenRow renders one CSV row as "header: value" pairs joined by commas,
// skipping empty cells. This is the text that gets embedded.
func FlattenRow(headers, row []string) string {
	var parts []string
	for i, h := range headers {
		if i >= len(row) {
			break
		}
		val := strings.TrimSpace(row[i])
		if val == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", h, val))
	}
	return strings.Join(parts, ", ")
}

// DocsFromCSV converts every row of a parsed CSV into Documents attributed
// to the given source name. Empty rows are skipped.
func DocsFromCSV(source string, result *datasource.CSVResult) []Document {
	category := categoryFor(source)
	var docs []Document
	for i, row := range result.Rows {
		content := FlattenRow(result.Headers, row)
		if content == "" {
			continue
		}
		docs = append(docs, Document{
			Content:  content,
			Source:   source,
			Row:      i,
			Category: category,
		})
	}
	return docs
}

// LoadCorpusDir reads every CSV under dir and converts each row into a
// Document. Files that fail to parse are logged and skipped so a single bad
// file does not block indexing.
func LoadCorpusDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		result, err := datasource.ReadCSVFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable corpus file")
			continue
		}
		docs = append(docs, DocsFromCSV(entry.Name(), result)...)
	}
	return docs, nil
}

// LoadCorpusGCS reads every CSV under the prefix in the bucket and converts
// rows to Documents, for deployments whose reference data lives in Cloud
// Storage. Document sources keep the object name, so local and GCS indexing
// of the same files stays idempotent.
func LoadCorpusGCS(ctx context.Context, reader *datasource.GCSReader, prefix string) ([]Document, error) {
	names, err := reader.ListCSVObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var docs []Document
	for _, name := range names {
		result, err := reader.ReadCSV(ctx, name)
		if err != nil {
			log.Warn().Err(err).Str("object", name).Msg("skipping unreadable corpus object")
			continue
		}
		docs = append(docs, DocsFromCSV(filepath.Base(name), result)...)
	}
	return docs, nil
}

// BuildIndex loads the corpus directory and adds everything to the index.
// Safe to call repeatedly; already-indexed rows are skipped.
func BuildIndex(ctx context.Context, ix *SQLiteIndex, dir string) (int, error) {
	docs, err := LoadCorpusDir(dir)
	if err != nil {
		return 0, err
	}
	added, err := ix.Add(ctx, docs)
	if err != nil {
		return 0, err
	}
	log.Info().Int("added", added).Int("total_rows", len(docs)).Str("dir", dir).Msg("corpus indexed")
	return added, nil
}
