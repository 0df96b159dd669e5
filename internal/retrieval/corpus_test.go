package retrieval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenRow(t *testing.T) {
	headers := []string{"model", "region", "units"}

	t.Run("all cells", func(t *testing.T) {
		got := FlattenRow(headers, []string{"SUV-X", "northeast", "120"})
		assert.Equal(t, "model: SUV-X, region: northeast, units: 120", got)
	})

	t.Run("skips empty cells", func(t *testing.T) {
		got := FlattenRow(headers, []string{"SUV-X", "", "120"})
		assert.Equal(t, "model: SUV-X, units: 120", got)
	})

	t.Run("short row", func(t *testing.T) {
		got := FlattenRow(headers, []string{"SUV-X"})
		assert.Equal(t, "model: SUV-X", got)
	})

	t.Run("empty row", func(t *testing.T) {
		assert.Empty(t, FlattenRow(headers, []string{"", "", ""}))
	})
}

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"marketing_campaign.csv", "campaign"},
		{"customer.csv", "segment"},
		{"customer_segments_2024.csv", "segment"},
		{"sales.csv", "sales"},
		{"Sales_Q3.csv", "sales"},
		{"inventory.csv", "general"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categoryFor(tt.file), tt.file)
	}
}

func TestLoadCorpusDir(t *testing.T) {
	dir := t.TempDir()

	writeFile := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	writeFile("sales.csv", "model,units\nSUV-X,120\nSedan-Y,80\n")
	writeFile("customer.csv", "segment,size\nfamilies,5000\n")
	writeFile("notes.txt", "not a csv")
	writeFile("broken.csv", "")

	docs, err := LoadCorpusDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	bySource := map[string]int{}
	for _, d := range docs {
		bySource[d.Source]++
	}
	assert.Equal(t, 2, bySource["sales.csv"])
	assert.Equal(t, 1, bySource["customer.csv"])

	for _, d := range docs {
		if d.Source == "sales.csv" {
			assert.Equal(t, "sales", d.Category)
		}
	}
}

func TestLoadCorpusDirMissing(t *testing.T) {
	_, err := LoadCorpusDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
