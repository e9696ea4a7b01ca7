package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/receipt-extract/internal/logging"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	err := os.WriteFile(path, []byte(content), 0600)
	require.NoError(t, err)
}

// NewTestCategoryStore returns a CategoryStore for tests rooted in dir
func NewTestCategoryStore(dir string) *CategoryStore {
	return NewCategoryStore(filepath.Join(dir, "categories.yaml"), logging.NewMockLogger())
}

func TestNewCategoryStore(t *testing.T) {
	store := NewCategoryStore("categories.yaml", nil)
	assert.Equal(t, "categories.yaml", store.CategoriesFile)
	assert.NotNil(t, store.logger)
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "test.yaml")
	writeFile(t, testFile, "test content")

	store := NewCategoryStore("", nil)

	file, err := store.FindConfigFile(testFile)
	assert.NoError(t, err)
	assert.Equal(t, testFile, file)

	_, err = store.FindConfigFile(filepath.Join(dir, "nonexistent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFindConfigFile_SearchesConfigDirectory(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)
	require.NoError(t, os.Mkdir("config", 0750))
	writeFile(t, filepath.Join("config", "categories.yaml"), "categories: []")

	path, err := NewCategoryStore("", nil).FindConfigFile("categories.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("config", "categories.yaml"), path)
}

func TestLoadCategories(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name: "wrapped",
			content: `categories:
  - name: dairy
    keywords: ["Yogurt", " cheese "]
  - name: bakery
    keywords: [croissant]
`,
			want: []string{"dairy", "bakery"},
		},
		{
			name: "bare list",
			content: `- name: frozen
  keywords: [ice]
`,
			want: []string{"frozen"},
		},
		{
			name: "blank names skipped",
			content: `categories:
  - name: ""
    keywords: [x]
  - name: snacks
`,
			want: []string{"snacks"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := NewTestCategoryStore(dir)
			writeFile(t, store.CategoriesFile, tt.content)

			cats, err := store.LoadCategories()
			require.NoError(t, err)
			names := make([]string, len(cats))
			for i, c := range cats {
				names[i] = c.Name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestLoadCategories_KeywordsAreNormalized(t *testing.T) {
	dir := t.TempDir()
	store := NewTestCategoryStore(dir)
	writeFile(t, store.CategoriesFile, "categories:\n  - name: dairy\n    keywords: [\"Yogurt\", \" \", \" Cheese \"]\n")

	cats, err := store.LoadCategories()
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, []string{"yogurt", "cheese"}, cats[0].Keywords)
}

func TestLoadCategories_Missing(t *testing.T) {
	store := NewTestCategoryStore(t.TempDir())
	cats, err := store.LoadCategories()
	assert.NoError(t, err)
	assert.Empty(t, cats)

	mappings, err := store.LoadProductMappings()
	assert.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestLoadCategories_Malformed(t *testing.T) {
	store := NewTestCategoryStore(t.TempDir())
	writeFile(t, store.CategoriesFile, `{malformed: yaml: content}`)

	_, err := store.LoadCategories()
	assert.Error(t, err)
}

func TestLoadAndSaveProductMappings(t *testing.T) {
	store := NewTestCategoryStore(t.TempDir())
	writeFile(t, store.CategoriesFile, `categories:
  - name: dairy
    keywords: [milk]
mappings:
  Widget: household
`)

	mappings, err := store.LoadProductMappings()
	require.NoError(t, err)
	assert.Equal(t, "household", mappings["Widget"])

	mappings["Onigiri"] = "food"
	require.NoError(t, store.SaveProductMappings(mappings))

	reloaded, err := store.LoadProductMappings()
	require.NoError(t, err)
	assert.Equal(t, "food", reloaded["Onigiri"])
	assert.Equal(t, "household", reloaded["Widget"])

	cats, err := store.LoadCategories()
	require.NoError(t, err)
	require.Len(t, cats, 1, "saving mappings keeps the categories")
	assert.Equal(t, "dairy", cats[0].Name)
}

func TestSaveProductMappings_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	store := NewCategoryStore(filepath.Join(dir, "nested", "categories.yaml"), nil)

	require.NoError(t, store.SaveProductMappings(map[string]string{"Snack": "snacks"}))

	mappings, err := store.LoadProductMappings()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Snack": "snacks"}, mappings)

	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestMockCategoryStore(t *testing.T) {
	mock := &MockCategoryStore{ProductMappings: map[string]string{"a": "food"}}

	got, err := mock.LoadProductMappings()
	require.NoError(t, err)
	got["b"] = "snacks"
	assert.Len(t, mock.ProductMappings, 1, "loaded mappings are a copy")

	require.NoError(t, mock.SaveProductMappings(map[string]string{"c": "dairy"}))
	assert.Equal(t, "dairy", mock.ProductMappings["c"])

	mock.LoadCategoriesError = os.ErrPermission
	_, err = mock.LoadCategories()
	assert.ErrorIs(t, err, os.ErrPermission)
}

// chdirForTest changes the working directory for the duration of the test
// and restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("chdir: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("chdir: %v", err)
		}
	})
}
