package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string, mtime time.Time) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(p, mtime, mtime))
	return p
}

func names(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestReadDirectory(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	writeFile(t, dir, "a.xml", "<a/>", base)
	writeFile(t, dir, "b.txt", "b", base.Add(time.Minute))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.xml"), 0o755))

	t.Run("RegularFilesOnly", func(t *testing.T) {
		records, err := ReadDirectory(dir)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a.xml", "b.txt"}, names(records))

		for _, r := range records {
			assert.True(t, r.IsFile)
			assert.Equal(t, filepath.Join(dir, r.Name), r.Path)
		}
	})

	t.Run("Timestamps", func(t *testing.T) {
		records, err := ReadDirectory(dir)
		require.NoError(t, err)
		for _, r := range records {
			if r.Name == "a.xml" {
				assert.Equal(t, base.UnixMilli(), r.LastModified)
				assert.NotZero(t, r.Created)
			}
		}
	})

	t.Run("FollowsSymlinks", func(t *testing.T) {
		linkDir := t.TempDir()
		target := writeFile(t, dir, "target.json", "{}", base)
		require.NoError(t, os.Symlink(target, filepath.Join(linkDir, "link.json")))
		require.NoError(t, os.Symlink(filepath.Join(dir, "sub.xml"), filepath.Join(linkDir, "dirlink")))

		records, err := ReadDirectory(linkDir)
		require.NoError(t, err)
		assert.Equal(t, []string{"link.json"}, names(records))
	})

	t.Run("SkipsDanglingEntries", func(t *testing.T) {
		linkDir := t.TempDir()
		require.NoError(t, os.Symlink(filepath.Join(linkDir, "missing"), filepath.Join(linkDir, "gone.xml")))

		records, err := ReadDirectory(linkDir)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		_, err := ReadDirectory(filepath.Join(dir, "nope"))
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrDirectoryUnreadable))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("EmptyDirectory", func(t *testing.T) {
		records, err := ReadDirectory(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestResolveDirectory(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name       string
		remotePath string
		want       string
		wantErr    bool
	}{
		{name: "Empty", remotePath: "", want: root},
		{name: "Slash", remotePath: "/", want: root},
		{name: "Nested", remotePath: "/in/orders", want: filepath.Join(root, "in", "orders")},
		{name: "Backslashes", remotePath: `in\orders`, want: filepath.Join(root, "in", "orders")},
		{name: "DoubleSlash", remotePath: "in//orders/", want: filepath.Join(root, "in", "orders")},
		{name: "ParentEscape", remotePath: "../etc", wantErr: true},
		{name: "InnerParent", remotePath: "in/../../etc", wantErr: true},
		{name: "NulByte", remotePath: "in\x00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDirectory(root, tt.remotePath)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsCode(err, ErrDirectoryUnreadable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"order.XML":      "xml",
		"archive.tar.gz": "gz",
		".env":           "",
		"README":         "",
		"file.":          "",
		"a.b":            "b",
	}
	for name, want := range tests {
		assert.Equal(t, want, Extension(name), name)
	}
}

func TestCriteriaApply(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []Record{
		{Name: "Order1.XML", LastModified: base.UnixMilli()},
		{Name: "order2.json", LastModified: base.Add(time.Hour).UnixMilli()},
		{Name: "invoice.js", LastModified: base.Add(2 * time.Hour).UnixMilli()},
		{Name: "README", LastModified: base.Add(3 * time.Hour).UnixMilli()},
		{Name: ".env", LastModified: base.Add(4 * time.Hour).UnixMilli()},
	}

	t.Run("ZeroValueKeepsAll", func(t *testing.T) {
		assert.Len(t, Criteria{}.Apply(records), len(records))
	})

	t.Run("ExtensionIsSubstringMatch", func(t *testing.T) {
		got := Criteria{Extensions: "xml,JSON"}.Apply(records)
		// "js" is a substring of "json"
		assert.Equal(t, []string{"Order1.XML", "order2.json", "invoice.js"}, names(got))
	})

	t.Run("ExtensionDropsExtensionless", func(t *testing.T) {
		got := Criteria{Extensions: "env"}.Apply(records)
		assert.Empty(t, got)
	})

	t.Run("NameFiltersAreOr", func(t *testing.T) {
		got := Criteria{NameFilters: []string{"ORDER", "voice"}}.Apply(records)
		assert.Equal(t, []string{"Order1.XML", "order2.json", "invoice.js"}, names(got))
	})

	t.Run("ModifiedSinceInclusive", func(t *testing.T) {
		since := base.Add(2 * time.Hour)
		got := Criteria{ModifiedSince: &since}.Apply(records)
		assert.Equal(t, []string{"invoice.js", "README", ".env"}, names(got))
	})

	t.Run("Combined", func(t *testing.T) {
		since := base.Add(30 * time.Minute)
		got := Criteria{Extensions: "xml,json", NameFilters: []string{"order"}, ModifiedSince: &since}.Apply(records)
		assert.Equal(t, []string{"order2.json"}, names(got))
	})

	t.Run("DoesNotMutateInput", func(t *testing.T) {
		before := append([]Record(nil), records...)
		_ = Criteria{Extensions: "xml"}.Apply(records)
		assert.Equal(t, before, records)
	})
}

func TestSortByModified(t *testing.T) {
	records := []Record{
		{Name: "old", LastModified: 100},
		{Name: "tie-first", LastModified: 200},
		{Name: "new", LastModified: 300},
		{Name: "tie-second", LastModified: 200},
	}

	got := SortByModified(records)
	assert.Equal(t, []string{"new", "tie-first", "tie-second", "old"}, names(got))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<a>\n  <b/>\t\r\n</a>", "<a><b/></a>"},
		{"<a> text </a>", "<a> text </a>"},
		{"plain  text", "plain  text"},
		{"x > \n < y", "x >< y"},
		{"<a></a>", "<a></a>"},
		{"<a> \u00a0 </a>", "<a></a>"},
		{"<a>\v\ufeff\u2028<b/>\u3000</a>", "<a><b/></a>"},
		{"<a>x\u00a0y</a>", "<a>x\u00a0y</a>"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}

func TestMaterialize(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	p1 := writeFile(t, dir, "one.xml", "<root>\n  <x/>\n</root>", now)
	p2 := writeFile(t, dir, "two.txt", "hello", now)

	t.Run("ReadsAndNormalizes", func(t *testing.T) {
		got, err := Materialize([]Record{{Name: "one.xml", Path: p1}, {Name: "two.txt", Path: p2}})
		require.NoError(t, err)
		assert.Equal(t, []Payload{
			{Name: "one.xml", Type: "text", Content: "<root><x/></root>"},
			{Name: "two.txt", Type: "text", Content: "hello"},
		}, got)
	})

	t.Run("MissingFileFailsPage", func(t *testing.T) {
		_, err := Materialize([]Record{{Name: "one.xml", Path: p1}, {Name: "gone", Path: filepath.Join(dir, "gone")}})
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrFileUnreadable))
	})

	t.Run("Empty", func(t *testing.T) {
		got, err := Materialize(nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestErrorFormatting(t *testing.T) {
	err := NewError(ErrFileWriteFailure, "cannot write file", "/tmp/x", os.ErrPermission)
	assert.Equal(t, "cannot write file: /tmp/x", err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, "FileWriteFailure", err.Code.String())
	assert.False(t, IsCode(os.ErrPermission, ErrFileWriteFailure))
}
