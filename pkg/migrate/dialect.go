package migrate

import (
	"bytes"
	"io/fs"
	"path"
	"regexp"

	"github.com/pressly/goose/v3"
)

// Migration files are written for postgres. SQLite keeps the declared column
// type verbatim and the driver only decodes "datetime", "timestamp" and "date"
// columns into time.Time, so timestamptz columns are declared as datetime there.
var sqliteTypes = []struct {
	pattern *regexp.Regexp
	replace []byte
}{
	{pattern: regexp.MustCompile(`(?i)\btimestamptz\b`), replace: []byte("datetime")},
}

// ForDialect returns fsys with its .sql files rewritten for dialect.
func ForDialect(fsys fs.FS, dialect goose.Dialect) fs.FS {
	if dialect != goose.DialectSQLite3 {
		return fsys
	}
	return rewriteFS{base: fsys}
}

type rewriteFS struct {
	base fs.FS
}

func (r rewriteFS) Open(name string) (fs.File, error) {
	if path.Ext(name) != ".sql" {
		return r.base.Open(name)
	}
	data, err := r.ReadFile(name)
	if err != nil {
		return nil, err
	}
	info, err := fs.Stat(r.base, name)
	if err != nil {
		return nil, err
	}
	return &memFile{Reader: bytes.NewReader(data), info: sizedInfo{FileInfo: info, size: int64(len(data))}}, nil
}

func (r rewriteFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(r.base, name)
}

func (r rewriteFS) ReadFile(name string) ([]byte, error) {
	data, err := fs.ReadFile(r.base, name)
	if err != nil || path.Ext(name) != ".sql" {
		return data, err
	}
	for _, t := range sqliteTypes {
		data = t.pattern.ReplaceAll(data, t.replace)
	}
	return data, nil
}

type memFile struct {
	*bytes.Reader
	info fs.FileInfo
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *memFile) Close() error               { return nil }

type sizedInfo struct {
	fs.FileInfo
	size int64
}

func (i sizedInfo) Size() int64 { return i.size }
