// Package sdlfile reads GraphQL SDL from a file or a directory tree.
package sdlfile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extensions lists the file extensions read from a directory.
var Extensions = []string{".graphql", ".graphqls", ".gql"}

// Load returns the SDL at path. A directory is walked and every file with one
// of Extensions is read; the files are joined in lexical path order so the
// result is stable across runs.
func Load(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("read schema: %w", err)
	}
	if !info.IsDir() {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read schema: %w", err)
		}
		return string(content), nil
	}

	files, err := discover(path)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no schema files (%s) under %q", strings.Join(Extensions, ", "), path)
	}
	var b strings.Builder
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return "", fmt.Errorf("read schema file %q: %w", f, err)
		}
		b.WriteString("# ")
		b.WriteString(filepath.ToSlash(f))
		b.WriteByte('\n')
		b.Write(content)
		if len(content) > 0 && content[len(content)-1] != '\n' {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !hasSchemaExt(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk schema directory %q: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func hasSchemaExt(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
