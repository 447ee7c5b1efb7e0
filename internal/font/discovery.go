package font

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Candidate is a font family searched for when no font path is configured.
type Candidate struct {
	Family string
	Files  []string
}

// Candidates lists the default families in preference order.
var Candidates = []Candidate{
	{Family: "DejaVu Sans Mono", Files: []string{"DejaVuSansMono.ttf"}},
	{Family: "Liberation Mono", Files: []string{"LiberationMono-Regular.ttf"}},
	{Family: "Noto Sans Mono", Files: []string{"NotoSansMono-Regular.ttf", "NotoSansMono-Regular.otf"}},
}

// Dirs returns the standard font directories, user directories first.
func Dirs() []string {
	var dirs []string
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "fonts"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(home, ".local", "share", "fonts"),
			filepath.Join(home, ".fonts"),
		)
	}
	return append(dirs, "/usr/local/share/fonts", "/usr/share/fonts")
}

// FindDefault returns the first candidate font file found under Dirs.
func FindDefault() (string, error) {
	return find(Candidates, Dirs())
}

func find(candidates []Candidate, dirs []string) (string, error) {
	index := indexFonts(dirs)
	for _, c := range candidates {
		for _, file := range c.Files {
			if path, ok := index[strings.ToLower(file)]; ok {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("none of the default fonts are installed")
}

// indexFonts maps lower-cased file names to the first path seen.
func indexFonts(dirs []string) map[string]string {
	index := make(map[string]string)
	for _, dir := range dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			name := strings.ToLower(d.Name())
			if _, seen := index[name]; !seen {
				index[name] = path
			}
			return nil
		})
	}
	return index
}
