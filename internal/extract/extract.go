// Package extract pulls code elements and import statements out of source
// files using per-language patterns. It is deliberately heuristic: the graph
// needs names, kinds, and lines, not a full parse tree.
package extract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"codegraph/internal/logging"
)

// ElementKind classifies an extracted declaration.
type ElementKind string

const (
	KindFunction  ElementKind = "function"
	KindClass     ElementKind = "class"
	KindInterface ElementKind = "interface"
	KindVariable  ElementKind = "variable"
)

// Element is a single declaration found in a file.
type Element struct {
	Kind     ElementKind
	Name     string
	Line     int // 1-indexed
	Exported bool
}

// FileInfo is the result of extracting one file.
type FileInfo struct {
	Path     string
	Language string
	Elements []Element
	Imports  []string // raw import specifiers, unresolved
}

// MaxFileSizeBytes bounds how much source we are willing to scan per file.
const MaxFileSizeBytes = 1 << 20

// SourceExtensions maps recognized file extensions to language names.
var SourceExtensions = map[string]string{
	".go":  "go",
	".ts":  "typescript",
	".tsx": "typescript",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".py":  "python",
}

// LanguageForPath returns the language for a path, or "" if unrecognized.
func LanguageForPath(path string) string {
	return SourceExtensions[strings.ToLower(filepath.Ext(path))]
}

// Extractor extracts elements and imports from source content.
type Extractor struct {
	logger *logging.Logger
}

// New creates an extractor.
func New(logger *logging.Logger) *Extractor {
	return &Extractor{logger: logger.Named("extract")}
}

// Extract scans content and returns the declarations and imports found.
// Unrecognized extensions yield an error; binary-looking content yields an
// empty result rather than garbage elements.
func (e *Extractor) Extract(path string, content []byte) (*FileInfo, error) {
	lang := LanguageForPath(path)
	if lang == "" {
		return nil, fmt.Errorf("unrecognized source extension: %s", path)
	}
	if len(content) > MaxFileSizeBytes {
		return nil, fmt.Errorf("file too large to extract (%d bytes): %s", len(content), path)
	}

	info := &FileInfo{Path: path, Language: lang}
	if !utf8.Valid(content) {
		e.logger.Debug("Skipping extraction of non-UTF8 content", map[string]interface{}{
			"path": path,
		})
		return info, nil
	}

	rules := rulesFor(lang)
	lines := strings.Split(string(content), "\n")

	inImportBlock := false
	for i, line := range lines {
		lineNo := i + 1

		// Go's parenthesized import blocks span lines
		if lang == "go" {
			if goImportBlockStart.MatchString(line) {
				inImportBlock = true
				continue
			}
			if inImportBlock {
				if strings.HasPrefix(strings.TrimSpace(line), ")") {
					inImportBlock = false
					continue
				}
				if m := goImportLine.FindStringSubmatch(line); m != nil {
					info.Imports = append(info.Imports, m[1])
				}
				continue
			}
		}

		// First rule that claims a name on a line wins, so a `const f = () =>`
		// arrow function is not double-counted as a variable.
		seen := make(map[string]bool)
		for _, rule := range rules.elements {
			for _, m := range rule.re.FindAllStringSubmatch(line, -1) {
				name := m[rule.nameGroup]
				if name == "" || seen[name] {
					continue
				}
				seen[name] = true
				info.Elements = append(info.Elements, Element{
					Kind:     rule.kind,
					Name:     name,
					Line:     lineNo,
					Exported: isExported(lang, name, line),
				})
			}
		}

		for _, re := range rules.imports {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				info.Imports = append(info.Imports, m[1])
			}
		}
	}

	return info, nil
}

// elementRule binds a pattern to the kind of declaration it finds.
type elementRule struct {
	kind      ElementKind
	re        *regexp.Regexp
	nameGroup int
}

type languageRules struct {
	elements []elementRule
	imports  []*regexp.Regexp
}

var (
	// Go
	goFunc             = regexp.MustCompile(`^func\s+(?:\([^)]+\)\s+)?([A-Za-z_]\w*)\s*\(`)
	goStruct           = regexp.MustCompile(`^type\s+([A-Za-z_]\w*)\s+struct\b`)
	goInterface        = regexp.MustCompile(`^type\s+([A-Za-z_]\w*)\s+interface\b`)
	goVar              = regexp.MustCompile(`^(?:var|const)\s+([A-Za-z_]\w*)\b`)
	goImportSingle     = regexp.MustCompile(`^import\s+(?:\w+\s+)?"([^"]+)"`)
	goImportBlockStart = regexp.MustCompile(`^import\s*\(\s*$`)
	goImportLine       = regexp.MustCompile(`^\s*(?:\w+\s+)?"([^"]+)"`)

	// TypeScript / JavaScript
	tsFunc      = regexp.MustCompile(`(?:^|\s)(?:export\s+)?(?:async\s+)?function\s+([A-Za-z_$][\w$]*)\s*\(`)
	tsArrowFunc = regexp.MustCompile(`^(?:export\s+)?(?:const|let)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*=>`)
	tsClass     = regexp.MustCompile(`(?:^|\s)(?:export\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`)
	tsInterface = regexp.MustCompile(`(?:^|\s)(?:export\s+)?interface\s+([A-Za-z_$][\w$]*)`)
	tsVar       = regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*[=:;]`)
	tsImport    = regexp.MustCompile(`import\s+(?:[\w{}*,\s$]+\s+from\s+)?['"]([^'"]+)['"]`)
	tsRequire   = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)

	// Python
	pyFunc       = regexp.MustCompile(`^\s*def\s+([A-Za-z_]\w*)\s*\(`)
	pyClass      = regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)\s*[(:]`)
	pyVar        = regexp.MustCompile(`^([A-Za-z_]\w*)\s*=\s*`)
	pyImport     = regexp.MustCompile(`^\s*import\s+([\w.]+)`)
	pyFromImport = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\b`)
)

func rulesFor(lang string) languageRules {
	switch lang {
	case "go":
		return languageRules{
			elements: []elementRule{
				{KindFunction, goFunc, 1},
				{KindClass, goStruct, 1},
				{KindInterface, goInterface, 1},
				{KindVariable, goVar, 1},
			},
			imports: []*regexp.Regexp{goImportSingle},
		}
	case "typescript", "javascript":
		return languageRules{
			elements: []elementRule{
				{KindFunction, tsFunc, 1},
				{KindFunction, tsArrowFunc, 1},
				{KindClass, tsClass, 1},
				{KindInterface, tsInterface, 1},
				{KindVariable, tsVar, 1},
			},
			imports: []*regexp.Regexp{tsImport, tsRequire},
		}
	case "python":
		return languageRules{
			elements: []elementRule{
				{KindFunction, pyFunc, 1},
				{KindClass, pyClass, 1},
				{KindVariable, pyVar, 1},
			},
			imports: []*regexp.Regexp{pyImport, pyFromImport},
		}
	}
	return languageRules{}
}

// isExported reports whether a declaration is part of the file's public
// surface: capitalized in Go, `export`-prefixed in TS/JS, non-underscored
// in Python.
func isExported(lang, name, line string) bool {
	switch lang {
	case "go":
		r, _ := utf8.DecodeRuneInString(name)
		return unicode.IsUpper(r)
	case "typescript", "javascript":
		return strings.Contains(line, "export ")
	case "python":
		return !strings.HasPrefix(name, "_")
	}
	return false
}
