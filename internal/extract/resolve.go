package extract

import (
	"path"
	"strings"
)

// ResolveImports maps raw import specifiers to repo-relative file paths,
// keeping only those that land on a tracked file. exists reports whether a
// repo-relative path is part of the tracked file set.
//
// Resolution is best-effort by design: stdlib and third-party imports have no
// tracked file and simply drop out.
func ResolveImports(fromPath string, info *FileInfo, exists func(string) bool) []string {
	if info == nil || len(info.Imports) == 0 {
		return nil
	}

	// Paths are repo-relative with forward slashes throughout the engine.
	fromDir := path.Dir(fromPath)
	resolved := make(map[string]bool)

	for _, spec := range info.Imports {
		var target string
		switch info.Language {
		case "typescript", "javascript":
			target = resolveRelative(fromDir, spec, tsCandidates, exists)
		case "python":
			target = resolvePython(fromDir, spec, exists)
		case "go":
			target = resolveGoPackage(spec, exists)
		}
		if target != "" && target != fromPath {
			resolved[target] = true
		}
	}

	if len(resolved) == 0 {
		return nil
	}
	out := make([]string, 0, len(resolved))
	for p := range resolved {
		out = append(out, p)
	}
	return out
}

var tsCandidates = []string{
	"%s.ts", "%s.tsx", "%s.js", "%s.jsx", "%s.mjs",
	"%s/index.ts", "%s/index.js",
}

// resolveRelative handles './foo' and '../bar/baz' specifiers with the usual
// extension and index-file candidates.
func resolveRelative(fromDir, spec string, candidates []string, exists func(string) bool) string {
	if !strings.HasPrefix(spec, ".") {
		return ""
	}
	base := path.Clean(path.Join(fromDir, spec))

	// Specifier may already carry its extension
	if exists(base) {
		return base
	}
	for _, pattern := range candidates {
		candidate := strings.Replace(pattern, "%s", base, 1)
		if exists(candidate) {
			return candidate
		}
	}
	return ""
}

// resolvePython maps dotted module paths to files, trying both repo-root
// and sibling-relative locations.
func resolvePython(fromDir, spec string, exists func(string) bool) string {
	rel := strings.ReplaceAll(spec, ".", "/")
	for _, candidate := range []string{
		rel + ".py",
		rel + "/__init__.py",
		path.Join(fromDir, rel+".py"),
		path.Join(fromDir, rel, "__init__.py"),
	} {
		candidate = path.Clean(candidate)
		if exists(candidate) {
			return candidate
		}
	}
	return ""
}

// resolveGoPackage maps a module-local import path to the package directory's
// doc-bearing file when one is tracked. Go imports name directories, not
// files; the first tracked .go file in the matching directory stands in for
// the package.
func resolveGoPackage(spec string, exists func(string) bool) string {
	// Keep only the path tail that could be repo-relative: for
	// "example.com/mod/internal/foo" try "internal/foo", "foo", ...
	parts := strings.Split(spec, "/")
	for i := 0; i < len(parts); i++ {
		dir := strings.Join(parts[i:], "/")
		for _, name := range []string{"doc.go", parts[len(parts)-1] + ".go", "main.go"} {
			candidate := path.Join(dir, name)
			if exists(candidate) {
				return candidate
			}
		}
	}
	return ""
}
