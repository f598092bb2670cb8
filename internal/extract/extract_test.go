package extract

import (
	"testing"

	"codegraph/internal/logging"
)

func testExtractor() *Extractor {
	return New(logging.NewNop())
}

func elementNames(info *FileInfo, kind ElementKind) []string {
	var names []string
	for _, el := range info.Elements {
		if el.Kind == kind {
			names = append(names, el.Name)
		}
	}
	return names
}

func TestExtractGo(t *testing.T) {
	src := `package server

import (
	"fmt"
	"example.com/app/internal/store"
)

import "strings"

type Server struct {
	Addr string
}

type Handler interface {
	Handle() error
}

var DefaultTimeout = 30

func New(addr string) *Server {
	return &Server{Addr: addr}
}

func (s *Server) Handle() error {
	fmt.Println(strings.ToUpper(s.Addr))
	return nil
}

func internalHelper() {}
`
	info, err := testExtractor().Extract("internal/server/server.go", []byte(src))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if info.Language != "go" {
		t.Errorf("language = %q, want go", info.Language)
	}

	funcs := elementNames(info, KindFunction)
	if len(funcs) != 3 {
		t.Fatalf("functions = %v, want 3 entries", funcs)
	}

	classes := elementNames(info, KindClass)
	if len(classes) != 1 || classes[0] != "Server" {
		t.Errorf("classes = %v, want [Server]", classes)
	}

	ifaces := elementNames(info, KindInterface)
	if len(ifaces) != 1 || ifaces[0] != "Handler" {
		t.Errorf("interfaces = %v, want [Handler]", ifaces)
	}

	if vars := elementNames(info, KindVariable); len(vars) != 1 || vars[0] != "DefaultTimeout" {
		t.Errorf("variables = %v, want [DefaultTimeout]", vars)
	}

	wantImports := map[string]bool{
		"fmt":                            true,
		"example.com/app/internal/store": true,
		"strings":                        true,
	}
	if len(info.Imports) != len(wantImports) {
		t.Fatalf("imports = %v, want %d entries", info.Imports, len(wantImports))
	}
	for _, imp := range info.Imports {
		if !wantImports[imp] {
			t.Errorf("unexpected import %q", imp)
		}
	}
}

func TestExtractGoExportedness(t *testing.T) {
	src := "package x\n\nfunc Public() {}\nfunc private() {}\n"
	info, err := testExtractor().Extract("x.go", []byte(src))
	if err != nil {
		t.Fatal(err)
	}

	for _, el := range info.Elements {
		want := el.Name == "Public"
		if el.Exported != want {
			t.Errorf("%s exported=%v, want %v", el.Name, el.Exported, want)
		}
	}
}

func TestExtractTypeScript(t *testing.T) {
	src := `import { helper } from './util';
import fs from 'fs';
const legacy = require('../legacy');

export function foo(a: number): number {
  return a + 1;
}

export const bar = async (x: string) => x.trim();

export class Widget {
  render() {}
}

export interface Renderable {
  render(): void;
}

const internalCount = 0;
`
	info, err := testExtractor().Extract("src/app.ts", []byte(src))
	if err != nil {
		t.Fatal(err)
	}

	funcs := elementNames(info, KindFunction)
	if len(funcs) != 2 {
		t.Errorf("functions = %v, want [foo bar]", funcs)
	}

	// bar is an arrow function, not a variable
	for _, v := range elementNames(info, KindVariable) {
		if v == "bar" {
			t.Error("arrow function bar double-counted as variable")
		}
	}

	if classes := elementNames(info, KindClass); len(classes) != 1 || classes[0] != "Widget" {
		t.Errorf("classes = %v, want [Widget]", classes)
	}
	if ifaces := elementNames(info, KindInterface); len(ifaces) != 1 || ifaces[0] != "Renderable" {
		t.Errorf("interfaces = %v, want [Renderable]", ifaces)
	}

	wantImports := []string{"./util", "fs", "../legacy"}
	if len(info.Imports) != len(wantImports) {
		t.Fatalf("imports = %v, want %v", info.Imports, wantImports)
	}
}

func TestExtractPython(t *testing.T) {
	src := `import os
from app.models import User

VERSION = "1.0"

class Store:
    def save(self):
        pass

def main():
    pass

def _private():
    pass
`
	info, err := testExtractor().Extract("app/main.py", []byte(src))
	if err != nil {
		t.Fatal(err)
	}

	funcs := elementNames(info, KindFunction)
	if len(funcs) != 3 {
		t.Errorf("functions = %v, want 3 entries", funcs)
	}
	if classes := elementNames(info, KindClass); len(classes) != 1 || classes[0] != "Store" {
		t.Errorf("classes = %v, want [Store]", classes)
	}

	wantImports := []string{"os", "app.models"}
	if len(info.Imports) != len(wantImports) {
		t.Fatalf("imports = %v, want %v", info.Imports, wantImports)
	}

	for _, el := range info.Elements {
		if el.Name == "_private" && el.Exported {
			t.Error("_private should not be exported")
		}
	}
}

func TestExtractUnrecognizedExtension(t *testing.T) {
	if _, err := testExtractor().Extract("README.md", []byte("# hi")); err == nil {
		t.Error("expected error for unrecognized extension")
	}
}

func TestExtractBinaryContent(t *testing.T) {
	info, err := testExtractor().Extract("weird.go", []byte{0xff, 0xfe, 0x00, 0x01})
	if err != nil {
		t.Fatalf("binary content should not error: %v", err)
	}
	if len(info.Elements) != 0 {
		t.Errorf("binary content produced %d elements", len(info.Elements))
	}
}

func TestResolveImportsTypeScript(t *testing.T) {
	files := map[string]bool{
		"src/util.ts":      true,
		"src/app.ts":       true,
		"legacy/index.js":  true,
		"src/lib/index.ts": true,
	}
	exists := func(p string) bool { return files[p] }

	info := &FileInfo{
		Path:     "src/app.ts",
		Language: "typescript",
		Imports:  []string{"./util", "fs", "../legacy", "./lib", "./app"},
	}

	resolved := ResolveImports("src/app.ts", info, exists)

	want := map[string]bool{
		"src/util.ts":      true,
		"legacy/index.js":  true,
		"src/lib/index.ts": true,
	}
	if len(resolved) != len(want) {
		t.Fatalf("resolved = %v, want %d entries", resolved, len(want))
	}
	for _, p := range resolved {
		if !want[p] {
			t.Errorf("unexpected resolution %q", p)
		}
	}
}

func TestResolveImportsPython(t *testing.T) {
	files := map[string]bool{
		"app/models.py": true,
		"app/main.py":   true,
	}
	exists := func(p string) bool { return files[p] }

	info := &FileInfo{
		Path:     "app/main.py",
		Language: "python",
		Imports:  []string{"os", "app.models"},
	}

	resolved := ResolveImports("app/main.py", info, exists)
	if len(resolved) != 1 || resolved[0] != "app/models.py" {
		t.Errorf("resolved = %v, want [app/models.py]", resolved)
	}
}

func TestResolveImportsGo(t *testing.T) {
	files := map[string]bool{
		"internal/store/store.go": true,
		"cmd/app/main.go":         true,
	}
	exists := func(p string) bool { return files[p] }

	info := &FileInfo{
		Path:     "cmd/app/main.go",
		Language: "go",
		Imports:  []string{"example.com/app/internal/store", "fmt"},
	}

	resolved := ResolveImports("cmd/app/main.go", info, exists)
	if len(resolved) != 1 || resolved[0] != "internal/store/store.go" {
		t.Errorf("resolved = %v, want [internal/store/store.go]", resolved)
	}
}
