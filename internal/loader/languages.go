package loader

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/php"
)

// Formats group languages by the mechanism that loads them.
const (
	FormatPHP      = "php"
	FormatJava     = "java"
	FormatRisor    = "risor"
	FormatManifest = "manifest"
)

// AllFormats lists every supported format.
var AllFormats = []string{FormatPHP, FormatJava, FormatRisor, FormatManifest}

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".php":   "php",
	".java":  "java",
	".risor": "risor",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
}

// langToFormat maps language names to formats. Languages absent from the
// map are their own format.
var langToFormat = map[string]string{
	"yaml": FormatManifest,
	"toml": FormatManifest,
}

// langToGrammar maps language names to tree-sitter Language objects.
// Lazily initialized on first call via sync.Once.
var (
	langToGrammar map[string]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		langToGrammar = map[string]*sitter.Language{
			"java": java.GetLanguage(),
			"php":  php.GetLanguage(),
		}
	})
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// FormatForLanguage returns the format that loads lang.
func FormatForLanguage(lang string) string {
	if f, ok := langToFormat[lang]; ok {
		return f
	}
	return lang
}

// ParserForLanguage returns the tree-sitter Language for a canonical language
// name. Returns (nil, false) if the language is not parsed with tree-sitter.
func ParserForLanguage(lang string) (*sitter.Language, bool) {
	initGrammars()
	l, ok := langToGrammar[lang]
	return l, ok
}
