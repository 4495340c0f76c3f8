package model

import (
	"path/filepath"
	"strings"
)

var languages = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".java":  "java",
	".kt":    "kotlin",
	".rb":    "ruby",
	".sh":    "shell",
	".lua":   "lua",
	".sql":   "sql",
	".md":    "markdown",
	".txt":   "text",
	".toml":  "toml",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".html":  "html",
	".css":   "css",
	".swift": "swift",
	".cs":    "csharp",
	".php":   "php",
}

// LanguageFor guesses a file's language from its extension. Unknown extensions yield "text".
func LanguageFor(path string) string {
	if lang, ok := languages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "text"
}

// IsPracticeFile reports whether a file has an extension LanguageFor recognizes.
func IsPracticeFile(path string) bool {
	_, ok := languages[strings.ToLower(filepath.Ext(path))]
	return ok
}
