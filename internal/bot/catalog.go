package bot

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultLanguages is the language menu offered when none is configured
var DefaultLanguages = []string{
	"en", "uk", "ar", "es", "fr", "de", "it", "pt", "ru", "zh-CN", "ja", "pl", "ro", "tr", "nl",
}

type Language struct {
	Code string
	Name string
}

// Catalog is the ordered set of languages users can pick from. Codes are
// handed to the translator as they are.
type Catalog struct {
	languages []Language
	lookup    map[string]string
}

func NewCatalog(codes []string) *Catalog {
	if len(codes) == 0 {
		codes = DefaultLanguages
	}

	c := &Catalog{
		lookup: make(map[string]string),
	}
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, dup := c.lookup[strings.ToLower(code)]; dup {
			continue
		}
		lang := Language{Code: code, Name: displayName(code)}
		c.languages = append(c.languages, lang)
		c.lookup[strings.ToLower(code)] = code
		c.lookup[strings.ToLower(lang.Name)] = code
	}
	return c
}

func (c *Catalog) Languages() []Language {
	return c.languages
}

// Lookup resolves a code or English display name, case-insensitively
func (c *Catalog) Lookup(input string) (string, bool) {
	code, ok := c.lookup[strings.ToLower(strings.TrimSpace(input))]
	return code, ok
}

func (c *Catalog) Name(code string) string {
	for _, lang := range c.languages {
		if lang.Code == code {
			return lang.Name
		}
	}
	return code
}

func (c *Catalog) Names(codes []string) []string {
	ret := make([]string, 0, len(codes))
	for _, code := range codes {
		ret = append(ret, c.Name(code))
	}
	return ret
}

func displayName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
