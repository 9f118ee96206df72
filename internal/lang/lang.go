// Package lang holds the user-facing strings of the activity in every
// shipped language.
package lang

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.English,
	language.BrazilianPortuguese,
}

var matcher = language.NewMatcher(supported)

var tables = map[language.Tag]map[string]string{
	language.English:             en,
	language.BrazilianPortuguese: ptBR,
}

// Match picks the closest shipped language for a Moodle style code such as
// "pt_br" or an Accept-Language value.
func Match(code string) language.Tag {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if code == "" {
		return language.English
	}
	tags, _, err := language.ParseAcceptLanguage(code)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

// Get returns the string for key in the given language, falling back to
// English and then to the "[[key]]" marker.
func Get(code, key string, args ...interface{}) string {
	s, ok := tables[Match(code)][key]
	if !ok {
		s, ok = en[key]
	}
	if !ok {
		return "[[" + key + "]]"
	}
	if len(args) > 0 {
		return fmt.Sprintf(s, args...)
	}
	return s
}
