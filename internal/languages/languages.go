// Package languages lists the native languages a child profile can carry.
package languages

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Option is one entry of the native-language picker
type Option struct {
	Value    string // lowercase form value, e.g. "spanish"
	Label    string // stored on the profile, e.g. "Spanish"
	SelfName string // autonym shown next to the label, e.g. "español"
	Tag      language.Tag
}

var supported = []language.Tag{
	language.Spanish,
	language.French,
	language.German,
	language.Italian,
	language.Portuguese,
	language.Chinese,
	language.Japanese,
	language.Korean,
}

var options = buildOptions(supported)

func buildOptions(tags []language.Tag) []Option {
	namer := display.English.Languages()
	out := make([]Option, 0, len(tags))
	for _, tag := range tags {
		label := namer.Name(tag)
		out = append(out, Option{
			Value:    strings.ToLower(label),
			Label:    label,
			SelfName: display.Self.Name(tag),
			Tag:      tag,
		})
	}
	return out
}

// Options returns the picker entries in display order
func Options() []Option {
	out := make([]Option, len(options))
	copy(out, options)
	return out
}

// LabelFor maps a form value to the label stored on a profile. An unknown
// value yields "".
func LabelFor(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, opt := range options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return ""
}

// ValueFor maps a stored label back to its form value, so an edit form can
// preselect it. Matching ignores case.
func ValueFor(label string) string {
	label = strings.TrimSpace(label)
	for _, opt := range options {
		if strings.EqualFold(opt.Label, label) {
			return opt.Value
		}
	}
	return strings.ToLower(label)
}
