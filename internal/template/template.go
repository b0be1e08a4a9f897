// internal/template/template.go
package template

import "strings"

// Placeholder is the token substituted with the contact's display name in
// both subject and body.
const Placeholder = "[NUME]"

// Rendered holds the personalized subject and body variants for one contact.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Render substitutes the placeholder with the contact's display name, falling
// back to defaultName when the name is blank. Pure function: same inputs
// always produce the same output.
func Render(subject, body, name, defaultName string) Rendered {
	if strings.TrimSpace(name) == "" {
		name = defaultName
	}

	text := strings.ReplaceAll(body, Placeholder, name)
	return Rendered{
		Subject: strings.ReplaceAll(subject, Placeholder, name),
		Text:    text,
		HTML:    strings.ReplaceAll(text, "\n", "<br>"),
	}
}
