// Package frontmatter splits YAML frontmatter from markdown documents such as
// agent definitions.
package frontmatter

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const separator = "---"

// Split separates a leading '---' delimited block from the markdown body.
// Blank lines before the opening separator are allowed. ok is false when the
// document has no complete frontmatter block, in which case body is the whole
// content.
func Split(content string) (front, body string, ok bool) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var frontLines []string
	inFrontmatter := false
	consumed := 0

	for scanner.Scan() {
		line := scanner.Text()
		consumed += len(line) + 1
		trimmed := strings.TrimSpace(line)

		if !inFrontmatter {
			if trimmed == "" {
				continue
			}
			if trimmed != separator {
				return "", content, false
			}
			inFrontmatter = true
			continue
		}

		if trimmed == separator {
			if consumed > len(content) {
				consumed = len(content)
			}
			return strings.Join(frontLines, "\n"), content[consumed:], true
		}
		frontLines = append(frontLines, line)
	}
	return "", content, false
}

// Parse reads a document, decodes its frontmatter into out and returns the
// body. A document without frontmatter leaves out untouched.
func Parse(r io.Reader, out interface{}) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return ParseString(string(data), out)
}

// ParseString is Parse for in-memory content.
func ParseString(content string, out interface{}) (string, error) {
	front, body, ok := Split(content)
	if !ok {
		return body, nil
	}
	if err := yaml.Unmarshal([]byte(front), out); err != nil {
		return body, fmt.Errorf("invalid frontmatter: %w", err)
	}
	return body, nil
}
