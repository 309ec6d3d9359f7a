package utils

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const frontmatterDelim = "---"

// SplitFrontmatter separates a leading YAML frontmatter block from the
// markdown body. Content that does not start with "---" has no frontmatter:
// the block is nil and the body is the whole content.
// Expected format:
// ---
// subject: Photosynthesis
// tags: [study]
// ---
// # Markdown content here
func SplitFrontmatter(content []byte) ([]byte, string, error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(content, []byte(frontmatterDelim+"\n")) {
		return nil, string(content), nil
	}

	lines := bytes.Split(content, []byte("\n"))

	// Skip the opening "---" line
	closingDelim := 0
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte(frontmatterDelim)) {
			closingDelim = i
			break
		}
	}
	if closingDelim == 0 {
		return nil, "", errors.New("missing closing frontmatter delimiter '---'")
	}

	block := bytes.Join(lines[1:closingDelim], []byte("\n"))
	body := string(bytes.Join(lines[closingDelim+1:], []byte("\n")))
	return block, body, nil
}

// ParseFrontmatter decodes the frontmatter of content into out and returns
// the markdown body. out is left untouched when there is no frontmatter.
func ParseFrontmatter(content []byte, out interface{}) (string, error) {
	block, body, err := SplitFrontmatter(content)
	if err != nil {
		return "", err
	}
	if block == nil {
		return body, nil
	}
	if err := yaml.Unmarshal(block, out); err != nil {
		return "", fmt.Errorf("failed to parse YAML frontmatter: %w", err)
	}
	return body, nil
}

// FormatFrontmatter renders meta as a frontmatter block followed by body.
func FormatFrontmatter(meta interface{}, body string) ([]byte, error) {
	block, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode YAML frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterDelim + "\n")
	buf.Write(block)
	buf.WriteString(frontmatterDelim + "\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}
