// Package resume pulls plain text and profile links out of resume PDFs.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/samber/lo"

	"github.com/kiranshivaraju/gitverified/pkg/models"
)

var (
	ErrUnreadable = errors.New("resume is not a readable PDF")
	ErrNoText     = errors.New("no text content found in PDF")
)

const snippetLength = 200

var (
	githubPattern   = regexp.MustCompile(`(https?://)?(www\.)?github\.com/[a-zA-Z0-9_-]+(/[a-zA-Z0-9._-]+)*`)
	leetcodePattern = regexp.MustCompile(`(https?://)?(www\.)?leetcode\.com/(u/)?[a-zA-Z0-9_-]+`)
)

// ExtractText returns the plain text of every page, separated by blank lines.
// Pages that fail to decode are skipped.
func ExtractText(data []byte) (string, error) {
	r, err := openPDF(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// openPDF guards against the parser panicking on malformed input.
func openPDF(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("%w: %v", ErrUnreadable, rec)
		}
	}()
	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return r, nil
}

// FindLinks returns the distinct GitHub and LeetCode URLs in text, in order of
// first appearance.
func FindLinks(text string) (github, leetcode []string) {
	github = lo.Uniq(githubPattern.FindAllString(text, -1))
	leetcode = lo.Uniq(leetcodePattern.FindAllString(text, -1))
	if github == nil {
		github = []string{}
	}
	if leetcode == nil {
		leetcode = []string{}
	}
	return github, leetcode
}

// Snippet is the first 200 characters of text followed by an ellipsis.
func Snippet(text string) string {
	runes := []rune(text)
	if len(runes) > snippetLength {
		runes = runes[:snippetLength]
	}
	return string(runes) + "..."
}

// Extract reads a resume PDF and collects its profile links.
func Extract(filename string, data []byte) (models.ResumeLinks, error) {
	text, err := ExtractText(data)
	if err != nil {
		return models.ResumeLinks{}, err
	}
	github, leetcode := FindLinks(text)
	return models.ResumeLinks{
		File:          filename,
		GitHubLinks:   github,
		LeetCodeLinks: leetcode,
		Snippet:       Snippet(text),
	}, nil
}
