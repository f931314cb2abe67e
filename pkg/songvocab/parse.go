package songvocab

import "strings"

// ParseRule is one step of the request-parsing heuristic. Match reports
// whether the rule applies and, if so, the title and artist it produced.
type ParseRule struct {
	Name  string
	Match func(message string) (title, artist string, ok bool)
}

// ParseRules is the ordered rule list used by ParseRequest. The first
// matching rule wins; the last rule always matches.
//
// This is a heuristic. "Hey Jude The Beatles" splits as intended, but a
// three-word title without an artist ("Stairway To Heaven") is split as
// ("Stairway", "To Heaven").
var ParseRules = []ParseRule{
	{Name: "by-separator", Match: matchBySeparator},
	{Name: "trailing-artist", Match: matchTrailingArtist},
	{Name: "title-only", Match: matchTitleOnly},
}

func matchBySeparator(message string) (string, string, bool) {
	title, artist, ok := strings.Cut(message, " by ")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(title), strings.TrimSpace(artist), true
}

func matchTrailingArtist(message string) (string, string, bool) {
	words := strings.Fields(message)
	if len(words) <= 2 {
		return "", "", false
	}
	return strings.Join(words[:len(words)-2], " "), strings.Join(words[len(words)-2:], " "), true
}

func matchTitleOnly(message string) (string, string, bool) {
	return strings.TrimSpace(message), "", true
}

// ParsedRequest is the outcome of ParseRequest.
type ParsedRequest struct {
	Title  string
	Artist string
	Rule   string
}

// ParseRequest turns a free-text message into a title and artist.
func ParseRequest(message string) (ParsedRequest, error) {
	if strings.TrimSpace(message) == "" {
		return ParsedRequest{}, InvalidRequest("empty request message")
	}
	for _, rule := range ParseRules {
		title, artist, ok := rule.Match(message)
		if !ok {
			continue
		}
		if title == "" && artist == "" {
			return ParsedRequest{}, InvalidRequest("could not parse a title or artist from %q", message)
		}
		return ParsedRequest{Title: title, Artist: artist, Rule: rule.Name}, nil
	}
	return ParsedRequest{}, InvalidRequest("could not parse request %q", message)
}
