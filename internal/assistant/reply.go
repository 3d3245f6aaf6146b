package assistant

import (
	"net/url"
	"regexp"
	"strings"
)

// Video is a suggested how-to search.
type Video struct {
	Query string `json:"query"`
	URL   string `json:"url"`
}

// ParsedReply is an assistant reply split for display.
type ParsedReply struct {
	Text   string   `json:"text"`
	Links  []string `json:"links"`
	Videos []Video  `json:"videos"`
}

var (
	videoMarker = regexp.MustCompile(`\[VIDEO:\s*([^\]]*)\]`)
	bareURL     = regexp.MustCompile(`https?://[^\s<>()\[\]「」、。]+`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
)

const youtubeSearch = "https://www.youtube.com/results?search_query="

// ParseReply removes [VIDEO: query] markers, turning them into YouTube search
// links, and collects the distinct URLs left in the text.
func ParseReply(text string) ParsedReply {
	out := ParsedReply{Links: []string{}, Videos: []Video{}}

	for _, m := range videoMarker.FindAllStringSubmatch(text, -1) {
		q := strings.TrimSpace(m[1])
		if q == "" {
			continue
		}
		out.Videos = append(out.Videos, Video{Query: q, URL: youtubeSearch + url.QueryEscape(q)})
	}
	cleaned := videoMarker.ReplaceAllString(text, "")

	seen := make(map[string]bool)
	for _, u := range bareURL.FindAllString(cleaned, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			out.Links = append(out.Links, u)
		}
	}

	out.Text = strings.TrimSpace(blankLines.ReplaceAllString(cleaned, "\n\n"))
	return out
}
