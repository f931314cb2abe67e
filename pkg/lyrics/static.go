package lyrics

import "context"

// DefaultStaticLyrics is served by Static when no text is configured.
const DefaultStaticLyrics = `Twinkle, twinkle, little star,
How I wonder what you are!
Up above the world so high,
Like a diamond in the sky.`

// Static answers every query with the same text. It is meant for offline
// development and tests.
type Static struct {
	Lyrics string
}

// Search implements Searcher.
func (s Static) Search(ctx context.Context, q Query) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body := s.Lyrics
	if body == "" {
		body = DefaultStaticLyrics
	}
	return []Result{{Title: q.Title, Artist: q.Artist, Source: "static", Body: body}}, nil
}
