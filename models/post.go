package models

// PlatformTwitter tags posts fetched from the X recent search API. The
// schema is platform-tagged so other sources can share the table later.
const PlatformTwitter = "twitter"

type Post struct {
	ID             string
	Platform       string
	AuthorID       string
	AuthorName     string
	CreatedAt      string
	Text           string
	Lang           string
	SentimentScore float64
	SentimentLabel string
	RawJSON        []byte
	FetchedAt      string
}
