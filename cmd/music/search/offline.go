package search

import (
	"strings"

	"github.com/gigurra/aegis/cmd/music/catalog"
	"github.com/samber/lo"
)

const matchedDuration = "3:24"

var (
	variations = []string{
		" (Official Music Video)",
		" - Official Video",
		" (Official Audio)",
		" - Live Performance",
		" (Acoustic Version)",
	}
	paddingDurations = []string{"3:24", "4:12", "2:58", "3:45"}
)

// Offline builds results from the catalog alone. Catalog matches come first,
// then variations of the query padded with known-good ids up to maxResults.
// Padding is deterministic: ids cycle through the catalog in order.
func (c *Client) Offline(query string, maxResults int) []Result {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	cat := c.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	results := lo.Map(cat.Match(query), func(t catalog.Track, _ int) Result {
		r := FromTrack(t, matchedDuration)
		r.ChannelTitle = t.Artist + "VEVO"
		return r
	})
	if len(results) >= maxResults {
		return results[:maxResults]
	}
	if len(cat.Tracks) == 0 {
		return results
	}

	query = strings.TrimSpace(query)
	first := query
	if fields := strings.Fields(query); len(fields) > 0 {
		first = fields[0]
	}
	channels := []string{first + "VEVO", first + " Official", "Universal Music Group"}

	for i := 0; len(results) < maxResults && i < len(variations); i++ {
		id := cat.Tracks[i%len(cat.Tracks)].ID
		results = append(results, Result{
			ID:           id,
			Title:        query + variations[i],
			ChannelTitle: channels[i%len(channels)],
			Duration:     paddingDurations[i%len(paddingDurations)],
			ThumbnailURL: catalog.ThumbnailURL(id),
		})
	}
	return results
}
