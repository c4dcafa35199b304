package discovery

// TagCard is a curated genre entry point for browsing.
type TagCard struct {
	Tag         string `json:"tag"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// tagCards are the preset genres shown on the discovery page.
var tagCards = []TagCard{
	{Tag: "rock", Label: "Rock", Description: "Guitar-driven classics and modern anthems"},
	{Tag: "pop", Label: "Pop", Description: "Chart hits and earworms"},
	{Tag: "indie", Label: "Indie", Description: "Independent and alternative picks"},
	{Tag: "electronic", Label: "Electronic", Description: "Synths, beats and everything in between"},
	{Tag: "hip-hop", Label: "Hip-Hop", Description: "Rap and hip-hop essentials"},
	{Tag: "jazz", Label: "Jazz", Description: "Standards, bebop and smooth grooves"},
	{Tag: "classical", Label: "Classical", Description: "Orchestral and chamber works"},
	{Tag: "metal", Label: "Metal", Description: "Heavy riffs and double kick drums"},
	{Tag: "ambient", Label: "Ambient", Description: "Atmospheric soundscapes for focus and rest"},
	{Tag: "folk", Label: "Folk", Description: "Acoustic storytelling old and new"},
}

// TagCards returns the preset list. The slice is shared; callers must not
// modify it.
func TagCards() []TagCard {
	return tagCards
}
