package store

import "github.com/aosmith-syr/gravitychat/pkg/models"

// FixtureDocuments is the fixed fallback corpus used when no backend store
// is reachable and to seed the in-memory store. Initialized once at process
// start; read-only afterward.
var FixtureDocuments = []models.DocumentChunk{
	{
		ID:         "mock-1",
		Content:    "LIGO (Laser Interferometer Gravitational-Wave Observatory) is a large-scale physics experiment designed to detect cosmic gravitational waves. The observatory uses laser interferometry to measure the minute ripples in space-time caused by passing gravitational waves from cataclysmic cosmic events such as merging neutron stars or black holes.",
		Title:      "Introduction to LIGO",
		Authors:    "LIGO Scientific Collaboration",
		URL:        "https://www.ligo.org/science.php",
		Year:       2023,
		Source:     "LIGO Documentation",
		ChunkIndex: 0,
	},
	{
		ID:         "mock-2",
		Content:    "Gravity Spy is a citizen science project that helps classify glitches in gravitational-wave detector data. Volunteers examine spectrograms of detector noise to identify and categorize different types of instrumental artifacts that could interfere with gravitational-wave detection.",
		Title:      "Gravity Spy Citizen Science",
		Authors:    "Gravity Spy Team",
		URL:        "https://www.zooniverse.org/projects/zooniverse/gravity-spy",
		Year:       2024,
		Source:     "Zooniverse",
		ChunkIndex: 0,
	},
	{
		ID:         "mock-3",
		Content:    "aLOGs are the electronic logbooks kept at each detector site and contain detailed information about instrumental glitches found in the data. These logs help scientists understand the sources of noise and improve detector sensitivity by identifying and mitigating systematic issues.",
		Title:      "Understanding aLOGs",
		Authors:    "Detector Characterization Group",
		URL:        "https://alog.ligo-wa.caltech.edu/",
		Year:       2023,
		Source:     "aLOG Database",
		ChunkIndex: 0,
	},
}
