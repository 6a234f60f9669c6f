package catalog

import "embed"

// dataFS holds the default tile catalog and wanderer table.
//
//go:embed data/*.yaml
var dataFS embed.FS

const (
	defaultTilesFile     = "data/tiles.yaml"
	defaultWanderersFile = "data/wanderers.yaml"
)
