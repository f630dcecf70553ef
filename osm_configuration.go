package nkdvprep

// OsmConfiguration allows to filter ways by certain tags from OSM data
type OsmConfiguration struct {
	EntityName string // Currrently we support 'highway' only
	Tags       []string
}

// DefaultOsmConfiguration returns configuration for drivable roads
func DefaultOsmConfiguration() *OsmConfiguration {
	return &OsmConfiguration{
		EntityName: "highway",
		Tags: []string{
			"motorway", "motorway_link", "trunk", "trunk_link", "primary", "primary_link",
			"secondary", "secondary_link", "tertiary", "tertiary_link", "residential",
			"living_street", "unclassified", "road",
		},
	}
}

// CheckTag checks if incoming tag is represented in configuration. Empty list of tags allows any value
func (cfg *OsmConfiguration) CheckTag(tag string) bool {
	if tag == "" {
		return false
	}
	if len(cfg.Tags) == 0 {
		return true
	}
	for i := range cfg.Tags {
		if cfg.Tags[i] == tag {
			return true
		}
	}
	return false
}
