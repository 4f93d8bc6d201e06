package classify

import (
	"regexp"
	"strings"

	"argus/core"
)

// technologyKeywords are matched as substrings of the lowercase text blob.
var technologyKeywords = []string{
	"kubernetes",
	"docker",
	"aws",
	"postgresql",
	"mysql",
	"redis",
	"nginx",
	"apache",
	"jenkins",
	"prometheus",
}

var environmentKeywords = []string{
	"production",
	"staging",
	"development",
	"test",
}

// servicePattern extracts a service name from "service: foo", "app: foo" or
// "application: foo" phrasing. The blob is already lowercase.
var servicePattern = regexp.MustCompile(`(?:service|app|application)[:\s]+([a-z0-9_-]+)`)

// SmartTags derives tags from the alert text: technology and environment
// keywords, the resolved category name, and an optional service:<name> tag.
func SmartTags(blob string, category core.Category) []string {
	var tags []string

	for _, kw := range technologyKeywords {
		if strings.Contains(blob, kw) {
			tags = append(tags, kw)
		}
	}
	for _, kw := range environmentKeywords {
		if strings.Contains(blob, kw) {
			tags = append(tags, kw)
		}
	}

	tags = append(tags, category.String())

	if m := servicePattern.FindStringSubmatch(blob); m != nil {
		tags = append(tags, "service:"+m[1])
	}

	return tags
}
