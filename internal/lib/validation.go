package lib

import (
	"github.com/trobanga/spittal/internal/models"
)

// ValidateSectionPrerequisites checks that every section's upstream is also selected
// Returns the first unmet (section, prerequisite) pair as a SpittalError
func ValidateSectionPrerequisites(sections []models.PipelineName) error {
	selected := make(map[models.PipelineName]bool, len(sections))
	for _, s := range sections {
		selected[s] = true
	}

	for _, s := range sections {
		for _, prerequisite := range GetSectionDependencies(s) {
			if !selected[prerequisite] {
				return ErrSectionPrerequisiteNotMet(s, prerequisite)
			}
		}
	}
	return nil
}

// GetSectionDependencies returns the sections whose registries the given
// section reads, in the order the dispatcher consults them
func GetSectionDependencies(section models.PipelineName) []models.PipelineName {
	p, exists := models.PipelineFor(section)
	if !exists {
		return []models.PipelineName{}
	}
	return p.Upstream
}
