package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/spittal/internal/models"
)

func TestParseResourceKey(t *testing.T) {
	key, err := models.ParseResourceKey("dict_areaperil")
	require.NoError(t, err)
	assert.Equal(t, models.TypeAreaPerilDict.Key(), key)

	_, err = models.ParseResourceKey("dict")
	assert.Error(t, err)

	_, err = models.ParseResourceKey("dict_unknown")
	assert.Error(t, err)
}

func TestResourceKey_String(t *testing.T) {
	assert.Equal(t, "kernel_cdfsamples", models.TypeCDFSamples.Key().String())
}

func TestResourceTypes_KeysAreUnique(t *testing.T) {
	seen := make(map[models.ResourceKey]models.ResourceType)
	for _, rt := range models.AllResourceTypes() {
		if prev, dup := seen[rt.Key()]; dup {
			t.Fatalf("%v and %v share key %s", prev, rt, rt.Key())
		}
		seen[rt.Key()] = rt

		got, ok := models.TypeOf(rt.Key())
		require.True(t, ok)
		assert.Equal(t, rt, got)
	}
}

func TestResourceType_Shapes(t *testing.T) {
	assert.True(t, models.TypeEventDict.IsFileBacked())
	assert.True(t, models.TypeEventDict.IsCreatable())

	assert.True(t, models.TypeCorrelation.IsFileBacked())
	assert.False(t, models.TypeCorrelation.IsCreatable())
	assert.Empty(t, models.TypeCorrelation.TypeName())

	assert.False(t, models.TypeGUL.IsFileBacked())
	assert.True(t, models.TypeGUL.IsCreatable())
	assert.Equal(t, "GUL", models.TypeGUL.TypeName())
}

func TestResourceType_DependenciesAreDeclaredEarlier(t *testing.T) {
	// Every dependency must be created by the same or an upstream pipeline
	// before the dependent stage runs.
	position := make(map[models.ResourceKey]int)
	i := 0
	for _, name := range models.PipelineOrder {
		p, ok := models.PipelineFor(name)
		require.True(t, ok)
		for _, k := range p.Stages {
			position[k] = i
			i++
		}
	}

	for _, rt := range models.AllResourceTypes() {
		pos, declared := position[rt.Key()]
		if !declared {
			continue
		}
		for _, dep := range rt.Dependencies() {
			depPos, ok := position[dep]
			require.True(t, ok, "%s depends on undeclared %s", rt.Key(), dep)
			assert.Less(t, depPos, pos, "%s depends on %s which runs later", rt.Key(), dep)
		}
	}
}

func TestPipeline_FileResources(t *testing.T) {
	exposure := models.ExposurePipeline()

	files := exposure.FileResources()

	assert.Equal(t, []models.ResourceKey{
		models.TypeCorrelation.Key(),
		models.TypeExposureDict.Key(),
		models.TypeExposureVersion.Key(),
	}, files)
}

func TestPipelineFor_Unknown(t *testing.T) {
	_, ok := models.PipelineFor("unknown")
	assert.False(t, ok)
	assert.False(t, models.IsValidPipelineName("unknown"))
}
