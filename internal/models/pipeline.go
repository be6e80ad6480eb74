package models

// PipelineName identifies one declared pipeline
type PipelineName string

const (
	PipelineModel     PipelineName = "model"
	PipelineExposure  PipelineName = "exposure"
	PipelineBenchmark PipelineName = "benchmark"
	PipelineGUL       PipelineName = "gul"
	PipelinePubGUL    PipelineName = "pubgul"
)

// PipelineOrder is the fixed order in which pipelines run within one workflow
var PipelineOrder = []PipelineName{
	PipelineModel,
	PipelineExposure,
	PipelineBenchmark,
	PipelineGUL,
	PipelinePubGUL,
}

// IsValidPipelineName checks if the pipeline name is recognized
func IsValidPipelineName(name PipelineName) bool {
	for _, p := range PipelineOrder {
		if p == name {
			return true
		}
	}
	return false
}

// Pipeline is a declared, ordered sequence of resources
// Order is a total order sufficient for correctness; it is never computed
type Pipeline struct {
	Name PipelineName
	// Attachments are file-only resources staged before the first stage
	Attachments []ResourceKey
	// Stages are created, queued and awaited strictly in this order
	Stages []ResourceKey
	// Upstream names the pipelines whose registries this one reads
	Upstream []PipelineName
}

// ModelPipeline uploads and loads the model dictionaries and versions
func ModelPipeline() Pipeline {
	return Pipeline{
		Name: PipelineModel,
		Stages: []ResourceKey{
			TypeAreaPerilDict.Key(),
			TypeEventDict.Key(),
			TypeVulnDict.Key(),
			TypeDamageBinDict.Key(),
			TypeHazardIntensityBinDict.Key(),
			TypeHazFPVersion.Key(),
			TypeVulnVersion.Key(),
		},
	}
}

// ExposurePipeline builds the exposure and the model instances against a model run
func ExposurePipeline() Pipeline {
	return Pipeline{
		Name:        PipelineExposure,
		Attachments: []ResourceKey{TypeCorrelation.Key()},
		Stages: []ResourceKey{
			TypeExposureDict.Key(),
			TypeExposureVersion.Key(),
			TypeExposureInstance.Key(),
			TypeHazFPInstance.Key(),
			TypeVulnInstance.Key(),
		},
		Upstream: []PipelineName{PipelineModel},
	}
}

// BenchmarkPipeline creates the benchmark kernel from the exposure instances
func BenchmarkPipeline() Pipeline {
	return Pipeline{
		Name:     PipelineBenchmark,
		Stages:   []ResourceKey{TypeBenchmark.Key()},
		Upstream: []PipelineName{PipelineExposure},
	}
}

// GULPipeline creates random numbers and the ground-up-loss kernels
func GULPipeline() Pipeline {
	return Pipeline{
		Name: PipelineGUL,
		Stages: []ResourceKey{
			TypeRandomNumberTableVersion.Key(),
			TypeRandomNumberTableInstance.Key(),
			TypeCDF.Key(),
			TypeCDFSamples.Key(),
			TypeGUL.Key(),
		},
		Upstream: []PipelineName{PipelineBenchmark, PipelineExposure},
	}
}

// PubGULPipeline publishes the ground-up-loss data
func PubGULPipeline() Pipeline {
	return Pipeline{
		Name:     PipelinePubGUL,
		Stages:   []ResourceKey{TypePubGUL.Key()},
		Upstream: []PipelineName{PipelineGUL},
	}
}

// PipelineFor returns the declared pipeline for a name
func PipelineFor(name PipelineName) (Pipeline, bool) {
	switch name {
	case PipelineModel:
		return ModelPipeline(), true
	case PipelineExposure:
		return ExposurePipeline(), true
	case PipelineBenchmark:
		return BenchmarkPipeline(), true
	case PipelineGUL:
		return GULPipeline(), true
	case PipelinePubGUL:
		return PubGULPipeline(), true
	default:
		return Pipeline{}, false
	}
}

// FileResources returns every file-backed key the pipeline stages
func (p Pipeline) FileResources() []ResourceKey {
	var keys []ResourceKey
	keys = append(keys, p.Attachments...)
	for _, k := range p.Stages {
		if t, ok := TypeOf(k); ok && t.IsFileBacked() {
			keys = append(keys, k)
		}
	}
	return keys
}
