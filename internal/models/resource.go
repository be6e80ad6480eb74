package models

import (
	"fmt"
	"strings"
)

// Category is the first half of a resource key
type Category string

const (
	CategoryDict     Category = "dict"
	CategoryVersion  Category = "version"
	CategoryInstance Category = "instance"
	CategoryKernel   Category = "kernel"
)

// IsValidCategory checks if the category is recognized
func IsValidCategory(c Category) bool {
	switch c {
	case CategoryDict, CategoryVersion, CategoryInstance, CategoryKernel:
		return true
	default:
		return false
	}
}

// ResourceKey identifies one resource within a run, e.g. (dict, exposure)
type ResourceKey struct {
	Category Category `json:"category" yaml:"category"`
	Name     string   `json:"name" yaml:"name"`
}

// Key builds a ResourceKey
func Key(category Category, name string) ResourceKey {
	return ResourceKey{Category: category, Name: name}
}

// String renders the key as "category_name"
func (k ResourceKey) String() string {
	return string(k.Category) + "_" + k.Name
}

// ParseResourceKey parses "category_name" into a known ResourceKey
func ParseResourceKey(s string) (ResourceKey, error) {
	category, name, ok := strings.Cut(s, "_")
	if !ok || name == "" {
		return ResourceKey{}, fmt.Errorf("invalid resource key %q: expected <category>_<name>", s)
	}
	key := Key(Category(category), name)
	if _, ok := TypeOf(key); !ok {
		return ResourceKey{}, fmt.Errorf("unknown resource key %q", s)
	}
	return key, nil
}

// Shape describes which parameters a creation call takes
type Shape int

const (
	// ShapeFileOnly resources are uploaded but never created or queued
	ShapeFileOnly Shape = iota
	// ShapeDict takes an upload handle and a download handle
	ShapeDict
	// ShapeVersion takes an upload handle and the model key
	ShapeVersion
	// ShapeExposureVersion takes an upload handle and the correlation upload handle
	ShapeExposureVersion
	// ShapeDerived is built only from other resources' creation task ids
	ShapeDerived
)

func (s Shape) String() string {
	switch s {
	case ShapeFileOnly:
		return "file"
	case ShapeDict:
		return "dict"
	case ShapeVersion:
		return "version"
	case ShapeExposureVersion:
		return "exposure_version"
	case ShapeDerived:
		return "derived"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// ResourceType is the closed set of resources the backend knows about
type ResourceType int

const (
	TypeAreaPerilDict ResourceType = iota
	TypeEventDict
	TypeVulnDict
	TypeDamageBinDict
	TypeHazardIntensityBinDict
	TypeExposureDict
	TypeRandomNumberTable
	TypeHazFPVersion
	TypeVulnVersion
	TypeRandomNumberTableVersion
	TypeExposureVersion
	TypeCorrelation
	TypeExposureInstance
	TypeHazFPInstance
	TypeVulnInstance
	TypeRandomNumberTableInstance
	TypeBenchmark
	TypeCDF
	TypeCDFSamples
	TypeGUL
	TypePubGUL
)

type typeInfo struct {
	key      ResourceKey
	typeName string
	shape    Shape
}

var typeTable = [...]typeInfo{
	TypeAreaPerilDict:             {Key(CategoryDict, "areaperil"), "AreaPerilDict", ShapeDict},
	TypeEventDict:                 {Key(CategoryDict, "event"), "EventDict", ShapeDict},
	TypeVulnDict:                  {Key(CategoryDict, "vuln"), "VulnDict", ShapeDict},
	TypeDamageBinDict:             {Key(CategoryDict, "damagebin"), "DamageBinDict", ShapeDict},
	TypeHazardIntensityBinDict:    {Key(CategoryDict, "hazardintensitybin"), "HazardIntensityBinDict", ShapeDict},
	TypeExposureDict:              {Key(CategoryDict, "exposure"), "ExposureDict", ShapeDict},
	TypeRandomNumberTable:         {Key(CategoryDict, "random"), "RandomNumberTable", ShapeDict},
	TypeHazFPVersion:              {Key(CategoryVersion, "hazfp"), "HazFPVersion", ShapeVersion},
	TypeVulnVersion:               {Key(CategoryVersion, "vuln"), "VulnVersion", ShapeVersion},
	TypeRandomNumberTableVersion:  {Key(CategoryVersion, "random"), "RandomNumberTableVersion", ShapeVersion},
	TypeExposureVersion:           {Key(CategoryVersion, "exposure"), "ExposureVersion", ShapeExposureVersion},
	TypeCorrelation:               {Key(CategoryVersion, "correlation"), "", ShapeFileOnly},
	TypeExposureInstance:          {Key(CategoryInstance, "exposure"), "ExposureInstance", ShapeDerived},
	TypeHazFPInstance:             {Key(CategoryInstance, "hazfp"), "HazFPInstance", ShapeDerived},
	TypeVulnInstance:              {Key(CategoryInstance, "vuln"), "VulnInstance", ShapeDerived},
	TypeRandomNumberTableInstance: {Key(CategoryInstance, "random"), "RandomNumberTableInstance", ShapeDerived},
	TypeBenchmark:                 {Key(CategoryKernel, "benchmark"), "Benchmark", ShapeDerived},
	TypeCDF:                       {Key(CategoryKernel, "cdf"), "CDF", ShapeDerived},
	TypeCDFSamples:                {Key(CategoryKernel, "cdfsamples"), "CDFSamples", ShapeDerived},
	TypeGUL:                       {Key(CategoryKernel, "gul"), "GUL", ShapeDerived},
	TypePubGUL:                    {Key(CategoryKernel, "pubgul"), "PubGUL", ShapeDerived},
}

// AllResourceTypes returns every resource type in declaration order
func AllResourceTypes() []ResourceType {
	types := make([]ResourceType, len(typeTable))
	for i := range typeTable {
		types[i] = ResourceType(i)
	}
	return types
}

// TypeOf maps a key to its resource type
func TypeOf(key ResourceKey) (ResourceType, bool) {
	for i, info := range typeTable {
		if info.key == key {
			return ResourceType(i), true
		}
	}
	return 0, false
}

func (t ResourceType) valid() bool {
	return t >= 0 && int(t) < len(typeTable)
}

// Key returns the resource key for this type
func (t ResourceType) Key() ResourceKey {
	if !t.valid() {
		return ResourceKey{}
	}
	return typeTable[t].key
}

// TypeName is the backend name used in /create{TypeName} and /doTask{TypeName}
func (t ResourceType) TypeName() string {
	if !t.valid() {
		return ""
	}
	return typeTable[t].typeName
}

// Shape returns the creation shape of the type
func (t ResourceType) Shape() Shape {
	if !t.valid() {
		return ShapeFileOnly
	}
	return typeTable[t].shape
}

// IsFileBacked reports whether the type is created from an uploaded file
func (t ResourceType) IsFileBacked() bool {
	return t.Shape() != ShapeDerived
}

// IsCreatable reports whether the type has a creation endpoint
func (t ResourceType) IsCreatable() bool {
	return t.Shape() != ShapeFileOnly
}

func (t ResourceType) String() string {
	if !t.valid() {
		return fmt.Sprintf("ResourceType(%d)", int(t))
	}
	return typeTable[t].key.String()
}

// Dependencies lists, in path order, the resources whose creation task ids
// are embedded in this type's creation call
func (t ResourceType) Dependencies() []ResourceKey {
	switch t {
	case TypeExposureInstance:
		return []ResourceKey{TypeExposureVersion.Key(), TypeExposureDict.Key(), TypeAreaPerilDict.Key(), TypeVulnDict.Key()}
	case TypeHazFPInstance:
		return []ResourceKey{TypeHazFPVersion.Key(), TypeEventDict.Key(), TypeAreaPerilDict.Key(), TypeHazardIntensityBinDict.Key()}
	case TypeVulnInstance:
		return []ResourceKey{TypeVulnVersion.Key(), TypeVulnDict.Key(), TypeHazardIntensityBinDict.Key(), TypeDamageBinDict.Key()}
	case TypeRandomNumberTableInstance:
		return []ResourceKey{TypeRandomNumberTableVersion.Key()}
	case TypeBenchmark:
		return []ResourceKey{TypeHazFPInstance.Key(), TypeExposureInstance.Key(), TypeVulnInstance.Key()}
	case TypeCDF:
		return []ResourceKey{TypeBenchmark.Key(), TypeExposureInstance.Key()}
	case TypeCDFSamples:
		return []ResourceKey{TypeCDF.Key(), TypeRandomNumberTableInstance.Key()}
	case TypeGUL:
		return []ResourceKey{TypeCDFSamples.Key()}
	case TypePubGUL:
		return []ResourceKey{TypeGUL.Key()}
	default:
		return nil
	}
}
