package services

import (
	"errors"
	"fmt"

	"github.com/trobanga/spittal/internal/lib"
	"github.com/trobanga/spittal/internal/models"
)

// CreateOptions carries the non-identifier parameters of creation calls
type CreateOptions struct {
	PubUser   string
	ModelKey  string
	Benchmark models.BenchmarkConfig
	GUL       models.GULConfig
	PubGUL    models.PubGULConfig
}

// Dispatcher turns a resource key plus its dependencies' identifiers into
// the backend creation call for that resource
type Dispatcher struct {
	client   *SessionClient
	own      *models.Registry
	upstream []models.RegistryView
	opts     CreateOptions
	logger   *lib.Logger
}

// NewDispatcher creates a dispatcher writing into own and reading dependencies
// from own first, then from upstream views in the given order
func NewDispatcher(client *SessionClient, own *models.Registry, opts CreateOptions, logger *lib.Logger, upstream ...models.RegistryView) *Dispatcher {
	return &Dispatcher{
		client:   client,
		own:      own,
		upstream: upstream,
		opts:     opts,
		logger:   logger,
	}
}

// Create issues the creation call for key and stores the returned task id.
// Nothing is sent when a dependency is not ready.
func (d *Dispatcher) Create(key models.ResourceKey) (int64, error) {
	if existing, err := d.own.Get(key); err == nil && existing.IsCreated() {
		return 0, fmt.Errorf("%s already created as task %d", key, *existing.CreationTaskID)
	}

	path, err := d.Path(key)
	if err != nil {
		return 0, err
	}

	resp, err := d.client.Send(path, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", key, err)
	}
	taskID, err := resp.Int64("taskId")
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", key, err)
	}

	created := func(r models.ResourceRecord) (models.ResourceRecord, error) {
		return models.SetCreated(r, taskID, resp.Raw()), nil
	}
	if d.own.Has(key) {
		err = d.own.Update(key, created)
	} else {
		err = d.own.Put(key, models.SetCreated(models.ResourceRecord{}, taskID, resp.Raw()))
	}
	if err != nil {
		return 0, err
	}

	d.logger.Info("Resource created", "resource", key.String(), "task_id", taskID)
	return taskID, nil
}

// Path builds the creation path for key from the current registry contents
func (d *Dispatcher) Path(key models.ResourceKey) (string, error) {
	t, ok := models.TypeOf(key)
	if !ok {
		return "", fmt.Errorf("unknown resource %s", key)
	}
	endpoint := "create" + t.TypeName()

	switch t {
	case models.TypeAreaPerilDict, models.TypeEventDict, models.TypeVulnDict,
		models.TypeDamageBinDict, models.TypeHazardIntensityBinDict,
		models.TypeExposureDict, models.TypeRandomNumberTable:
		rec, err := d.staged(key)
		if err != nil {
			return "", err
		}
		return apiPath(endpoint, d.opts.PubUser, rec.ModuleSupplierID, *rec.UploadHandle, *rec.DownloadHandle), nil

	case models.TypeHazFPVersion, models.TypeVulnVersion, models.TypeRandomNumberTableVersion:
		rec, err := d.staged(key)
		if err != nil {
			return "", err
		}
		return apiPath(endpoint, d.opts.PubUser, rec.ModuleSupplierID, *rec.UploadHandle, d.opts.ModelKey), nil

	case models.TypeExposureVersion:
		rec, err := d.staged(key)
		if err != nil {
			return "", err
		}
		correlation, err := d.resolve(key, models.TypeCorrelation.Key())
		if err != nil {
			return "", err
		}
		if correlation.UploadHandle == nil {
			return "", &lib.DependencyNotReadyError{Key: key, Dependency: models.TypeCorrelation.Key(), Reason: "has no upload handle"}
		}
		return apiPath(endpoint, d.opts.PubUser, rec.ModuleSupplierID, *rec.UploadHandle, *correlation.UploadHandle), nil

	case models.TypeCorrelation:
		return "", fmt.Errorf("%s is a plain file and has no creation call", key)

	case models.TypeExposureInstance:
		ids, err := d.taskIDs(key, t.Dependencies())
		if err != nil {
			return "", err
		}
		return apiPath(endpoint, prepend(d.opts.PubUser, ids)...), nil

	case models.TypeHazFPInstance, models.TypeVulnInstance:
		ids, err := d.taskIDs(key, t.Dependencies())
		if err != nil {
			return "", err
		}
		return apiPath(endpoint, append(prepend(d.opts.PubUser, ids), d.opts.ModelKey)...), nil

	case models.TypeRandomNumberTableInstance:
		ids, err := d.taskIDs(key, t.Dependencies())
		if err != nil {
			return "", err
		}
		g := d.opts.GUL
		return apiPath(endpoint, g.RandomTableName, ids[0], g.RandomChunks, g.RandomRowsPerChunk, g.RandomPages, g.RandomSamplesPerPage), nil

	case models.TypeBenchmark:
		ids, err := d.taskIDs(key, t.Dependencies())
		if err != nil {
			return "", err
		}
		b := d.opts.Benchmark
		return apiPath(endpoint, b.Name, ids[0], ids[1], ids[2], b.ChunkSize, b.MinChunk, b.MaxChunk), nil

	case models.TypeCDF:
		ids, err := d.taskIDs(key, t.Dependencies())
		if err != nil {
			return "", err
		}
		return apiPath(endpoint, d.opts.GUL.Name, ids[0], ids[1]), nil

	case models.TypeCDFSamples:
		ids, err := d.taskIDs(key, t.Dependencies())
		if err != nil {
			return "", err
		}
		return apiPath(endpoint, d.opts.GUL.Name, ids[0], d.opts.GUL.NumberOfSamples, ids[1]), nil

	case models.TypeGUL:
		ids, err := d.taskIDs(key, t.Dependencies())
		if err != nil {
			return "", err
		}
		return apiPath(endpoint, d.opts.GUL.Name, ids[0], d.opts.GUL.LossThreshold), nil

	case models.TypePubGUL:
		ids, err := d.taskIDs(key, t.Dependencies())
		if err != nil {
			return "", err
		}
		own, err := d.own.Get(key)
		if err != nil || own.DownloadHandle == nil {
			return "", &lib.DependencyNotReadyError{Key: key, Dependency: key, Reason: "has no download handle"}
		}
		return apiPath(endpoint, d.opts.PubGUL.Name, ids[0], *own.DownloadHandle), nil

	default:
		return "", fmt.Errorf("no creation call defined for %s", key)
	}
}

// staged returns the key's own record, which must hold both file handles
func (d *Dispatcher) staged(key models.ResourceKey) (models.ResourceRecord, error) {
	rec, err := d.own.Get(key)
	if err != nil {
		return rec, &lib.DependencyNotReadyError{Key: key, Dependency: key, Reason: "is not staged"}
	}
	if !rec.IsStaged() {
		return rec, &lib.DependencyNotReadyError{Key: key, Dependency: key, Reason: "has no file handles"}
	}
	return rec, nil
}

// resolve looks dep up in the own registry, then in each upstream view
func (d *Dispatcher) resolve(key, dep models.ResourceKey) (models.ResourceRecord, error) {
	views := append([]models.RegistryView{d.own}, d.upstream...)
	for _, view := range views {
		rec, err := view.Get(dep)
		if err == nil {
			return rec, nil
		}
		var notFound *models.NotFoundError
		if !errors.As(err, &notFound) {
			return rec, err
		}
	}
	return models.ResourceRecord{}, &lib.DependencyNotReadyError{Key: key, Dependency: dep, Reason: "is not registered"}
}

// taskIDs resolves the creation task id of every dependency, in order
func (d *Dispatcher) taskIDs(key models.ResourceKey, deps []models.ResourceKey) ([]interface{}, error) {
	ids := make([]interface{}, 0, len(deps))
	for _, dep := range deps {
		rec, err := d.resolve(key, dep)
		if err != nil {
			return nil, err
		}
		if !rec.IsCreated() {
			return nil, &lib.DependencyNotReadyError{Key: key, Dependency: dep, Reason: "has no creation task id"}
		}
		ids = append(ids, *rec.CreationTaskID)
	}
	return ids, nil
}

func prepend(first interface{}, rest []interface{}) []interface{} {
	return append([]interface{}{first}, rest...)
}
