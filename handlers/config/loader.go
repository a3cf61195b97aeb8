package config

import (
	"context"
)

// ModelSet is a validated service config plus the model config of every version it names.
type ModelSet struct {
	Service OnSceneModelServiceConfig
	Models  map[string]OnSceneModelConfig
}

// LoadModelSet reads the service document serviceConfigName and each referenced model
// document.
func LoadModelSet(ctx context.Context, reader Reader, serviceConfigName string) (*ModelSet, error) {
	raw, err := reader.Read(ctx, serviceConfigName)
	if err != nil {
		return nil, err
	}
	service, err := ParseServiceConfig(raw)
	if err != nil {
		return nil, err
	}
	set := &ModelSet{Service: service, Models: make(map[string]OnSceneModelConfig)}
	for _, version := range service.Versions() {
		name, err := ModelConfigName(version)
		if err != nil {
			return nil, err
		}
		raw, err := reader.Read(ctx, name)
		if err != nil {
			return nil, err
		}
		model, err := ParseModelConfig(raw)
		if err != nil {
			return nil, err
		}
		set.Models[version] = model
	}
	return set, nil
}
