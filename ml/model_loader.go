package ml

import (
	"fmt"
)

// LoadModel loads the artifact at path and checks it holds a modelType model.
func LoadModel(modelType, path string) (Classifier, *ArtifactHeader, error) {
	switch modelType {
	case ModelTypeRandomForest:
		model, header, err := LoadArtifact(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
		return model, header, nil
	default:
		return nil, nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}
