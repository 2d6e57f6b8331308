package ml

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	ArtifactFormat  = "irisforest/classifier"
	ArtifactVersion = 1
)

var (
	ErrIncompatibleArtifact = errors.New("incompatible model artifact")
	ErrDigestMismatch       = errors.New("model artifact digest mismatch")
)

// ArtifactHeader describes a persisted classifier. Digest is the sha256 of the
// compact JSON payload and doubles as the artifact's identity.
type ArtifactHeader struct {
	Format       string    `json:"format"`
	Version      int       `json:"version"`
	ModelType    string    `json:"model_type"`
	NumFeatures  int       `json:"num_features"`
	Classes      []int     `json:"classes"`
	FeatureNames []string  `json:"feature_names,omitempty"`
	TargetNames  []string  `json:"target_names,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Digest       string    `json:"digest"`
}

type artifactFile struct {
	ArtifactHeader
	Payload json.RawMessage `json:"payload"`
}

// ArtifactMeta carries the descriptive fields written next to the model.
type ArtifactMeta struct {
	FeatureNames []string
	TargetNames  []string
}

// SaveArtifact writes model to path, replacing any existing file.
func SaveArtifact(path string, model *RandomForest, meta ArtifactMeta) (*ArtifactHeader, error) {
	payload, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}

	file := artifactFile{
		ArtifactHeader: ArtifactHeader{
			Format:       ArtifactFormat,
			Version:      ArtifactVersion,
			ModelType:    ModelTypeRandomForest,
			NumFeatures:  model.NumFeatures(),
			Classes:      model.Classes(),
			FeatureNames: meta.FeatureNames,
			TargetNames:  meta.TargetNames,
			CreatedAt:    time.Now().UTC(),
			Digest:       digest(payload),
		},
		Payload: payload,
	}
	data, err := json.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return nil, err
	}
	header := file.ArtifactHeader
	return &header, nil
}

// LoadArtifact reads and verifies an artifact written by SaveArtifact.
func LoadArtifact(path string) (*RandomForest, *ArtifactHeader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return DecodeArtifact(data)
}

// DecodeArtifact verifies format, version and digest before decoding the model.
func DecodeArtifact(data []byte) (*RandomForest, *ArtifactHeader, error) {
	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrIncompatibleArtifact, err)
	}
	header := file.ArtifactHeader
	if header.Format != ArtifactFormat {
		return nil, nil, fmt.Errorf("%w: format %q, want %q", ErrIncompatibleArtifact, header.Format, ArtifactFormat)
	}
	if header.Version != ArtifactVersion {
		return nil, nil, fmt.Errorf("%w: version %d, want %d", ErrIncompatibleArtifact, header.Version, ArtifactVersion)
	}
	if header.ModelType != ModelTypeRandomForest {
		return nil, nil, fmt.Errorf("%w: model type %q", ErrIncompatibleArtifact, header.ModelType)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, file.Payload); err != nil {
		return nil, nil, fmt.Errorf("%w: payload: %v", ErrIncompatibleArtifact, err)
	}
	if got := digest(compact.Bytes()); got != header.Digest {
		return nil, nil, fmt.Errorf("%w: got %s, header says %s", ErrDigestMismatch, got, header.Digest)
	}

	model := &RandomForest{}
	if err := json.Unmarshal(compact.Bytes(), model); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrIncompatibleArtifact, err)
	}
	if model.NumFeatures() != header.NumFeatures {
		return nil, nil, fmt.Errorf("%w: payload has %d features, header says %d", ErrIncompatibleArtifact, model.NumFeatures(), header.NumFeatures)
	}
	if !equalInts(model.Classes(), header.Classes) {
		return nil, nil, fmt.Errorf("%w: payload classes %v, header says %v", ErrIncompatibleArtifact, model.Classes(), header.Classes)
	}
	return model, &header, nil
}

func digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
