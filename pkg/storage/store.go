package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tilefetch/pkg/config"
)

// Store holds one image artifact per target id. The presence of an artifact
// marks its id as done.
type Store interface {
	// Exists reports whether the artifact for id is already stored
	Exists(ctx context.Context, id int) (bool, error)
	// Save persists data as the artifact for id. Readers never observe a
	// partially written artifact.
	Save(ctx context.Context, id int, data []byte) error
	// Location describes where the artifact for id lives, for log lines
	Location(id int) string
	Close() error
}

const artifactExt = ".png"

// ArtifactName returns the object name for id
func ArtifactName(id int) string {
	return strconv.Itoa(id) + artifactExt
}

// parseArtifactName is the inverse of ArtifactName. Only the canonical
// spelling is accepted, so "007.png" does not stand in for "7.png".
func parseArtifactName(name string) (int, bool) {
	if !strings.HasSuffix(name, artifactExt) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSuffix(name, artifactExt))
	if err != nil || ArtifactName(id) != name {
		return 0, false
	}
	return id, true
}

// Open returns a bucket backed store when cfg.BucketURL is set and a
// directory store otherwise
func Open(ctx context.Context, cfg config.OutputConfig) (Store, error) {
	if cfg.BucketURL != "" {
		s, err := OpenBlobStore(ctx, cfg.BucketURL, cfg.Prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to open bucket: %w", err)
		}
		return s, nil
	}
	s, err := NewFileStore(cfg.Directory)
	if err != nil {
		return nil, err
	}
	return s, nil
}
