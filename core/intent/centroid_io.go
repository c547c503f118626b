package intent

import (
	"encoding/json"
	"fmt"
	"os"
)

// SaveCentroids writes a centroid set to disk as JSON.
func SaveCentroids(path string, centroids map[Intent][]float32) error {
	data, err := json.Marshal(centroids)
	if err != nil {
		return fmt.Errorf("marshal centroids: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write centroids: %w", err)
	}
	return nil
}

// LoadCentroids reads a centroid set previously written by SaveCentroids.
func LoadCentroids(path string) (map[Intent][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read centroids: %w", err)
	}

	var centroids map[Intent][]float32
	if err := json.Unmarshal(data, &centroids); err != nil {
		return nil, fmt.Errorf("parse centroids: %w", err)
	}
	return centroids, nil
}
