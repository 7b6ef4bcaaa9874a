package domain

import "github.com/kailas-cloud/skills-handbook/internal/domain/search/result"

// Point is one stored memory: its vector and the payload returned with search hits.
type Point struct {
	ID      result.PointID `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload result.Payload `json:"payload"`
}
