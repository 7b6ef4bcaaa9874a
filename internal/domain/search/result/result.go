package result

import "encoding/json"

// Result is a single search hit.
type Result struct {
	id      PointID
	score   float64
	payload Payload
}

// New creates a search result.
func New(id PointID, score float64, payload Payload) Result {
	return Result{id: id, score: score, payload: payload}
}

// ID returns the point identifier.
func (r *Result) ID() PointID { return r.id }

// Score returns the similarity score.
func (r *Result) Score() float64 { return r.score }

// Payload returns the stored content.
func (r *Result) Payload() Payload { return r.payload }

type resultJSON struct {
	ID      PointID `json:"id"`
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}

// MarshalJSON writes the hit as {id, score, payload}.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{ID: r.id, Score: r.score, Payload: r.payload})
}

// UnmarshalJSON reads the hit shape returned by the vector index.
func (r *Result) UnmarshalJSON(data []byte) error {
	var v resultJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err //nolint:wrapcheck // decoding error is self-describing
	}
	*r = New(v.ID, v.Score, v.Payload)
	return nil
}
