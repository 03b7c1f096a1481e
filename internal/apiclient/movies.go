package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/leikapui/sales-dashboard/internal/model"
)

// DataShapeError reports a movies response in none of the accepted shapes.
type DataShapeError struct {
	Endpoint string
	Snippet  string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("unexpected response shape from %s: %s", e.Endpoint, e.Snippet)
}

// ParseMovies maps every accepted movies response onto one list:
//
//	{"success": true, "data": [...]}
//	[...]
//	{"movies": [...]}
//
// Anything else is a *DataShapeError.
func ParseMovies(raw []byte) ([]model.Movie, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []model.Movie
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, shapeError(trimmed)
		}
		return list, nil
	}

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Movies  json.RawMessage `json:"movies"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, shapeError(trimmed)
	}
	var field json.RawMessage
	switch {
	case env.Success && present(env.Data):
		field = env.Data
	case present(env.Movies):
		field = env.Movies
	default:
		return nil, shapeError(trimmed)
	}
	var list []model.Movie
	if err := json.Unmarshal(field, &list); err != nil {
		return nil, shapeError(trimmed)
	}
	return list, nil
}

func present(m json.RawMessage) bool {
	return len(m) > 0 && !bytes.Equal(m, []byte("null"))
}

func shapeError(raw []byte) *DataShapeError {
	snip := string(raw)
	if len(snip) > 120 {
		snip = snip[:120] + "..."
	}
	return &DataShapeError{Endpoint: MoviesPath, Snippet: snip}
}

// Movies lists the catalogue within the user's scope. An unrecognized
// response shape is logged and reported as an empty list.
func (c *Client) Movies(ctx context.Context) ([]model.Movie, error) {
	q := c.Scope(ctx).Apply(nil)
	code, raw, err := c.do(ctx, "movies", http.MethodGet, MoviesPath, q, nil)
	if err != nil {
		return nil, err
	}
	if !success(code) {
		return nil, &StatusError{Op: "movies", Code: code}
	}
	list, err := ParseMovies(raw)
	if err != nil {
		c.logger.Warnw("movies response ignored", "error", err)
		return []model.Movie{}, nil
	}
	return list, nil
}
