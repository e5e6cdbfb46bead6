package handlers

import (
	"errors"
	"strings"

	"github.com/twpayne/go-geos"
)

var ErrUnparseable = errors.New("geometry text could not be parsed")

type Error struct {
	Ref          int    `json:"ref"`
	ErrorMessage string `json:"errorMessage"`
}

// CheckGeometry lists the invalid parts of a geometry. Parts are numbered as
// GEOS numbers them; a single polygon is part 0.
func CheckGeometry(geometryCollection *geos.Geom) []Error {
	problems := make([]Error, 0)
	for i := range geometryCollection.NumGeometries() {
		shape := geometryCollection.Geometry(i)
		if !shape.IsValid() {
			problems = append(problems, Error{Ref: i, ErrorMessage: shape.IsValidReason()})
		}
	}
	return problems
}

// CheckWKT parses text as is, without repair, and reports its invalid parts.
func CheckWKT(text string) (problems []Error, err error) {
	defer func() {
		if r := recover(); r != nil {
			problems, err = nil, ErrUnparseable
		}
	}()
	g, err := geos.NewGeomFromWKT(strings.TrimSpace(text))
	if err != nil {
		return nil, ErrUnparseable
	}
	return CheckGeometry(g), nil
}
