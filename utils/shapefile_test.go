package utils

import (
	"archive/zip"
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"
)

// writeShapefile writes a polygon layer with a single NAME field.
func writeShapefile(t *testing.T, dir string, parts map[string][][]shp.Point) string {
	t.Helper()
	path := filepath.Join(dir, "layer.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("NAME", 20)}))

	for _, name := range []string{"a", "b"} {
		rings, ok := parts[name]
		if !ok {
			continue
		}
		p := shp.Polygon(*shp.NewPolyLine(rings))
		row := w.Write(&p)
		require.NoError(t, w.WriteAttribute(int(row), 0, name))
	}
	w.Close()

	// The writer names the attribute table without its dot.
	base := filepath.Join(dir, "layer")
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	return path
}

var (
	// Shapefile shells run clockwise, holes counter-clockwise.
	shellA = []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}
	holeA  = []shp.Point{{X: 0.25, Y: 0.25}, {X: 0.75, Y: 0.25}, {X: 0.75, Y: 0.75}, {X: 0.25, Y: 0.75}, {X: 0.25, Y: 0.25}}
	shellB = []shp.Point{{X: 2, Y: 2}, {X: 2, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 2}, {X: 2, Y: 2}}
	shellC = []shp.Point{{X: 5, Y: 5}, {X: 5, Y: 6}, {X: 6, Y: 6}, {X: 6, Y: 5}, {X: 5, Y: 5}}
)

func TestReadShapefile(t *testing.T) {
	path := writeShapefile(t, t.TempDir(), map[string][][]shp.Point{
		"a": {shellA, holeA},
		"b": {shellB, shellC},
	})

	features, err := ReadShapefile(path)
	require.NoError(t, err)
	require.Len(t, features, 2)

	assert.Equal(t, "a", features[0].Attributes["NAME"])
	a, err := geos.NewGeomFromWKT(features[0].WKT)
	require.NoError(t, err)
	assert.Equal(t, geos.TypeIDPolygon, a.TypeID())
	assert.Equal(t, 1, a.NumInteriorRings())
	assert.InDelta(t, 0.75, a.Area(), 1e-9)

	assert.Equal(t, "b", features[1].Attributes["NAME"])
	b, err := geos.NewGeomFromWKT(features[1].WKT)
	require.NoError(t, err)
	assert.Equal(t, geos.TypeIDMultiPolygon, b.TypeID())
	assert.InDelta(t, 2, b.Area(), 1e-9)
}

func TestReadShapefileFromZip(t *testing.T) {
	dir := t.TempDir()
	writeShapefile(t, dir, map[string][][]shp.Point{"a": {shellA}})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		data, err := os.ReadFile(filepath.Join(dir, "layer"+ext))
		require.NoError(t, err)
		f, err := zw.Create("layer" + ext)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	zipPath := filepath.Join(dir, "upload.zip")
	require.NoError(t, os.WriteFile(zipPath, buf.Bytes(), 0o600))

	features, err := ReadShapefile(zipPath)
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "a", features[0].Attributes["NAME"])
}

func TestReadShapefileRejectsOtherExtensions(t *testing.T) {
	_, err := ReadShapefile("layer.geojson")
	assert.Error(t, err)

	_, err = ReadShapefile(filepath.Join(t.TempDir(), "missing.shp"))
	assert.Error(t, err)
}

func TestTruncateFullGeometry(t *testing.T) {
	g, err := geos.NewGeomFromWKT("MULTIPOLYGON(((0.123456789 0, 1 0, 1 1, 0 1, 0.123456789 0)), ((2 2, 3 2, 3 3, 2 3, 2 2)))")
	require.NoError(t, err)

	out, err := TruncateFullGeometry(g)
	require.NoError(t, err)
	assert.Equal(t, geos.TypeIDMultiPolygon, out.TypeID())
	assert.Equal(t, 0.1234568, out.Geometry(0).ExteriorRing().CoordSeq().X(0))

	_, err = TruncateFullGeometry(nil)
	assert.Error(t, err)
}

func TestReadMultiPartFormAndSaveUpload(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("car", "MT-1"))
	fw, err := mw.CreateFormFile("file", "area.zip")
	require.NoError(t, err)
	_, err = fw.Write([]byte("zip bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	result, err := ReadMultiPartForm(req, "file", 0)
	require.NoError(t, err)
	assert.Equal(t, "MT-1", result.Properties.ExcludeParcel)
	assert.Empty(t, result.Properties.WKT)
	assert.Equal(t, "area.zip", result.FileName)
	assert.Equal(t, []byte("zip bytes"), result.File)

	path, cleanup, err := SaveUpload(result)
	require.NoError(t, err)
	assert.Equal(t, ".zip", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, result.File, data)
	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, _, err = SaveUpload(MultipartResult{})
	assert.ErrorIs(t, err, ErrNoUpload)
}
