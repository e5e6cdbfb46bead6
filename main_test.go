package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsaid97/go-overlap-checker/geometry"
)

// side is the edge, in degrees, of a 100 ha square at the equator.
var side = math.Sqrt(100*geometry.SquareMetersPerHectare) / geometry.MetersPerDegreeLat

func rect(minX, minY, maxX, maxY float64) string {
	return fmt.Sprintf("POLYGON((%[1]v %[2]v, %[3]v %[2]v, %[3]v %[4]v, %[1]v %[4]v, %[1]v %[2]v))",
		minX, minY, maxX, maxY)
}

func zoningDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	csv := "nome_zona,sigla_zona,coordenadas_geograficas\n" +
		fmt.Sprintf("Zona A,ZA,\"%s\"\n", rect(0.9*side, 0, 2.9*side, side)) +
		fmt.Sprintf("Zona B,ZB,\"%s\"\n", rect(5, 5, 6, 6))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tb_area_zoneamento.csv"), []byte(csv), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	out, err := execute(t, "analyze",
		"--store-driver", "csv", "--store-dir", zoningDir(t),
		"--wkt", rect(0, 0, side, side))
	require.NoError(t, err)

	var res struct {
		PerLayer []struct {
			Name  string `json:"nome_base"`
			Total int    `json:"total_areas_com_sobreposicao"`
		} `json:"resultados_por_base"`
		Items []map[string]any `json:"areas_encontradas"`
		Total int              `json:"total_areas_com_sobreposicao"`
		Area  *float64         `json:"tamanho_area"`
		Sum   map[string]int   `json:"resumo_bases"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))

	// Only the zoning file exists; the other layers fail to load and count
	// as empty.
	assert.Len(t, res.PerLayer, 5)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Zoneamento: Zona A (ZA)", res.Items[0]["item_info"])
	assert.InDelta(t, 10, res.Items[0]["area"], 0.01)
	assert.Equal(t, 2, res.Sum["Base de Dados de Zoneamento"])
	require.NotNil(t, res.Area)
	assert.InDelta(t, 100, *res.Area, 0.5)
}

func TestAnalyzeCommandRejectsEmptyTarget(t *testing.T) {
	_, err := execute(t, "analyze", "--store-driver", "memory", "--wkt", " ")
	assert.Error(t, err)
}

func TestScreenCommand(t *testing.T) {
	out, err := execute(t, "screen",
		"--store-driver", "csv", "--store-dir", zoningDir(t),
		"--layer", "zoning",
		"--wkt", rect(0, 0, side, side))
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "zoning", res["layer"])
	assert.InDelta(t, 10, res["max_overlap_ha"], 0.05)

	_, err = execute(t, "screen", "--store-driver", "memory", "--layer", "rivers", "--wkt", rect(0, 0, side, side))
	assert.Error(t, err)
}
