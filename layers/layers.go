// Package layers describes the reference layers an analysis runs against and
// turns their records into findings.
package layers

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindParcel       Kind = "parcel"
	KindZoning       Kind = "zoning"
	KindPhytoecology Kind = "phytoecology"
	KindProtection   Kind = "protection"
	KindIndigenous   Kind = "indigenous"
)

// DefaultOrder is the order layers appear in reports.
var DefaultOrder = []Kind{KindParcel, KindZoning, KindPhytoecology, KindProtection, KindIndigenous}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range DefaultOrder {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown layer kind %q", s)
}

// Record is one reference-layer item: geometry text plus the attribute
// fields its layer kind describes.
type Record struct {
	Geometry string
	Fields   map[string]string
}

func (r Record) Field(key string) string {
	if r.Fields == nil {
		return ""
	}
	return strings.TrimSpace(r.Fields[key])
}

// Record field keys.
const (
	FieldParcelNumber     = "numero_car"
	FieldParcelStatus     = "status"
	FieldZoneName         = "nome_zona"
	FieldZoneAcronym      = "sigla_zona"
	FieldPhytoecologyName = "nome_fitoecologia"
	FieldUnitName         = "unidade"
	FieldDomains          = "dominios"
	FieldClassGroup       = "classe"
	FieldLegalBasis       = "fundo_legal"
	FieldIndigenousName   = "nome_area"
)

// Spec is one configured layer: which kind it is, how it is named in reports
// and where its records live.
type Spec struct {
	Kind Kind   `yaml:"kind"`
	Name string `yaml:"name"`
	// Table is the SQL table, or the file stem for csv and shapefile stores.
	Table         string `yaml:"table"`
	GeometryField string `yaml:"geometry_field"`
	// Fields maps record field keys to source column names.
	Fields map[string]string `yaml:"fields"`
}

func (s Spec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if d, ok := defaultSpecs[s.Kind]; ok {
		return d.Name
	}
	return string(s.Kind)
}

// Column returns the source column for a record field key.
func (s Spec) Column(field string) string {
	if c, ok := s.Fields[field]; ok && c != "" {
		return c
	}
	return field
}

// WithDefaults fills blank settings from the built-in spec of the same kind.
func (s Spec) WithDefaults() Spec {
	d, ok := defaultSpecs[s.Kind]
	if !ok {
		return s
	}
	if s.Name == "" {
		s.Name = d.Name
	}
	if s.Table == "" {
		s.Table = d.Table
	}
	if s.GeometryField == "" {
		s.GeometryField = d.GeometryField
	}
	fields := make(map[string]string, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = v
	}
	for k, v := range s.Fields {
		fields[k] = v
	}
	s.Fields = fields
	return s
}

const defaultGeometryColumn = "coordenadas_geograficas"

var defaultSpecs = map[Kind]Spec{
	KindParcel: {
		Kind:          KindParcel,
		Name:          "Base de Dados Sicar",
		Table:         "tb_registro_sicar",
		GeometryField: defaultGeometryColumn,
		Fields: map[string]string{
			FieldParcelNumber: "numero_car",
			FieldParcelStatus: "status",
		},
	},
	KindZoning: {
		Kind:          KindZoning,
		Name:          "Base de Dados de Zoneamento",
		Table:         "tb_area_zoneamento",
		GeometryField: defaultGeometryColumn,
		Fields: map[string]string{
			FieldZoneName:    "nome_zona",
			FieldZoneAcronym: "sigla_zona",
		},
	},
	KindPhytoecology: {
		Kind:          KindPhytoecology,
		Name:          "Base de Dados de Fitoecologias",
		Table:         "tb_area_fitoecologia",
		GeometryField: defaultGeometryColumn,
		Fields: map[string]string{
			FieldPhytoecologyName: "nome_fitoecologia",
		},
	},
	KindProtection: {
		Kind:          KindProtection,
		Name:          "Base de Dados de APAs",
		Table:         "tb_area_apa",
		GeometryField: defaultGeometryColumn,
		Fields: map[string]string{
			FieldUnitName:   "nome_unidade_conservacao",
			FieldDomains:    "dominios",
			FieldClassGroup: "grupo_classe",
			FieldLegalBasis: "fundo_legal",
		},
	},
	KindIndigenous: {
		Kind:          KindIndigenous,
		Name:          "Base de Dados de Indígenas",
		Table:         "tb_area_indigena",
		GeometryField: defaultGeometryColumn,
		Fields: map[string]string{
			FieldIndigenousName: "nome_area_indigena",
		},
	},
}

// DefaultSpecs returns the built-in layers in report order.
func DefaultSpecs() []Spec {
	specs := make([]Spec, 0, len(DefaultOrder))
	for _, k := range DefaultOrder {
		specs = append(specs, Spec{Kind: k}.WithDefaults())
	}
	return specs
}
