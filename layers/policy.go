package layers

import (
	"fmt"
	"strings"
)

// Policy is what differs between layer kinds: the finding payload and
// whether the record's own area gates inclusion.
type Policy struct {
	Kind            Kind
	UsesSubjectArea bool
	Describe        func(rec Record, displayName string) map[string]any
}

var policies = map[Kind]Policy{
	KindParcel: {
		Kind:            KindParcel,
		UsesSubjectArea: true,
		Describe: func(rec Record, displayName string) map[string]any {
			return map[string]any{
				"item_info": fmt.Sprintf("%s - CAR: %s", displayName, rec.Field(FieldParcelNumber)),
				"status":    ParcelStatus(rec.Field(FieldParcelStatus)),
			}
		},
	},
	KindZoning: {
		Kind: KindZoning,
		Describe: func(rec Record, _ string) map[string]any {
			name, acronym := rec.Field(FieldZoneName), rec.Field(FieldZoneAcronym)
			return map[string]any{
				"item_info": fmt.Sprintf("Zoneamento: %s (%s)", name, acronym),
				"zona":      name,
				"sigla":     acronym,
			}
		},
	},
	KindPhytoecology: {
		Kind: KindPhytoecology,
		Describe: func(rec Record, _ string) map[string]any {
			name := rec.Field(FieldPhytoecologyName)
			return map[string]any{
				"item_info": fmt.Sprintf("Regiões Fitoecológicas: %s", name),
				"nome":      name,
			}
		},
	},
	KindProtection: {
		Kind: KindProtection,
		Describe: func(rec Record, _ string) map[string]any {
			legal := rec.Field(FieldLegalBasis)
			if legal == "" {
				legal = "Sem Lei"
			}
			return map[string]any{
				"unidade":     rec.Field(FieldUnitName),
				"dominios":    rec.Field(FieldDomains),
				"classe":      rec.Field(FieldClassGroup),
				"fundo_legal": legal,
			}
		},
	},
	KindIndigenous: {
		Kind: KindIndigenous,
		Describe: func(rec Record, _ string) map[string]any {
			name := rec.Field(FieldIndigenousName)
			return map[string]any{
				"item_info": fmt.Sprintf("Terras Indígenas: %s", name),
				"nome_area": name,
			}
		},
	},
}

func PolicyFor(kind Kind) (Policy, bool) {
	p, ok := policies[kind]
	return p, ok
}

var parcelStatuses = map[string]string{
	"AT": "Ativo",
	"CA": "CAR em conflito",
	"SU": "Suspenso",
}

// ParcelStatus expands registry status codes. Anything other than a known
// code means the record is under maintenance.
func ParcelStatus(code string) string {
	if s, ok := parcelStatuses[strings.TrimSpace(code)]; ok {
		return s
	}
	return "em Manutenção"
}
