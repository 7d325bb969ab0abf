package classify

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sohamzycus/contractos/internal/model"
)

//go:embed registry.yaml
var registryYAML []byte

// yamlFactSpec mirrors model.FactSpec's wire shape for registry.yaml decoding.
type yamlFactSpec struct {
	Name       string  `yaml:"name"`
	FactType   string  `yaml:"fact_type"`
	EntityType *string `yaml:"entity_type,omitempty"`
}

type yamlClauseType struct {
	TypeID          string           `yaml:"type_id"`
	DisplayName     string           `yaml:"display_name"`
	Keywords        map[string]int   `yaml:"keywords"`
	MandatoryFacts  []yamlFactSpec   `yaml:"mandatory_facts"`
	OptionalFacts   []yamlFactSpec   `yaml:"optional_facts"`
	CommonCrossRefs []string         `yaml:"common_cross_refs"`
}

type yamlRegistry struct {
	ClauseTypes []yamlClauseType `yaml:"clause_types"`
}

// registryEntry pairs a ClauseTypeSpec (used for slot filling) with the
// weighted keyword dictionary the pattern stage scores against.
type registryEntry struct {
	Spec     model.ClauseTypeSpec
	Keywords map[string]int
}

// loadRegistry decodes the embedded registry.yaml, grounded on the pack's
// preference for YAML-driven rule registries over hardcoded Go maps.
func loadRegistry() ([]registryEntry, error) {
	var raw yamlRegistry
	if err := yaml.Unmarshal(registryYAML, &raw); err != nil {
		return nil, fmt.Errorf("classify: parse registry.yaml: %w", err)
	}

	entries := make([]registryEntry, 0, len(raw.ClauseTypes))
	for _, ct := range raw.ClauseTypes {
		entries = append(entries, registryEntry{
			Spec: model.ClauseTypeSpec{
				TypeID:          ct.TypeID,
				DisplayName:     ct.DisplayName,
				MandatoryFacts:  toFactSpecs(ct.MandatoryFacts),
				OptionalFacts:   toFactSpecs(ct.OptionalFacts),
				CommonCrossRefs: ct.CommonCrossRefs,
			},
			Keywords: ct.Keywords,
		})
	}
	return entries, nil
}

func toFactSpecs(in []yamlFactSpec) []model.FactSpec {
	out := make([]model.FactSpec, 0, len(in))
	for _, f := range in {
		spec := model.FactSpec{Name: f.Name, FactType: model.FactType(f.FactType)}
		if f.EntityType != nil {
			et := model.EntityType(*f.EntityType)
			spec.EntityType = &et
		}
		out = append(out, spec)
	}
	return out
}
