package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/jpk-mapper/internal/profile"
	"github.com/ginjaninja78/jpk-mapper/internal/types"
	"github.com/ginjaninja78/jpk-mapper/internal/xlsxparser"
)

// =============================================================================
// CATALOG FILES
// =============================================================================

// catalogField mirrors types.FieldDefinition with a free-form type so that
// the spellings accepted by XLSX templates also work in YAML.
type catalogField struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Type     string   `yaml:"type"`
	Required bool     `yaml:"required"`
	Synonyms []string `yaml:"synonyms"`
	Pattern  string   `yaml:"pattern"`
}

type catalogFile struct {
	Catalogs map[string][]catalogField `yaml:"catalogs"`
}

// LoadCatalogs reads the catalogs file. ".xlsx" files are read as templates,
// everything else as YAML:
//
//	catalogs:
//	  sales:
//	    - name: NrKontrahenta
//	      label: NIP kontrahenta
//	      type: nip
//	      synonyms: [nip, nip nabywcy]
func LoadCatalogs(path string) (map[string]*types.Catalog, error) {
	var catalogs map[string]*types.Catalog
	var err error

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		catalogs, err = xlsxparser.ParseCatalog(path)
	} else {
		catalogs, err = loadYAMLCatalogs(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load catalogs: %w", err)
	}

	if err := validateCatalogs(catalogs); err != nil {
		return nil, fmt.Errorf("invalid catalogs in %s: %w", path, err)
	}
	return catalogs, nil
}

func loadYAMLCatalogs(path string) (map[string]*types.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	if len(file.Catalogs) == 0 {
		return nil, fmt.Errorf("%s defines no catalogs", path)
	}

	catalogs := make(map[string]*types.Catalog, len(file.Catalogs))
	for subtype, raw := range file.Catalogs {
		fields := make([]types.FieldDefinition, 0, len(raw))
		for _, f := range raw {
			fieldType, err := xlsxparser.NormalizeFieldType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("catalog %s, field %s: %w", subtype, f.Name, err)
			}
			fields = append(fields, types.FieldDefinition{
				Name:     strings.TrimSpace(f.Name),
				Label:    f.Label,
				Type:     fieldType,
				Required: f.Required,
				Synonyms: f.Synonyms,
				Pattern:  f.Pattern,
			})
		}
		catalogs[subtype] = types.NewCatalog(subtype, fields)
	}
	return catalogs, nil
}

// validateCatalogs rejects empty catalogs, unnamed or duplicated fields and
// patterns that do not compile. All problems are reported together.
func validateCatalogs(catalogs map[string]*types.Catalog) error {
	subtypes := make([]string, 0, len(catalogs))
	for s := range catalogs {
		subtypes = append(subtypes, s)
	}
	sort.Strings(subtypes)

	var problems []string
	for _, subtype := range subtypes {
		c := catalogs[subtype]
		if len(c.Fields) == 0 {
			problems = append(problems, fmt.Sprintf("catalog %s has no fields", subtype))
			continue
		}
		seen := make(map[string]bool, len(c.Fields))
		for i, f := range c.Fields {
			switch {
			case f.Name == "":
				problems = append(problems, fmt.Sprintf("catalog %s: field %d has no name", subtype, i+1))
			case seen[f.Name]:
				problems = append(problems, fmt.Sprintf("catalog %s: field %s defined twice", subtype, f.Name))
			}
			seen[f.Name] = true
			if f.Pattern != "" {
				if _, err := regexp.Compile(f.Pattern); err != nil {
					problems = append(problems, fmt.Sprintf("catalog %s: field %s: bad pattern: %v", subtype, f.Name, err))
				}
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// =============================================================================
// PROFILE FILES
// =============================================================================

type profileFile struct {
	Profiles []profile.Profile `yaml:"profiles"`
}

// LoadProfiles reads the profiles file:
//
//	profiles:
//	  - name: optima-sales
//	    system: optima
//	    document_type: JPK_V7M
//	    document_subtype: sales
//	    columns:
//	      0: LpSprzedazy
//	      3: DowodSprzedazy
//
// Column indices are 0-based. Field names are checked against the catalog
// of the profile subtype when catalogs is non-nil.
func LoadProfiles(path string, catalogs map[string]*types.Catalog) ([]profile.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	for i, p := range file.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d has no name", i+1)
		}
		if len(p.Columns) == 0 {
			return nil, fmt.Errorf("profile %s has no columns", p.Name)
		}
		for col, field := range p.Columns {
			if col < 0 {
				return nil, fmt.Errorf("profile %s: negative column %d", p.Name, col)
			}
			if catalogs == nil {
				continue
			}
			c, ok := catalogs[p.DocumentSubtype]
			if !ok {
				return nil, fmt.Errorf("profile %s: no catalog for subtype %q", p.Name, p.DocumentSubtype)
			}
			if _, ok := c.Field(field); !ok {
				return nil, fmt.Errorf("profile %s: column %d targets unknown field %q", p.Name, col, field)
			}
		}
	}
	return file.Profiles, nil
}
