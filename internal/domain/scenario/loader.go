package scenario

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/safeload/internal/domain/model"
)

// catalogKey is the top-level YAML key holding the scenario list.
const catalogKey = "scenarios"

// LoadFile reads a YAML catalog of the form:
//
//	scenarios:
//	  - name: dashboard
//	    weight: 30
//	    requests:
//	      - method: GET
//	        path: /api/dashboard/stats
func LoadFile(path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadCatalog, path, err)
	}
	return fromKoanf(k)
}

// LoadBytes parses a YAML catalog held in memory.
func LoadBytes(b []byte) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(rawBytes(b), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadCatalog, err)
	}
	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*Catalog, error) {
	var scenarios []model.Scenario
	if err := k.UnmarshalWithConf(catalogKey, &scenarios, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadCatalog, err)
	}
	return NewCatalog(scenarios)
}

// rawBytes adapts a byte slice to the koanf.Provider interface.
type rawBytes []byte

func (b rawBytes) ReadBytes() ([]byte, error) { return b, nil }

func (b rawBytes) Read() (map[string]interface{}, error) {
	return nil, fmt.Errorf("raw bytes provider does not support Read")
}
