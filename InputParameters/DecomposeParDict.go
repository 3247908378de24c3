package InputParameters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ghodss/yaml"
)

// Parameters of a decomposition, read from a YAML or TOML decomposeParDict
type DecomposeParDict struct {
	NumberOfSubdomains int    `json:"numberOfSubdomains" toml:"numberOfSubdomains"`
	Method             string `json:"method" toml:"method"`

	SimpleCoeffs SimpleCoeffs `json:"simpleCoeffs" toml:"simpleCoeffs"`
	MetisCoeffs  MetisCoeffs  `json:"metisCoeffs" toml:"metisCoeffs"`
	ManualCoeffs ManualCoeffs `json:"manualCoeffs" toml:"manualCoeffs"`

	// Reconstruction of non-conformal cyclics: "sort" or "quadratic"
	NonConformalStrategy string `json:"nonConformalStrategy" toml:"nonConformalStrategy"`
	// Patch names in the order reorderPatches should apply
	PatchOrder []string `json:"patchOrder" toml:"patchOrder"`
}

type SimpleCoeffs struct {
	N [3]int `json:"n" toml:"n"` // Slabs per direction, product must equal the subdomain count
}

type MetisCoeffs struct {
	Imbalance        float32 `json:"imbalance" toml:"imbalance"`
	Objective        string  `json:"objective" toml:"objective"` // "cut" or "vol"
	UseEdgeWeights   bool    `json:"useEdgeWeights" toml:"useEdgeWeights"`
	UseVertexWeights bool    `json:"useVertexWeights" toml:"useVertexWeights"`
}

type ManualCoeffs struct {
	DataFile   string `json:"dataFile" toml:"dataFile"`
	CellToProc []int  `json:"cellToProc" toml:"cellToProc"`
}

// NewDecomposeParDict returns the defaults used for fields a file leaves out
func NewDecomposeParDict() *DecomposeParDict {
	return &DecomposeParDict{
		NumberOfSubdomains: 1,
		Method:             "simple",
		SimpleCoeffs:       SimpleCoeffs{N: [3]int{1, 1, 1}},
		MetisCoeffs: MetisCoeffs{
			Imbalance:        1.05,
			Objective:        "vol",
			UseEdgeWeights:   true,
			UseVertexWeights: true,
		},
		NonConformalStrategy: "sort",
	}
}

func (dp *DecomposeParDict) Parse(data []byte) error {
	return yaml.Unmarshal(data, dp)
}

func (dp *DecomposeParDict) ParseTOML(data []byte) (err error) {
	_, err = toml.Decode(string(data), dp)
	return
}

// ReadDecomposeParDict reads a dictionary file, TOML for a .toml extension
// and YAML otherwise
func ReadDecomposeParDict(fileName string) (dp *DecomposeParDict, err error) {
	var data []byte
	if data, err = os.ReadFile(fileName); err != nil {
		return nil, fmt.Errorf("reading decomposeParDict: %w", err)
	}
	dp = NewDecomposeParDict()
	if strings.ToLower(filepath.Ext(fileName)) == ".toml" {
		err = dp.ParseTOML(data)
	} else {
		err = dp.Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", fileName, err)
	}
	if err = dp.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return
}

func (dp *DecomposeParDict) Validate() error {
	if dp.NumberOfSubdomains < 1 {
		return fmt.Errorf("numberOfSubdomains must be at least 1, have %d", dp.NumberOfSubdomains)
	}
	switch dp.NonConformalStrategy {
	case "", "sort", "quadratic":
	default:
		return fmt.Errorf("unknown nonConformalStrategy %q", dp.NonConformalStrategy)
	}
	if dp.Method == "simple" {
		n := dp.SimpleCoeffs.N
		if n[0]*n[1]*n[2] != dp.NumberOfSubdomains {
			return fmt.Errorf("simpleCoeffs n %v gives %d subdomains, numberOfSubdomains is %d",
				n, n[0]*n[1]*n[2], dp.NumberOfSubdomains)
		}
	}
	return nil
}

func (dp *DecomposeParDict) Print() {
	fmt.Printf("[%d]\t\t\t\t= Number of Subdomains\n", dp.NumberOfSubdomains)
	fmt.Printf("[%s]\t\t\t= Method\n", dp.Method)
	switch dp.Method {
	case "simple":
		fmt.Printf("%v\t\t\t= Simple N\n", dp.SimpleCoeffs.N)
	case "metis":
		fmt.Printf("%8.5f\t\t= Metis Imbalance\n", dp.MetisCoeffs.Imbalance)
		fmt.Printf("[%s]\t\t\t= Metis Objective\n", dp.MetisCoeffs.Objective)
	case "manual":
		fmt.Printf("\"%s\"\t\t= Manual Data File\n", dp.ManualCoeffs.DataFile)
	}
	fmt.Printf("[%s]\t\t\t= Non-conformal Strategy\n", dp.NonConformalStrategy)
	if len(dp.PatchOrder) > 0 {
		fmt.Printf("PatchOrder = %v\n", dp.PatchOrder)
	}
}
