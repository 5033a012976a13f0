package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML problem file
type ProblemParameters struct {
	Title            string                 `yaml:"Title"`
	Cells            []int                  `yaml:"Cells"`   // cells per axis of the box
	Lengths          []float64              `yaml:"Lengths"` // box extent per axis, default 1
	Layers           []int                  `yaml:"Layers"`  // extrude when set, one count or one per base cell
	Height           float64                `yaml:"Height"`
	Family           string                 `yaml:"Family"`
	Degree           int                    `yaml:"Degree"`
	Components       int                    `yaml:"Components"` // vector valued when > 1
	Dirichlet        []int                  `yaml:"Dirichlet"`
	DirichletOn      string                 `yaml:"DirichletOn"` // on_boundary, top or bottom
	Diffusion        float64                `yaml:"Diffusion"`
	Reaction         float64                `yaml:"Reaction"`
	Source           float64                `yaml:"Source"`
	Eta              float64                `yaml:"Eta"`
	QuadratureDegree int                    `yaml:"QuadratureDegree"`
	Solver           map[string]interface{} `yaml:"Solver"` // option database entries, e.g. fdm_pc_type: lu
}

func (ip *ProblemParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	return ip.Validate()
}

// Validate fills the defaults and checks the dimensions agree
func (ip *ProblemParameters) Validate() error {
	if len(ip.Cells) < 1 || len(ip.Cells) > 3 {
		return fmt.Errorf("need 1 to 3 cell counts, have %v", ip.Cells)
	}
	if len(ip.Lengths) == 0 {
		for range ip.Cells {
			ip.Lengths = append(ip.Lengths, 1)
		}
	}
	if len(ip.Lengths) != len(ip.Cells) {
		return fmt.Errorf("have %d lengths for %d axes", len(ip.Lengths), len(ip.Cells))
	}
	if len(ip.Layers) != 0 && len(ip.Cells) == 3 {
		return fmt.Errorf("cannot extrude a 3D box")
	}
	if len(ip.Layers) != 0 && ip.Height == 0 {
		ip.Height = 1
	}
	if ip.Family == "" {
		ip.Family = "Q"
	}
	if ip.Degree < 1 {
		return fmt.Errorf("degree %d is below the minimum of 1", ip.Degree)
	}
	if ip.Diffusion == 0 {
		ip.Diffusion = 1
	}
	return nil
}

// Dim is the topological dimension of the mesh
func (ip *ProblemParameters) Dim() int {
	if len(ip.Layers) != 0 {
		return len(ip.Cells) + 1
	}
	return len(ip.Cells)
}

func (ip *ProblemParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%v x %v\t\t= Cells x Lengths\n", ip.Cells, ip.Lengths)
	if len(ip.Layers) != 0 {
		fmt.Printf("%v, %8.5f\t\t= Layers, Height\n", ip.Layers, ip.Height)
	}
	fmt.Printf("[%s]\t\t\t= Family\n", ip.Family)
	fmt.Printf("[%d]\t\t\t\t= Polynomial Degree\n", ip.Degree)
	if ip.Components > 1 {
		fmt.Printf("[%d]\t\t\t\t= Components\n", ip.Components)
	}
	fmt.Printf("%v %s\t\t\t= Dirichlet\n", ip.Dirichlet, ip.DirichletOn)
	fmt.Printf("%8.5f\t\t= Diffusion\n", ip.Diffusion)
	fmt.Printf("%8.5f\t\t= Reaction\n", ip.Reaction)
	fmt.Printf("%8.5f\t\t= Source\n", ip.Source)
	keys := make([]string, len(ip.Solver))
	i := 0
	for k := range ip.Solver {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("Solver[%s] = %v\n", key, ip.Solver[key])
	}
}
