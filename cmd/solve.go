/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/notargets/fdmpc/InputParameters"
	"github.com/notargets/fdmpc/fdmpc"
	"github.com/notargets/fdmpc/form"
	"github.com/notargets/fdmpc/linalg"
	"github.com/notargets/fdmpc/mesh"
	"github.com/notargets/fdmpc/model_problems/Poisson"
	"github.com/notargets/fdmpc/space"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type ModelSolve struct {
	InputFile string
	Profile   bool
	Verbose   bool
	View      bool
}

// SolveCmd represents the solve command
var SolveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a model problem with an FDM preconditioned Krylov method",
	Long: `
Builds a box mesh, a spectral element space and the reference operator of the
problem file, then solves it with conjugate gradients preconditioned by FDM,

fdmpc solve -I problem.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		fmt.Println("solve called")
		ms := &ModelSolve{}
		if ms.InputFile, err = cmd.Flags().GetString("inputFile"); err != nil {
			panic(err)
		}
		ms.Profile, _ = cmd.Flags().GetBool("profile")
		ms.Verbose, _ = cmd.Flags().GetBool("verbose")
		ms.View, _ = cmd.Flags().GetBool("view")
		ip := processInput(ms)
		if ms.Profile {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		}
		if _, err = RunSolve(ms, ip, viper.GetViper(), os.Stdout); err != nil {
			panic(err)
		}
	},
}

func processInput(ms *ModelSolve) (ip *InputParameters.ProblemParameters) {
	var (
		err error
	)
	if len(ms.InputFile) == 0 {
		err = fmt.Errorf("must supply a problem file (-I, --inputFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
Title: "Test Case"
Cells: [8, 8]
Lengths: [1, 1]
Family: Q           # Q, the reference operator is continuous with identity mapping
Degree: 4
Dirichlet: [1, 3]   # box labels 2*axis+side+1
Source: 1.
Solver:
  fdm_pc_type: lu
  ksp_rtol: 1.e-8
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	var data []byte
	if data, err = os.ReadFile(ms.InputFile); err != nil {
		panic(err)
	}
	ip = &InputParameters.ProblemParameters{}
	if err = ip.Parse(data); err != nil {
		panic(err)
	}
	return
}

func init() {
	rootCmd.AddCommand(SolveCmd)
	SolveCmd.Flags().StringP("inputFile", "I", "", "YAML file for the problem:\n\t- Cells, Lengths, Layers\n\t- Family, Degree\n\t- Dirichlet labels")
	SolveCmd.Flags().BoolP("profile", "p", false, "write a CPU profile of the solve")
	SolveCmd.Flags().BoolP("verbose", "v", false, "print setup and assembly timings")
	SolveCmd.Flags().Bool("view", false, "print the solver configuration after the solve")
}

// RunSolve solves the problem of ip with the options of v and returns the
// outer solver, writing a summary to w.
func RunSolve(ms *ModelSolve, ip *InputParameters.ProblemParameters, v *viper.Viper, w io.Writer) (ksp *linalg.KSP, err error) {
	var (
		m    = mesh.NewBoxMesh(ip.Cells, ip.Lengths)
		e    space.Element
		bcs  []space.DirichletBC
		ref  *Poisson.Poisson
		opts = linalg.NewOptions(v, "")
	)
	ip.Print()
	for key, val := range ip.Solver {
		v.Set(key, val)
	}
	if len(ip.Layers) != 0 {
		m = mesh.Extrude(m, ip.Layers, ip.Height)
	}
	if ip.Components > 1 {
		e = space.NewVectorElement(ip.Family, ip.Degree, m.TDim, ip.Components)
	} else {
		e = space.NewElement(ip.Family, ip.Degree, m.TDim)
	}
	if len(ip.Dirichlet) != 0 {
		bcs = append(bcs, space.NewDirichletBC(ip.Dirichlet))
	}
	if ip.DirichletOn != "" {
		bcs = append(bcs, space.NewDirichletBC(ip.DirichletOn))
	}
	alpha := func(x []float64, cell int) float64 { return ip.Diffusion }
	var beta func(x []float64, cell int) float64
	if ip.Reaction != 0 {
		beta = func(x []float64, cell int) float64 { return ip.Reaction }
	}
	f := form.Diffusion(alpha, beta)
	start := time.Now()
	if ref, err = Poisson.NewPoisson(m, e, f, bcs); err != nil {
		return
	}
	log.Printf("assembled %d x %d reference operator with %d nonzeros in %v",
		ref.A.Size(), ref.A.Size(), ref.A.NNZ(), time.Since(start))

	appctx := fdmpc.AppContext{}
	if ip.Eta > 0 {
		appctx["eta"] = ip.Eta
	}
	if ip.QuadratureDegree > 0 {
		appctx["form_compiler_parameters"] = map[string]interface{}{"quadrature_degree": ip.QuadratureDegree}
	}
	pc := fdmpc.NewFDMPC(v, "")
	pc.Verbose = ms.Verbose
	start = time.Now()
	if err = pc.Initialize(ref.A, &fdmpc.Problem{Space: ref.Space, Form: f, BCs: bcs}, appctx); err != nil {
		return
	}
	log.Printf("preconditioner setup in %v", time.Since(start))

	if ksp, err = linalg.NewKSPWithPC(opts, ref.A, pc); err != nil {
		return
	}
	defer ksp.Destroy()
	var (
		b = ref.RHS(func(x []float64) float64 { return ip.Source })
		x = make([]float64, len(b))
	)
	start = time.Now()
	if err = ksp.Solve(b, x); err != nil {
		return
	}
	fmt.Fprintf(w, "%d iterations, residual %g, solve time %v\n", ksp.Iterations, ksp.ResidualNorm, time.Since(start))
	if ms.View {
		ksp.View(w, 0)
	}
	return
}
