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
	"os"

	"github.com/notargets/fdmpc/FDM1D"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

// CatalogCmd represents the catalog command
var CatalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the interval operators in the FDM basis",
	Long: `
Prints the FDM basis, the sparse mass and the four stiffness matrices for the
combinations of Dirichlet endpoints of one interval,

fdmpc catalog -n 4 --dg --eta 25`,
	Run: func(cmd *cobra.Command, args []string) {
		degree, _ := cmd.Flags().GetInt("n")
		dg, _ := cmd.Flags().GetBool("dg")
		eta, _ := cmd.Flags().GetFloat64("eta")
		if err := RunCatalog(os.Stdout, !dg, degree, eta); err != nil {
			panic(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(CatalogCmd)
	CatalogCmd.Flags().IntP("n", "n", 2, "polynomial degree")
	CatalogCmd.Flags().Bool("dg", false, "interior penalty operators of a discontinuous interval")
	CatalogCmd.Flags().Float64("eta", 0, "interior penalty, default (n+1)^2")
}

func RunCatalog(w io.Writer, continuous bool, degree int, eta float64) (err error) {
	var (
		ops *FDM1D.OperatorSet
	)
	if eta == 0 {
		eta = float64((degree + 1) * (degree + 1))
	}
	if ops, err = FDM1D.Get(continuous, degree, eta); err != nil {
		return
	}
	fmt.Fprintf(w, "%v\n", ops)
	fmt.Fprintf(w, "S = \n%v\n", mat.Formatted(ops.S.M, mat.Squeeze()))
	if ops.Dfdm != nil {
		fmt.Fprintf(w, "Dfdm = \n%v\n", mat.Formatted(ops.Dfdm.M, mat.Squeeze()))
	}
	fmt.Fprintf(w, "B = \n%v\n", mat.Formatted(ops.Mass().ToDense().M, mat.Squeeze()))
	for bc1 := 0; bc1 < 2; bc1++ {
		for bc0 := 0; bc0 < 2; bc0++ {
			A := ops.Stiffness(bc0, bc1)
			fmt.Fprintf(w, "A(bc=%d,%d), %d nonzeros = \n%v\n", bc0, bc1, A.NNZ(),
				mat.Formatted(A.ToDense().M, mat.Squeeze()))
		}
	}
	return
}
