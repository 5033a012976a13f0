package cmd

import (
	"bytes"
	"testing"

	"github.com/notargets/fdmpc/InputParameters"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSolve(t *testing.T) {
	var (
		err error
	)
	fileInput := []byte(`
Title: Test Case
Cells: [3, 3]
Family: Q
Degree: 3
Dirichlet: [1, 2, 3, 4]
Source: 1.
Solver:
  ksp_rtol: 1.e-10
`)
	var input InputParameters.ProblemParameters
	require.NoError(t, input.Parse(fileInput))
	{
		var buf bytes.Buffer
		ksp, err := RunSolve(&ModelSolve{View: true}, &input, viper.New(), &buf)
		require.NoError(t, err)
		assert.True(t, ksp.Iterations <= 5, "%d iterations", ksp.Iterations)
		assert.Contains(t, buf.String(), "PC Object: type=fdm")
		assert.Contains(t, buf.String(), "iterations")
	}
	// Nested Krylov solve on the FDM matrix
	{
		input.Solver["fdm_pc_type"] = "ksp"
		input.Solver["fdm_ksp_pc_type"] = "jacobi"
		input.Solver["fdm_ksp_rtol"] = 1.e-12
		var buf bytes.Buffer
		_, err = RunSolve(&ModelSolve{View: true}, &input, viper.New(), &buf)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "PC Object: type=ksp")
	}
	// Only Q has a reference operator
	for _, family := range []string{"DQ", "RTCF", "RTCE"} {
		var buf bytes.Buffer
		bad := input
		bad.Family = family
		_, err = RunSolve(&ModelSolve{}, &bad, viper.New(), &buf)
		assert.Error(t, err, family)
	}
}

func TestRunCatalog(t *testing.T) {
	{
		var buf bytes.Buffer
		require.NoError(t, RunCatalog(&buf, true, 3, 0))
		assert.Contains(t, buf.String(), "CG degree 3")
		assert.NotContains(t, buf.String(), "Dfdm")
	}
	{
		var buf bytes.Buffer
		require.NoError(t, RunCatalog(&buf, false, 2, 0))
		assert.Contains(t, buf.String(), "IPDG(eta=9) degree 2")
		assert.Contains(t, buf.String(), "Dfdm")
	}
	{
		var buf bytes.Buffer
		assert.Error(t, RunCatalog(&buf, true, 0, 0))
	}
}
