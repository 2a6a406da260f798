package matrix

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// CircuitMatrix is a real nodal matrix; row and column 0 are ground and
// are not stored.
type CircuitMatrix struct {
	Size   int
	matrix *sparse.Matrix
	config *sparse.Configuration
}

func NewMatrix(size int) (*CircuitMatrix, error) {
	if size <= 0 {
		return nil, fmt.Errorf("matrix size must be positive, got %d", size)
	}

	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 false,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}

	return &CircuitMatrix{
		Size:   size,
		matrix: mat,
		config: config,
	}, nil
}

func (m *CircuitMatrix) AddElement(i, j int, value float64) {
	if i <= 0 || j <= 0 || i > m.Size || j > m.Size {
		return
	}
	m.matrix.GetElement(int64(i), int64(j)).Real += value
}

// StampConductance adds g between nodes n1 and n2; index 0 is ground.
func StampConductance(mat DeviceMatrix, n1, n2 int, g float64) {
	if n1 != 0 {
		mat.AddElement(n1, n1, g)
		if n2 != 0 {
			mat.AddElement(n1, n2, -g)
		}
	}
	if n2 != 0 {
		if n1 != 0 {
			mat.AddElement(n2, n1, -g)
		}
		mat.AddElement(n2, n2, g)
	}
}

// StampBranch couples branch row b to nodes n1 and n2 the way an ideal
// voltage source does; index 0 is ground.
func StampBranch(mat DeviceMatrix, n1, n2, b int) {
	if n1 != 0 {
		mat.AddElement(b, n1, 1)
		mat.AddElement(n1, b, 1)
	}
	if n2 != 0 {
		mat.AddElement(b, n2, -1)
		mat.AddElement(n2, b, -1)
	}
}

// Factor LU-factors the matrix; a singular matrix is an error.
func (m *CircuitMatrix) Factor() error {
	if err := m.matrix.Factor(); err != nil {
		return fmt.Errorf("matrix factorization failed: %w", err)
	}
	return nil
}

func (m *CircuitMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
	}
}
