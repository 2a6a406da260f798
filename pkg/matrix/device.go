package matrix

type DeviceMatrix interface {
	AddElement(i, j int, value float64) // 1-based indexing
}
