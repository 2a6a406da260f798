package consts

const (
	GroundNode   = "0"   // designated ground node of every circuit
	GroundAlias  = "gnd" // accepted spelling of ground
	UntitledName = "untitled"
)
