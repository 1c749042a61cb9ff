package gradexr

const (
	defaultExposure = 0.0
	defaultContrast = 1.0
	midpointBlend   = 0.5
)

const (
	// toolName is recorded in the software attribute of written documents.
	toolName    = "gradexr"
	toolVersion = "1.0"
)
