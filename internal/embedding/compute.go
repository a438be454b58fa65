package embedding

import "fmt"

// Device identifies an execution target for embedding inference.
type Device string

const (
	// DeviceCPU runs inference on the CPU. Always available.
	DeviceCPU Device = "cpu"
	// DeviceCUDA runs inference on an NVIDIA GPU via the CUDA execution provider.
	DeviceCUDA Device = "cuda"
)

// ComputeContext is the explicit device/backend handle passed into every
// embedding call. Indices restored from disk are rebuilt onto the context's
// target rather than assumed identical to the one they were saved from.
type ComputeContext struct {
	Device Device
}

// DefaultContext returns a CPU compute context.
func DefaultContext() ComputeContext {
	return ComputeContext{Device: DeviceCPU}
}

// ParseDevice converts a config string into a Device.
func ParseDevice(s string) (Device, error) {
	switch Device(s) {
	case DeviceCPU, "":
		return DeviceCPU, nil
	case DeviceCUDA:
		return DeviceCUDA, nil
	default:
		return "", fmt.Errorf("unknown device: %s (supported: cpu, cuda)", s)
	}
}
