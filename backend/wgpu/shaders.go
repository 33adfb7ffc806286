//go:build !nogpu

package wgpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/lensing/gpucore"
)

//go:embed shaders/camera_init.wgsl
var cameraInitShaderSource string

//go:embed shaders/ray_advance.wgsl
var rayAdvanceShaderSource string

// shaderSource returns the WGSL source of the kernel for kind.
func shaderSource(kind gpucore.StageKind) (string, error) {
	switch kind {
	case gpucore.StageCameraInit:
		return cameraInitShaderSource, nil
	case gpucore.StageRayAdvance:
		return rayAdvanceShaderSource, nil
	default:
		return "", fmt.Errorf("%w: %v", gpucore.ErrUnknownStage, kind)
	}
}

// compileSPIRV compiles WGSL source to SPIR-V words.
func compileSPIRV(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}
