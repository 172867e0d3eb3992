package radiomics

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"runtime"
	"strings"

	"gonum.org/v1/gonum/floats"

	"radiomics-toolkit/internal/volume"
)

func diagnostics(s Settings, image, mask *volume.Volume, region *roi) Result {
	types := make([]string, len(s.ImageTypes))
	for i, it := range s.ImageTypes {
		types[i] = string(it)
	}
	dimensionality := "3D"
	if s.Force2D {
		dimensionality = "2D"
	}

	var center [3]float64
	for _, c := range region.coords {
		for i := 0; i < 3; i++ {
			center[i] += float64(c[i])
		}
	}
	for i := range center {
		center[i] /= float64(region.count())
	}
	physical := mask.PhysicalPoint(center[0], center[1], center[2])

	size := [3]float64{}
	for i := 0; i < 3; i++ {
		size[i] = float64(region.bboxMax[i] - region.bboxMin[i] + 1)
	}

	return Result{
		{Key: "diagnostics_Versions_Engine", Value: "native " + Version},
		{Key: "diagnostics_Versions_Go", Value: runtime.Version()},
		{Key: "diagnostics_Configuration_Settings", Value: fmt.Sprintf("label=%d force2D=%t binWidth=%g", s.Label, s.Force2D, s.BinWidth)},
		{Key: "diagnostics_Configuration_EnabledImageTypes", Value: strings.Join(types, ",")},
		{Key: "diagnostics_Image-original_Hash", Value: hash(image.Data)},
		{Key: "diagnostics_Image-original_Dimensionality", Value: dimensionality},
		{Key: "diagnostics_Image-original_Spacing", Value: tuple(image.Spacing[:]...)},
		{Key: "diagnostics_Image-original_Size", Value: tuple(float64(image.Size[0]), float64(image.Size[1]), float64(image.Size[2]))},
		{Key: "diagnostics_Image-original_Mean", Value: floats.Sum(image.Data) / float64(len(image.Data))},
		{Key: "diagnostics_Image-original_Minimum", Value: floats.Min(image.Data)},
		{Key: "diagnostics_Image-original_Maximum", Value: floats.Max(image.Data)},
		{Key: "diagnostics_Mask-original_Hash", Value: hash(mask.Data)},
		{Key: "diagnostics_Mask-original_Spacing", Value: tuple(mask.Spacing[:]...)},
		{Key: "diagnostics_Mask-original_Size", Value: tuple(float64(mask.Size[0]), float64(mask.Size[1]), float64(mask.Size[2]))},
		{Key: "diagnostics_Mask-original_BoundingBox", Value: tuple(
			float64(region.bboxMin[0]), float64(region.bboxMin[1]), float64(region.bboxMin[2]),
			size[0], size[1], size[2],
		)},
		{Key: "diagnostics_Mask-original_VoxelNum", Value: float64(region.count())},
		{Key: "diagnostics_Mask-original_VolumeNum", Value: float64(region.components())},
		{Key: "diagnostics_Mask-original_CenterOfMassIndex", Value: tuple(center[:]...)},
		{Key: "diagnostics_Mask-original_CenterOfMass", Value: tuple(physical[:]...)},
	}
}

func hash(data []float64) string {
	h := sha1.New()
	buf := make([]byte, 8)
	for _, v := range data {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func tuple(values ...float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
