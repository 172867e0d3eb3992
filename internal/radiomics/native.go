package radiomics

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"radiomics-toolkit/internal/logger"
	"radiomics-toolkit/internal/volume"
)

// Version identifies the native feature definitions in result diagnostics.
const Version = "1.2.0"

// NativeEngine computes features in process.
type NativeEngine struct {
	settings Settings
	logger   logger.Logger
}

// NewNativeEngine creates a native engine. The logger should already be
// scoped to the verbosity wanted for engine internals. Enabled image types
// and feature classes the engine cannot compute are skipped with a warning.
func NewNativeEngine(settings Settings, log logger.Logger) (*NativeEngine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	native, dropped := settings.restrict(NativeImageTypes(), NativeFeatureClasses())
	if len(dropped) > 0 {
		log.Warning("radiomics", "native engine skips unsupported names", map[string]interface{}{
			"skipped": strings.Join(dropped, ","),
		})
	}
	return &NativeEngine{settings: native, logger: log}, nil
}

// Execute computes the enabled feature classes on every enabled image type.
// Shape features are computed on the original image only.
func (e *NativeEngine) Execute(ctx context.Context, image, mask *volume.Volume) (Result, error) {
	if err := checkInputs(image, mask, e.settings.Label); err != nil {
		return nil, err
	}

	region := newROI(mask, e.settings.Label)
	result := diagnostics(e.settings, image, mask, region)
	voxelVolume := image.Spacing[0] * image.Spacing[1] * image.Spacing[2]

	for _, it := range e.settings.ImageTypes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		derived := derive(it, image)
		values := region.values(derived)
		before := len(result)

		for _, class := range e.settings.FeatureClasses {
			var features map[string]float64
			switch class {
			case ClassShape:
				if it != ImageOriginal {
					continue
				}
				features = shape(region, image)
			case ClassFirstOrder:
				features = firstOrder(values, e.settings.BinWidth, voxelVolume)
			case ClassGLCM:
				bins, levels := discretize(values, e.settings.BinWidth)
				features = glcm(region, bins, levels, e.settings.Force2D)
				if features == nil {
					e.logger.Warning("radiomics", "no voxel pairs for texture matrix", map[string]interface{}{
						"image_type": string(it),
					})
					continue
				}
			}
			result = appendClass(result, fmt.Sprintf("%s_%s_", it, class), features)
		}

		e.logger.Debug("radiomics", "image type computed", map[string]interface{}{
			"image_type": string(it),
			"features":   len(result) - before,
		})
	}

	return result, nil
}

// appendClass adds features under prefix in name order.
func appendClass(result Result, prefix string, features map[string]float64) Result {
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		result = append(result, Entry{Key: prefix + name, Value: features[name]})
	}
	return result
}
