package services

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5"

	"radiomics-toolkit/internal/config"
	"radiomics-toolkit/internal/fsutil"
	"radiomics-toolkit/internal/logger"
	"radiomics-toolkit/internal/volume"
)

var ErrRequiredFilesMissing = errors.New("required files not found")

// ViewerService loads the scan/mask pair of one patient for the viewer.
type ViewerService struct {
	fs     billy.Filesystem
	cfg    config.ViewerConfig
	logger logger.Logger
}

// ViewerInputs is a loaded scan/mask pair.
type ViewerInputs struct {
	Scan     *volume.Volume
	Mask     *volume.Volume
	ScanPath string
	MaskPath string
}

// MultiChannel reports whether the mask stores one segment per component.
func (in *ViewerInputs) MultiChannel() bool {
	return in.Mask.Components > 1
}

// NewViewerService creates a new viewer service
func NewViewerService(fs billy.Filesystem, cfg config.ViewerConfig, log logger.Logger) *ViewerService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ViewerService{fs: fs, cfg: cfg, logger: log}
}

// Load reads the scan as float32 (first component of a vector scan) and the
// mask unchanged. Both must exist and share the voxel grid.
func (vs *ViewerService) Load(dir string) (*ViewerInputs, error) {
	scanPath := filepath.Join(dir, vs.cfg.ScanName)
	maskPath := filepath.Join(dir, vs.cfg.SegmentationName)

	for _, path := range []string{scanPath, maskPath} {
		ok, err := fsutil.Exists(vs.fs, path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRequiredFilesMissing, path)
		}
	}

	scan, err := readVolume(vs.fs, scanPath)
	if err != nil {
		return nil, err
	}
	if scan.Components > 1 {
		scan, err = volume.SelectComponent(scan, 0, volume.Float32)
		if err != nil {
			return nil, err
		}
	} else {
		scan = volume.Cast(scan, volume.Float32)
	}

	mask, err := readVolume(vs.fs, maskPath)
	if err != nil {
		return nil, err
	}
	if scan.Size != mask.Size {
		return nil, fmt.Errorf("scan size %v does not match mask size %v", scan.Size, mask.Size)
	}

	vs.logger.Info("ViewerService", "volumes loaded", map[string]interface{}{
		"scan":          scanPath,
		"mask":          maskPath,
		"size":          fmt.Sprintf("%dx%dx%d", scan.Size[0], scan.Size[1], scan.Size[2]),
		"mask_channels": mask.Components,
	})

	return &ViewerInputs{Scan: scan, Mask: mask, ScanPath: scanPath, MaskPath: maskPath}, nil
}
