// Package imgio loads and saves volumes in the NIfTI-1 format used by the
// surrounding analysis tooling. Voxel data is decoded through the nifti
// library; the header is additionally parsed here because the library
// does not expose the full spatial metadata (sform rows) that the volume
// geometry needs, and it provides no writer at all.
package imgio

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/henghuang/nifti"
	"gonum.org/v1/gonum/mat"

	"brainprep/pkg/volume"
)

const (
	headerSize       = 348
	float32Type      = 16
	float32Bits      = 32
	xformScannerAnat = 1
)

// nifti1Header mirrors the 348-byte NIfTI-1 header layout.
type nifti1Header struct {
	SizeofHdr          int32
	UnusedDataType     [10]int8
	UnusedDbName       [18]int8
	UnusedExtents      int32
	UnusedSessionError int16
	UnusedRegular      int8
	DimInfo            int8
	Dim                [8]int16
	IntentP1           float32
	IntentP2           float32
	IntentP3           float32
	IntentCode         int16
	Datatype           int16
	Bitpix             int16
	SliceStart         int16
	Pixdim             [8]float32
	VoxOffset          float32
	SclSlope           float32
	SclInter           float32
	SliceEnd           int16
	SliceCode          int8
	XyztUnits          int8
	CalMax             float32
	CalMin             float32
	SliceDuration      float32
	Toffset            float32
	UnusedGlmax        int32
	UnusedGlmin        int32
	Descrip            [80]int8
	AuxFile            [24]int8
	QformCode          int16
	SformCode          int16
	QuaternB           float32
	QuaternC           float32
	QuaternD           float32
	QoffsetX           float32
	QoffsetY           float32
	QoffsetZ           float32
	SrowX              [4]float32
	SrowY              [4]float32
	SrowZ              [4]float32
	IntentName         [16]int8
	Magic              [4]int8
}

// openMaybeGzip opens path, transparently decompressing .gz files.
func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &gzipReadCloser{zr: zr, f: f}, nil
}

type gzipReadCloser struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipReadCloser) Close() error {
	g.zr.Close()
	return g.f.Close()
}

// readHeader parses the NIfTI-1 header, detecting byte order from the
// sizeof_hdr field.
func readHeader(path string) (*nifti1Header, error) {
	r, err := openMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("error opening NIfTI file: %w", err)
	}
	defer r.Close()

	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("error reading NIfTI header: %w", err)
	}

	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		var hdr nifti1Header
		if err := binary.Read(bytes.NewReader(raw), order, &hdr); err != nil {
			return nil, fmt.Errorf("error decoding NIfTI header: %w", err)
		}
		if hdr.SizeofHdr == headerSize {
			return &hdr, nil
		}
	}
	return nil, fmt.Errorf("not a NIfTI-1 file: %s", path)
}

// geometryFromHeader extracts origin, spacing and direction. The sform
// affine is used when present; otherwise the qoffset translation is taken
// with an identity direction (full quaternion decoding is not needed for
// the axis-aligned volumes this pipeline consumes).
func geometryFromHeader(hdr *nifti1Header, v *volume.Volume) {
	v.Spacing = [3]float64{
		float64(hdr.Pixdim[1]),
		float64(hdr.Pixdim[2]),
		float64(hdr.Pixdim[3]),
	}
	for i, s := range v.Spacing {
		if s == 0 {
			v.Spacing[i] = 1
		}
	}

	if hdr.SformCode > 0 {
		rows := [3][4]float32{hdr.SrowX, hdr.SrowY, hdr.SrowZ}
		v.Origin = [3]float64{float64(rows[0][3]), float64(rows[1][3]), float64(rows[2][3])}

		dir := mat.NewDense(3, 3, nil)
		for c := 0; c < 3; c++ {
			col := [3]float64{float64(rows[0][c]), float64(rows[1][c]), float64(rows[2][c])}
			norm := math.Sqrt(col[0]*col[0] + col[1]*col[1] + col[2]*col[2])
			if norm == 0 {
				norm = 1
				col[c] = 1
			}
			for r := 0; r < 3; r++ {
				dir.Set(r, c, col[r]/norm)
			}
		}
		v.Direction = dir
		return
	}

	v.Origin = [3]float64{
		float64(hdr.QoffsetX),
		float64(hdr.QoffsetY),
		float64(hdr.QoffsetZ),
	}
}

// LoadNIfTI reads a .nii or .nii.gz file into a Volume. For 4D files only
// the first time point is taken.
func LoadNIfTI(path string) (*volume.Volume, error) {
	hdr, err := readHeader(path)
	if err != nil {
		return nil, err
	}
	if hdr.Dim[0] < 3 || hdr.Dim[1] <= 0 || hdr.Dim[2] <= 0 || hdr.Dim[3] <= 0 {
		return nil, fmt.Errorf("unsupported NIfTI dimensionality %d (%dx%dx%d)",
			hdr.Dim[0], hdr.Dim[1], hdr.Dim[2], hdr.Dim[3])
	}

	var img nifti.Nifti1Image
	img.LoadImage(path, true)

	// scl_slope of 0 means no scaling is defined for this file
	slope := float64(hdr.SclSlope)
	inter := float64(hdr.SclInter)
	scale := slope != 0 && (slope != 1 || inter != 0)

	nx, ny, nz := int(hdr.Dim[1]), int(hdr.Dim[2]), int(hdr.Dim[3])
	v := volume.New(nx, ny, nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				val := float64(img.GetAt(x, y, z, 0))
				if scale {
					val = val*slope + inter
				}
				v.Set(x, y, z, val)
			}
		}
	}

	geometryFromHeader(hdr, v)
	return v, nil
}

// SaveNIfTI writes the volume as a float32 .nii (or .nii.gz) file with an
// sform affine carrying the volume geometry.
func SaveNIfTI(path string, v *volume.Volume) error {
	hdr := nifti1Header{
		SizeofHdr: headerSize,
		Datatype:  float32Type,
		Bitpix:    float32Bits,
		VoxOffset: headerSize + 4,
		SclSlope:  1,
		SformCode: xformScannerAnat,
	}
	hdr.Dim[0] = 3
	hdr.Dim[1] = int16(v.Nx)
	hdr.Dim[2] = int16(v.Ny)
	hdr.Dim[3] = int16(v.Nz)
	for i := 4; i < 8; i++ {
		hdr.Dim[i] = 1
	}
	hdr.Pixdim[0] = 1
	for i := 0; i < 3; i++ {
		hdr.Pixdim[i+1] = float32(v.Spacing[i])
	}

	// sform rows: direction scaled by spacing, translation in column 3
	rows := [3]*[4]float32{&hdr.SrowX, &hdr.SrowY, &hdr.SrowZ}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			rows[r][c] = float32(v.Direction.At(r, c) * v.Spacing[c])
		}
		rows[r][3] = float32(v.Origin[r])
	}
	copy(hdr.Magic[:], []int8{'n', '+', '1', 0})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating NIfTI file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var zw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		zw = gzip.NewWriter(f)
		w = zw
	}

	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("error writing NIfTI header: %w", err)
	}
	// Four zero bytes: no header extensions
	if _, err := w.Write([]byte{0, 0, 0, 0}); err != nil {
		return fmt.Errorf("error writing NIfTI extension flag: %w", err)
	}

	buf := make([]float32, len(v.Data))
	for i, val := range v.Data {
		buf[i] = float32(val)
	}
	if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
		return fmt.Errorf("error writing NIfTI voxel data: %w", err)
	}

	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("error finalizing gzip stream: %w", err)
		}
	}
	return nil
}
