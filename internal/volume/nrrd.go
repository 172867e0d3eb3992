package volume

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Encoding is the payload encoding of an NRRD file.
type Encoding string

const (
	EncodingRaw  Encoding = "raw"
	EncodingGzip Encoding = "gzip"
)

var nrrdTypes = map[string]PixelType{
	"signed char": Int8, "int8": Int8, "int8_t": Int8,
	"uchar": Uint8, "unsigned char": Uint8, "uint8": Uint8, "uint8_t": Uint8,
	"short": Int16, "short int": Int16, "signed short": Int16, "signed short int": Int16,
	"int16": Int16, "int16_t": Int16,
	"ushort": Uint16, "unsigned short": Uint16, "unsigned short int": Uint16,
	"uint16": Uint16, "uint16_t": Uint16,
	"int": Int32, "signed int": Int32, "int32": Int32, "int32_t": Int32,
	"uint": Uint32, "unsigned int": Uint32, "uint32": Uint32, "uint32_t": Uint32,
	"longlong": Int64, "long long": Int64, "long long int": Int64, "signed long long": Int64,
	"signed long long int": Int64, "int64": Int64, "int64_t": Int64,
	"ulonglong": Uint64, "unsigned long long": Uint64, "unsigned long long int": Uint64,
	"uint64": Uint64, "uint64_t": Uint64,
	"float":  Float32,
	"double": Float64,
}

var nrrdTypeNames = map[PixelType]string{
	Int8:    "signed char",
	Uint8:   "unsigned char",
	Int16:   "short",
	Uint16:  "unsigned short",
	Int32:   "int",
	Uint32:  "unsigned int",
	Int64:   "long long",
	Uint64:  "unsigned long long",
	Float32: "float",
	Float64: "double",
}

// header is the parsed field section of an NRRD file.
type header struct {
	pixelType       PixelType
	dimension       int
	sizes           []int
	encoding        string
	bigEndian       bool
	kinds           []string
	spaceDirections []string
	spacings        []float64
	origin          []float64
	byteSkip        int
}

// Decode reads an attached-header NRRD stream. Three dimensional volumes and
// four dimensional volumes whose first axis holds per-voxel components are
// supported.
func Decode(r io.Reader) (*Volume, error) {
	br := bufio.NewReader(r)

	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	spatial, components, err := h.layout()
	if err != nil {
		return nil, err
	}
	count, err := elementCount(spatial[0], spatial[1], spatial[2], components)
	if err != nil {
		return nil, err
	}

	var payload io.Reader = br
	switch h.encoding {
	case "raw", "ascii", "text", "txt":
	case "gzip", "gz":
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip payload: %w", err)
		}
		defer zr.Close()
		payload = zr
	default:
		return nil, fmt.Errorf("%w: encoding %q not supported", ErrMalformedHeader, h.encoding)
	}

	// The payload is read before the volume is allocated so a header
	// claiming more data than the stream holds fails without reserving it.
	var data []float64
	if h.encoding == "ascii" || h.encoding == "text" || h.encoding == "txt" {
		if data, err = readASCII(payload, count); err != nil {
			return nil, err
		}
	} else {
		raw, err := readBinary(payload, h.byteSkip, count*h.pixelType.Size())
		if err != nil {
			return nil, err
		}
		var order binary.ByteOrder = binary.LittleEndian
		if h.bigEndian {
			order = binary.BigEndian
		}
		data = make([]float64, count)
		decodeSamples(raw, h.pixelType, order, data)
	}

	return h.volume(spatial, components, data)
}

// readBinary returns want payload bytes after skip bytes. A negative skip
// takes the last want bytes of the stream.
func readBinary(r io.Reader, skip, want int) ([]byte, error) {
	if skip < 0 {
		all, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		if len(all) < want {
			return nil, fmt.Errorf("%w: %d bytes, need %d", ErrShortPayload, len(all), want)
		}
		return all[len(all)-want:], nil
	}
	if skip > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(skip)); err != nil {
			return nil, fmt.Errorf("skip payload bytes: %w", err)
		}
	}
	raw, err := io.ReadAll(io.LimitReader(r, int64(want)))
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if len(raw) < want {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrShortPayload, len(raw), want)
	}
	return raw, nil
}

func readHeader(br *bufio.Reader) (*header, error) {
	magic, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	magic = strings.TrimSpace(magic)
	if !strings.HasPrefix(magic, "NRRD000") {
		return nil, fmt.Errorf("%w: bad magic %q", ErrMalformedHeader, magic)
	}

	h := &header{encoding: "raw"}
	seen := map[string]bool{}
	for {
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("%w: header not terminated", ErrMalformedHeader)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "#") || strings.Contains(line, ":=") {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: line %q", ErrMalformedHeader, line)
		}
		field = strings.ToLower(strings.TrimSpace(field))
		value = strings.TrimSpace(value)
		seen[field] = true

		if err := h.apply(field, value); err != nil {
			return nil, err
		}
	}

	for _, required := range []string{"type", "dimension", "sizes"} {
		if !seen[required] {
			return nil, fmt.Errorf("%w: missing %q field", ErrMalformedHeader, required)
		}
	}
	if seen["data file"] || seen["datafile"] {
		return nil, fmt.Errorf("%w: detached data files are not supported", ErrMalformedHeader)
	}
	if len(h.sizes) != h.dimension {
		return nil, fmt.Errorf("%w: %d sizes for dimension %d", ErrMalformedHeader, len(h.sizes), h.dimension)
	}
	return h, nil
}

func (h *header) apply(field, value string) error {
	var err error
	switch field {
	case "type":
		pt, ok := nrrdTypes[strings.ToLower(value)]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnsupportedType, value)
		}
		h.pixelType = pt
	case "dimension":
		h.dimension, err = strconv.Atoi(value)
	case "sizes":
		for _, f := range strings.Fields(value) {
			n, convErr := strconv.Atoi(f)
			if convErr != nil || n <= 0 {
				return fmt.Errorf("%w: sizes %q", ErrMalformedHeader, value)
			}
			h.sizes = append(h.sizes, n)
		}
	case "encoding":
		h.encoding = strings.ToLower(value)
	case "endian":
		h.bigEndian = strings.ToLower(value) == "big"
	case "kinds":
		h.kinds = strings.Fields(strings.ToLower(value))
	case "space directions":
		h.spaceDirections = splitVectors(value)
	case "spacings":
		for _, f := range strings.Fields(value) {
			s, convErr := strconv.ParseFloat(f, 64)
			if convErr != nil {
				s = math.NaN()
			}
			h.spacings = append(h.spacings, s)
		}
	case "space origin":
		h.origin, err = parseVector(value)
	case "byte skip", "byteskip":
		h.byteSkip, err = strconv.Atoi(value)
	}
	if err != nil {
		return fmt.Errorf("%w: field %q: %v", ErrMalformedHeader, field, err)
	}
	return nil
}

// layout returns the spatial sizes and the per-voxel component count.
func (h *header) layout() ([]int, int, error) {
	switch h.dimension {
	case 3:
		return h.sizes, 1, nil
	case 4:
		if !h.componentAxisFirst() {
			return nil, 0, fmt.Errorf("%w: 4D volume without a leading component axis", ErrMalformedHeader)
		}
		return h.sizes[1:], h.sizes[0], nil
	default:
		return nil, 0, fmt.Errorf("%w: dimension %d not supported", ErrMalformedHeader, h.dimension)
	}
}

// volume wraps data in a Volume with the header geometry.
func (h *header) volume(spatial []int, components int, data []float64) (*Volume, error) {
	directions := h.spaceDirections
	spacings := h.spacings
	if h.dimension == 4 {
		if len(directions) == 4 {
			directions = directions[1:]
		}
		if len(spacings) == 4 {
			spacings = spacings[1:]
		}
	}

	v := build([3]int{spatial[0], spatial[1], spatial[2]}, components, h.pixelType, data)

	if len(directions) == 3 {
		for axis, raw := range directions {
			vec, err := parseVector(raw)
			if err != nil || len(vec) != 3 {
				return nil, fmt.Errorf("%w: space direction %q", ErrMalformedHeader, raw)
			}
			norm := math.Sqrt(vec[0]*vec[0] + vec[1]*vec[1] + vec[2]*vec[2])
			if norm == 0 {
				return nil, fmt.Errorf("%w: zero space direction", ErrMalformedHeader)
			}
			v.Spacing[axis] = norm
			for row := 0; row < 3; row++ {
				v.Direction[row*3+axis] = vec[row] / norm
			}
		}
	} else if len(spacings) == 3 {
		for axis, s := range spacings {
			if !math.IsNaN(s) && s > 0 {
				v.Spacing[axis] = s
			}
		}
	}

	if len(h.origin) == 3 {
		copy(v.Origin[:], h.origin)
	}
	return v, nil
}

func (h *header) componentAxisFirst() bool {
	if len(h.spaceDirections) == 4 && h.spaceDirections[0] == "none" {
		return true
	}
	if len(h.kinds) == 4 {
		switch h.kinds[0] {
		case "domain", "space", "time":
			return false
		default:
			return true
		}
	}
	return false
}

// splitVectors splits "(1,0,0) (0,1,0) none" into its items.
func splitVectors(value string) []string {
	var out []string
	for len(value) > 0 {
		value = strings.TrimSpace(value)
		if value == "" {
			break
		}
		if value[0] == '(' {
			end := strings.IndexByte(value, ')')
			if end < 0 {
				out = append(out, value)
				break
			}
			out = append(out, value[:end+1])
			value = value[end+1:]
			continue
		}
		field, rest, _ := strings.Cut(value, " ")
		out = append(out, strings.ToLower(field))
		value = rest
	}
	return out
}

func parseVector(value string) ([]float64, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "(")
	value = strings.TrimSuffix(value, ")")
	parts := strings.Split(value, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func readASCII(r io.Reader, count int) ([]float64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	scanner.Split(bufio.ScanWords)
	var values []float64
	for len(values) < count && scanner.Scan() {
		f, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("ascii payload value %d: %w", len(values), err)
		}
		values = append(values, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ascii payload: %w", err)
	}
	if len(values) < count {
		return nil, fmt.Errorf("%w: %d values, need %d", ErrShortPayload, len(values), count)
	}
	return values, nil
}

func decodeSamples(raw []byte, pt PixelType, order binary.ByteOrder, dst []float64) {
	size := pt.Size()
	for i := range dst {
		b := raw[i*size : (i+1)*size]
		switch pt {
		case Int8:
			dst[i] = float64(int8(b[0]))
		case Uint8:
			dst[i] = float64(b[0])
		case Int16:
			dst[i] = float64(int16(order.Uint16(b)))
		case Uint16:
			dst[i] = float64(order.Uint16(b))
		case Int32:
			dst[i] = float64(int32(order.Uint32(b)))
		case Uint32:
			dst[i] = float64(order.Uint32(b))
		case Int64:
			dst[i] = float64(int64(order.Uint64(b)))
		case Uint64:
			dst[i] = float64(order.Uint64(b))
		case Float32:
			dst[i] = float64(math.Float32frombits(order.Uint32(b)))
		case Float64:
			dst[i] = math.Float64frombits(order.Uint64(b))
		}
	}
}

func encodeSamples(src []float64, pt PixelType) []byte {
	size := pt.Size()
	out := make([]byte, len(src)*size)
	order := binary.LittleEndian
	for i, value := range src {
		b := out[i*size : (i+1)*size]
		value = castValue(value, pt)
		switch pt {
		case Int8:
			b[0] = byte(int8(value))
		case Uint8:
			b[0] = byte(value)
		case Int16:
			order.PutUint16(b, uint16(int16(value)))
		case Uint16:
			order.PutUint16(b, uint16(value))
		case Int32:
			order.PutUint32(b, uint32(int32(value)))
		case Uint32:
			order.PutUint32(b, uint32(value))
		case Int64:
			order.PutUint64(b, uint64(int64(value)))
		case Uint64:
			order.PutUint64(b, uint64(value))
		case Float32:
			order.PutUint32(b, math.Float32bits(float32(value)))
		case Float64:
			order.PutUint64(b, math.Float64bits(value))
		}
	}
	return out
}

// Encode writes v as an attached-header NRRD0004 stream.
func Encode(w io.Writer, v *Volume, encoding Encoding) error {
	typeName, ok := nrrdTypeNames[v.PixelType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, v.PixelType)
	}
	if encoding == "" {
		encoding = EncodingRaw
	}
	if encoding != EncodingRaw && encoding != EncodingGzip {
		return fmt.Errorf("encoding %q not supported", encoding)
	}

	var b strings.Builder
	b.WriteString("NRRD0004\n")
	fmt.Fprintf(&b, "type: %s\n", typeName)

	directions := make([]string, 0, 4)
	kinds := make([]string, 0, 4)
	sizes := make([]string, 0, 4)
	if v.Components > 1 {
		directions = append(directions, "none")
		kinds = append(kinds, "vector")
		sizes = append(sizes, strconv.Itoa(v.Components))
	}
	for axis := 0; axis < 3; axis++ {
		vec := [3]float64{}
		for row := 0; row < 3; row++ {
			vec[row] = v.Direction[row*3+axis] * v.Spacing[axis]
		}
		directions = append(directions, "("+formatVector(vec[:])+")")
		kinds = append(kinds, "domain")
		sizes = append(sizes, strconv.Itoa(v.Size[axis]))
	}

	fmt.Fprintf(&b, "dimension: %d\n", len(sizes))
	b.WriteString("space: left-posterior-superior\n")
	fmt.Fprintf(&b, "sizes: %s\n", strings.Join(sizes, " "))
	fmt.Fprintf(&b, "space directions: %s\n", strings.Join(directions, " "))
	fmt.Fprintf(&b, "kinds: %s\n", strings.Join(kinds, " "))
	if v.PixelType.Size() > 1 {
		b.WriteString("endian: little\n")
	}
	fmt.Fprintf(&b, "encoding: %s\n", encoding)
	fmt.Fprintf(&b, "space origin: (%s)\n\n", formatVector(v.Origin[:]))

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	payload := encodeSamples(v.Data, v.PixelType)
	if encoding == EncodingGzip {
		zw := gzip.NewWriter(w)
		if _, err := zw.Write(payload); err != nil {
			return fmt.Errorf("write gzip payload: %w", err)
		}
		return zw.Close()
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// WriteFile encodes v into path, replacing any existing file.
func WriteFile(path string, v *Volume, encoding Encoding) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, v, encoding); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatVector(vec []float64) string {
	parts := make([]string, len(vec))
	for i, f := range vec {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
