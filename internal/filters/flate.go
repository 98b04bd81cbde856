package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Params holds decode parameters such as Predictor, Columns, Colors and
// BitsPerComponent.
type Params map[string]interface{}

// Int returns an integer parameter, or def when absent.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns a boolean parameter, or def when absent.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// FlateDecode inflates zlib data and reverses the predictor, if any.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib header: %w", err)
	}
	defer zr.Close()

	inflated, err := io.ReadAll(zr)
	if err != nil {
		// Truncated streams are common; keep what was inflated.
		if len(inflated) == 0 || err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("inflate: %w", err)
		}
	}

	switch predictor := params.Int("Predictor", 1); {
	case predictor == 1:
		return inflated, nil
	case predictor == 2:
		return unpredictTIFF(inflated, params)
	case predictor >= 10 && predictor <= 15:
		return unpredictPNG(inflated, params)
	default:
		return nil, fmt.Errorf("unsupported predictor %d", predictor)
	}
}

// FlateEncode deflates data. With Predictor 12 in params each row of
// Columns bytes is first PNG Up-filtered; other predictors are rejected.
func FlateEncode(data []byte, params Params) ([]byte, error) {
	switch predictor := params.Int("Predictor", 1); predictor {
	case 1:
	case 12:
		columns := params.Int("Columns", 1)
		if columns <= 0 || len(data)%columns != 0 {
			return nil, fmt.Errorf("data size %d is not a multiple of %d columns", len(data), columns)
		}
		data = predictPNGUp(data, columns)
	default:
		return nil, fmt.Errorf("cannot encode with predictor %d", predictor)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func predictPNGUp(data []byte, columns int) []byte {
	rows := len(data) / columns
	out := make([]byte, 0, rows*(columns+1))
	prev := make([]byte, columns)
	for r := 0; r < rows; r++ {
		row := data[r*columns : (r+1)*columns]
		out = append(out, 2)
		for i, b := range row {
			out = append(out, b-prev[i])
		}
		prev = row
	}
	return out
}

func unpredictTIFF(data []byte, params Params) ([]byte, error) {
	colors := params.Int("Colors", 1)
	rowSize := params.Int("Columns", 1) * colors
	if bpc := params.Int("BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("TIFF predictor needs 8 bits per component, got %d", bpc)
	}
	if rowSize <= 0 || len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}
	out := append([]byte(nil), data...)
	for start := 0; start < len(out); start += rowSize {
		for i := start + colors; i < start+rowSize; i++ {
			out[i] += out[i-colors]
		}
	}
	return out, nil
}

// unpredictPNG reverses per-row PNG filters. Each row starts with its
// filter type byte.
func unpredictPNG(data []byte, params Params) ([]byte, error) {
	bpc := params.Int("BitsPerComponent", 8)
	colors := params.Int("Colors", 1)
	columns := params.Int("Columns", 1)
	bpp := (colors*bpc + 7) / 8
	rowLen := (columns*colors*bpc + 7) / 8
	if rowLen <= 0 || len(data)%(rowLen+1) != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowLen+1)
	}

	rows := len(data) / (rowLen + 1)
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		src := data[r*(rowLen+1):]
		filter, in := src[0], src[1:rowLen+1]
		cur := out[r*rowLen : (r+1)*rowLen]
		for i := range cur {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch filter {
			case 0:
				cur[i] = in[i]
			case 1:
				cur[i] = in[i] + left
			case 2:
				cur[i] = in[i] + up
			case 3:
				cur[i] = in[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = in[i] + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("row %d: unknown PNG filter %d", r, filter)
			}
		}
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
