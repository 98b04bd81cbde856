package core

import (
	"fmt"

	"github.com/tsawler/pagenum/internal/filters"
)

// Decode applies the stream's /Filter chain with the matching /DecodeParms
// and returns the decoded bytes. Image codecs (DCT, JPX) pass data through.
func (s *Stream) Decode() ([]byte, error) {
	names, params, err := s.filterChain()
	if err != nil {
		return nil, err
	}
	data := s.Data
	for i, name := range names {
		data, err = decodeWithFilter(data, name, params[i])
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s): %w", i, name, err)
		}
	}
	return data, nil
}

// filterChain normalizes /Filter and /DecodeParms, each of which may be a
// single value or an array.
func (s *Stream) filterChain() ([]string, []Dict, error) {
	var names []string
	switch f := s.Dict.Get("Filter").(type) {
	case nil:
		return nil, nil, nil
	case Name:
		names = []string{string(f)}
	case Array:
		for i, elem := range f {
			name, ok := elem.(Name)
			if !ok {
				return nil, nil, fmt.Errorf("filter %d is %T, not a name", i, elem)
			}
			names = append(names, string(name))
		}
	default:
		return nil, nil, fmt.Errorf("invalid /Filter type %T", f)
	}

	params := make([]Dict, len(names))
	switch p := s.Dict.Get("DecodeParms").(type) {
	case Dict:
		params[0] = p
	case Array:
		for i := range names {
			if d, ok := p.Get(i).(Dict); ok {
				params[i] = d
			}
		}
	}
	return names, params, nil
}

func decodeWithFilter(data []byte, name string, params Dict) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, dictToParams(params))
	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)
	case "CCITTFaxDecode", "CCF":
		return filters.CCITTFaxDecode(data, dictToParams(params))
	case "DCTDecode", "DCT", "JPXDecode":
		return data, nil
	case "Crypt":
		return nil, fmt.Errorf("encrypted streams are not supported")
	}
	return nil, fmt.Errorf("unsupported filter %s", name)
}

// dictToParams converts decode parameters to plain Go values
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}
	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case Name:
			params[k] = string(obj)
		case String:
			params[k] = string(obj)
		}
	}
	return params
}
