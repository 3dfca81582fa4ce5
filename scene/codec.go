package scene

import (
	"fmt"
)

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	}
	return 0, fmt.Errorf("not a number: %v", v)
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("not an integer: %v", v)
}

func toList(v interface{}) ([]interface{}, error) {
	l, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("not a list: %v", v)
	}
	return l, nil
}

func toFloats(v interface{}, n int) ([]float64, error) {
	l, err := toList(v)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(l) != n {
		return nil, fmt.Errorf("expected %d components, got %d", n, len(l))
	}
	r := make([]float64, len(l))
	for i, e := range l {
		if r[i], err = toFloat64(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func toVec2(v interface{}) ([2]float32, error) {
	f, err := toFloats(v, 2)
	if err != nil {
		return [2]float32{}, err
	}
	return [2]float32{float32(f[0]), float32(f[1])}, nil
}

func toVec3(v interface{}) ([3]float32, error) {
	f, err := toFloats(v, 3)
	if err != nil {
		return [3]float32{}, err
	}
	return [3]float32{float32(f[0]), float32(f[1]), float32(f[2])}, nil
}

// decodeValue converts a generic YAML value to the Go representation of t.
func decodeValue(t ValueType, raw interface{}) (interface{}, error) {
	switch t {
	case TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("not a bool: %v", raw)
		}
		return b, nil
	case TypeInt:
		return toInt(raw)
	case TypeFloat:
		f, err := toFloat64(raw)
		return float32(f), err
	case TypeDouble:
		return toFloat64(raw)
	case TypeToken, TypeString:
		s, ok := raw.(string)
		if !ok {
			return fmt.Sprint(raw), nil
		}
		return s, nil
	case TypeAsset:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("not an asset path: %v", raw)
		}
		return AssetPath{Path: s}, nil
	case TypeFloat2:
		return toVec2(raw)
	case TypeFloat3, TypeColor3:
		return toVec3(raw)
	case TypeDouble3:
		f, err := toFloats(raw, 3)
		if err != nil {
			return nil, err
		}
		return [3]float64{f[0], f[1], f[2]}, nil
	case TypeIntArray:
		l, err := toList(raw)
		if err != nil {
			return nil, err
		}
		r := make([]int, len(l))
		for i, e := range l {
			if r[i], err = toInt(e); err != nil {
				return nil, err
			}
		}
		return r, nil
	case TypeFloatArr:
		f, err := toFloats(raw, 0)
		if err != nil {
			return nil, err
		}
		r := make([]float32, len(f))
		for i, e := range f {
			r[i] = float32(e)
		}
		return r, nil
	case TypeFloat2Arr, TypeTexCoord2:
		l, err := toList(raw)
		if err != nil {
			return nil, err
		}
		r := make([][2]float32, len(l))
		for i, e := range l {
			if r[i], err = toVec2(e); err != nil {
				return nil, err
			}
		}
		return r, nil
	case TypeFloat3Arr, TypeNormal3, TypePoint3, TypeVector3:
		l, err := toList(raw)
		if err != nil {
			return nil, err
		}
		r := make([][3]float32, len(l))
		for i, e := range l {
			if r[i], err = toVec3(e); err != nil {
				return nil, err
			}
		}
		return r, nil
	case TypeTokenArr:
		l, err := toList(raw)
		if err != nil {
			return nil, err
		}
		r := make([]string, len(l))
		for i, e := range l {
			r[i] = fmt.Sprint(e)
		}
		return r, nil
	}
	// Unknown types are kept as decoded.
	return raw, nil
}

func encodeValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case AssetPath:
		return vv.Path
	}
	return v
}
