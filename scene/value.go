package scene

import (
	"reflect"
)

// ValueType is the declared type name of an attribute ("point3f[]", "token", ...).
type ValueType string

const (
	TypeBool      ValueType = "bool"
	TypeInt       ValueType = "int"
	TypeIntArray  ValueType = "int[]"
	TypeFloat     ValueType = "float"
	TypeFloatArr  ValueType = "float[]"
	TypeDouble    ValueType = "double"
	TypeFloat2    ValueType = "float2"
	TypeFloat2Arr ValueType = "float2[]"
	TypeTexCoord2 ValueType = "texCoord2f[]"
	TypeFloat3    ValueType = "float3"
	TypeFloat3Arr ValueType = "float3[]"
	TypeColor3    ValueType = "color3f"
	TypeNormal3   ValueType = "normal3f[]"
	TypePoint3    ValueType = "point3f[]"
	TypeVector3   ValueType = "vector3f[]"
	TypeDouble3   ValueType = "double3"
	TypeToken     ValueType = "token"
	TypeTokenArr  ValueType = "token[]"
	TypeString    ValueType = "string"
	TypeAsset     ValueType = "asset"
)

// AssetPath is the value of an asset-typed attribute.
type AssetPath struct {
	Path         string
	ResolvedPath string
}

func (a AssetPath) String() string {
	return "@" + a.Path + "@"
}

// IsArray reports whether values of this type are sequences.
func (t ValueType) IsArray() bool {
	return len(t) > 2 && t[len(t)-2:] == "[]"
}

// CloneValue returns a copy of v that shares no backing storage with it.
func CloneValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		dst := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(dst, rv)
		return dst.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		dst := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			cv := CloneValue(iter.Value().Interface())
			if cv == nil {
				dst.SetMapIndex(iter.Key(), reflect.Zero(rv.Type().Elem()))
			} else {
				dst.SetMapIndex(iter.Key(), reflect.ValueOf(cv))
			}
		}
		return dst.Interface()
	}
	return v
}

// IsEmptyValue reports whether v is nil or a zero-length sequence.
func IsEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.String:
		return rv.Len() == 0
	}
	return false
}
