package converter

import (
	"encoding/json"

	"github.com/qmuntal/gltf"
)

const LightsExtensionName = "KHR_lights_punctual"

// Light types of KHR_lights_punctual.
const (
	LightDirectional = "directional"
	LightPoint       = "point"
	LightSpot        = "spot"
)

func init() {
	gltf.RegisterExtension(LightsExtensionName, UnmarshalLights)
}

type Light struct {
	Name      string         `json:"name,omitempty"`
	Type      string         `json:"type"`
	Color     *[3]float32    `json:"color,omitempty"`
	Intensity *float32       `json:"intensity,omitempty"`
	Range     *float32       `json:"range,omitempty"`
	Spot      *LightSpotCone `json:"spot,omitempty"`
}

type LightSpotCone struct {
	InnerConeAngle float32  `json:"innerConeAngle,omitempty"`
	OuterConeAngle *float32 `json:"outerConeAngle,omitempty"`
}

func (l *Light) ColorOrDefault() [3]float32 {
	if l.Color == nil {
		return [3]float32{1, 1, 1}
	}
	return *l.Color
}

func (l *Light) IntensityOrDefault() float32 {
	if l.Intensity == nil {
		return 1
	}
	return *l.Intensity
}

// Lights is the extension object. The document level object carries the
// light list, a node level object refers to one of them.
type Lights struct {
	Lights []*Light `json:"lights,omitempty"`
	Light  *uint32  `json:"light,omitempty"`
}

func UnmarshalLights(data []byte) (interface{}, error) {
	var ext Lights
	if err := json.Unmarshal(data, &ext); err != nil {
		return nil, err
	}
	return &ext, nil
}

func documentLights(doc *gltf.Document) []*Light {
	if ext, ok := doc.Extensions[LightsExtensionName].(*Lights); ok {
		return ext.Lights
	}
	return nil
}

func nodeLight(doc *gltf.Document, n *gltf.Node) *Light {
	ext, ok := n.Extensions[LightsExtensionName].(*Lights)
	if !ok || ext.Light == nil {
		return nil
	}
	lights := documentLights(doc)
	if int(*ext.Light) >= len(lights) {
		return nil
	}
	return lights[*ext.Light]
}
