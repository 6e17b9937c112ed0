package ebitenrender

import "github.com/hajimehoshi/ebiten/v2"

// Layer textures are uploaded with straight alpha as-is. Ebitengine assumes
// premultiplied texels, so the multiply-alpha program premultiplies each
// sample before applying the color scale.
const multiplyAlphaShaderSrc = `//kage:unit pixels
package main

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	return vec4(c.rgb*c.a, c.a) * color
}
`

var multiplyAlphaShader *ebiten.Shader

func ensureMultiplyAlphaShader() *ebiten.Shader {
	if multiplyAlphaShader == nil {
		s, err := ebiten.NewShader([]byte(multiplyAlphaShaderSrc))
		if err != nil {
			panic("ebitenrender: failed to compile multiply-alpha shader: " + err.Error())
		}
		multiplyAlphaShader = s
	}
	return multiplyAlphaShader
}
