package soc

import (
	_ "embed"
)

// Embedded SoC clock tables baked into the binary.

//go:embed variants/s32gen1.yaml
var s32gen1YAML []byte

//go:embed variants/s32g274a.yaml
var s32g274aYAML []byte

//go:embed variants/s32r45.yaml
var s32r45YAML []byte

// embeddedVariants maps variant name -> raw YAML contents
var embeddedVariants = map[string][]byte{
	"s32gen1":  s32gen1YAML,
	"s32g274a": s32g274aYAML,
	"s32r45":   s32r45YAML,
}

// abstractVariants only exist to be extended
var abstractVariants = map[string]bool{
	"s32gen1": true,
}
