//go:build !esp32s3

package board

// BuildTarget is the chip family this binary was built for.
var BuildTarget = ESP32

var buildProfiles = commonProfiles
