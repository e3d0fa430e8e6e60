//go:build esp32s3

package board

// BuildTarget is the chip family this binary was built for.
var BuildTarget = ESP32S3

// S3 boards are tried first; the classic wirings stay as a fallback for
// S3 modules mounted on ESP32-CAM style carriers.
var buildProfiles = append(append([]Profile{}, s3Profiles...), commonProfiles...)
