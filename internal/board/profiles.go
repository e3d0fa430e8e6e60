package board

// s3Profiles are wirings only found on ESP32-S3 boards.
var s3Profiles = []Profile{
	{
		Name: "ESP32S3_CAM_LCD",
		PWDN: NoPin, Reset: NoPin, XCLK: 40,
		SDA: 17, SCL: 18,
		D0: 13, D1: 47, D2: 14, D3: 3, D4: 12, D5: 42, D6: 41, D7: 39,
		VSYNC: 21, HREF: 38, PCLK: 11,
	},
	{
		Name: "ESP32S3_EYE",
		PWDN: NoPin, Reset: NoPin, XCLK: 15,
		SDA: 4, SCL: 5,
		D0: 11, D1: 9, D2: 8, D3: 10, D4: 12, D5: 18, D6: 17, D7: 16,
		VSYNC: 6, HREF: 7, PCLK: 13,
	},
	{
		Name: "XIAO_ESP32S3",
		PWDN: NoPin, Reset: NoPin, XCLK: 10,
		SDA: 40, SCL: 39,
		D0: 15, D1: 17, D2: 18, D3: 16, D4: 14, D5: 12, D6: 11, D7: 48,
		VSYNC: 38, HREF: 47, PCLK: 13,
	},
	{
		Name: "DFRobot_FireBeetle2_ESP32S3",
		PWDN: NoPin, Reset: NoPin, XCLK: 45,
		SDA: 1, SCL: 2,
		D0: 39, D1: 40, D2: 41, D3: 4, D4: 7, D5: 8, D6: 46, D7: 48,
		VSYNC: 6, HREF: 42, PCLK: 5,
	},
	{
		Name: "DFRobot_Romeo_ESP32S3",
		PWDN: NoPin, Reset: NoPin, XCLK: 45,
		SDA: 1, SCL: 2,
		D0: 39, D1: 40, D2: 41, D3: 4, D4: 7, D5: 8, D6: 46, D7: 48,
		VSYNC: 6, HREF: 42, PCLK: 5,
	},
}

// commonProfiles are the classic ESP32-CAM style wirings.
var commonProfiles = []Profile{
	{
		Name: "AI_THINKER",
		PWDN: 32, Reset: NoPin, XCLK: 0,
		SDA: 26, SCL: 27,
		D0: 5, D1: 18, D2: 19, D3: 21, D4: 36, D5: 39, D6: 34, D7: 35,
		VSYNC: 25, HREF: 23, PCLK: 22,
	},
	{
		Name: "ESP_EYE",
		PWDN: 32, Reset: NoPin, XCLK: 0,
		SDA: 26, SCL: 27,
		D0: 5, D1: 18, D2: 19, D3: 21, D4: 36, D5: 39, D6: 34, D7: 35,
		VSYNC: 25, HREF: 23, PCLK: 22,
	},
	{
		Name: "WROVER_KIT",
		PWDN: NoPin, Reset: NoPin, XCLK: 21,
		SDA: 26, SCL: 27,
		D0: 4, D1: 5, D2: 18, D3: 19, D4: 36, D5: 39, D6: 34, D7: 35,
		VSYNC: 25, HREF: 23, PCLK: 22,
	},
	{
		Name: "TTGO_T_JOURNAL",
		PWDN: 0, Reset: 15, XCLK: 27,
		SDA: 25, SCL: 23,
		D0: 17, D1: 35, D2: 34, D3: 5, D4: 39, D5: 18, D6: 36, D7: 19,
		VSYNC: 22, HREF: 26, PCLK: 21,
	},
	{
		Name: "M5STACK_PSRAM",
		PWDN: NoPin, Reset: 15, XCLK: 27,
		SDA: 25, SCL: 23,
		D0: 32, D1: 35, D2: 34, D3: 5, D4: 39, D5: 18, D6: 36, D7: 19,
		VSYNC: 22, HREF: 26, PCLK: 21,
	},
	{
		Name: "M5STACK_V2_PSRAM",
		PWDN: NoPin, Reset: 15, XCLK: 27,
		SDA: 22, SCL: 23,
		D0: 32, D1: 35, D2: 34, D3: 5, D4: 39, D5: 18, D6: 36, D7: 19,
		VSYNC: 25, HREF: 26, PCLK: 21,
	},
	{
		Name: "M5STACK_WIDE",
		PWDN: NoPin, Reset: 15, XCLK: 27,
		SDA: 22, SCL: 23,
		D0: 32, D1: 35, D2: 34, D3: 5, D4: 39, D5: 18, D6: 36, D7: 19,
		VSYNC: 25, HREF: 26, PCLK: 21,
	},
	{
		Name: "M5STACK_ESP32CAM",
		PWDN: NoPin, Reset: 15, XCLK: 27,
		SDA: 25, SCL: 23,
		D0: 17, D1: 35, D2: 34, D3: 5, D4: 39, D5: 18, D6: 36, D7: 19,
		VSYNC: 22, HREF: 26, PCLK: 21,
	},
	{
		Name: "M5STACK_UNITCAM",
		PWDN: NoPin, Reset: 15, XCLK: 27,
		SDA: 25, SCL: 23,
		D0: 32, D1: 35, D2: 34, D3: 5, D4: 39, D5: 18, D6: 36, D7: 19,
		VSYNC: 22, HREF: 26, PCLK: 21,
	},
}

// Table returns the candidate wirings for the build target in probe order.
// The returned slice is a copy.
func Table() []Profile {
	out := make([]Profile, len(buildProfiles))
	copy(out, buildProfiles)
	return out
}

// ByName finds a profile in the build table.
func ByName(name string) (Profile, bool) {
	for _, p := range buildProfiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}
