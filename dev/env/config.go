package devenv

import "skyward-backend/lib/skyward/session"

// SkywardTestConfig is read from `<dev_state>/skyward.json5` by the tests that talk to a
// live portal, they are skipped when the file is absent.
type SkywardTestConfig struct {
	BaseUrl string        `json:"base_url"`
	Codes   session.Codes `json:"codes"`
	// GradeInfo, when set, is a grade dialog request known to be valid for Codes.
	GradeInfo map[string]string `json:"grade_info"`
}

const SkywardTestConfigPath = "skyward.json5"
