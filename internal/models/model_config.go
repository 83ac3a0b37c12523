package models

// AIModelConfig is an administrator-managed reviewer model. The review engine
// reads these rows but never writes them.
type AIModelConfig struct {
	Base
	Provider         string  `json:"provider"           gorm:"not null"` // openai | anthropic | openai-compatible
	Name             string  `json:"name"               gorm:"not null"`
	ModelID          string  `json:"model_id"           gorm:"not null"`
	Endpoint         string  `json:"endpoint"`
	APIKey           string  `json:"-"                  gorm:"column:api_key"`
	ParamSize        string  `json:"param_size"`
	MaxContextLength int     `json:"max_context_length" gorm:"default:8192"`
	RPMLimit         int     `json:"rpm_limit"          gorm:"default:60"`
	TPMLimit         int     `json:"tpm_limit"          gorm:"default:100000"`
	Priority         int     `json:"priority"           gorm:"default:100;index"` // lower = tried first
	CooldownSeconds  int     `json:"cooldown_seconds"   gorm:"default:60"`
	Temperature      float64 `json:"temperature"        gorm:"default:0"`
	Enabled          bool    `json:"enabled"            gorm:"default:true;index"`
}

func (AIModelConfig) TableName() string { return "ai_model_configs" }
