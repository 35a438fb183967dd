package service

import (
	"regexp"
	"strings"

	"github.com/BerniceZTT/leads_end/models"
)

const (
	MsgRequiredFields = "First name, last name, and email are required"
	MsgInvalidEmail   = "Please enter a valid email address"
	MsgInvalidStatus  = "Invalid lead status"
)

// local@domain.tld
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError 输入校验失败，发生在任何 I/O 之前
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NormalizeEmail 去除空白并转小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail 校验邮箱格式
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: MsgRequiredFields}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Message: MsgInvalidEmail}
	}
	return nil
}

// ValidateLeadSubmission 校验必填字段与邮箱格式，无副作用
func ValidateLeadSubmission(p models.LeadSubmission) error {
	required := []struct {
		field string
		value string
	}{
		{"firstName", p.FirstName},
		{"lastName", p.LastName},
		{"email", p.Email},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: MsgRequiredFields}
		}
	}
	return ValidateEmail(p.Email)
}

// NormalizeLeadSubmission 将表单转为待持久化的线索记录，应用默认值
func NormalizeLeadSubmission(p models.LeadSubmission) models.LeadRecord {
	fuelTypes := mergeTags(p.FuelTypes, p.InterestTags)

	return models.LeadRecord{
		FirstName:   strings.TrimSpace(p.FirstName),
		LastName:    strings.TrimSpace(p.LastName),
		Email:       NormalizeEmail(p.Email),
		Phone:       strings.TrimSpace(p.Phone),
		WhatsApp:    strings.TrimSpace(p.WhatsApp),
		CompanyName: strings.TrimSpace(p.CompanyName),
		Position:    strings.TrimSpace(p.Position),

		BusinessType: withDefault(p.BusinessType, models.DefaultBusinessType),
		FuelTypes:    fuelTypes,

		DeliveryFrequency:     strings.TrimSpace(p.DeliveryFrequency),
		AverageVolume:         strings.TrimSpace(p.AverageVolume),
		PreferredDeliveryTime: strings.TrimSpace(p.PreferredDeliveryTime),

		Address:          strings.TrimSpace(p.Address),
		Parish:           strings.TrimSpace(p.Parish),
		PreferredContact: withDefault(p.PreferredContact, models.DefaultPreferredContact),

		Newsletter:      p.Newsletter,
		WhatsAppUpdates: p.WhatsAppUpdates,
		SMSAlerts:       p.SMSAlerts,

		Message:     strings.TrimSpace(p.Message),
		HearAboutUs: strings.TrimSpace(p.HearAboutUs),
		Source:      withDefault(p.Source, models.DefaultSource),

		Status: models.LeadStatusNew,
		Active: true,
	}
}

// mergeTags 合并标签并去重，保持首次出现的顺序
func mergeTags(lists ...models.StringList) []string {
	merged := []string{}
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	return merged
}

func withDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
