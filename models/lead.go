package models

import (
	"encoding/json"
	"time"
)

// LeadStatus 线索状态枚举
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusCustomer  LeadStatus = "customer"
	LeadStatusInactive  LeadStatus = "inactive"
)

// Valid 是否为合法状态
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusCustomer, LeadStatusInactive:
		return true
	}
	return false
}

const (
	DefaultBusinessType     = "individual"
	DefaultPreferredContact = "email"
	DefaultSource           = "website"
)

// StringList 兴趣标签列表；非数组形式的 JSON 值一律视为空列表
type StringList []string

// UnmarshalJSON 实现 json.Unmarshaler
func (l *StringList) UnmarshalJSON(data []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = StringList{}
		return nil
	}
	out := make(StringList, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// LeadSubmission 官网表单提交的线索数据
type LeadSubmission struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	WhatsApp    string `json:"whatsapp"`
	CompanyName string `json:"companyName"`
	Position    string `json:"position"`

	BusinessType string     `json:"businessType"`
	FuelTypes    StringList `json:"fuelTypes"`
	// InterestTags 旧版表单的字段名，与 FuelTypes 合并
	InterestTags StringList `json:"interestTags"`

	DeliveryFrequency     string `json:"deliveryFrequency"`
	AverageVolume         string `json:"averageVolume"`
	PreferredDeliveryTime string `json:"preferredDeliveryTime"`

	Address          string `json:"address"`
	Parish           string `json:"parish"`
	PreferredContact string `json:"preferredContact"`

	Newsletter      bool `json:"newsletter"`
	WhatsAppUpdates bool `json:"whatsappUpdates"`
	SMSAlerts       bool `json:"smsAlerts"`

	Message     string `json:"message"`
	HearAboutUs string `json:"hearAboutUs"`
	Source      string `json:"source"`
}

// LeadRecord 持久化的线索记录
type LeadRecord struct {
	ID string `bson:"-" json:"id"`

	FirstName   string `bson:"firstName" json:"firstName"`
	LastName    string `bson:"lastName" json:"lastName"`
	Email       string `bson:"email" json:"email"`
	Phone       string `bson:"phone" json:"phone"`
	WhatsApp    string `bson:"whatsapp" json:"whatsapp"`
	CompanyName string `bson:"companyName" json:"companyName"`
	Position    string `bson:"position" json:"position"`

	BusinessType string   `bson:"businessType" json:"businessType"`
	FuelTypes    []string `bson:"fuelTypes" json:"fuelTypes"`

	DeliveryFrequency     string `bson:"deliveryFrequency" json:"deliveryFrequency"`
	AverageVolume         string `bson:"averageVolume" json:"averageVolume"`
	PreferredDeliveryTime string `bson:"preferredDeliveryTime" json:"preferredDeliveryTime"`

	Address          string `bson:"address" json:"address"`
	Parish           string `bson:"parish" json:"parish"`
	PreferredContact string `bson:"preferredContact" json:"preferredContact"`

	Newsletter      bool `bson:"newsletter" json:"newsletter"`
	WhatsAppUpdates bool `bson:"whatsappUpdates" json:"whatsappUpdates"`
	SMSAlerts       bool `bson:"smsAlerts" json:"smsAlerts"`

	Message     string `bson:"message" json:"message"`
	HearAboutUs string `bson:"hearAboutUs" json:"hearAboutUs"`
	Source      string `bson:"source" json:"source"`

	Status      LeadStatus `bson:"status" json:"status"`
	TotalOrders int        `bson:"totalOrders" json:"totalOrders"`
	TotalSpent  float64    `bson:"totalSpent" json:"totalSpent"`
	Active      bool       `bson:"active" json:"active"`

	// 由存储层写入
	CreatedAt time.Time `bson:"createdAt,omitempty" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"updatedAt"`
}

// SubmissionResult 返回给前端的统一结果
type SubmissionResult struct {
	Success           bool   `json:"success"`
	ID                string `json:"id,omitempty"`
	Message           string `json:"message,omitempty"`
	Error             string `json:"error,omitempty"`
	RawError          string `json:"rawError,omitempty"`
	AlreadySubscribed bool   `json:"alreadySubscribed,omitempty"`

	// 错误分类，仅用于 HTTP 状态码映射
	Category string `json:"-"`
}

// UpdateStatusRequest 更新线索状态请求
type UpdateStatusRequest struct {
	Status LeadStatus `json:"status" binding:"required"`
}

// LeadPage 线索分页结果
type LeadPage struct {
	Leads      []LeadRecord `json:"leads"`
	NextCursor string       `json:"nextCursor,omitempty"`
	HasMore    bool         `json:"hasMore"`
}
